package compiler

import (
	"reflect"
	"strings"
	"testing"
)

func buildTable(t *testing.T, source string) *SymbolTable {
	t.Helper()
	mod := mustBuild(t, source)
	st, err := BuildSymbolTable(mod, "<test>")
	if err != nil {
		t.Fatalf("BuildSymbolTable: %v", err)
	}
	return st
}

// child returns the named direct child scope of s.
func child(t *testing.T, st *SymbolTable, s *Scope, name string) *Scope {
	t.Helper()
	for _, id := range s.Children {
		if c := st.Scope(id); c.Name == name {
			return c
		}
	}
	t.Fatalf("scope %s has no child %s", s.Name, name)
	return nil
}

func TestSymtableClosure(t *testing.T) {
	st := buildTable(t, "def f():\n x=1\n def g():\n  return x\n")
	if !st.Analyzed() {
		t.Fatal("table not analyzed")
	}
	f := child(t, st, st.Top(), "f")
	g := child(t, st, f, "g")

	if f.Flags("x")&DefBound == 0 {
		t.Error("x is not bound in f")
	}
	if got := f.ScopeOf("x"); got != ScopeCell {
		t.Errorf("x in f = %s, want CELL", got)
	}
	if got := g.ScopeOf("x"); got != ScopeFree {
		t.Errorf("x in g = %s, want FREE", got)
	}
	if !f.ChildHasFree {
		t.Error("f.ChildHasFree = false")
	}
	if !g.HasFree {
		t.Error("g.HasFree = false")
	}
	if f.HasFree {
		t.Error("f.HasFree = true, f captures nothing")
	}
	if !g.Nested || f.Nested {
		t.Errorf("nested: f=%v g=%v, want false true", f.Nested, g.Nested)
	}
	if got := st.Top().ScopeOf("f"); got != ScopeLocal {
		t.Errorf("f at module level = %s, want LOCAL", got)
	}
}

func TestSymtableClassifications(t *testing.T) {
	src := `import os.path
y = 1
def f(a, *args, **kw):
    global y
    z = a
    print len(z), os
`
	st := buildTable(t, src)
	top := st.Top()
	f := child(t, st, top, "f")

	tests := []struct {
		scope *Scope
		name  string
		want  Classification
	}{
		{top, "os", ScopeLocal},
		{top, "y", ScopeGlobalExplicit},
		{f, "y", ScopeGlobalExplicit},
		{f, "a", ScopeLocal},
		{f, "args", ScopeLocal},
		{f, "kw", ScopeLocal},
		{f, "z", ScopeLocal},
		{f, "len", ScopeGlobalImplicit},
		{f, "os", ScopeGlobalImplicit},
	}
	for _, tc := range tests {
		if got := tc.scope.ScopeOf(tc.name); got != tc.want {
			t.Errorf("%s in %s = %s, want %s", tc.name, tc.scope.Name, got, tc.want)
		}
	}
	if !f.Varargs || !f.Varkeywords {
		t.Errorf("varargs = %v, varkeywords = %v", f.Varargs, f.Varkeywords)
	}
	if want := []string{"a", "args", "kw"}; !reflect.DeepEqual(f.Varnames, want) {
		t.Errorf("varnames = %v, want %v", f.Varnames, want)
	}
	if want := []string{"a", "args", "kw"}; !reflect.DeepEqual(f.Parameters(), want) {
		t.Errorf("parameters = %v, want %v", f.Parameters(), want)
	}
	if want := []string{"len", "os", "y"}; !reflect.DeepEqual(f.Globals(), want) {
		t.Errorf("globals = %v, want %v", f.Globals(), want)
	}
}

func TestSymtableUnresolvedBeforeAnalysis(t *testing.T) {
	s := &Scope{flags: map[string]int{"x": DefLocal | int(ScopeLocal)<<scopeOff}}
	if got := s.ScopeOf("x"); got != Unresolved {
		t.Errorf("ScopeOf before analysis = %s, want UNRESOLVED", got)
	}
}

func TestSymtableMangling(t *testing.T) {
	st := buildTable(t, "class C:\n    def m(self):\n        self.__x = 1\n        __y = 2\n        __z__ = 3\n")
	c := child(t, st, st.Top(), "C")
	m := child(t, st, c, "m")
	ids := m.Identifiers()
	for _, want := range []string{"_C__y", "__z__", "self"} {
		found := false
		for _, id := range ids {
			if id == want {
				found = true
			}
		}
		if !found {
			t.Errorf("identifier %s missing from %v", want, ids)
		}
	}

	tests := []struct {
		private, name, want string
	}{
		{"C", "__x", "_C__x"},
		{"_Priv", "__x", "_Priv__x"},
		{"C", "__init__", "__init__"},
		{"C", "_x", "_x"},
		{"C", "__a.b", "__a.b"},
		{"___", "__x", "__x"},
		{"", "__x", "__x"},
	}
	for _, tc := range tests {
		if got := MangleName(tc.private, tc.name); got != tc.want {
			t.Errorf("MangleName(%q, %q) = %q, want %q", tc.private, tc.name, got, tc.want)
		}
	}
}

func TestSymtableNonlocal(t *testing.T) {
	st := buildTable(t, "def f():\n    n = 0\n    def inc():\n        nonlocal n\n        n = n + 1\n    return inc\n")
	f := child(t, st, st.Top(), "f")
	inc := child(t, st, f, "inc")
	if got := inc.ScopeOf("n"); got != ScopeFree {
		t.Errorf("n in inc = %s, want FREE", got)
	}
	if got := f.ScopeOf("n"); got != ScopeCell {
		t.Errorf("n in f = %s, want CELL", got)
	}
}

func TestSymtablePassthroughFree(t *testing.T) {
	st := buildTable(t, "def a():\n    v = 1\n    def b():\n        def c():\n            return v\n        return c\n    return b\n")
	a := child(t, st, st.Top(), "a")
	b := child(t, st, a, "b")
	c := child(t, st, b, "c")
	if got := b.ScopeOf("v"); got != ScopeFree {
		t.Errorf("v in b = %s, want FREE", got)
	}
	if !b.HasFree {
		t.Error("b must carry v through to c")
	}
	if got := c.ScopeOf("v"); got != ScopeFree {
		t.Errorf("v in c = %s, want FREE", got)
	}
	if got := a.ScopeOf("v"); got != ScopeCell {
		t.Errorf("v in a = %s, want CELL", got)
	}
}

func TestSymtableClassBodyNotClosure(t *testing.T) {
	st := buildTable(t, "class C:\n    k = 1\n    def m(self):\n        return k\n")
	c := child(t, st, st.Top(), "C")
	m := child(t, st, c, "m")
	if got := m.ScopeOf("k"); got != ScopeGlobalImplicit {
		t.Errorf("k in m = %s, want GLOBAL_IMPLICIT", got)
	}
	if got := c.ScopeOf("k"); got != ScopeLocal {
		t.Errorf("k in C = %s, want LOCAL", got)
	}
}

func TestSymtableGenerators(t *testing.T) {
	st := buildTable(t, "def g():\n    yield 1\nh = (i * 2 for i in range(3))\n")
	g := child(t, st, st.Top(), "g")
	if !g.Generator {
		t.Error("g.Generator = false")
	}
	gen := child(t, st, st.Top(), "genexpr")
	if !gen.Generator {
		t.Error("genexpr.Generator = false")
	}
	if gen.Flags(".0")&DefParam == 0 {
		t.Error("genexpr lacks implicit .0 parameter")
	}
	if got := gen.ScopeOf("i"); got != ScopeLocal {
		t.Errorf("i in genexpr = %s, want LOCAL", got)
	}
	if got := st.Top().ScopeOf("range"); got != ScopeGlobalImplicit {
		t.Errorf("range evaluated in module = %s, want GLOBAL_IMPLICIT", got)
	}
}

func TestSymtableScopeFor(t *testing.T) {
	mod := mustBuild(t, "def f():\n    pass\n")
	st, err := BuildSymbolTable(mod, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	s, err := st.ScopeFor(mod.Body[0].(*FunctionDef).ScopeKey)
	if err != nil {
		t.Fatalf("ScopeFor: %v", err)
	}
	if s.Name != "f" || s.Type != FunctionBlock {
		t.Errorf("scope = %s %s, want function f", s.Type, s.Name)
	}
	if _, err := st.ScopeFor(99); err == nil {
		t.Error("ScopeFor(99) succeeded")
	}
	if st.Len() != 2 {
		t.Errorf("Len = %d, want 2", st.Len())
	}
}

func TestSymtableErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		msg    string
		line   int
	}{
		{"duplicate argument", "def f(a, a):\n    pass\n",
			"duplicate argument 'a' in function definition", 1},
		{"return in generator", "def g():\n    yield 1\n    return 2\n",
			"'return' with argument inside generator", 3},
		{"yield after return", "def g():\n    return 2\n    yield 1\n",
			"'return' with argument inside generator", 3},
		{"import star in function", "def f():\n    from m import *\n",
			"import * only allowed at module level", 2},
		{"assigned before global", "def f():\n    x = 1\n    global x\n",
			"name 'x' is assigned to before global declaration", 3},
		{"used before global", "def f():\n    print x\n    global x\n",
			"name 'x' is used prior to global declaration", 3},
		{"global parameter", "def f(x):\n    global x\n",
			"name 'x' is local and global", 1},
		{"nonlocal at module", "nonlocal x\n",
			"nonlocal declaration not allowed at module level", 1},
		{"nonlocal without binding", "def f():\n    nonlocal q\n",
			"no binding for nonlocal 'q' found", 1},
		{"nonlocal parameter", "def f():\n    x = 1\n    def g(x):\n        nonlocal x\n",
			"name 'x' is parameter and nonlocal", 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mod := mustBuild(t, tc.source)
			_, err := BuildSymbolTable(mod, "<test>")
			if err == nil {
				t.Fatal("expected an error")
			}
			cerr, ok := AsError(err)
			if !ok {
				t.Fatalf("error %T is not a compiler error", err)
			}
			if cerr.Kind != ScopeError {
				t.Errorf("kind = %s, want ScopeError", cerr.Kind)
			}
			if cerr.Msg != tc.msg {
				t.Errorf("msg = %q, want %q", cerr.Msg, tc.msg)
			}
			if cerr.Line != tc.line {
				t.Errorf("line = %d, want %d", cerr.Line, tc.line)
			}
		})
	}
}

func TestDumpSymbolTable(t *testing.T) {
	st := buildTable(t, "def f(a):\n    return a + b\n")
	out := DumpSymbolTable(st)
	for _, want := range []string{
		"Sym_type: module",
		"Sym_name: top",
		"Sym_name: f",
		"Func_params: [a]",
		"Func_globals: [b]",
		"name: b",
		"  scope: GLOBAL_IMPLICIT",
		"is_namespace: True",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
