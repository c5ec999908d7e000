package compiler

import (
	"strings"
	"testing"
)

func buildModule(t *testing.T, source string) (*Module, error) {
	t.Helper()
	cst, err := Parse("<test>", source)
	if err != nil {
		t.Fatalf("Parse(%q): %v", source, err)
	}
	return AstFromParse(cst, "<test>")
}

func mustBuild(t *testing.T, source string) *Module {
	t.Helper()
	mod, err := buildModule(t, source)
	if err != nil {
		t.Fatalf("AstFromParse(%q): %v", source, err)
	}
	return mod
}

func TestBuildInvalidTargets(t *testing.T) {
	tests := []struct {
		source string
		msg    string
	}{
		{"1 = x\n", "can't assign to literal"},
		{"'s' = x\n", "can't assign to literal"},
		{"f() = x\n", "can't assign to function call"},
		{"(yield x) = y\n", "can't assign to yield expression"},
		{"a + b = c\n", "can't assign to operator"},
		{"a < b = c\n", "can't assign to comparison expression"},
		{"(a if b else c) = d\n", "can't assign to conditional expression"},
		{"[x for x in y] = z\n", "can't assign to list comprehension"},
		{"(x for x in y) = z\n", "can't assign to generator expression"},
		{"(lambda: 1) = z\n", "can't assign to lambda"},
		{"() = x\n", "can't assign to ()"},
		{"None = 1\n", "assignment to None"},
		{"x.True = 1\n", "assignment to True or False is forbidden"},
		{"a, f() = x\n", "can't assign to function call"},
		{"del f()\n", "can't delete function call"},
		{"for 1 in x:\n    pass\n", "can't assign to literal"},
		{"f() += 1\n", "illegal expression for augmented assignment"},
		{"def f(a=1, b):\n    pass\n", "non-default argument follows default argument"},
		{"f(a=1, b)\n", "non-keyword arg after keyword arg"},
		{"f(a=1, a=2)\n", "keyword argument repeated"},
		{"f(x for x in y, 1)\n", "Generator expression must be parenthesized if not sole argument"},
		{"x = 1j\n", "complex numbers are currently unsupported"},
	}
	for _, tc := range tests {
		t.Run(strings.TrimSpace(tc.source), func(t *testing.T) {
			_, err := buildModule(t, tc.source)
			if err == nil {
				t.Fatal("expected an error")
			}
			cerr, ok := AsError(err)
			if !ok {
				t.Fatalf("error %T is not a compiler error", err)
			}
			if cerr.Kind != BuildError {
				t.Errorf("kind = %s, want BuildError", cerr.Kind)
			}
			if cerr.Msg != tc.msg {
				t.Errorf("msg = %q, want %q", cerr.Msg, tc.msg)
			}
		})
	}
}

func TestBuildNestedUnpackTarget(t *testing.T) {
	mod := mustBuild(t, "a, (b, c) = x\n")
	if len(mod.Body) != 1 {
		t.Fatalf("got %d statements, want 1", len(mod.Body))
	}
	assign, ok := mod.Body[0].(*Assign)
	if !ok {
		t.Fatalf("statement is %T, want *Assign", mod.Body[0])
	}
	outer, ok := assign.Targets[0].(*Tuple)
	if !ok || len(outer.Elts) != 2 {
		t.Fatalf("target = %s", Dump(assign.Targets[0]))
	}
	if outer.Ctx != Store {
		t.Errorf("outer ctx = %s, want Store", outer.Ctx)
	}
	inner, ok := outer.Elts[1].(*Tuple)
	if !ok {
		t.Fatalf("second element is %T, want *Tuple", outer.Elts[1])
	}
	for _, e := range append([]Expr{outer.Elts[0]}, inner.Elts...) {
		if n := e.(*Name); n.Ctx != Store {
			t.Errorf("%s ctx = %s, want Store", n.ID, n.Ctx)
		}
	}
	if v := assign.Value.(*Name); v.Ctx != Load {
		t.Errorf("value ctx = %s, want Load", v.Ctx)
	}
}

func TestBuildContexts(t *testing.T) {
	mod := mustBuild(t, "del a, b.c, d[0]\nx += 1\n")
	del := mod.Body[0].(*Delete)
	for i, target := range del.Targets {
		if ctx := target.(Assignable).Context(); ctx != Del {
			t.Errorf("del target %d ctx = %s, want Del", i, ctx)
		}
	}
	aug := mod.Body[1].(*AugAssign)
	if aug.Op != Add {
		t.Errorf("augassign op = %s, want Add", aug.Op)
	}
	if ctx := aug.Target.(*Name).Ctx; ctx != Store {
		t.Errorf("augassign target ctx = %s, want Store", ctx)
	}
}

func TestBuildScopeKeysDistinct(t *testing.T) {
	mod := mustBuild(t, `def f():
    g = lambda: 1
    class C:
        pass
    return (x for x in g())
`)
	keys := map[int]string{mod.ScopeKey: "module"}
	add := func(key int, what string) {
		if prev, dup := keys[key]; dup {
			t.Errorf("%s reuses scope key %d of %s", what, key, prev)
		}
		keys[key] = what
	}
	fn := mod.Body[0].(*FunctionDef)
	add(fn.ScopeKey, "f")
	add(fn.Body[0].(*Assign).Value.(*Lambda).ScopeKey, "lambda")
	add(fn.Body[1].(*ClassDef).ScopeKey, "C")
	add(fn.Body[2].(*Return).Value.(*GeneratorExp).ScopeKey, "genexp")
	if mod.ScopeKey != 0 {
		t.Errorf("module scope key = %d, want 0", mod.ScopeKey)
	}
	if len(keys) != 5 {
		t.Errorf("got %d distinct keys, want 5", len(keys))
	}
}

func TestBuildDecoratorsAndArguments(t *testing.T) {
	mod := mustBuild(t, "@a.b\n@c(1)\ndef f(x, y=2, *rest, **kw):\n    pass\n")
	fn, ok := mod.Body[0].(*FunctionDef)
	if !ok {
		t.Fatalf("statement is %T, want *FunctionDef", mod.Body[0])
	}
	if len(fn.DecoratorList) != 2 {
		t.Fatalf("got %d decorators, want 2", len(fn.DecoratorList))
	}
	if _, ok := fn.DecoratorList[0].(*Attribute); !ok {
		t.Errorf("first decorator is %T, want *Attribute", fn.DecoratorList[0])
	}
	if _, ok := fn.DecoratorList[1].(*Call); !ok {
		t.Errorf("second decorator is %T, want *Call", fn.DecoratorList[1])
	}
	args := fn.Args
	if len(args.Args) != 2 || len(args.Defaults) != 1 {
		t.Errorf("args = %d, defaults = %d; want 2, 1", len(args.Args), len(args.Defaults))
	}
	if args.Vararg != "rest" || args.Kwarg != "kw" {
		t.Errorf("vararg = %q, kwarg = %q", args.Vararg, args.Kwarg)
	}
	for _, a := range args.Args {
		if n := a.(*Name); n.Ctx != Param {
			t.Errorf("parameter %s ctx = %s, want Param", n.ID, n.Ctx)
		}
	}
}

func TestBuildNegativeLiteralFolding(t *testing.T) {
	mod := mustBuild(t, "a = -5\nb = -x\n")
	if num, ok := mod.Body[0].(*Assign).Value.(*Num); !ok || num.N.Int != -5 {
		t.Errorf("-5 built as %s", Dump(mod.Body[0].(*Assign).Value))
	}
	if u, ok := mod.Body[1].(*Assign).Value.(*UnaryOp); !ok || u.Op != USub {
		t.Errorf("-x built as %s", Dump(mod.Body[1].(*Assign).Value))
	}
}

func TestBuildStringConcatenation(t *testing.T) {
	mod := mustBuild(t, "s = 'a' \"b\" '''c'''\n")
	str, ok := mod.Body[0].(*Assign).Value.(*Str)
	if !ok {
		t.Fatalf("value is %T, want *Str", mod.Body[0].(*Assign).Value)
	}
	if str.S != "abc" {
		t.Errorf("S = %q, want %q", str.S, "abc")
	}
}

func TestBuildImports(t *testing.T) {
	mod := mustBuild(t, "import a.b as c, d\nfrom ..pkg import x as y\nfrom m import *\n")
	imp := mod.Body[0].(*Import)
	if len(imp.Names) != 2 || imp.Names[0].Name != "a.b" || imp.Names[0].Asname != "c" {
		t.Errorf("import = %s", Dump(imp))
	}
	from := mod.Body[1].(*ImportFrom)
	if from.Module != "pkg" || from.Level != 2 {
		t.Errorf("from module = %q level %d, want pkg level 2", from.Module, from.Level)
	}
	if from.Names[0].Name != "x" || from.Names[0].Asname != "y" {
		t.Errorf("from names = %s", aliasList(from.Names))
	}
	star := mod.Body[2].(*ImportFrom)
	if len(star.Names) != 1 || star.Names[0].Name != "*" {
		t.Errorf("star import = %s", aliasList(star.Names))
	}
}
