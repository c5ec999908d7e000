package compiler

import (
	"regexp"
	"strings"
	"testing"
)

func mustCompile(t *testing.T, source string) *Result {
	t.Helper()
	res, err := Compile(source, "<test>")
	if err != nil {
		t.Fatalf("Compile(%q): %v", source, err)
	}
	return res
}

func unitNamed(t *testing.T, res *Result, name string) UnitInfo {
	t.Helper()
	for _, u := range res.Units {
		if u.Name == name {
			return u
		}
	}
	t.Fatalf("no unit named %s", name)
	return UnitInfo{}
}

func TestCompileModuleShape(t *testing.T) {
	res := mustCompile(t, "x = 1\n")
	if res.FuncName != "$scope0" {
		t.Errorf("FuncName = %q, want $scope0", res.FuncName)
	}
	if !strings.HasPrefix(res.Code, "var $scope0=(function($modname){") {
		t.Errorf("code does not open the module function: %.60s", res.Code)
	}
	for _, want := range []string{
		"$gbl.__name__=$modname;",
		"$loc.x=Sk.ffi.numberToIntPy(1);",
		"return $loc;",
		"Sk.builtin.SystemExit",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("code missing %q", want)
		}
	}
	if len(res.Units) != 1 || res.Units[0].Name != "<module>" {
		t.Errorf("units = %+v, want just <module>", res.Units)
	}
}

func TestCompileGeneratorSuspensions(t *testing.T) {
	res := mustCompile(t, "def g():\n yield 1\n yield 2\n")
	g := unitNamed(t, res, "g")
	if !g.Generator {
		t.Error("g is not marked as a generator")
	}
	if g.Suspensions != 2 {
		t.Errorf("suspensions = %d, want 2", g.Suspensions)
	}
	first := strings.Index(res.Code, "return [/*resume*/1,/*ret*/Sk.ffi.numberToIntPy(1)];")
	second := strings.Index(res.Code, "return [/*resume*/2,/*ret*/Sk.ffi.numberToIntPy(2)];")
	if first < 0 || second < 0 {
		t.Fatalf("suspension points not found:\n%s", res.Code)
	}
	if first > second {
		t.Error("suspension points out of source order")
	}
	for _, want := range []string{"$gen.gi$resumeat", "$gen.gi$locals", "new Sk.builtins['generator']("} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("generator code missing %q", want)
		}
	}
}

func TestCompileGeneratorLocalsSurviveSuspension(t *testing.T) {
	res := mustCompile(t, "def g(n):\n    i = 0\n    while i < n:\n        yield i\n        i += 1\n")
	if !strings.Contains(res.Code, "$loc.i=") {
		t.Error("generator local not stored on $loc")
	}
	if strings.Contains(res.Code, "var i;") {
		t.Error("generator local declared as a plain JS variable")
	}
	if got := unitNamed(t, res, "g").Suspensions; got != 1 {
		t.Errorf("suspensions = %d, want 1", got)
	}
}

func TestCompileExceptBalance(t *testing.T) {
	sources := []string{
		"try:\n    a()\nexcept E:\n    b()\n",
		"try:\n    a()\nexcept E, e:\n    b()\nexcept:\n    c()\nelse:\n    d()\n",
		"try:\n    a()\nfinally:\n    b()\n",
		"with m() as v:\n    v.go()\n",
		"def f():\n    for x in y:\n        try:\n            try:\n                break\n            finally:\n                g()\n        except E:\n            continue\n",
	}
	for _, src := range sources {
		res := mustCompile(t, src)
		total := 0
		for _, u := range res.Units {
			if u.SetupExcepts != u.EndExcepts {
				t.Errorf("%q: unit %s has %d setups and %d ends", src, u.Name, u.SetupExcepts, u.EndExcepts)
			}
			total += u.SetupExcepts
		}
		if total == 0 {
			t.Errorf("%q: no handlers recorded", src)
		}
		if got := strings.Count(res.Code, "$exc.push("); got != total {
			t.Errorf("%q: %d pushes in code, %d recorded", src, got, total)
		}
	}
}

var blockHeader = regexp.MustCompile(`case \d+: /\* --- (.*?) --- \*/`)

// blocksNamed returns the bodies of every block emitted under name.
func blocksNamed(code, name string) []string {
	var bodies []string
	headers := blockHeader.FindAllStringSubmatchIndex(code, -1)
	for i, h := range headers {
		if code[h[2]:h[3]] != name {
			continue
		}
		end := len(code)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		bodies = append(bodies, code[h[1]:end])
	}
	return bodies
}

var exitToStore = regexp.MustCompile(`\$exitto\d+=\d+;`)

func TestCompileExitsRunFinally(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		leaves int
	}{
		{"break", "def f(y):\n    for x in y:\n        try:\n            break\n        finally:\n            g()\n", 1},
		{"continue nested", "def f(y):\n    while y:\n        try:\n            try:\n                continue\n            finally:\n                a()\n        finally:\n            b()\n", 2},
		{"return", "def f():\n    try:\n        return h()\n    finally:\n        g()\n", 1},
		{"return through except", "def f():\n    try:\n        try:\n            return 1\n        except E:\n            pass\n    finally:\n        g()\n", 1},
		{"finally outside loop", "def f(y):\n    try:\n        for x in y:\n            break\n    finally:\n        g()\n", 0},
	}
	for _, tc := range tests {
		res := mustCompile(t, tc.src)
		leaves := blocksNamed(res.Code, "leave through finally")
		if len(leaves) != tc.leaves {
			t.Errorf("%s: %d trampoline blocks, want %d", tc.name, len(leaves), tc.leaves)
		}
		if got := len(exitToStore.FindAllString(res.Code, -1)); got != tc.leaves {
			t.Errorf("%s: %d resume targets stored, want %d", tc.name, got, tc.leaves)
		}
		for _, body := range blocksNamed(res.Code, "finally") {
			if !strings.Contains(body, "!==-1){$blk=$exitto") {
				t.Errorf("%s: final block does not resume a pending exit:\n%s", tc.name, body)
			}
		}
		u := unitNamed(t, res, "f")
		if u.SetupExcepts != u.EndExcepts {
			t.Errorf("%s: %d setups and %d ends", tc.name, u.SetupExcepts, u.EndExcepts)
		}
	}
}

func TestCompileReturnValueSurvivesFinally(t *testing.T) {
	res := mustCompile(t, "def f():\n    try:\n        return h()\n    finally:\n        g()\n")
	leaves := blocksNamed(res.Code, "leave through finally")
	if len(leaves) != 1 {
		t.Fatalf("%d trampoline blocks, want 1", len(leaves))
	}
	if !strings.Contains(leaves[0], "return $ret") {
		t.Errorf("trampoline does not return the saved value:\n%s", leaves[0])
	}
	if n := strings.Count(res.Code, "return $ret"); n != 1 {
		t.Errorf("%d returns of the saved value, want 1", n)
	}
}

func TestCompileClosures(t *testing.T) {
	res := mustCompile(t, "def f():\n x=1\n def g():\n  return x\n return g\n")
	for _, want := range []string{
		"$cell={}",
		"$cell.x=Sk.ffi.numberToIntPy(1);",
		"return $free.x;",
		",$gbl,$cell)",
		"// has cell",
		"// has free",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("closure code missing %q", want)
		}
	}
}

func TestCompileFastLocals(t *testing.T) {
	res := mustCompile(t, "def f(a):\n    x = a\n    return x\n")
	for _, want := range []string{
		"var x; /* locals */",
		"referenced before assignment",
		"Sk.builtin.pyCheckArgs('f', arguments, 1, 1, false, false);",
		".co_varnames=['a'];",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("code missing %q", want)
		}
	}
}

func TestCompileDefaultsAndVarargs(t *testing.T) {
	res := mustCompile(t, "def f(a, b=2, *rest, **kw):\n    return rest\n")
	for _, want := range []string{
		"if(typeof b === 'undefined')b=",
		".$defaults=[",
		"Array.prototype.slice.call(arguments,3)",
		"new Sk.builtins['dict']($kwa)",
		".co_kwargs=1;",
		"Sk.builtin.pyCheckArgs('f', arguments, 1, Infinity, true, false);",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("code missing %q", want)
		}
	}
}

func TestCompileClassMangling(t *testing.T) {
	res := mustCompile(t, "class C(object):\n    def m(self):\n        self.__x = 1\n")
	for _, want := range []string{
		"Sk.abstr.sattr(self,'_C__x',",
		"$class_outer($globals,$locals,$rest)",
		"Sk.misceval.buildClass($gbl,",
		"'C'",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("code missing %q", want)
		}
	}
}

func TestCompileReservedNames(t *testing.T) {
	res := mustCompile(t, "var = 1\nlength = 2\n")
	for _, want := range []string{"$loc.var_$rw$=", "$loc.length_$rn$="} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("code missing %q", want)
		}
	}
}

func TestCompileOptions(t *testing.T) {
	src := "while x:\n    pass\n"
	full, err := CompileWithOptions(src, "<test>", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	bare, err := CompileWithOptions(src, "<test>", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(full.Code, "Sk.currLineNo = 1;") {
		t.Error("annotated output lacks line tracking")
	}
	if !strings.Contains(full.Code, "Sk.execLimit") {
		t.Error("default output lacks time limit checks")
	}
	if strings.Contains(bare.Code, "Sk.currLineNo") || strings.Contains(bare.Code, "Sk.execLimit") {
		t.Error("bare output carries optional code")
	}
	if len(bare.Code) >= len(full.Code) {
		t.Errorf("bare output (%d bytes) not smaller than full (%d bytes)", len(bare.Code), len(full.Code))
	}
}

func TestCompileImports(t *testing.T) {
	res := mustCompile(t, "import a.b\nimport c.d as e\nfrom ..f import g\nfrom h import *\n")
	for _, want := range []string{
		"Sk.builtin.__import__('a.b',$gbl,$loc,[])",
		"$loc.a=",
		"Sk.abstr.gattr(",
		"$loc.e=",
		"Sk.builtin.__import__('f',$gbl,$loc,['g'],2)",
		"Sk.importStar(",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("code missing %q", want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kind   ErrorKind
		msg    string
		line   int
	}{
		{"return at module", "return 1\n", CompileError, "'return' outside function", 1},
		{"break outside loop", "x = 1\nbreak\n", CompileError, "'break' outside loop", 2},
		{"continue outside loop", "continue\n", CompileError, "'continue' outside loop", 1},
		{"break in nested def", "while x:\n    def f():\n        break\n", CompileError, "'break' outside loop", 3},
		{"yield at module", "yield 1\n", CompileError, "'yield' outside function", 1},
		{"exec", "exec 'x = 1'\n", CompileError, "exec is not supported", 1},
		{"bare except first", "try:\n    a\nexcept:\n    b\nexcept E:\n    c\n", CompileError,
			"default 'except:' must be last", 3},
		{"generator varargs", "def g(*a):\n    yield a\n", CompileError,
			"g(): variable number of arguments in generators not supported", 1},
		{"generator kwargs", "def g(**k):\n    yield k\n", CompileError,
			"g(): keyword arguments in generators not supported", 1},
		{"assign debug", "__debug__ = 1\n", ScopeError, "can not assign to __debug__", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Compile(tc.source, "<test>")
			if err == nil {
				t.Fatal("expected an error")
			}
			if res != nil {
				t.Error("partial result returned with error")
			}
			cerr, ok := AsError(err)
			if !ok {
				t.Fatalf("error %T is not a compiler error", err)
			}
			if cerr.Kind != tc.kind {
				t.Errorf("kind = %s, want %s", cerr.Kind, tc.kind)
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

func TestGenerateRequiresAnalysis(t *testing.T) {
	mod := mustBuild(t, "x = 1\n")
	if _, err := Generate(mod, &SymbolTable{}, "x = 1\n", "<test>", DefaultOptions()); err == nil {
		t.Error("Generate accepted an unanalyzed table")
	}
}

func TestQuoteJS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc", `'abc'`},
		{"it's", `"it's"`},
		{`a'b"c`, `'a\'b"c'`},
		{"a\\b", `'a\\b'`},
		{"tab\tnl\n", `'tab\tnl\n'`},
		{"\x01", `'\x01'`},
		{"é", `'\xe9'`},
		{"€", `'\u20ac'`},
		{"😀", `'\ud83d\ude00'`},
	}
	for _, tc := range tests {
		if got := quoteJS(tc.in); got != tc.want {
			t.Errorf("quoteJS(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestJSFloat(t *testing.T) {
	res := mustCompile(t, "a = 2.0\nb = 1e400\nc = 0.5\n")
	for _, want := range []string{
		"Sk.builtin.numberToPy(2.0)",
		"Sk.builtin.numberToPy(Infinity)",
		"Sk.builtin.numberToPy(0.5)",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("code missing %q", want)
		}
	}
}
