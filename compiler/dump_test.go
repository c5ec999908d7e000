package compiler

import (
	"strings"
	"testing"
)

func TestDumpAssign(t *testing.T) {
	mod := mustBuild(t, "x = 1\n")
	want := "Module @1:0\n" +
		"  body:\n" +
		"    Assign @1:0\n" +
		"      targets:\n" +
		"        Name id=x ctx=Store @1:0\n" +
		"      value: Num n=1 @1:4\n"
	if got := Dump(mod); got != want {
		t.Errorf("Dump mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestDumpCoversNodeKinds(t *testing.T) {
	src := `@deco
def f(a, b=2, *c, **d):
    global g
    for i in a:
        if i:
            continue
        else:
            break
    while b:
        b -= 1
    try:
        raise E, 'x'
    except E, e:
        pass
    finally:
        del c[0:1], d.k
    with m() as n:
        print >>out, n,
    assert a is not None, "msg"
    return [x for x in a if x], (y for y in a), {1: 2L}, lambda: 3.5, a[...], a[1:2, 3]
class K(object):
    import os
    from . import sys as system
`
	out := Dump(mustBuild(t, src))
	for _, want := range []string{
		"FunctionDef name=f", "args: arguments vararg=c kwarg=d", "decorators:",
		"Global names=[g]", "For", "If", "Continue", "Break", "While",
		"AugAssign op=Sub", "TryFinally", "TryExcept", "handler: ExceptHandler",
		"Raise", "Delete", "Slice", "Attribute attr=k ctx=Del", "With",
		"Print nl=false", "dest: Name id=out", "Assert", "Compare ops=[IsNot]",
		"Return", "ListComp", "generator: comprehension", "GeneratorExp",
		"Dict", "Num n=2L", "Lambda", "Num n=3.5", "Ellipsis", "ExtSlice",
		"ClassDef name=K", "Import names=[os]", "ImportFrom module= names=[sys as system] level=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q", want)
		}
	}
	if strings.Contains(out, "<unknown") {
		t.Errorf("dump has unknown nodes:\n%s", out)
	}
}
