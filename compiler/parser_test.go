package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAccepts(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"blank lines", "\n\n\n"},
		{"assignment", "x = 1\n"},
		{"no trailing newline", "x = 1"},
		{"chained assignment", "a = b = c\n"},
		{"tuple unpack", "a, (b, c) = x\n"},
		{"augmented", "x += 1\n"},
		{"print", "print 'a', 1\nprint\n"},
		{"print dest", "print >>f, x,\n"},
		{"if elif else", "if a:\n    b\nelif c:\n    d\nelse:\n    e\n"},
		{"while else", "while x:\n    break\nelse:\n    pass\n"},
		{"for", "for i in range(10):\n    continue\n"},
		{"def", "def f(a, b=1, *args, **kw):\n    return a\n"},
		{"decorated def", "@dec\n@mod.dec(1)\ndef f():\n    pass\n"},
		{"class", "class C(B):\n    x = 1\n    def m(self):\n        return self.x\n"},
		{"try", "try:\n    a\nexcept E, e:\n    b\nexcept:\n    c\nelse:\n    d\n"},
		{"try finally", "try:\n    a\nfinally:\n    b\n"},
		{"with", "with open(f) as g:\n    g.read()\n"},
		{"imports", "import a.b as c, d\nfrom . import x\nfrom m import (y, z as w)\nfrom m import *\n"},
		{"lambda", "f = lambda x, y=2: x + y\n"},
		{"comprehensions", "a = [x for x in y if x]\nb = (x for x in y)\n"},
		{"dict", "d = {'a': 1, 'b': [2, 3]}\n"},
		{"slices", "x[1:2]\nx[::2]\nx[1:2, ...]\n"},
		{"yield", "def g():\n    x = yield 1\n    yield\n"},
		{"global nonlocal", "def f():\n    global a\n    def g():\n        nonlocal b\n"},
		{"raise", "raise E, 'msg'\n"},
		{"assert", "assert x, 'msg'\n"},
		{"exec", "exec code in g, l\n"},
		{"comments", "# top\nx = 1  # trailing\n"},
		{"semicolons", "a = 1; b = 2;\n"},
		{"backquote", "s = `x`\n"},
		{"conditional", "x = a if b else c\n"},
		{"comparison chain", "a < b <= c != d\n"},
		{"not in is not", "a not in b\na is not b\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root, err := Parse("<test>", tc.source)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if root == nil {
				t.Fatal("Parse returned a nil tree")
			}
			if root.Type != SymFileInput {
				t.Errorf("root = %s, want file_input", SymbolName(root.Type))
			}
			last := root.Child(root.NCh() - 1)
			if last.Type != ENDMARKER {
				t.Errorf("last child = %s, want ENDMARKER", SymbolName(last.Type))
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		kind       ErrorKind
		line       int
		incomplete bool
	}{
		{"bad input", "x = = 1\n", ParseError, 1, false},
		{"missing colon", "if x\n    pass\n", ParseError, 1, false},
		{"unbalanced paren", "x = 1\n)\n", ParseError, 2, false},
		{"bad token", "x = $\n", TokenError, 1, false},
		{"open block", "if x:\n", ParseError, 3, true},
		{"open paren", "f(1,\n", TokenError, 3, true},
		{"open string", "s = '''abc\n", TokenError, 1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("<test>", tc.source)
			if err == nil {
				t.Fatal("expected an error")
			}
			cerr, ok := AsError(err)
			if !ok {
				t.Fatalf("error %T is not a compiler error", err)
			}
			if cerr.Kind != tc.kind {
				t.Errorf("kind = %s, want %s (%v)", cerr.Kind, tc.kind, err)
			}
			if cerr.Line != tc.line {
				t.Errorf("line = %d, want %d (%v)", cerr.Line, tc.line, err)
			}
			if cerr.Incomplete != tc.incomplete {
				t.Errorf("incomplete = %v, want %v (%v)", cerr.Incomplete, tc.incomplete, err)
			}
			if cerr.FileName != "<test>" {
				t.Errorf("file = %q, want <test>", cerr.FileName)
			}
		})
	}
}

func TestLineParserFeed(t *testing.T) {
	lp := NewLineParser("<stdin>")
	lines := []string{"if x:\n", "    y = 1\n", "z = 2\n"}
	for i, line := range lines {
		n, err := lp.Feed(line)
		if err != nil {
			t.Fatalf("line %d: %v", i+1, err)
		}
		if n != nil {
			t.Fatalf("tree completed early at line %d", i+1)
		}
	}
	root, err := lp.Feed("")
	if err != nil {
		t.Fatalf("Feed(EOF): %v", err)
	}
	if root == nil {
		t.Fatal("module not completed at end of input")
	}
	if root.NCh() != 3 {
		t.Errorf("file_input has %d children, want 3", root.NCh())
	}
}

func TestLineParserSimpleStatement(t *testing.T) {
	lp := NewLineParserFor("<stdin>", SymSingleInput)
	root, err := lp.Feed("x = 1\n")
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if root == nil {
		t.Fatal("simple statement should complete on its own line")
	}
}

func TestLineParserIncomplete(t *testing.T) {
	lp := NewLineParser("<stdin>")
	if _, err := lp.Feed("def f():\n"); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	_, err := lp.Feed("")
	if !IsIncomplete(err) {
		t.Fatalf("Feed(EOF) = %v, want incomplete input", err)
	}
}

func TestParseTreeLineNumbers(t *testing.T) {
	root, err := Parse("<test>", "a\n\nb\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if root.NCh() != 3 {
		t.Fatalf("file_input has %d children, want 3", root.NCh())
	}
	if got := root.Child(0).Lineno; got != 1 {
		t.Errorf("first stmt line = %d, want 1", got)
	}
	if got := root.Child(1).Lineno; got != 3 {
		t.Errorf("second stmt line = %d, want 3", got)
	}
}

// TestParseTreeGolden compares ParseTreeDump output against testdata. A
// missing golden file is written on first run.
func TestParseTreeGolden(t *testing.T) {
	inputs, err := filepath.Glob(filepath.Join("testdata", "parse", "*.py"))
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) == 0 {
		t.Fatal("no parse fixtures found")
	}
	for _, in := range inputs {
		name := strings.TrimSuffix(filepath.Base(in), ".py")
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(in)
			if err != nil {
				t.Fatal(err)
			}
			root, err := Parse(in, string(src))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got := ParseTreeDump(root)

			goldenPath := strings.TrimSuffix(in, ".py") + ".golden"
			want, err := os.ReadFile(goldenPath)
			if err != nil {
				if err := os.WriteFile(goldenPath, []byte(got), 0o644); err != nil {
					t.Fatalf("write golden file: %v", err)
				}
				t.Logf("created golden file %s", goldenPath)
				return
			}
			if got != string(want) {
				t.Errorf("parse tree mismatch for %s\ngot:\n%s\nwant:\n%s", name, got, want)
			}
		})
	}
}
