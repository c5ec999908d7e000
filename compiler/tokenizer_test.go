package compiler

import (
	"strings"
	"testing"
)

// tokenize feeds source line by line and returns every emitted token.
func tokenize(t *testing.T, source string) ([]Token, error) {
	t.Helper()
	var toks []Token
	tz := NewTokenizer("<test>", func(tok Token) (bool, error) {
		toks = append(toks, tok)
		return tok.Type == ENDMARKER, nil
	})
	for _, line := range strings.SplitAfter(source, "\n") {
		if line == "" {
			continue
		}
		if _, err := tz.Feed(line); err != nil {
			return toks, err
		}
	}
	_, err := tz.Feed("")
	return toks, err
}

func tokenTypes(toks []Token) []int {
	types := make([]int, 0, len(toks))
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	return types
}

func TestTokenizerSimple(t *testing.T) {
	toks, err := tokenize(t, "x = 1\n")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []struct {
		typ   int
		value string
	}{
		{NAME, "x"},
		{OP, "="},
		{NUMBER, "1"},
		{NEWLINE, "\n"},
		{ENDMARKER, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), tokenTypes(toks))
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Value != w.value {
			t.Errorf("token %d: got %s %q, want %s %q",
				i, TokenName(toks[i].Type), toks[i].Value, TokenName(w.typ), w.value)
		}
	}
	if toks[2].Start != (Pos{1, 4}) || toks[2].End != (Pos{1, 5}) {
		t.Errorf("NUMBER span = %v-%v, want {1 4}-{1 5}", toks[2].Start, toks[2].End)
	}
}

func TestTokenizerIndentBalance(t *testing.T) {
	tests := []struct {
		name   string
		source string
		depth  int
	}{
		{"flat", "a\nb\n", 0},
		{"one level", "if a:\n    b\n", 1},
		{"nested", "if a:\n    if b:\n        c\n    d\n", 2},
		{"closed at eof", "def f():\n  def g():\n    return 1\n", 2},
		{"tabs", "if a:\n\tb\n", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := tokenize(t, tc.source)
			if err != nil {
				t.Fatalf("tokenize: %v", err)
			}
			depth, max := 0, 0
			for _, tok := range toks {
				switch tok.Type {
				case INDENT:
					depth++
				case DEDENT:
					depth--
				}
				if depth < 0 {
					t.Fatalf("DEDENT without matching INDENT")
				}
				if depth > max {
					max = depth
				}
			}
			if depth != 0 {
				t.Errorf("unbalanced indentation: depth %d at end", depth)
			}
			if max != tc.depth {
				t.Errorf("max depth = %d, want %d", max, tc.depth)
			}
			if last := toks[len(toks)-1]; last.Type != ENDMARKER {
				t.Errorf("last token = %s, want ENDMARKER", TokenName(last.Type))
			}
		})
	}
}

func TestTokenizerTripleQuotedString(t *testing.T) {
	src := "s = \"\"\"one\ntwo\nthree\"\"\"\n"
	toks, err := tokenize(t, src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	var strs []Token
	for _, tok := range toks {
		if tok.Type == STRING {
			strs = append(strs, tok)
		}
	}
	if len(strs) != 1 {
		t.Fatalf("got %d STRING tokens, want 1", len(strs))
	}
	want := "\"\"\"one\ntwo\nthree\"\"\""
	if strs[0].Value != want {
		t.Errorf("STRING value = %q, want %q", strs[0].Value, want)
	}
	if strs[0].Start.Line != 1 || strs[0].End.Line != 3 {
		t.Errorf("STRING spans lines %d-%d, want 1-3", strs[0].Start.Line, strs[0].End.Line)
	}
}

func TestTokenizerContinuationLines(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"brackets", "x = (1,\n     2)\n"},
		{"backslash", "x = 1 + \\\n    2\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := tokenize(t, tc.source)
			if err != nil {
				t.Fatalf("tokenize: %v", err)
			}
			newlines := 0
			for _, tok := range toks {
				switch tok.Type {
				case NEWLINE:
					newlines++
				case INDENT:
					t.Errorf("continuation line produced INDENT")
				}
			}
			if newlines != 1 {
				t.Errorf("got %d NEWLINE tokens, want 1", newlines)
			}
		})
	}
}

func TestTokenizerComments(t *testing.T) {
	toks, err := tokenize(t, "# lead\nx  # trail\n")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	got := tokenTypes(toks)
	want := []int{COMMENT, NL, NAME, COMMENT, NEWLINE, ENDMARKER}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, TokenName(got[i]), TokenName(want[i]))
		}
	}
}

func TestTokenizerErrors(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		msg        string
		incomplete bool
	}{
		{"open triple quote", "s = '''abc\n", "EOF in multi-line string", true},
		{"open bracket", "x = (1,\n", "EOF in multi-line statement", true},
		{"bad dedent", "if a:\n    b\n  c\n", "unindent does not match any outer indentation level", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tokenize(t, tc.source)
			if err == nil {
				t.Fatal("expected an error")
			}
			cerr, ok := AsError(err)
			if !ok {
				t.Fatalf("error %T is not a compiler error", err)
			}
			if cerr.Kind != TokenError {
				t.Errorf("kind = %s, want TokenError", cerr.Kind)
			}
			if cerr.Msg != tc.msg {
				t.Errorf("msg = %q, want %q", cerr.Msg, tc.msg)
			}
			if IsIncomplete(err) != tc.incomplete {
				t.Errorf("IsIncomplete = %v, want %v", IsIncomplete(err), tc.incomplete)
			}
		})
	}
}

func TestTokenizerStopsAfterAccept(t *testing.T) {
	count := 0
	tz := NewTokenizer("<test>", func(tok Token) (bool, error) {
		count++
		return tok.Type == NEWLINE, nil
	})
	if done, err := tz.Feed("a\n"); err != nil || !done {
		t.Fatalf("Feed = %v, %v; want true, nil", done, err)
	}
	before := count
	if done, _ := tz.Feed("b\n"); !done {
		t.Error("Feed after accept should report done")
	}
	if count != before {
		t.Errorf("tokens emitted after accept: %d", count-before)
	}
	if !tz.Done() {
		t.Error("Done() = false after accept")
	}
}
