package compiler

import (
	"strings"
	"testing"
)

func TestPythonGrammarTables(t *testing.T) {
	g := PythonGrammar()
	if g != PythonGrammar() {
		t.Error("PythonGrammar is not memoized")
	}
	if g.Start != SymSingleInput {
		t.Errorf("start = %s, want single_input", SymbolName(g.Start))
	}
	if err := g.checkSymbols(); err != nil {
		t.Fatal(err)
	}
	for _, kw := range []string{"def", "class", "print", "exec", "nonlocal", "yield", "lambda", "not", "is", "in"} {
		if _, ok := g.Keywords[kw]; !ok {
			t.Errorf("keyword %q has no label", kw)
		}
	}
	for _, typ := range []int{NAME, NUMBER, STRING, NEWLINE, INDENT, DEDENT, ENDMARKER, LPAR, DOUBLESTAR} {
		if _, ok := g.Tokens[typ]; !ok {
			t.Errorf("token %s has no label", TokenName(typ))
		}
	}
	for num, dfa := range g.DFAs {
		accepting := false
		for state, arcs := range dfa.States {
			if hasAccept(arcs, state) {
				accepting = true
			}
		}
		if !accepting {
			t.Errorf("%s has no accepting state", SymbolName(num))
		}
		if len(dfa.First) == 0 {
			t.Errorf("%s has an empty first set", SymbolName(num))
		}
	}
}

func TestSymbolName(t *testing.T) {
	tests := []struct {
		num  int
		want string
	}{
		{SymFileInput, "file_input"},
		{SymYieldExpr, "yield_expr"},
		{NAME, "NAME"},
		{NT_OFFSET + 500, "SYM(756)"},
	}
	for _, tc := range tests {
		if got := SymbolName(tc.num); got != tc.want {
			t.Errorf("SymbolName(%d) = %q, want %q", tc.num, got, tc.want)
		}
	}
}

func TestGenerateGrammar(t *testing.T) {
	g, err := generateGrammar("start: item ('+' item)* NEWLINE\nitem: NAME | NUMBER\n")
	if err != nil {
		t.Fatalf("generateGrammar: %v", err)
	}
	if g.Start != NT_OFFSET || g.Number2Symbol[NT_OFFSET+1] != "item" {
		t.Errorf("rule numbering: start=%d symbols=%v", g.Start, g.Number2Symbol)
	}
	for _, typ := range []int{NAME, NUMBER, PLUS, NEWLINE} {
		if _, ok := g.Tokens[typ]; !ok {
			t.Errorf("token %s has no label", TokenName(typ))
		}
	}
	first := g.DFAs[NT_OFFSET].First
	if !first[g.Tokens[NAME]] || !first[g.Tokens[NUMBER]] {
		t.Error("first set of start does not include the first set of item")
	}
}

func TestGenerateGrammarErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
	}{
		{"undefined rule", "start: missing NEWLINE\n", "undefined rule"},
		{"duplicate rule", "a: NAME\na: NUMBER\n", "defined twice"},
		{"unterminated string", "a: 'x\n", "unterminated string"},
		{"unknown operator", "a: '$$' NAME\n", "unknown operator"},
		{"unknown token", "a: BOGUS\n", "unknown token"},
		{"missing colon", "a NAME\n", "expected"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := generateGrammar(tc.text)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("error %q does not mention %q", err, tc.msg)
			}
		})
	}
}
