package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types (CPython 2.x numbering)
// ---------------------------------------------------------------------------

const (
	ENDMARKER = iota
	NAME
	NUMBER
	STRING
	NEWLINE
	INDENT
	DEDENT
	LPAR
	RPAR
	LSQB
	RSQB
	COLON
	COMMA
	SEMI
	PLUS
	MINUS
	STAR
	SLASH
	VBAR
	AMPER
	LESS
	GREATER
	EQUAL
	DOT
	PERCENT
	BACKQUOTE
	LBRACE
	RBRACE
	EQEQUAL
	NOTEQUAL
	LESSEQUAL
	GREATEREQUAL
	TILDE
	CIRCUMFLEX
	LEFTSHIFT
	RIGHTSHIFT
	DOUBLESTAR
	PLUSEQUAL
	MINEQUAL
	STAREQUAL
	SLASHEQUAL
	PERCENTEQUAL
	AMPEREQUAL
	VBAREQUAL
	CIRCUMFLEXEQUAL
	LEFTSHIFTEQUAL
	RIGHTSHIFTEQUAL
	DOUBLESTAREQUAL
	DOUBLESLASH
	DOUBLESLASHEQUAL
	AT
	OP
	ERRORTOKEN
	COMMENT
	NL
	N_TOKENS

	// NT_OFFSET is the first nonterminal number.
	NT_OFFSET = 256
)

var tokenNames = [...]string{
	"ENDMARKER", "NAME", "NUMBER", "STRING", "NEWLINE", "INDENT", "DEDENT",
	"LPAR", "RPAR", "LSQB", "RSQB", "COLON", "COMMA", "SEMI", "PLUS", "MINUS",
	"STAR", "SLASH", "VBAR", "AMPER", "LESS", "GREATER", "EQUAL", "DOT",
	"PERCENT", "BACKQUOTE", "LBRACE", "RBRACE", "EQEQUAL", "NOTEQUAL",
	"LESSEQUAL", "GREATEREQUAL", "TILDE", "CIRCUMFLEX", "LEFTSHIFT",
	"RIGHTSHIFT", "DOUBLESTAR", "PLUSEQUAL", "MINEQUAL", "STAREQUAL",
	"SLASHEQUAL", "PERCENTEQUAL", "AMPEREQUAL", "VBAREQUAL", "CIRCUMFLEXEQUAL",
	"LEFTSHIFTEQUAL", "RIGHTSHIFTEQUAL", "DOUBLESTAREQUAL", "DOUBLESLASH",
	"DOUBLESLASHEQUAL", "AT", "OP", "ERRORTOKEN", "COMMENT", "NL",
}

// TokenName returns the symbolic name of a token type.
func TokenName(t int) string {
	if t >= 0 && t < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// OpMap maps operator spellings to their token types.
var OpMap = map[string]int{
	"(":   LPAR,
	")":   RPAR,
	"[":   LSQB,
	"]":   RSQB,
	":":   COLON,
	",":   COMMA,
	";":   SEMI,
	"+":   PLUS,
	"-":   MINUS,
	"*":   STAR,
	"/":   SLASH,
	"|":   VBAR,
	"&":   AMPER,
	"<":   LESS,
	">":   GREATER,
	"=":   EQUAL,
	".":   DOT,
	"%":   PERCENT,
	"`":   BACKQUOTE,
	"{":   LBRACE,
	"}":   RBRACE,
	"@":   AT,
	"==":  EQEQUAL,
	"!=":  NOTEQUAL,
	"<>":  NOTEQUAL,
	"<=":  LESSEQUAL,
	">=":  GREATEREQUAL,
	"~":   TILDE,
	"^":   CIRCUMFLEX,
	"<<":  LEFTSHIFT,
	">>":  RIGHTSHIFT,
	"**":  DOUBLESTAR,
	"+=":  PLUSEQUAL,
	"-=":  MINEQUAL,
	"*=":  STAREQUAL,
	"/=":  SLASHEQUAL,
	"%=":  PERCENTEQUAL,
	"&=":  AMPEREQUAL,
	"|=":  VBAREQUAL,
	"^=":  CIRCUMFLEXEQUAL,
	"<<=": LEFTSHIFTEQUAL,
	">>=": RIGHTSHIFTEQUAL,
	"**=": DOUBLESTAREQUAL,
	"//":  DOUBLESLASH,
	"//=": DOUBLESLASHEQUAL,
}

// Pos is a (line, column) source position. Lines are 1-based, columns are
// 0-based byte offsets into the line.
type Pos struct {
	Line int
	Col  int
}

// Token is a single lexical token as delivered to the parser.
type Token struct {
	Type  int
	Value string
	Start Pos
	End   Pos
	Line  string // raw source line the token starts on
}

func (t Token) String() string {
	if len(t.Value) > 20 {
		return fmt.Sprintf("%s(%q...)", TokenName(t.Type), t.Value[:20])
	}
	return fmt.Sprintf("%s(%q)", TokenName(t.Type), t.Value)
}
