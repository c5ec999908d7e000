package compiler

import (
	_ "embed"
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Grammar tables
// ---------------------------------------------------------------------------

//go:embed Grammar.txt
var grammarText string

// Arc is a labelled DFA transition. Label 0 on an arc back to the same state
// marks an accepting state.
type Arc struct {
	Label int
	Next  int
}

// DFA is the automaton for one nonterminal together with the set of labels
// that can begin it.
type DFA struct {
	States [][]Arc
	First  map[int]bool
}

// Label is a terminal or nonterminal the parser can see. Keyword labels
// carry the keyword in Value; all others leave it empty.
type Label struct {
	Type  int
	Value string
}

// Grammar holds the parse tables generated from Grammar.txt.
type Grammar struct {
	Symbol2Number map[string]int
	Number2Symbol map[int]string
	DFAs          map[int]*DFA
	Labels        []Label
	Keywords      map[string]int
	Tokens        map[int]int
	Start         int
}

// Nonterminal numbers, in Grammar.txt rule order.
const (
	SymSingleInput = NT_OFFSET + iota
	SymFileInput
	SymEvalInput
	SymDecorator
	SymDecorators
	SymDecorated
	SymFuncdef
	SymParameters
	SymVarargslist
	SymFpdef
	SymFplist
	SymStmt
	SymSimpleStmt
	SymSmallStmt
	SymExprStmt
	SymAugassign
	SymPrintStmt
	SymDelStmt
	SymPassStmt
	SymFlowStmt
	SymBreakStmt
	SymContinueStmt
	SymReturnStmt
	SymYieldStmt
	SymRaiseStmt
	SymImportStmt
	SymImportName
	SymImportFrom
	SymImportAsName
	SymDottedAsName
	SymImportAsNames
	SymDottedAsNames
	SymDottedName
	SymGlobalStmt
	SymNonlocalStmt
	SymExecStmt
	SymAssertStmt
	SymCompoundStmt
	SymIfStmt
	SymWhileStmt
	SymForStmt
	SymTryStmt
	SymWithStmt
	SymWithVar
	SymExceptClause
	SymSuite
	SymTestlistSafe
	SymOldTest
	SymOldLambdef
	SymTest
	SymOrTest
	SymAndTest
	SymNotTest
	SymComparison
	SymCompOp
	SymExpr
	SymXorExpr
	SymAndExpr
	SymShiftExpr
	SymArithExpr
	SymTerm
	SymFactor
	SymPower
	SymAtom
	SymListmaker
	SymTestlistGexp
	SymLambdef
	SymTrailer
	SymSubscriptlist
	SymSubscript
	SymSliceop
	SymExprlist
	SymTestlist
	SymDictmaker
	SymClassdef
	SymArglist
	SymArgument
	SymListIter
	SymListFor
	SymListIf
	SymGenIter
	SymGenFor
	SymGenIf
	SymTestlist1
	SymEncodingDecl
	SymYieldExpr
)

var symbolNames = [...]string{
	"single_input", "file_input", "eval_input", "decorator", "decorators",
	"decorated", "funcdef", "parameters", "varargslist", "fpdef", "fplist",
	"stmt", "simple_stmt", "small_stmt", "expr_stmt", "augassign",
	"print_stmt", "del_stmt", "pass_stmt", "flow_stmt", "break_stmt",
	"continue_stmt", "return_stmt", "yield_stmt", "raise_stmt", "import_stmt",
	"import_name", "import_from", "import_as_name", "dotted_as_name",
	"import_as_names", "dotted_as_names", "dotted_name", "global_stmt",
	"nonlocal_stmt", "exec_stmt", "assert_stmt", "compound_stmt", "if_stmt",
	"while_stmt", "for_stmt", "try_stmt", "with_stmt", "with_var",
	"except_clause", "suite", "testlist_safe", "old_test", "old_lambdef",
	"test", "or_test", "and_test", "not_test", "comparison", "comp_op", "expr",
	"xor_expr", "and_expr", "shift_expr", "arith_expr", "term", "factor",
	"power", "atom", "listmaker", "testlist_gexp", "lambdef", "trailer",
	"subscriptlist", "subscript", "sliceop", "exprlist", "testlist",
	"dictmaker", "classdef", "arglist", "argument", "list_iter", "list_for",
	"list_if", "gen_iter", "gen_for", "gen_if", "testlist1", "encoding_decl",
	"yield_expr",
}

var (
	grammarOnce sync.Once
	theGrammar  *Grammar
)

// PythonGrammar returns the process-wide parse tables, generating them on
// first use. The tables are read-only once built.
func PythonGrammar() *Grammar {
	grammarOnce.Do(func() {
		g, err := generateGrammar(grammarText)
		if err != nil {
			panic(err)
		}
		if err := g.checkSymbols(); err != nil {
			panic(err)
		}
		theGrammar = g
	})
	return theGrammar
}

// checkSymbols verifies the Sym* constants agree with the generated numbers.
func (g *Grammar) checkSymbols() error {
	if len(g.Number2Symbol) != len(symbolNames) {
		return fmt.Errorf("grammar: %d rules, %d symbol constants", len(g.Number2Symbol), len(symbolNames))
	}
	for i, name := range symbolNames {
		if num := g.Symbol2Number[name]; num != NT_OFFSET+i {
			return fmt.Errorf("grammar: rule %s is %d, constant is %d", name, num, NT_OFFSET+i)
		}
	}
	return nil
}

// SymbolName returns the rule name of a nonterminal or the token name of a
// terminal.
func SymbolName(t int) string {
	if t >= NT_OFFSET {
		if i := t - NT_OFFSET; i < len(symbolNames) {
			return symbolNames[i]
		}
		return fmt.Sprintf("SYM(%d)", t)
	}
	return TokenName(t)
}
