package compiler

// ---------------------------------------------------------------------------
// AST: abstract syntax tree for the accepted Python subset
// ---------------------------------------------------------------------------

// Position is the source location of an AST node. ColOffset is 0-based.
type Position struct {
	Lineno    int
	ColOffset int
}

// Pos returns the node position.
func (p Position) Pos() Position { return p }

// AST is implemented by every AST node.
type AST interface {
	Pos() Position
}

// Stmt is a statement node.
type Stmt interface {
	AST
	stmt()
}

// Expr is an expression node.
type Expr interface {
	AST
	expr()
}

// SliceNode is the index part of a subscript.
type SliceNode interface {
	AST
	slice()
}

// Assignable is implemented by the expression kinds that carry a context:
// Name, Attribute, Subscript, List and Tuple.
type Assignable interface {
	Expr
	Context() ExprContext
	setCtx(ExprContext)
}

// ExprContext is the syntactic role of an assignable expression.
type ExprContext int

const (
	Load ExprContext = iota + 1
	Store
	Del
	AugLoad
	AugStore
	Param
)

var exprContextNames = [...]string{"", "Load", "Store", "Del", "AugLoad", "AugStore", "Param"}

func (c ExprContext) String() string { return exprContextNames[c] }

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// Operator is a binary arithmetic or bitwise operator.
type Operator int

const (
	Add Operator = iota + 1
	Sub
	Mult
	Div
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
	FloorDiv
)

var operatorNames = [...]string{"", "Add", "Sub", "Mult", "Div", "Mod", "Pow",
	"LShift", "RShift", "BitOr", "BitXor", "BitAnd", "FloorDiv"}

func (o Operator) String() string { return operatorNames[o] }

// BoolOperator is `and` or `or`.
type BoolOperator int

const (
	And BoolOperator = iota + 1
	Or
)

func (o BoolOperator) String() string {
	if o == And {
		return "And"
	}
	return "Or"
}

// UnaryOperator is a prefix operator.
type UnaryOperator int

const (
	Invert UnaryOperator = iota + 1
	Not
	UAdd
	USub
)

var unaryOperatorNames = [...]string{"", "Invert", "Not", "UAdd", "USub"}

func (o UnaryOperator) String() string { return unaryOperatorNames[o] }

// CmpOp is a comparison operator.
type CmpOp int

const (
	Eq CmpOp = iota + 1
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
)

var cmpOpNames = [...]string{"", "Eq", "NotEq", "Lt", "LtE", "Gt", "GtE", "Is", "IsNot", "In", "NotIn"}

func (o CmpOp) String() string { return cmpOpNames[o] }

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Module is a whole source file.
type Module struct {
	Position
	Body     []Stmt
	ScopeKey int
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// FunctionDef is a `def` statement.
type FunctionDef struct {
	Position
	Name          string
	Args          *Arguments
	Body          []Stmt
	DecoratorList []Expr
	ScopeKey      int
}

// ClassDef is a `class` statement.
type ClassDef struct {
	Position
	Name          string
	Bases         []Expr
	Body          []Stmt
	DecoratorList []Expr
	ScopeKey      int
}

type Return struct {
	Position
	Value Expr // nil for a bare return
}

type Delete struct {
	Position
	Targets []Expr
}

type Assign struct {
	Position
	Targets []Expr
	Value   Expr
}

type AugAssign struct {
	Position
	Target Expr
	Op     Operator
	Value  Expr
}

// Print is the `print` statement. NL is false when the statement ends with
// a trailing comma.
type Print struct {
	Position
	Dest   Expr
	Values []Expr
	NL     bool
}

type For struct {
	Position
	Target Expr
	Iter   Expr
	Body   []Stmt
	Orelse []Stmt
}

type While struct {
	Position
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type If struct {
	Position
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type With struct {
	Position
	ContextExpr  Expr
	OptionalVars Expr
	Body         []Stmt
}

type Raise struct {
	Position
	Type  Expr
	Inst  Expr
	Tback Expr
}

type TryExcept struct {
	Position
	Body     []Stmt
	Handlers []*ExceptHandler
	Orelse   []Stmt
}

type TryFinally struct {
	Position
	Body      []Stmt
	FinalBody []Stmt
}

type Assert struct {
	Position
	Test Expr
	Msg  Expr
}

type Import struct {
	Position
	Names []*Alias
}

// ImportFrom is `from module import names`; Level counts leading dots.
type ImportFrom struct {
	Position
	Module string
	Names  []*Alias
	Level  int
}

type Exec struct {
	Position
	Body    Expr
	Globals Expr
	Locals  Expr
}

type Global struct {
	Position
	Names []string
}

type NonLocal struct {
	Position
	Names []string
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Position
	Value Expr
}

type Pass struct{ Position }
type Break struct{ Position }
type Continue struct{ Position }

func (*FunctionDef) stmt() {}
func (*ClassDef) stmt()    {}
func (*Return) stmt()      {}
func (*Delete) stmt()      {}
func (*Assign) stmt()      {}
func (*AugAssign) stmt()   {}
func (*Print) stmt()       {}
func (*For) stmt()         {}
func (*While) stmt()       {}
func (*If) stmt()          {}
func (*With) stmt()        {}
func (*Raise) stmt()       {}
func (*TryExcept) stmt()   {}
func (*TryFinally) stmt()  {}
func (*Assert) stmt()      {}
func (*Import) stmt()      {}
func (*ImportFrom) stmt()  {}
func (*Exec) stmt()        {}
func (*Global) stmt()      {}
func (*NonLocal) stmt()    {}
func (*ExprStmt) stmt()    {}
func (*Pass) stmt()        {}
func (*Break) stmt()       {}
func (*Continue) stmt()    {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

type BoolOp struct {
	Position
	Op     BoolOperator
	Values []Expr
}

type BinOp struct {
	Position
	Left  Expr
	Op    Operator
	Right Expr
}

type UnaryOp struct {
	Position
	Op      UnaryOperator
	Operand Expr
}

type Lambda struct {
	Position
	Args     *Arguments
	Body     Expr
	ScopeKey int
}

// IfExp is `body if test else orelse`.
type IfExp struct {
	Position
	Test   Expr
	Body   Expr
	Orelse Expr
}

type Dict struct {
	Position
	Keys   []Expr
	Values []Expr
}

type ListComp struct {
	Position
	Elt        Expr
	Generators []*Comprehension
}

type GeneratorExp struct {
	Position
	Elt        Expr
	Generators []*Comprehension
	ScopeKey   int
}

type Yield struct {
	Position
	Value Expr // nil for a bare yield
}

// Compare is a possibly chained comparison: Left Ops[0] Comparators[0] ...
type Compare struct {
	Position
	Left        Expr
	Ops         []CmpOp
	Comparators []Expr
}

type Call struct {
	Position
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
	Starargs Expr
	Kwargs   Expr
}

type Num struct {
	Position
	N Number
}

// Str holds a decoded string literal.
type Str struct {
	Position
	S string
}

type Attribute struct {
	Position
	Value Expr
	Attr  string
	Ctx   ExprContext
}

type Subscript struct {
	Position
	Value Expr
	Slice SliceNode
	Ctx   ExprContext
}

type Name struct {
	Position
	ID  string
	Ctx ExprContext
}

type List struct {
	Position
	Elts []Expr
	Ctx  ExprContext
}

type Tuple struct {
	Position
	Elts []Expr
	Ctx  ExprContext
}

func (*BoolOp) expr()       {}
func (*BinOp) expr()        {}
func (*UnaryOp) expr()      {}
func (*Lambda) expr()       {}
func (*IfExp) expr()        {}
func (*Dict) expr()         {}
func (*ListComp) expr()     {}
func (*GeneratorExp) expr() {}
func (*Yield) expr()        {}
func (*Compare) expr()      {}
func (*Call) expr()         {}
func (*Num) expr()          {}
func (*Str) expr()          {}
func (*Attribute) expr()    {}
func (*Subscript) expr()    {}
func (*Name) expr()         {}
func (*List) expr()         {}
func (*Tuple) expr()        {}

func (n *Attribute) Context() ExprContext { return n.Ctx }
func (n *Subscript) Context() ExprContext { return n.Ctx }
func (n *Name) Context() ExprContext      { return n.Ctx }
func (n *List) Context() ExprContext      { return n.Ctx }
func (n *Tuple) Context() ExprContext     { return n.Ctx }

func (n *Attribute) setCtx(c ExprContext) { n.Ctx = c }
func (n *Subscript) setCtx(c ExprContext) { n.Ctx = c }
func (n *Name) setCtx(c ExprContext)      { n.Ctx = c }
func (n *List) setCtx(c ExprContext)      { n.Ctx = c }
func (n *Tuple) setCtx(c ExprContext)     { n.Ctx = c }

// ---------------------------------------------------------------------------
// Slices
// ---------------------------------------------------------------------------

type Ellipsis struct{ Position }

type Slice struct {
	Position
	Lower Expr
	Upper Expr
	Step  Expr
}

type ExtSlice struct {
	Position
	Dims []SliceNode
}

type Index struct {
	Position
	Value Expr
}

func (*Ellipsis) slice() {}
func (*Slice) slice()    {}
func (*ExtSlice) slice() {}
func (*Index) slice()    {}

// ---------------------------------------------------------------------------
// Auxiliary nodes
// ---------------------------------------------------------------------------

// Comprehension is one `for target in iter if ...` clause.
type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

type ExceptHandler struct {
	Position
	Type Expr
	Name Expr
	Body []Stmt
}

// Arguments is a formal parameter list. Args holds Name nodes in Param
// context.
type Arguments struct {
	Args     []Expr
	Vararg   string
	Kwarg    string
	Defaults []Expr
}

type Keyword struct {
	Arg   string
	Value Expr
}

type Alias struct {
	Name   string
	Asname string
}

// ---------------------------------------------------------------------------
// Numeric literals
// ---------------------------------------------------------------------------

// NumKind classifies a numeric literal.
type NumKind int

const (
	IntNum NumKind = iota
	LongNum
	FloatNum
)

func (k NumKind) String() string {
	switch k {
	case IntNum:
		return "int"
	case LongNum:
		return "long"
	}
	return "float"
}

// Number is a decoded numeric literal. Ints use Int and Radix; longs keep
// their digits in Text with Radix (0 lets the runtime detect the base);
// floats use Float and keep the source spelling in Text.
type Number struct {
	Kind  NumKind
	Int   int64
	Float float64
	Text  string
	Radix int
}
