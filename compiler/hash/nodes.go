package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST types.
//
// These are stripped-down parallels of compiler/ast.go with no position
// data and de Bruijn indices instead of function-local variable names.
// Two modules that differ only in layout, comments and the spelling of
// function locals produce identical hashing ASTs.
// ---------------------------------------------------------------------------

// HNode is the interface implemented by all hashing AST nodes.
type HNode interface {
	hnode() // marker method
}

// ---------------------------------------------------------------------------
// Literal nodes
// ---------------------------------------------------------------------------

// HNum is a numeric literal. Kind is the compiler.NumKind value.
type HNum struct {
	Kind  byte
	Int   int64
	Float float64
	Text  string
	Radix int
}

type HStr struct{ Value string }

// HAbsent stands in for an optional child that is not present, so that
// positional children never shift.
type HAbsent struct{}

type HEllipsis struct{}

func (*HNum) hnode()      {}
func (*HStr) hnode()      {}
func (*HAbsent) hnode()   {}
func (*HEllipsis) hnode() {}

// ---------------------------------------------------------------------------
// Variable reference nodes
// ---------------------------------------------------------------------------

// HLocalRef references a function-local variable by de Bruijn indices.
// ScopeDepth 0 = innermost enclosing function, 1 = the function around
// that, etc. Class bodies do not count. SlotIndex is the position in that
// function's slot list: parameters first, then locals in order of first
// appearance.
type HLocalRef struct {
	ScopeDepth uint16
	SlotIndex  uint16
}

// HNameRef references a name that lives in a namespace dictionary
// (module globals, a class body, or a declared global). Such names are
// observable at run time, so they keep their (mangled) spelling.
type HNameRef struct {
	Name string
}

func (*HLocalRef) hnode() {}
func (*HNameRef) hnode()  {}

// ---------------------------------------------------------------------------
// Structural nodes
// ---------------------------------------------------------------------------

// HTree is every statement, expression and auxiliary node that introduces
// no scope: a frozen tag, scalar attributes (operator names, attribute
// names, flags), and ordered child lists.
type HTree struct {
	Tag      byte
	Attrs    []string
	Children [][]HNode
}

func (*HTree) hnode() {}

// ---------------------------------------------------------------------------
// Scope-introducing nodes
// ---------------------------------------------------------------------------

// HFunction is a def, lambda or generator expression. Params keeps the
// parameter names because callers can pass them by keyword; references to
// parameters in the body are still slot indexed.
type HFunction struct {
	Tag        byte // TagFunction, TagLambda or TagGenExp
	Name       string
	Params     []string
	Vararg     string
	Kwarg      string
	NumSlots   int
	Generator  bool
	Defaults   []HNode
	Decorators []HNode
	Outer      []HNode // evaluated in the enclosing scope (genexp iterable)
	Body       []HNode
	Target     HNode // where the definition is stored; HAbsent for expressions
}

// HClass is a class statement.
type HClass struct {
	Name       string
	Bases      []HNode
	Decorators []HNode
	Body       []HNode
	Target     HNode
}

// HModule is the top-level hashing node.
type HModule struct {
	Body []HNode
}

func (*HFunction) hnode() {}
func (*HClass) hnode()    {}
func (*HModule) hnode()   {}
