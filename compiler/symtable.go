package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Symbol table: per-scope name binding analysis
// ---------------------------------------------------------------------------

// Def-use flags recorded for each name in the first pass.
const (
	DefGlobal      = 1 << iota // global statement
	DefLocal                   // assignment in code block
	DefParam                   // formal parameter
	DefUse                     // name is used
	DefStar                    // parameter is star arg
	DefDoubleStar              // parameter is star-star arg
	DefInTuple                 // name defined in tuple in parameters
	DefFree                    // name used but not defined in nested block
	DefFreeGlobal              // free variable is actually implicit global
	DefFreeClass               // free variable from class's method
	DefImport                  // assignment occurred via import
	DefNonlocal                // nonlocal statement

	DefBound = DefLocal | DefParam | DefImport
)

// The classification is stored in the flag word above the def-use bits.
const (
	scopeOff  = 14
	scopeMask = 7
)

// Classification is the resolved binding kind of a name within a scope.
type Classification int

const (
	Unresolved Classification = iota
	ScopeLocal
	ScopeGlobalExplicit
	ScopeGlobalImplicit
	ScopeFree
	ScopeCell
)

var classificationNames = [...]string{"UNRESOLVED", "LOCAL", "GLOBAL_EXPLICIT", "GLOBAL_IMPLICIT", "FREE", "CELL"}

func (c Classification) String() string { return classificationNames[c] }

// BlockType is the kind of code block a scope belongs to.
type BlockType int

const (
	ModuleBlock BlockType = iota
	FunctionBlock
	ClassBlock
)

func (t BlockType) String() string {
	switch t {
	case ModuleBlock:
		return "module"
	case FunctionBlock:
		return "function"
	}
	return "class"
}

// ScopeID indexes a scope in its table's arena.
type ScopeID int

// NoScope is the parent of the module scope.
const NoScope ScopeID = -1

// Scope holds the names of one lexical scope. Parent and children are
// arena indexes, never pointers.
type Scope struct {
	ID       ScopeID
	Name     string
	Type     BlockType
	Lineno   int
	Parent   ScopeID
	Children []ScopeID

	// Varnames lists the parameters in declaration order.
	Varnames []string

	Nested       bool
	HasFree      bool
	ChildHasFree bool // some descendant needs an environment forwarded
	Generator    bool
	Varargs      bool
	Varkeywords  bool
	ReturnsValue bool

	flags  map[string]int
	order  []string
	frozen bool
}

// Flags returns the flag word of name, or 0 when the scope never saw it.
func (s *Scope) Flags(name string) int { return s.flags[name] }

// ScopeOf returns the classification of name. It is Unresolved until the
// whole table has been analyzed.
func (s *Scope) ScopeOf(name string) Classification {
	if !s.frozen {
		return Unresolved
	}
	return Classification((s.flags[name] >> scopeOff) & scopeMask)
}

// Identifiers returns every name the scope records, sorted.
func (s *Scope) Identifiers() []string {
	return s.identsMatching(func(int) bool { return true })
}

func (s *Scope) identsMatching(f func(int) bool) []string {
	var names []string
	for _, name := range s.order {
		if f(s.flags[name]) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Parameters returns the parameter names, sorted.
func (s *Scope) Parameters() []string {
	return s.identsMatching(func(f int) bool { return f&DefParam != 0 })
}

// Locals returns the names bound in the scope, sorted.
func (s *Scope) Locals() []string {
	return s.identsMatching(func(f int) bool { return f&DefBound != 0 })
}

// Globals returns the names resolved as globals, sorted.
func (s *Scope) Globals() []string {
	return s.identsMatching(func(f int) bool {
		c := Classification((f >> scopeOff) & scopeMask)
		return c == ScopeGlobalImplicit || c == ScopeGlobalExplicit
	})
}

// Frees returns the free names, sorted.
func (s *Scope) Frees() []string {
	return s.identsMatching(func(f int) bool {
		return Classification((f>>scopeOff)&scopeMask) == ScopeFree
	})
}

func (s *Scope) setFlags(name string, v int) {
	if _, ok := s.flags[name]; !ok {
		s.order = append(s.order, name)
	}
	s.flags[name] = v
}

// SymbolTable is the arena of scopes for one module. Scope 0 is the module.
type SymbolTable struct {
	FileName string

	scopes   []*Scope
	byKey    map[int]ScopeID
	analyzed bool

	// first-pass state
	cur      ScopeID
	stack    []ScopeID
	curClass string
	tmpname  int
}

// BuildSymbolTable runs both passes over mod.
func BuildSymbolTable(mod *Module, fileName string) (*SymbolTable, error) {
	st := &SymbolTable{FileName: fileName, byKey: make(map[int]ScopeID), cur: NoScope}
	st.enterBlock("top", ModuleBlock, mod.ScopeKey, 0)
	for _, s := range mod.Body {
		if err := st.visitStmt(s); err != nil {
			return nil, err
		}
	}
	st.exitBlock()
	if err := st.analyze(); err != nil {
		return nil, err
	}
	return st, nil
}

// Top returns the module scope.
func (st *SymbolTable) Top() *Scope { return st.scopes[0] }

// Scope returns the scope with the given id.
func (st *SymbolTable) Scope(id ScopeID) *Scope { return st.scopes[id] }

// Len returns the number of scopes.
func (st *SymbolTable) Len() int { return len(st.scopes) }

// Analyzed reports whether classifications are available.
func (st *SymbolTable) Analyzed() bool { return st.analyzed }

// ScopeFor returns the scope created for the AST node carrying key.
func (st *SymbolTable) ScopeFor(key int) (*Scope, error) {
	id, ok := st.byKey[key]
	if !ok {
		return nil, fmt.Errorf("symtable: no scope for key %d", key)
	}
	return st.scopes[id], nil
}

func (st *SymbolTable) errorf(line int, format string, args ...any) *Error {
	return newError(ScopeError, st.FileName, line, -1, format, args...)
}

func (st *SymbolTable) current() *Scope { return st.scopes[st.cur] }

func (st *SymbolTable) enterBlock(name string, typ BlockType, key, lineno int) {
	s := &Scope{
		ID:     ScopeID(len(st.scopes)),
		Name:   name,
		Type:   typ,
		Lineno: lineno,
		Parent: st.cur,
		flags:  make(map[string]int),
	}
	if st.cur != NoScope {
		prev := st.current()
		s.Nested = prev.Nested || prev.Type == FunctionBlock
		prev.Children = append(prev.Children, s.ID)
		st.stack = append(st.stack, st.cur)
	}
	st.scopes = append(st.scopes, s)
	st.byKey[key] = s.ID
	st.cur = s.ID
}

func (st *SymbolTable) exitBlock() {
	st.cur = NoScope
	if n := len(st.stack); n > 0 {
		st.cur = st.stack[n-1]
		st.stack = st.stack[:n-1]
	}
}

// MangleName applies class-private name mangling: __spam inside class Ham
// becomes _Ham__spam. Dunder names and classes named only with
// underscores are left alone.
func MangleName(private, name string) string {
	if private == "" || !strings.HasPrefix(name, "__") {
		return name
	}
	if strings.HasSuffix(name, "__") || strings.Contains(name, ".") {
		return name
	}
	stripped := strings.TrimLeft(private, "_")
	if stripped == "" {
		return name
	}
	return "_" + stripped + name
}

func (st *SymbolTable) addDef(name string, flag, lineno int) error {
	mangled := MangleName(st.curClass, name)
	cur := st.current()
	val, seen := cur.flags[mangled]
	if seen {
		if flag&DefParam != 0 && val&DefParam != 0 {
			return st.errorf(lineno, "duplicate argument '%s' in function definition", name)
		}
		val |= flag
	} else {
		val = flag
	}
	cur.setFlags(mangled, val)
	if flag&DefParam != 0 {
		cur.Varnames = append(cur.Varnames, mangled)
	} else if flag&DefGlobal != 0 {
		top := st.scopes[0]
		top.setFlags(mangled, flag|top.flags[mangled])
	}
	return nil
}

func (st *SymbolTable) newTmpname(lineno int) error {
	st.tmpname++
	return st.addDef(fmt.Sprintf("_[%d]", st.tmpname), DefLocal, lineno)
}

// ---------------------------------------------------------------------------
// Pass 1: collect def-use flags
// ---------------------------------------------------------------------------

func (st *SymbolTable) visitStmts(body []Stmt) error {
	for _, s := range body {
		if err := st.visitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (st *SymbolTable) visitExprs(list []Expr) error {
	for _, e := range list {
		if e == nil {
			continue
		}
		if err := st.visitExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func (st *SymbolTable) visitOpt(e Expr) error {
	if e == nil {
		return nil
	}
	return st.visitExpr(e)
}

func (st *SymbolTable) visitStmt(s Stmt) error {
	line := s.Pos().Lineno
	switch s := s.(type) {
	case *FunctionDef:
		if err := st.addDef(s.Name, DefLocal, line); err != nil {
			return err
		}
		if err := st.visitExprs(s.Args.Defaults); err != nil {
			return err
		}
		if err := st.visitExprs(s.DecoratorList); err != nil {
			return err
		}
		st.enterBlock(s.Name, FunctionBlock, s.ScopeKey, line)
		if err := st.visitArguments(s.Args, line); err != nil {
			return err
		}
		if err := st.visitStmts(s.Body); err != nil {
			return err
		}
		st.exitBlock()
	case *ClassDef:
		if err := st.addDef(s.Name, DefLocal, line); err != nil {
			return err
		}
		if err := st.visitExprs(s.Bases); err != nil {
			return err
		}
		if err := st.visitExprs(s.DecoratorList); err != nil {
			return err
		}
		st.enterBlock(s.Name, ClassBlock, s.ScopeKey, line)
		saved := st.curClass
		st.curClass = s.Name
		if err := st.visitStmts(s.Body); err != nil {
			return err
		}
		st.curClass = saved
		st.exitBlock()
	case *Return:
		if s.Value != nil {
			if err := st.visitExpr(s.Value); err != nil {
				return err
			}
			cur := st.current()
			cur.ReturnsValue = true
			if cur.Generator {
				return st.errorf(line, "'return' with argument inside generator")
			}
		}
	case *Delete:
		return st.visitExprs(s.Targets)
	case *Assign:
		if err := st.visitExprs(s.Targets); err != nil {
			return err
		}
		return st.visitExpr(s.Value)
	case *AugAssign:
		if err := st.visitExpr(s.Target); err != nil {
			return err
		}
		return st.visitExpr(s.Value)
	case *Print:
		if err := st.visitOpt(s.Dest); err != nil {
			return err
		}
		return st.visitExprs(s.Values)
	case *For:
		if err := st.visitExpr(s.Target); err != nil {
			return err
		}
		if err := st.visitExpr(s.Iter); err != nil {
			return err
		}
		if err := st.visitStmts(s.Body); err != nil {
			return err
		}
		return st.visitStmts(s.Orelse)
	case *While:
		if err := st.visitExpr(s.Test); err != nil {
			return err
		}
		if err := st.visitStmts(s.Body); err != nil {
			return err
		}
		return st.visitStmts(s.Orelse)
	case *If:
		if err := st.visitExpr(s.Test); err != nil {
			return err
		}
		if err := st.visitStmts(s.Body); err != nil {
			return err
		}
		return st.visitStmts(s.Orelse)
	case *Raise:
		return st.visitExprs([]Expr{s.Type, s.Inst, s.Tback})
	case *TryExcept:
		if err := st.visitStmts(s.Body); err != nil {
			return err
		}
		if err := st.visitStmts(s.Orelse); err != nil {
			return err
		}
		for _, h := range s.Handlers {
			if err := st.visitOpt(h.Type); err != nil {
				return err
			}
			if err := st.visitOpt(h.Name); err != nil {
				return err
			}
			if err := st.visitStmts(h.Body); err != nil {
				return err
			}
		}
	case *TryFinally:
		if err := st.visitStmts(s.Body); err != nil {
			return err
		}
		return st.visitStmts(s.FinalBody)
	case *Assert:
		if err := st.visitExpr(s.Test); err != nil {
			return err
		}
		return st.visitOpt(s.Msg)
	case *Import:
		return st.visitAlias(s.Names, line)
	case *ImportFrom:
		return st.visitAlias(s.Names, line)
	case *Exec:
		return st.visitExprs([]Expr{s.Body, s.Globals, s.Locals})
	case *Global:
		for _, name := range s.Names {
			mangled := MangleName(st.curClass, name)
			cur := st.current().flags[mangled]
			if cur&DefLocal != 0 {
				return st.errorf(line, "name '%s' is assigned to before global declaration", mangled)
			}
			if cur&DefUse != 0 {
				return st.errorf(line, "name '%s' is used prior to global declaration", mangled)
			}
			if err := st.addDef(mangled, DefGlobal, line); err != nil {
				return err
			}
		}
	case *NonLocal:
		if st.current().Type == ModuleBlock {
			return st.errorf(line, "nonlocal declaration not allowed at module level")
		}
		for _, name := range s.Names {
			mangled := MangleName(st.curClass, name)
			cur := st.current().flags[mangled]
			if cur&DefParam != 0 {
				return st.errorf(line, "name '%s' is parameter and nonlocal", mangled)
			}
			if cur&DefLocal != 0 {
				return st.errorf(line, "name '%s' is assigned to before nonlocal declaration", mangled)
			}
			if cur&DefUse != 0 {
				return st.errorf(line, "name '%s' is used prior to nonlocal declaration", mangled)
			}
			if err := st.addDef(mangled, DefNonlocal, line); err != nil {
				return err
			}
		}
	case *ExprStmt:
		return st.visitExpr(s.Value)
	case *Pass, *Break, *Continue:
	case *With:
		if err := st.newTmpname(line); err != nil {
			return err
		}
		if err := st.visitExpr(s.ContextExpr); err != nil {
			return err
		}
		if s.OptionalVars != nil {
			if err := st.newTmpname(line); err != nil {
				return err
			}
			if err := st.visitExpr(s.OptionalVars); err != nil {
				return err
			}
		}
		return st.visitStmts(s.Body)
	default:
		return st.errorf(line, "unhandled statement %T", s)
	}
	return nil
}

func (st *SymbolTable) visitExpr(e Expr) error {
	line := e.Pos().Lineno
	switch e := e.(type) {
	case *BoolOp:
		return st.visitExprs(e.Values)
	case *BinOp:
		if err := st.visitExpr(e.Left); err != nil {
			return err
		}
		return st.visitExpr(e.Right)
	case *UnaryOp:
		return st.visitExpr(e.Operand)
	case *Lambda:
		if err := st.addDef("lambda", DefLocal, line); err != nil {
			return err
		}
		if err := st.visitExprs(e.Args.Defaults); err != nil {
			return err
		}
		st.enterBlock("lambda", FunctionBlock, e.ScopeKey, line)
		if err := st.visitArguments(e.Args, line); err != nil {
			return err
		}
		if err := st.visitExpr(e.Body); err != nil {
			return err
		}
		st.exitBlock()
	case *IfExp:
		return st.visitExprs([]Expr{e.Test, e.Body, e.Orelse})
	case *Dict:
		if err := st.visitExprs(e.Keys); err != nil {
			return err
		}
		return st.visitExprs(e.Values)
	case *ListComp:
		if err := st.newTmpname(line); err != nil {
			return err
		}
		if err := st.visitExpr(e.Elt); err != nil {
			return err
		}
		return st.visitComprehension(e.Generators, 0)
	case *GeneratorExp:
		return st.visitGenexp(e)
	case *Yield:
		if err := st.visitOpt(e.Value); err != nil {
			return err
		}
		cur := st.current()
		cur.Generator = true
		if cur.ReturnsValue {
			return st.errorf(line, "'return' with argument inside generator")
		}
	case *Compare:
		if err := st.visitExpr(e.Left); err != nil {
			return err
		}
		return st.visitExprs(e.Comparators)
	case *Call:
		if err := st.visitExpr(e.Func); err != nil {
			return err
		}
		if err := st.visitExprs(e.Args); err != nil {
			return err
		}
		for _, kw := range e.Keywords {
			if err := st.visitExpr(kw.Value); err != nil {
				return err
			}
		}
		return st.visitExprs([]Expr{e.Starargs, e.Kwargs})
	case *Num, *Str:
	case *Attribute:
		return st.visitExpr(e.Value)
	case *Subscript:
		if err := st.visitExpr(e.Value); err != nil {
			return err
		}
		return st.visitSlice(e.Slice)
	case *Name:
		flag := DefLocal
		if e.Ctx == Load {
			flag = DefUse
		}
		return st.addDef(e.ID, flag, line)
	case *List:
		return st.visitExprs(e.Elts)
	case *Tuple:
		return st.visitExprs(e.Elts)
	default:
		return st.errorf(line, "unhandled expression %T", e)
	}
	return nil
}

func (st *SymbolTable) visitSlice(s SliceNode) error {
	switch s := s.(type) {
	case *Slice:
		return st.visitExprs([]Expr{s.Lower, s.Upper, s.Step})
	case *ExtSlice:
		for _, d := range s.Dims {
			if err := st.visitSlice(d); err != nil {
				return err
			}
		}
	case *Index:
		return st.visitExpr(s.Value)
	}
	return nil
}

func (st *SymbolTable) visitArguments(a *Arguments, lineno int) error {
	for _, arg := range a.Args {
		name, ok := arg.(*Name)
		if !ok {
			return st.errorf(lineno, "invalid expression in parameter list")
		}
		if err := st.addDef(name.ID, DefParam, name.Lineno); err != nil {
			return err
		}
	}
	if a.Vararg != "" {
		if err := st.addDef(a.Vararg, DefParam, lineno); err != nil {
			return err
		}
		st.current().Varargs = true
	}
	if a.Kwarg != "" {
		if err := st.addDef(a.Kwarg, DefParam, lineno); err != nil {
			return err
		}
		st.current().Varkeywords = true
	}
	return nil
}

func (st *SymbolTable) visitComprehension(gens []*Comprehension, startAt int) error {
	for _, g := range gens[startAt:] {
		if err := st.visitExpr(g.Target); err != nil {
			return err
		}
		if err := st.visitExpr(g.Iter); err != nil {
			return err
		}
		if err := st.visitExprs(g.Ifs); err != nil {
			return err
		}
	}
	return nil
}

// visitAlias binds the name an import actually stores: the first component
// of a dotted module name unless it is renamed.
func (st *SymbolTable) visitAlias(names []*Alias, lineno int) error {
	for _, a := range names {
		name := a.Name
		if a.Asname != "" {
			name = a.Asname
		}
		if name == "*" {
			if st.current().Type != ModuleBlock {
				return st.errorf(lineno, "import * only allowed at module level")
			}
			continue
		}
		store := name
		if dot := strings.IndexByte(name, '.'); dot >= 0 {
			store = name[:dot]
		}
		if err := st.addDef(store, DefImport, lineno); err != nil {
			return err
		}
	}
	return nil
}

// visitGenexp evaluates the outermost iterable in the enclosing scope and
// everything else in the generator's own scope, where it arrives as the
// implicit parameter ".0".
func (st *SymbolTable) visitGenexp(e *GeneratorExp) error {
	line := e.Lineno
	outer := e.Generators[0]
	if err := st.visitExpr(outer.Iter); err != nil {
		return err
	}
	st.enterBlock("genexpr", FunctionBlock, e.ScopeKey, line)
	st.current().Generator = true
	if err := st.addDef(".0", DefParam, line); err != nil {
		return err
	}
	if err := st.visitExpr(outer.Target); err != nil {
		return err
	}
	if err := st.visitExprs(outer.Ifs); err != nil {
		return err
	}
	if err := st.visitComprehension(e.Generators, 1); err != nil {
		return err
	}
	if err := st.visitExpr(e.Elt); err != nil {
		return err
	}
	st.exitBlock()
	return nil
}

// ---------------------------------------------------------------------------
// Pass 2: resolve classifications
// ---------------------------------------------------------------------------

type nameSet map[string]struct{}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s nameSet) update(other nameSet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

func (s nameSet) clone() nameSet {
	c := make(nameSet, len(s))
	c.update(s)
	return c
}

func (st *SymbolTable) analyze() error {
	free := nameSet{}
	global := nameSet{}
	if err := st.analyzeBlock(st.Top(), nil, free, global); err != nil {
		return err
	}
	for _, s := range st.scopes {
		s.frozen = true
	}
	st.analyzed = true
	return nil
}

// analyzeBlock classifies the names of ste given the names bound and
// declared global by its enclosing scopes. Names that remain free are added
// to free for the caller.
func (st *SymbolTable) analyzeBlock(ste *Scope, bound, free, global nameSet) error {
	local := nameSet{}
	scope := map[string]Classification{}
	newGlobal := nameSet{}
	newBound := nameSet{}
	newFree := nameSet{}

	// class bodies are not closures: their locals are invisible to methods
	if ste.Type == ClassBlock {
		newGlobal.update(global)
		newBound.update(bound)
	}

	for _, name := range ste.order {
		if err := st.analyzeName(ste, scope, name, ste.flags[name], bound, local, free, global); err != nil {
			return err
		}
	}

	if ste.Type != ClassBlock {
		if ste.Type == FunctionBlock {
			newBound.update(local)
		}
		newBound.update(bound)
		newGlobal.update(global)
	}

	allFree := nameSet{}
	for _, id := range ste.Children {
		child := st.scopes[id]
		childFree := newFree.clone()
		if err := st.analyzeBlock(child, newBound.clone(), childFree, newGlobal.clone()); err != nil {
			return err
		}
		allFree.update(childFree)
		if child.HasFree || child.ChildHasFree {
			ste.ChildHasFree = true
		}
	}
	newFree.update(allFree)

	if ste.Type == FunctionBlock {
		analyzeCells(scope, newFree)
	}
	st.updateSymbols(ste, scope, bound, newFree, ste.Type == ClassBlock)
	free.update(newFree)
	return nil
}

func (st *SymbolTable) analyzeName(ste *Scope, scope map[string]Classification, name string,
	flags int, bound, local, free, global nameSet) error {
	switch {
	case flags&DefGlobal != 0:
		if flags&DefParam != 0 {
			return st.errorf(ste.Lineno, "name '%s' is local and global", name)
		}
		if flags&DefNonlocal != 0 {
			return st.errorf(ste.Lineno, "name '%s' is nonlocal and global", name)
		}
		scope[name] = ScopeGlobalExplicit
		global[name] = struct{}{}
		delete(bound, name)
	case flags&DefNonlocal != 0:
		if !bound.has(name) {
			return st.errorf(ste.Lineno, "no binding for nonlocal '%s' found", name)
		}
		scope[name] = ScopeFree
		ste.HasFree = true
		free[name] = struct{}{}
	case flags&DefBound != 0:
		scope[name] = ScopeLocal
		local[name] = struct{}{}
		delete(global, name)
	case bound.has(name):
		scope[name] = ScopeFree
		ste.HasFree = true
		free[name] = struct{}{}
	case global.has(name):
		scope[name] = ScopeGlobalImplicit
	default:
		if ste.Nested {
			ste.HasFree = true
		}
		scope[name] = ScopeGlobalImplicit
	}
	return nil
}

// analyzeCells promotes locals that a child scope captures to cells. The
// promoted names are no longer free above this scope.
func analyzeCells(scope map[string]Classification, free nameSet) {
	for name, c := range scope {
		if c != ScopeLocal || !free.has(name) {
			continue
		}
		scope[name] = ScopeCell
		delete(free, name)
	}
}

// updateSymbols stores the classifications into the flag words. Names free
// in a child but unknown here pass through as free when an enclosing scope
// binds them.
func (st *SymbolTable) updateSymbols(ste *Scope, scope map[string]Classification, bound, free nameSet, isClass bool) {
	for _, name := range ste.order {
		ste.flags[name] |= int(scope[name]) << scopeOff
	}

	names := make([]string, 0, len(free))
	for name := range free {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if o, ok := ste.flags[name]; ok {
			// a method's free variable that the class body itself binds
			if isClass && o&(DefBound|DefGlobal) != 0 {
				ste.flags[name] = o | DefFreeClass
			}
			continue
		}
		if !bound.has(name) {
			continue
		}
		ste.setFlags(name, int(ScopeFree)<<scopeOff)
		if !isClass {
			// forwarded to a descendant, so this scope needs $free too
			ste.HasFree = true
		}
	}
}

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

// DumpSymbolTable writes a text report of every scope and name.
func DumpSymbolTable(st *SymbolTable) string {
	var sb strings.Builder
	st.dumpScope(&sb, st.Top(), "")
	return sb.String()
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func pyList(names []string) string { return "[" + strings.Join(names, ", ") + "]" }

func (st *SymbolTable) dumpScope(sb *strings.Builder, s *Scope, indent string) {
	w := func(format string, args ...any) {
		sb.WriteString(indent)
		fmt.Fprintf(sb, format, args...)
		sb.WriteByte('\n')
	}
	w("Sym_type: %s", s.Type)
	w("Sym_name: %s", s.Name)
	w("Sym_lineno: %d", s.Lineno)
	w("Sym_nested: %s", pyBool(s.Nested))
	w("Sym_haschildren: %s", pyBool(len(s.Children) > 0))
	switch s.Type {
	case ClassBlock:
		var methods []string
		for _, id := range s.Children {
			methods = append(methods, st.scopes[id].Name)
		}
		sort.Strings(methods)
		w("Class_methods: %s", pyList(methods))
	case FunctionBlock:
		w("Func_params: %s", pyList(s.Parameters()))
		w("Func_locals: %s", pyList(s.Locals()))
		w("Func_globals: %s", pyList(s.Globals()))
		w("Func_frees: %s", pyList(s.Frees()))
	}
	w("-- Identifiers --")
	for _, name := range s.Identifiers() {
		flags := s.flags[name]
		c := s.ScopeOf(name)
		w("name: %s", name)
		w("  scope: %s", c)
		w("  is_referenced: %s", pyBool(flags&DefUse != 0))
		w("  is_imported: %s", pyBool(flags&DefImport != 0))
		w("  is_parameter: %s", pyBool(flags&DefParam != 0))
		w("  is_global: %s", pyBool(c == ScopeGlobalImplicit || c == ScopeGlobalExplicit))
		w("  is_declared_global: %s", pyBool(c == ScopeGlobalExplicit))
		w("  is_local: %s", pyBool(flags&DefBound != 0))
		w("  is_free: %s", pyBool(c == ScopeFree))
		w("  is_assigned: %s", pyBool(flags&DefLocal != 0))
		var namespaces []*Scope
		for _, id := range s.Children {
			if child := st.scopes[id]; child.Name == name {
				namespaces = append(namespaces, child)
			}
		}
		w("  is_namespace: %s", pyBool(len(namespaces) > 0))
		w("  namespaces: [")
		for _, ns := range namespaces {
			st.dumpScope(sb, ns, indent+"    ")
		}
		w("  ]")
	}
}
