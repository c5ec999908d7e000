package hash

import (
	"fmt"
	"strings"

	"github.com/chazu/pyjs/compiler"
)

// ---------------------------------------------------------------------------
// AST Normalization: compiler AST → frozen hashing AST
//
// Walks the compiler's AST alongside its analyzed symbol table and produces
// the frozen hashing AST with de Bruijn indices for function locals and
// spelled names for everything that lives in a namespace dictionary.
// ---------------------------------------------------------------------------

// frame tracks the slots of one function scope.
type frame struct {
	ste   *compiler.Scope
	slots map[string]uint16 // mangled name → slot index
	next  uint16
}

func (f *frame) slot(name string) uint16 {
	if s, ok := f.slots[name]; ok {
		return s
	}
	s := f.next
	f.slots[name] = s
	f.next++
	return s
}

// normalizer holds state for the normalization walk.
type normalizer struct {
	st      *compiler.SymbolTable
	ste     *compiler.Scope // scope of the code being walked
	funcs   []*frame        // enclosing function frames, innermost last
	inFunc  bool            // ste is a function scope (the last frame)
	private string          // class name for mangling
}

// NormalizeModule transforms a module and its analyzed symbol table into a
// frozen HModule.
func NormalizeModule(mod *compiler.Module, st *compiler.SymbolTable) (*HModule, error) {
	if !st.Analyzed() {
		return nil, fmt.Errorf("hash: symbol table has not been analyzed")
	}
	n := &normalizer{st: st, ste: st.Top()}
	body, err := n.stmts(mod.Body)
	if err != nil {
		return nil, err
	}
	return &HModule{Body: body}, nil
}

// ---------------------------------------------------------------------------
// Variable resolution → de Bruijn indices
// ---------------------------------------------------------------------------

// resolve maps a name used in the current scope to HLocalRef or HNameRef,
// following the classification the symbol table assigned to it.
func (n *normalizer) resolve(name string) HNode {
	mangled := compiler.MangleName(n.private, name)
	switch n.ste.ScopeOf(mangled) {
	case compiler.ScopeLocal, compiler.ScopeCell:
		if n.inFunc {
			return &HLocalRef{SlotIndex: n.funcs[len(n.funcs)-1].slot(mangled)}
		}
	case compiler.ScopeFree:
		start := len(n.funcs) - 1
		if n.inFunc {
			start--
		}
		for i := start; i >= 0; i-- {
			f := n.funcs[i]
			if f.ste.Flags(mangled)&compiler.DefBound != 0 {
				return &HLocalRef{
					ScopeDepth: uint16(len(n.funcs) - 1 - i),
					SlotIndex:  f.slot(mangled),
				}
			}
		}
	}
	return &HNameRef{Name: mangled}
}

// enter switches the walk into the scope registered under key and returns
// a function that restores the previous state.
func (n *normalizer) enter(key int, private string) (*frame, func(), error) {
	ste, err := n.st.ScopeFor(key)
	if err != nil {
		return nil, nil, err
	}
	saved := *n
	n.ste = ste
	n.private = private
	var f *frame
	if ste.Type == compiler.FunctionBlock {
		f = &frame{ste: ste, slots: make(map[string]uint16)}
		for _, p := range ste.Varnames {
			f.slot(p)
		}
		n.funcs = append(n.funcs[:len(n.funcs):len(n.funcs)], f)
		n.inFunc = true
	} else {
		n.inFunc = false
	}
	return f, func() { *n = saved }, nil
}

// ---------------------------------------------------------------------------
// Statement normalization
// ---------------------------------------------------------------------------

func (n *normalizer) stmts(body []compiler.Stmt) ([]HNode, error) {
	out := make([]HNode, 0, len(body))
	for _, s := range body {
		h, err := n.stmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func tree(tag byte, attrs []string, children ...[]HNode) *HTree {
	return &HTree{Tag: tag, Attrs: attrs, Children: children}
}

func one(h HNode) []HNode { return []HNode{h} }

func (n *normalizer) stmt(stmt compiler.Stmt) (HNode, error) {
	var w walk
	w.n = n
	var h HNode
	switch s := stmt.(type) {
	case *compiler.FunctionDef:
		return n.function(TagFunction, s.Name, s.Args, s.DecoratorList, s.ScopeKey,
			func() ([]HNode, error) { return n.stmts(s.Body) })
	case *compiler.ClassDef:
		return n.class(s)
	case *compiler.Return:
		h = tree(TagReturn, nil, one(w.opt(s.Value)))
	case *compiler.Delete:
		h = tree(TagDelete, nil, w.exprs(s.Targets))
	case *compiler.Assign:
		h = tree(TagAssign, nil, w.exprs(s.Targets), one(w.expr(s.Value)))
	case *compiler.AugAssign:
		h = tree(TagAugAssign, []string{s.Op.String()}, one(w.expr(s.Target)), one(w.expr(s.Value)))
	case *compiler.Print:
		h = tree(TagPrint, []string{flag(s.NL)}, one(w.opt(s.Dest)), w.exprs(s.Values))
	case *compiler.For:
		h = tree(TagFor, nil, one(w.expr(s.Target)), one(w.expr(s.Iter)), w.stmts(s.Body), w.stmts(s.Orelse))
	case *compiler.While:
		h = tree(TagWhile, nil, one(w.expr(s.Test)), w.stmts(s.Body), w.stmts(s.Orelse))
	case *compiler.If:
		h = tree(TagIf, nil, one(w.expr(s.Test)), w.stmts(s.Body), w.stmts(s.Orelse))
	case *compiler.With:
		h = tree(TagWith, nil, one(w.expr(s.ContextExpr)), one(w.opt(s.OptionalVars)), w.stmts(s.Body))
	case *compiler.Raise:
		h = tree(TagRaise, nil, one(w.opt(s.Type)), one(w.opt(s.Inst)), one(w.opt(s.Tback)))
	case *compiler.TryExcept:
		handlers := make([]HNode, len(s.Handlers))
		for i, eh := range s.Handlers {
			handlers[i] = tree(TagHandler, nil, one(w.opt(eh.Type)), one(w.opt(eh.Name)), w.stmts(eh.Body))
		}
		h = tree(TagTryExcept, nil, w.stmts(s.Body), handlers, w.stmts(s.Orelse))
	case *compiler.TryFinally:
		h = tree(TagTryFinally, nil, w.stmts(s.Body), w.stmts(s.FinalBody))
	case *compiler.Assert:
		h = tree(TagAssert, nil, one(w.expr(s.Test)), one(w.opt(s.Msg)))
	case *compiler.Import:
		h = tree(TagImport, aliasNames(s.Names), n.aliasTargets(s.Names))
	case *compiler.ImportFrom:
		attrs := append([]string{s.Module, fmt.Sprint(s.Level)}, aliasNames(s.Names)...)
		h = tree(TagImportFrom, attrs, n.aliasTargets(s.Names))
	case *compiler.Exec:
		h = tree(TagExec, nil, one(w.expr(s.Body)), one(w.opt(s.Globals)), one(w.opt(s.Locals)))
	case *compiler.Global:
		h = tree(TagGlobal, s.Names)
	case *compiler.NonLocal:
		refs := make([]HNode, len(s.Names))
		for i, name := range s.Names {
			refs[i] = n.resolve(name)
		}
		h = tree(TagNonLocal, nil, refs)
	case *compiler.ExprStmt:
		h = tree(TagExprStmt, nil, one(w.expr(s.Value)))
	case *compiler.Pass:
		h = tree(TagPass, nil)
	case *compiler.Break:
		h = tree(TagBreak, nil)
	case *compiler.Continue:
		h = tree(TagContinue, nil)
	default:
		return nil, fmt.Errorf("hash: unhandled statement %T", stmt)
	}
	return h, w.err
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func aliasNames(names []*compiler.Alias) []string {
	out := make([]string, len(names))
	for i, a := range names {
		out[i] = a.Name + " " + a.Asname
	}
	return out
}

// aliasTargets resolves the names an import statement stores into.
func (n *normalizer) aliasTargets(names []*compiler.Alias) []HNode {
	var refs []HNode
	for _, a := range names {
		name := a.Name
		if a.Asname != "" {
			name = a.Asname
		}
		if name == "*" {
			continue
		}
		if dot := strings.IndexByte(name, '.'); dot >= 0 {
			name = name[:dot]
		}
		refs = append(refs, n.resolve(name))
	}
	return refs
}

// ---------------------------------------------------------------------------
// Scope-introducing nodes
// ---------------------------------------------------------------------------

// function normalizes a def or lambda. tag is TagFunction or TagLambda.
func (n *normalizer) function(tag byte, name string, args *compiler.Arguments,
	decorators []compiler.Expr, key int, body func() ([]HNode, error)) (*HFunction, error) {
	w := walk{n: n}
	hf := &HFunction{Tag: tag, Name: name, Target: &HAbsent{}}
	if tag == TagFunction {
		hf.Target = n.resolve(name)
	}
	hf.Defaults = w.exprs(args.Defaults)
	hf.Decorators = w.exprs(decorators)
	if w.err != nil {
		return nil, w.err
	}
	for _, a := range args.Args {
		if nm, ok := a.(*compiler.Name); ok {
			hf.Params = append(hf.Params, compiler.MangleName(n.private, nm.ID))
		}
	}
	hf.Vararg = args.Vararg
	hf.Kwarg = args.Kwarg

	f, leave, err := n.enter(key, n.private)
	if err != nil {
		return nil, err
	}
	defer leave()
	hf.Body, err = body()
	if err != nil {
		return nil, err
	}
	hf.NumSlots = int(f.next)
	hf.Generator = f.ste.Generator
	return hf, nil
}

func (n *normalizer) class(s *compiler.ClassDef) (*HClass, error) {
	w := walk{n: n}
	hc := &HClass{
		Name:       s.Name,
		Bases:      w.exprs(s.Bases),
		Decorators: w.exprs(s.DecoratorList),
		Target:     n.resolve(s.Name),
	}
	if w.err != nil {
		return nil, w.err
	}
	_, leave, err := n.enter(s.ScopeKey, s.Name)
	if err != nil {
		return nil, err
	}
	defer leave()
	hc.Body, err = n.stmts(s.Body)
	if err != nil {
		return nil, err
	}
	return hc, nil
}

func (n *normalizer) genexp(e *compiler.GeneratorExp) (*HFunction, error) {
	w := walk{n: n}
	outer := e.Generators[0]
	hf := &HFunction{Tag: TagGenExp, Name: "genexpr", Target: &HAbsent{}}
	hf.Outer = one(w.expr(outer.Iter))
	if w.err != nil {
		return nil, w.err
	}
	f, leave, err := n.enter(e.ScopeKey, n.private)
	if err != nil {
		return nil, err
	}
	defer leave()
	inner := walk{n: n}
	gens := make([]HNode, len(e.Generators))
	gens[0] = tree(TagComprehension, nil, one(inner.expr(outer.Target)), one(&HLocalRef{}), inner.exprs(outer.Ifs))
	for i, g := range e.Generators[1:] {
		gens[i+1] = inner.comprehension(g)
	}
	elt := inner.expr(e.Elt)
	if inner.err != nil {
		return nil, inner.err
	}
	hf.Body = []HNode{tree(TagListComp, nil, one(elt), gens)}
	hf.NumSlots = int(f.next)
	hf.Generator = true
	return hf, nil
}
