package hash

import (
	"fmt"

	"github.com/chazu/pyjs/compiler"
)

// ---------------------------------------------------------------------------
// Expression normalization
//
// walk carries the first error through a run of nested calls so that the
// statement cases above can stay one line each.
// ---------------------------------------------------------------------------

type walk struct {
	n   *normalizer
	err error
}

func (w *walk) fail(err error) HNode {
	if w.err == nil {
		w.err = err
	}
	return &HAbsent{}
}

func (w *walk) stmts(body []compiler.Stmt) []HNode {
	if w.err != nil {
		return nil
	}
	out, err := w.n.stmts(body)
	if err != nil {
		w.fail(err)
	}
	return out
}

func (w *walk) exprs(list []compiler.Expr) []HNode {
	out := make([]HNode, len(list))
	for i, e := range list {
		out[i] = w.expr(e)
	}
	return out
}

// opt normalizes an optional child, which may be nil.
func (w *walk) opt(e compiler.Expr) HNode {
	if e == nil {
		return &HAbsent{}
	}
	return w.expr(e)
}

func (w *walk) comprehension(g *compiler.Comprehension) HNode {
	return tree(TagComprehension, nil, one(w.expr(g.Target)), one(w.expr(g.Iter)), w.exprs(g.Ifs))
}

func (w *walk) expr(expr compiler.Expr) HNode {
	if w.err != nil {
		return &HAbsent{}
	}
	switch e := expr.(type) {
	case *compiler.Num:
		return &HNum{Kind: byte(e.N.Kind), Int: e.N.Int, Float: e.N.Float, Text: e.N.Text, Radix: e.N.Radix}
	case *compiler.Str:
		return &HStr{Value: e.S}
	case *compiler.Name:
		return w.n.resolve(e.ID)

	case *compiler.BoolOp:
		return tree(TagBoolOp, []string{e.Op.String()}, w.exprs(e.Values))
	case *compiler.BinOp:
		return tree(TagBinOp, []string{e.Op.String()}, one(w.expr(e.Left)), one(w.expr(e.Right)))
	case *compiler.UnaryOp:
		return tree(TagUnaryOp, []string{e.Op.String()}, one(w.expr(e.Operand)))
	case *compiler.IfExp:
		return tree(TagIfExp, nil, one(w.expr(e.Test)), one(w.expr(e.Body)), one(w.expr(e.Orelse)))
	case *compiler.Dict:
		return tree(TagDict, nil, w.exprs(e.Keys), w.exprs(e.Values))
	case *compiler.ListComp:
		gens := make([]HNode, len(e.Generators))
		for i, g := range e.Generators {
			gens[i] = w.comprehension(g)
		}
		return tree(TagListComp, nil, one(w.expr(e.Elt)), gens)
	case *compiler.Yield:
		return tree(TagYield, nil, one(w.opt(e.Value)))
	case *compiler.Compare:
		ops := make([]string, len(e.Ops))
		for i, op := range e.Ops {
			ops[i] = op.String()
		}
		return tree(TagCompare, ops, one(w.expr(e.Left)), w.exprs(e.Comparators))
	case *compiler.Call:
		kws := make([]HNode, len(e.Keywords))
		for i, kw := range e.Keywords {
			kws[i] = tree(TagKeyword, []string{kw.Arg}, one(w.expr(kw.Value)))
		}
		return tree(TagCall, nil, one(w.expr(e.Func)), w.exprs(e.Args), kws,
			one(w.opt(e.Starargs)), one(w.opt(e.Kwargs)))
	case *compiler.Attribute:
		attr := compiler.MangleName(w.n.private, e.Attr)
		return tree(TagAttribute, []string{attr}, one(w.expr(e.Value)))
	case *compiler.Subscript:
		return tree(TagSubscript, nil, one(w.expr(e.Value)), one(w.slice(e.Slice)))
	case *compiler.List:
		return tree(TagList, nil, w.exprs(e.Elts))
	case *compiler.Tuple:
		return tree(TagTuple, nil, w.exprs(e.Elts))

	case *compiler.Lambda:
		hf, err := w.n.function(TagLambda, "lambda", e.Args, nil, e.ScopeKey, func() ([]HNode, error) {
			inner := walk{n: w.n}
			body := inner.expr(e.Body)
			return one(body), inner.err
		})
		if err != nil {
			return w.fail(err)
		}
		return hf
	case *compiler.GeneratorExp:
		hf, err := w.n.genexp(e)
		if err != nil {
			return w.fail(err)
		}
		return hf
	}
	return w.fail(fmt.Errorf("hash: unhandled expression %T", expr))
}

func (w *walk) slice(s compiler.SliceNode) HNode {
	switch s := s.(type) {
	case *compiler.Ellipsis:
		return &HEllipsis{}
	case *compiler.Slice:
		return tree(TagSlice, nil, one(w.opt(s.Lower)), one(w.opt(s.Upper)), one(w.opt(s.Step)))
	case *compiler.ExtSlice:
		dims := make([]HNode, len(s.Dims))
		for i, d := range s.Dims {
			dims[i] = w.slice(d)
		}
		return tree(TagExtSlice, nil, dims)
	case *compiler.Index:
		return tree(TagIndex, nil, one(w.expr(s.Value)))
	}
	return w.fail(fmt.Errorf("hash: unhandled slice %T", s))
}
