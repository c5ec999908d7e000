package compiler

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (u *unit) expr(e Expr) string { return u.vexpr(e, "") }

func (u *unit) exprs(list []Expr) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, u.expr(e))
	}
	return out
}

// vexpr compiles e and returns the JS expression holding its value. For
// targets in Store context, data is the value being stored.
func (u *unit) vexpr(e Expr, data string) string {
	switch e := e.(type) {
	case *BoolOp:
		return u.cboolop(e)
	case *BinOp:
		l := u.expr(e.Left)
		r := u.expr(e.Right)
		return u.gr("binop", "Sk.abstr.numberBinOp(", l, ",", r, ",'", e.Op.String(), "')")
	case *UnaryOp:
		v := u.expr(e.Operand)
		return u.gr("unaryop", "Sk.abstr.numberUnaryOp(", v, ",'", e.Op.String(), "')")
	case *Lambda:
		return u.buildCodeObj(e, "<lambda>", e.ScopeKey, nil, e.Args, func(c *unit) {
			val := c.expr(e.Body)
			c.out("return ", val, ";")
		})
	case *IfExp:
		return u.cifexp(e)
	case *Dict:
		items := make([]string, 0, 2*len(e.Keys))
		for i := range e.Values {
			// value first, as CPython evaluates it
			v := u.expr(e.Values[i])
			items = append(items, u.expr(e.Keys[i]), v)
		}
		return u.gr("loaddict", "new Sk.builtins['dict']([", items, "])")
	case *ListComp:
		tmp := u.gr("_compr", "new Sk.builtins['list']([])")
		u.listCompGen(tmp, e.Generators, 0, e.Elt)
		return tmp
	case *GeneratorExp:
		return u.cgenexp(e)
	case *Yield:
		return u.cyield(e)
	case *Compare:
		return u.ccompare(e)
	case *Call:
		res := u.ccall(e)
		// the call returns to this line
		u.annotate(e)
		return res
	case *Num:
		return numLiteral(e.N)
	case *Str:
		return u.gr("str", "Sk.builtin.stringToPy(", quoteJS(e.S), ")")
	case *Attribute:
		return u.cattr(e, data)
	case *Subscript:
		obj := u.expr(e.Value)
		subs := u.sliceSub(e.Slice)
		switch e.Ctx {
		case Load, AugLoad:
			return u.gr("lsubscr", "Sk.abstr.objectGetItem(", obj, ",", subs, ")")
		case Store, AugStore:
			u.out("Sk.abstr.objectSetItem(", obj, ",", subs, ",", data, ");")
		case Del:
			u.out("Sk.abstr.objectDelItem(", obj, ",", subs, ");")
		}
		return ""
	case *Name:
		return u.nameop(e.ID, e.Ctx, data, e)
	case *List:
		return u.ctupleOrList(e.Elts, e.Ctx, data, "list")
	case *Tuple:
		return u.ctupleOrList(e.Elts, e.Ctx, data, "tuple")
	}
	u.cx.errorf(CompileError, e, "unhandled expression %T", e)
	return ""
}

func numLiteral(n Number) string {
	switch n.Kind {
	case FloatNum:
		return "Sk.builtin.numberToPy(" + jsFloat(n.Float) + ")"
	case IntNum:
		return "Sk.ffi.numberToIntPy(" + strconv.FormatInt(n.Int, 10) + ")"
	}
	return "Sk.ffi.longFromString(" + quoteJS(n.Text) + ", " + strconv.Itoa(n.Radix) + ")"
}

func (u *unit) attrName(attr string) string {
	return fixReservedNames(fixReservedWords(MangleName(u.private, attr)))
}

func (u *unit) cattr(e *Attribute, data string) string {
	obj := u.expr(e.Value)
	attr := u.attrName(e.Attr)
	switch e.Ctx {
	case Load, AugLoad:
		return u.gr("lattr", "Sk.abstr.gattr(", obj, ",'", attr, "')")
	case Store, AugStore:
		u.out("Sk.abstr.sattr(", obj, ",'", attr, "',", data, ");")
	case Del:
		u.out("Sk.abstr.dattr(", obj, ",'", attr, "');")
	}
	return ""
}

func (u *unit) ctupleOrList(elts []Expr, ctx ExprContext, data, kind string) string {
	switch ctx {
	case Store:
		for i, elt := range elts {
			u.vexpr(elt, "Sk.abstr.objectGetItem("+data+","+strconv.Itoa(i)+")")
		}
	case Del:
		for _, elt := range elts {
			u.vexpr(elt, "")
		}
	default:
		items := make([]string, len(elts))
		for i, elt := range elts {
			items[i] = u.gr("elem", u.expr(elt))
		}
		return u.gr("load"+kind, "new Sk.builtins['", kind, "']([", items, "])")
	}
	return ""
}

func (u *unit) sliceSub(s SliceNode) string {
	switch s := s.(type) {
	case *Index:
		return u.expr(s.Value)
	case *Slice:
		low, high, step := "null", "null", "null"
		if s.Lower != nil {
			low = u.expr(s.Lower)
		}
		if s.Upper != nil {
			high = u.expr(s.Upper)
		}
		if s.Step != nil {
			step = u.expr(s.Step)
		}
		return u.gr("slice", "new Sk.builtins['slice'](", low, ",", high, ",", step, ")")
	case *Ellipsis:
		return "Sk.builtin.Ellipsis"
	case *ExtSlice:
		dims := make([]string, len(s.Dims))
		for i, d := range s.Dims {
			dims[i] = u.sliceSub(d)
		}
		return u.gr("extslice", "new Sk.builtins['tuple']([", dims, "])")
	}
	return "null"
}

// caugassign evaluates the target's container once, combines in place and
// stores back only when the in-place operation produced a value.
func (u *unit) caugassign(s *AugAssign) {
	op := s.Op.String()
	switch t := s.Target.(type) {
	case *Attribute:
		obj := u.expr(t.Value)
		attr := u.attrName(t.Attr)
		aug := u.gr("lattr", "Sk.abstr.gattr(", obj, ",'", attr, "')")
		val := u.expr(s.Value)
		res := u.gr("inplbinopattr", "Sk.abstr.numberInplaceBinOp(", aug, ",", val, ",'", op, "')")
		u.out("if(typeof ", res, " !== 'undefined'){Sk.abstr.sattr(", obj, ",'", attr, "',", res, ");}")
	case *Subscript:
		obj := u.expr(t.Value)
		subs := u.sliceSub(t.Slice)
		aug := u.gr("lsubscr", "Sk.abstr.objectGetItem(", obj, ",", subs, ")")
		val := u.expr(s.Value)
		res := u.gr("inplbinopsubscr", "Sk.abstr.numberInplaceBinOp(", aug, ",", val, ",'", op, "')")
		u.out("if(typeof ", res, " !== 'undefined'){Sk.abstr.objectSetItem(", obj, ",", subs, ",", res, ");}")
	case *Name:
		to := u.nameop(t.ID, Load, "", t)
		val := u.expr(s.Value)
		res := u.gr("inplbinop", "Sk.abstr.numberInplaceBinOp(", to, ",", val, ",'", op, "')")
		u.nameop(t.ID, Store, res, t)
	default:
		u.cx.errorf(CompileError, s, "illegal expression for augmented assignment")
	}
}

func (u *unit) cboolop(e *BoolOp) string {
	end := u.newBlock("end of boolop")
	var retval string
	for i, v := range e.Values {
		res := u.expr(v)
		if i == 0 {
			retval = u.gr("boolopsucc", res)
		}
		u.out(retval, "=", res, ";")
		if e.Op == And {
			u.jumpFalse(res, end)
		} else {
			u.jumpTrue(res, end)
		}
	}
	u.jump(end)
	u.setBlock(end)
	return retval
}

func (u *unit) cifexp(e *IfExp) string {
	next := u.newBlock("next of ifexp")
	end := u.newBlock("end of ifexp")
	ret := u.gr("res", "null")

	test := u.expr(e.Test)
	u.jumpFalse(test, next)
	u.out(ret, "=", u.expr(e.Body), ";")
	u.jump(end)

	u.setBlock(next)
	u.out(ret, "=", u.expr(e.Orelse), ";")
	u.jump(end)

	u.setBlock(end)
	return ret
}

// ccompare short-circuits a comparison chain at the first false link.
func (u *unit) ccompare(e *Compare) string {
	cur := u.expr(e.Left)
	done := u.newBlock("done")
	fres := u.gr("compareres", "null")
	for i, op := range e.Ops {
		rhs := u.expr(e.Comparators[i])
		res := u.gr("compare", "Sk.builtin.bool(Sk.misceval.richCompareBool(", cur, ",", rhs, ",'", op.String(), "'))")
		u.out(fres, "=", res, ";")
		u.jumpFalse(res, done)
		cur = rhs
	}
	u.jump(done)
	u.setBlock(done)
	return fres
}

func (u *unit) ccall(e *Call) string {
	fn := u.expr(e.Func)
	args := u.exprs(e.Args)
	sep := ""
	if len(args) > 0 {
		sep = ","
	}
	if len(e.Keywords) == 0 && e.Starargs == nil && e.Kwargs == nil {
		return u.gr("call", "Sk.misceval.callsim(", fn, sep, args, ")")
	}
	kw := make([]string, 0, 2*len(e.Keywords))
	for _, k := range e.Keywords {
		kw = append(kw, quoteJS(k.Arg), u.expr(k.Value))
	}
	starargs, kwargs := "undefined", "undefined"
	if e.Starargs != nil {
		starargs = u.expr(e.Starargs)
	}
	if e.Kwargs != nil {
		kwargs = u.expr(e.Kwargs)
	}
	return u.gr("call", "Sk.misceval.call(", fn, ",", kwargs, ",", starargs, ",[", kw, "]", sep, args, ")")
}

// cyield suspends the generator: the function returns the block to resume
// at together with the yielded value, and the sent value is read on resume.
func (u *unit) cyield(e *Yield) string {
	if u.ste.Type != FunctionBlock {
		u.cx.errorf(CompileError, e, "'yield' outside function")
		return "null"
	}
	val := "null"
	if e.Value != nil {
		val = u.expr(e.Value)
	}
	next := u.newBlock("after yield")
	u.out("return [/*resume*/", next, ",/*ret*/", val, "];")
	u.suspensions++
	u.setBlock(next)
	return "$gen.gi$sentvalue"
}

// ---------------------------------------------------------------------------
// Comprehensions
// ---------------------------------------------------------------------------

func (u *unit) listCompGen(tmp string, gens []*Comprehension, i int, elt Expr) {
	start := u.newBlock("list gen start")
	skip := u.newBlock("list gen skip")
	anchor := u.newBlock("list gen anchor")

	g := gens[i]
	toiter := u.expr(g.Iter)
	iter := u.gr("iter", "Sk.abstr.iter(", toiter, ")")
	u.jump(start)
	u.setBlock(start)

	nexti := u.gr("next", "Sk.abstr.iternext(", iter, ")")
	u.jumpUndef(nexti, anchor)
	u.vexpr(g.Target, nexti)
	for _, cond := range g.Ifs {
		u.jumpFalse(u.expr(cond), start)
	}

	if i+1 < len(gens) {
		u.listCompGen(tmp, gens, i+1, elt)
	} else {
		velt := u.expr(elt)
		u.out(tmp, ".v.push(", velt, ");")
		u.jump(skip)
		u.setBlock(skip)
	}
	u.jump(start)
	u.setBlock(anchor)
}

func (u *unit) cgenexp(e *GeneratorExp) string {
	gen := u.buildCodeObj(e, "<genexpr>", e.ScopeKey, nil, nil, func(c *unit) {
		c.genexpGen(e.Generators, 0, e.Elt)
	})
	gener := u.gr("gener", "Sk.misceval.callsim(", gen, ")")
	// the outermost iterable belongs to the enclosing scope; the generator
	// finds its iterator under a fixed local name
	outer := u.expr(e.Generators[0].Iter)
	u.out(gener, ".gi$locals.$iter0=Sk.abstr.iter(", outer, ");")
	return gener
}

func (u *unit) genexpGen(gens []*Comprehension, i int, elt Expr) {
	start := u.newBlock("start for " + strconv.Itoa(i))
	skip := u.newBlock("skip for " + strconv.Itoa(i))
	end := u.newBlock("end for " + strconv.Itoa(i))

	g := gens[i]
	iter := "$loc.$iter0"
	if i > 0 {
		toiter := u.expr(g.Iter)
		iter = u.temp("iter", "Sk.abstr.iter(", toiter, ")")
	}
	u.jump(start)
	u.setBlock(start)

	nexti := u.gr("next", "Sk.abstr.iternext(", iter, ")")
	u.jumpUndef(nexti, end)
	u.vexpr(g.Target, nexti)
	for _, cond := range g.Ifs {
		u.jumpFalse(u.expr(cond), start)
	}

	if i+1 < len(gens) {
		u.genexpGen(gens, i+1, elt)
	} else {
		velt := u.expr(elt)
		u.out("return [", skip, "/*resume*/,", velt, "/*ret*/];")
		u.suspensions++
		u.setBlock(skip)
	}
	u.jump(start)
	u.setBlock(end)
	if i == 0 {
		u.out("return null;")
	}
}
