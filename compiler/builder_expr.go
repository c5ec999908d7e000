package compiler

// ---------------------------------------------------------------------------
// Builder: expressions
// ---------------------------------------------------------------------------

var binaryOperators = map[int]Operator{
	VBAR:        BitOr,
	CIRCUMFLEX:  BitXor,
	AMPER:       BitAnd,
	LEFTSHIFT:   LShift,
	RIGHTSHIFT:  RShift,
	PLUS:        Add,
	MINUS:       Sub,
	STAR:        Mult,
	SLASH:       Div,
	DOUBLESLASH: FloorDiv,
	PERCENT:     Mod,
}

func (b *builder) getOperator(n *Node) (Operator, error) {
	op, ok := binaryOperators[n.Type]
	if !ok {
		return 0, b.errorf(n, "invalid binary operator %s", TokenName(n.Type))
	}
	return op, nil
}

func (b *builder) astForCompOp(n *Node) (CmpOp, error) {
	switch n.NCh() {
	case 1:
		ch := n.Child(0)
		switch ch.Type {
		case LESS:
			return Lt, nil
		case GREATER:
			return Gt, nil
		case EQEQUAL:
			return Eq, nil
		case LESSEQUAL:
			return LtE, nil
		case GREATEREQUAL:
			return GtE, nil
		case NOTEQUAL:
			return NotEq, nil
		case NAME:
			switch ch.Value {
			case "in":
				return In, nil
			case "is":
				return Is, nil
			}
		}
	case 2:
		if n.Child(0).Type == NAME {
			if n.Child(1).Value == "in" {
				return NotIn, nil
			}
			if n.Child(0).Value == "is" {
				return IsNot, nil
			}
		}
	}
	return 0, b.errorf(n, "invalid comp_op")
}

// seqForTestlist converts every other child of a comma-separated list.
func (b *builder) seqForTestlist(n *Node) ([]Expr, error) {
	seq := make([]Expr, 0, (n.NCh()+1)/2)
	for i := 0; i < n.NCh(); i += 2 {
		e, err := b.astForExpr(n.Child(i))
		if err != nil {
			return nil, err
		}
		seq = append(seq, e)
	}
	return seq, nil
}

// astForTestlist returns the single expression of a one-element list or a
// Load tuple otherwise.
func (b *builder) astForTestlist(n *Node) (Expr, error) {
	if n.NCh() == 1 {
		return b.astForExpr(n.Child(0))
	}
	elts, err := b.seqForTestlist(n)
	if err != nil {
		return nil, err
	}
	return &Tuple{pos(n), elts, Load}, nil
}

func (b *builder) astForExpr(n *Node) (Expr, error) {
	for {
		switch n.Type {
		case SymTest, SymOldTest:
			if ch := n.Child(0); ch.Type == SymLambdef || ch.Type == SymOldLambdef {
				return b.astForLambdef(ch)
			}
			if n.NCh() > 1 {
				return b.astForIfexpr(n)
			}
			n = n.Child(0)
		case SymOrTest, SymAndTest:
			if n.NCh() == 1 {
				n = n.Child(0)
				continue
			}
			values, err := b.seqForTestlist(n)
			if err != nil {
				return nil, err
			}
			op := Or
			if n.Child(1).Value == "and" {
				op = And
			}
			return &BoolOp{pos(n), op, values}, nil
		case SymNotTest:
			if n.NCh() == 1 {
				n = n.Child(0)
				continue
			}
			operand, err := b.astForExpr(n.Child(1))
			if err != nil {
				return nil, err
			}
			return &UnaryOp{pos(n), Not, operand}, nil
		case SymComparison:
			if n.NCh() == 1 {
				n = n.Child(0)
				continue
			}
			return b.astForComparison(n)
		case SymExpr, SymXorExpr, SymAndExpr, SymShiftExpr, SymArithExpr, SymTerm:
			if n.NCh() == 1 {
				n = n.Child(0)
				continue
			}
			return b.astForBinop(n)
		case SymYieldExpr:
			var value Expr
			if n.NCh() == 2 {
				var err error
				if value, err = b.astForTestlist(n.Child(1)); err != nil {
					return nil, err
				}
			}
			return &Yield{pos(n), value}, nil
		case SymFactor:
			if n.NCh() == 1 {
				n = n.Child(0)
				continue
			}
			return b.astForFactor(n)
		case SymPower:
			return b.astForPower(n)
		case SymLambdef, SymOldLambdef:
			return b.astForLambdef(n)
		default:
			return nil, b.errorf(n, "unhandled expression node %s", SymbolName(n.Type))
		}
	}
}

func (b *builder) astForComparison(n *Node) (Expr, error) {
	left, err := b.astForExpr(n.Child(0))
	if err != nil {
		return nil, err
	}
	cmp := &Compare{Position: pos(n), Left: left}
	for i := 1; i < n.NCh(); i += 2 {
		op, err := b.astForCompOp(n.Child(i))
		if err != nil {
			return nil, err
		}
		right, err := b.astForExpr(n.Child(i + 1))
		if err != nil {
			return nil, err
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Comparators = append(cmp.Comparators, right)
	}
	return cmp, nil
}

// astForBinop folds `a op b op c` left-associatively into
// BinOp(BinOp(a, op, b), op, c).
func (b *builder) astForBinop(n *Node) (Expr, error) {
	left, err := b.astForExpr(n.Child(0))
	if err != nil {
		return nil, err
	}
	op, err := b.getOperator(n.Child(1))
	if err != nil {
		return nil, err
	}
	right, err := b.astForExpr(n.Child(2))
	if err != nil {
		return nil, err
	}
	var result Expr = &BinOp{pos(n), left, op, right}
	for i := 1; i < (n.NCh()-1)/2; i++ {
		opNode := n.Child(i*2 + 1)
		if op, err = b.getOperator(opNode); err != nil {
			return nil, err
		}
		if right, err = b.astForExpr(n.Child(i*2 + 2)); err != nil {
			return nil, err
		}
		result = &BinOp{pos(opNode), result, op, right}
	}
	return result, nil
}

func (b *builder) astForIfexpr(n *Node) (Expr, error) {
	body, err := b.astForExpr(n.Child(0))
	if err != nil {
		return nil, err
	}
	test, err := b.astForExpr(n.Child(2))
	if err != nil {
		return nil, err
	}
	orelse, err := b.astForExpr(n.Child(4))
	if err != nil {
		return nil, err
	}
	return &IfExp{pos(n), test, body, orelse}, nil
}

func (b *builder) astForLambdef(n *Node) (Expr, error) {
	var args *Arguments
	var body Expr
	var err error
	key := b.newScopeKey()
	if n.NCh() == 3 {
		args = &Arguments{}
		body, err = b.astForExpr(n.Child(2))
	} else {
		if args, err = b.astForArguments(n.Child(1)); err != nil {
			return nil, err
		}
		body, err = b.astForExpr(n.Child(3))
	}
	if err != nil {
		return nil, err
	}
	return &Lambda{pos(n), args, body, key}, nil
}

// astForFactor handles unary prefix operators. A minus applied directly to
// a numeric literal is folded into the literal.
func (b *builder) astForFactor(n *Node) (Expr, error) {
	if n.Child(0).Type == MINUS && n.NCh() == 2 {
		if factor := n.Child(1); factor.Type == SymFactor && factor.NCh() == 1 {
			if power := factor.Child(0); power.Type == SymPower && power.NCh() == 1 {
				atom := power.Child(0)
				if num := atom.Child(0); num.Type == NUMBER {
					return b.astForNumber(atom, "-"+num.Value)
				}
			}
		}
	}

	operand, err := b.astForExpr(n.Child(1))
	if err != nil {
		return nil, err
	}
	switch n.Child(0).Type {
	case PLUS:
		return &UnaryOp{pos(n), UAdd, operand}, nil
	case MINUS:
		return &UnaryOp{pos(n), USub, operand}, nil
	case TILDE:
		return &UnaryOp{pos(n), Invert, operand}, nil
	}
	return nil, b.errorf(n, "unhandled factor")
}

func (b *builder) astForPower(n *Node) (Expr, error) {
	e, err := b.astForAtom(n.Child(0))
	if err != nil {
		return nil, err
	}
	for i := 1; i < n.NCh(); i++ {
		ch := n.Child(i)
		if ch.Type != SymTrailer {
			break
		}
		t, err := b.astForTrailer(ch, e)
		if err != nil {
			return nil, err
		}
		setPos(t, e.Pos())
		e = t
	}
	if last := n.Child(n.NCh() - 1); last.Type == SymFactor {
		exp, err := b.astForExpr(last)
		if err != nil {
			return nil, err
		}
		e = &BinOp{pos(n), e, Pow, exp}
	}
	return e, nil
}

func (b *builder) astForNumber(n *Node, text string) (Expr, error) {
	num, err := parseNumber(text)
	if err != nil {
		return nil, b.errorf(n, "%s", err.Error())
	}
	return &Num{pos(n), num}, nil
}

// parsestrplus decodes and concatenates adjacent string literals.
func (b *builder) parsestrplus(n *Node) (string, error) {
	var s string
	for _, ch := range n.Children {
		part, err := decodeString(ch.Value)
		if err != nil {
			return "", b.errorf(ch, "invalid string (possibly contains a unicode character)")
		}
		s += part
	}
	return s, nil
}

func (b *builder) astForAtom(n *Node) (Expr, error) {
	ch := n.Child(0)
	switch ch.Type {
	case NAME:
		return &Name{pos(n), ch.Value, Load}, nil
	case STRING:
		s, err := b.parsestrplus(n)
		if err != nil {
			return nil, err
		}
		return &Str{pos(n), s}, nil
	case NUMBER:
		return b.astForNumber(n, ch.Value)
	case LPAR:
		ch = n.Child(1)
		switch {
		case ch.Type == RPAR:
			return &Tuple{pos(n), nil, Load}, nil
		case ch.Type == SymYieldExpr:
			return b.astForExpr(ch)
		case ch.NCh() > 1 && ch.Child(1).Type == SymGenFor:
			return b.astForGenexp(ch)
		}
		return b.astForTestlist(ch)
	case LSQB:
		ch = n.Child(1)
		if ch.Type == RSQB {
			return &List{pos(n), nil, Load}, nil
		}
		if ch.NCh() == 1 || ch.Child(1).Type == COMMA {
			elts, err := b.seqForTestlist(ch)
			if err != nil {
				return nil, err
			}
			return &List{pos(n), elts, Load}, nil
		}
		return b.astForListcomp(ch)
	case LBRACE:
		d := &Dict{Position: pos(n)}
		ch = n.Child(1)
		if ch.Type == RBRACE {
			return d, nil
		}
		for i := 0; i < ch.NCh(); i += 4 {
			k, err := b.astForExpr(ch.Child(i))
			if err != nil {
				return nil, err
			}
			v, err := b.astForExpr(ch.Child(i + 2))
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, v)
		}
		return d, nil
	case BACKQUOTE:
		return nil, b.errorf(n, "backquote not supported, use repr()")
	}
	return nil, b.errorf(n, "unhandled atom %s", TokenName(ch.Type))
}

// ---------------------------------------------------------------------------
// Trailers, calls and slices
// ---------------------------------------------------------------------------

func (b *builder) astForTrailer(n *Node, left Expr) (Expr, error) {
	switch n.Child(0).Type {
	case LPAR:
		if n.NCh() == 2 {
			return &Call{Position: pos(n), Func: left}, nil
		}
		return b.astForCall(n.Child(1), left)
	case DOT:
		return &Attribute{pos(n), left, n.Child(1).Value, Load}, nil
	}

	n = n.Child(1)
	if n.NCh() == 1 {
		s, err := b.astForSlice(n.Child(0))
		if err != nil {
			return nil, err
		}
		return &Subscript{pos(n), left, s, Load}, nil
	}

	// a[x, y] is an index by tuple unless some dimension is a real slice
	simple := true
	var dims []SliceNode
	for i := 0; i < n.NCh(); i += 2 {
		s, err := b.astForSlice(n.Child(i))
		if err != nil {
			return nil, err
		}
		if _, ok := s.(*Index); !ok {
			simple = false
		}
		dims = append(dims, s)
	}
	if !simple {
		return &Subscript{pos(n), left, &ExtSlice{pos(n), dims}, Load}, nil
	}
	elts := make([]Expr, len(dims))
	for i, d := range dims {
		elts[i] = d.(*Index).Value
	}
	tuple := &Tuple{pos(n), elts, Load}
	return &Subscript{pos(n), left, &Index{pos(n), tuple}, Load}, nil
}

func (b *builder) astForSlice(n *Node) (SliceNode, error) {
	ch := n.Child(0)
	if ch.Type == DOT {
		return &Ellipsis{pos(n)}, nil
	}
	if n.NCh() == 1 && ch.Type == SymTest {
		e, err := b.astForExpr(ch)
		if err != nil {
			return nil, err
		}
		return &Index{pos(n), e}, nil
	}

	s := &Slice{Position: pos(n)}
	var err error
	if ch.Type == SymTest {
		if s.Lower, err = b.astForExpr(ch); err != nil {
			return nil, err
		}
	}
	if ch.Type == COLON {
		if n.NCh() > 1 {
			if n2 := n.Child(1); n2.Type == SymTest {
				if s.Upper, err = b.astForExpr(n2); err != nil {
					return nil, err
				}
			}
		}
	} else if n.NCh() > 2 {
		if n2 := n.Child(2); n2.Type == SymTest {
			if s.Upper, err = b.astForExpr(n2); err != nil {
				return nil, err
			}
		}
	}

	if ch = n.Child(n.NCh() - 1); ch.Type == SymSliceop {
		if ch.NCh() == 1 {
			colon := ch.Child(0)
			s.Step = &Name{pos(colon), "None", Load}
		} else if step := ch.Child(1); step.Type == SymTest {
			if s.Step, err = b.astForExpr(step); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (b *builder) astForCall(n *Node, fn Expr) (Expr, error) {
	nargs, nkeywords, ngens := 0, 0, 0
	for _, ch := range n.Children {
		if ch.Type != SymArgument {
			continue
		}
		switch {
		case ch.NCh() == 1:
			nargs++
		case ch.Child(1).Type == SymGenFor:
			ngens++
		default:
			nkeywords++
		}
	}
	if ngens > 1 || (ngens > 0 && (nargs > 0 || nkeywords > 0)) {
		return nil, b.errorf(n, "Generator expression must be parenthesized if not sole argument")
	}
	if nargs+nkeywords+ngens > 255 {
		return nil, b.errorf(n, "more than 255 arguments")
	}

	call := &Call{Position: fn.Pos(), Func: fn}
	for i := 0; i < n.NCh(); i++ {
		ch := n.Child(i)
		switch ch.Type {
		case SymArgument:
			switch {
			case ch.NCh() == 1:
				if len(call.Keywords) > 0 {
					return nil, b.errorf(n, "non-keyword arg after keyword arg")
				}
				if call.Starargs != nil {
					return nil, b.errorf(n, "only named arguments may follow *expression")
				}
				e, err := b.astForExpr(ch.Child(0))
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, e)
			case ch.Child(1).Type == SymGenFor:
				e, err := b.astForGenexp(ch)
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, e)
			default:
				e, err := b.astForExpr(ch.Child(0))
				if err != nil {
					return nil, err
				}
				name, ok := e.(*Name)
				if !ok {
					if _, isLambda := e.(*Lambda); isLambda {
						return nil, b.errorf(n, "lambda cannot contain assignment")
					}
					return nil, b.errorf(n, "keyword can't be an expression")
				}
				if err := b.forbiddenCheck(ch.Child(0), name.ID); err != nil {
					return nil, err
				}
				for _, kw := range call.Keywords {
					if kw.Arg == name.ID {
						return nil, b.errorf(n, "keyword argument repeated")
					}
				}
				value, err := b.astForExpr(ch.Child(2))
				if err != nil {
					return nil, err
				}
				call.Keywords = append(call.Keywords, &Keyword{name.ID, value})
			}
		case STAR:
			i++
			e, err := b.astForExpr(n.Child(i))
			if err != nil {
				return nil, err
			}
			call.Starargs = e
		case DOUBLESTAR:
			i++
			e, err := b.astForExpr(n.Child(i))
			if err != nil {
				return nil, err
			}
			call.Kwargs = e
		}
	}
	return call, nil
}

// ---------------------------------------------------------------------------
// Comprehensions
// ---------------------------------------------------------------------------

// comprehensionSyntax names the nonterminals of one comprehension flavour.
type comprehensionSyntax struct {
	forSym, iterSym int
}

var (
	listCompSyntax = comprehensionSyntax{SymListFor, SymListIter}
	genExpSyntax   = comprehensionSyntax{SymGenFor, SymGenIter}
)

// countFors counts the for clauses chained after the element of n.
func countFors(n *Node, syn comprehensionSyntax) int {
	nfors := 0
	ch := n.Child(1)
	for {
		nfors++
		if ch.NCh() != 5 {
			return nfors
		}
		ch = ch.Child(4)
		for {
			ch = ch.Child(0)
			if ch.Type == syn.forSym {
				break
			}
			if ch.NCh() != 3 {
				return nfors
			}
			ch = ch.Child(2)
		}
	}
}

// countIfs counts the if clauses directly following a for clause.
func countIfs(n *Node, syn comprehensionSyntax) int {
	nifs := 0
	for {
		if n.Child(0).Type == syn.forSym {
			return nifs
		}
		n = n.Child(0)
		nifs++
		if n.NCh() == 2 {
			return nifs
		}
		n = n.Child(2)
	}
}

// astForComprehension flattens the chained for/if clauses that follow the
// element of a list comprehension or generator expression.
func (b *builder) astForComprehension(n *Node, syn comprehensionSyntax) ([]*Comprehension, error) {
	nfors := countFors(n, syn)
	comps := make([]*Comprehension, 0, nfors)
	ch := n.Child(1)
	for i := 0; i < nfors; i++ {
		forch := ch.Child(1)
		targets, err := b.astForExprlist(forch, Store)
		if err != nil {
			return nil, err
		}
		var iter Expr
		if syn.forSym == SymListFor {
			iter, err = b.astForTestlist(ch.Child(3))
		} else {
			iter, err = b.astForExpr(ch.Child(3))
		}
		if err != nil {
			return nil, err
		}
		comp := &Comprehension{Target: targets[0], Iter: iter}
		if forch.NCh() != 1 {
			comp.Target = &Tuple{pos(ch), targets, Store}
		}
		if ch.NCh() == 5 {
			ch = ch.Child(4)
			nifs := countIfs(ch, syn)
			for j := 0; j < nifs; j++ {
				ch = ch.Child(0)
				cond, err := b.astForExpr(ch.Child(1))
				if err != nil {
					return nil, err
				}
				comp.Ifs = append(comp.Ifs, cond)
				if ch.NCh() == 3 {
					ch = ch.Child(2)
				}
			}
			if ch.Type == syn.iterSym {
				ch = ch.Child(0)
			}
		}
		comps = append(comps, comp)
	}
	return comps, nil
}

func (b *builder) astForListcomp(n *Node) (Expr, error) {
	elt, err := b.astForExpr(n.Child(0))
	if err != nil {
		return nil, err
	}
	gens, err := b.astForComprehension(n, listCompSyntax)
	if err != nil {
		return nil, err
	}
	return &ListComp{pos(n), elt, gens}, nil
}

func (b *builder) astForGenexp(n *Node) (Expr, error) {
	key := b.newScopeKey()
	elt, err := b.astForExpr(n.Child(0))
	if err != nil {
		return nil, err
	}
	gens, err := b.astForComprehension(n, genExpSyntax)
	if err != nil {
		return nil, err
	}
	return &GeneratorExp{pos(n), elt, gens, key}, nil
}
