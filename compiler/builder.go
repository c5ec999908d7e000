package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Builder: concrete syntax tree -> AST
// ---------------------------------------------------------------------------

// builder converts one parse tree. It assigns every scope-bearing node a
// distinct ScopeKey.
type builder struct {
	fileName  string
	scopeKeys int
}

// AstFromParse converts a file_input parse tree into a Module.
func AstFromParse(n *Node, fileName string) (*Module, error) {
	b := &builder{fileName: fileName}
	mod := &Module{Position: Position{Lineno: 1}, ScopeKey: b.newScopeKey()}
	for i := 0; i < n.NCh()-1; i++ {
		ch := n.Child(i)
		if ch.Type == NEWLINE {
			continue
		}
		num := numStmts(ch)
		if num == 1 {
			s, err := b.astForStmt(ch)
			if err != nil {
				return nil, err
			}
			mod.Body = append(mod.Body, s)
			continue
		}
		ch = ch.Child(0)
		for j := 0; j < num; j++ {
			s, err := b.astForStmt(ch.Child(j * 2))
			if err != nil {
				return nil, err
			}
			mod.Body = append(mod.Body, s)
		}
	}
	return mod, nil
}

func (b *builder) newScopeKey() int {
	key := b.scopeKeys
	b.scopeKeys++
	return key
}

func (b *builder) errorf(n *Node, format string, args ...any) *Error {
	return newError(BuildError, b.fileName, n.Lineno, n.ColOffset, format, args...)
}

func pos(n *Node) Position { return Position{Lineno: n.Lineno, ColOffset: n.ColOffset} }

// numStmts counts the logical statements a statement-level node expands to.
func numStmts(n *Node) int {
	switch n.Type {
	case SymSingleInput:
		if n.Child(0).Type == NEWLINE {
			return 0
		}
		return numStmts(n.Child(0))
	case SymFileInput:
		count := 0
		for _, ch := range n.Children {
			if ch.Type == SymStmt {
				count += numStmts(ch)
			}
		}
		return count
	case SymStmt:
		return numStmts(n.Child(0))
	case SymCompoundStmt:
		return 1
	case SymSimpleStmt:
		return n.NCh() / 2
	case SymSuite:
		if n.NCh() == 1 {
			return numStmts(n.Child(0))
		}
		count := 0
		for _, ch := range n.Children[2 : n.NCh()-1] {
			count += numStmts(ch)
		}
		return count
	}
	panic(fmt.Sprintf("numStmts: non-statement node %s", SymbolName(n.Type)))
}

// forbiddenCheck rejects binding the constant names.
func (b *builder) forbiddenCheck(n *Node, name string) error {
	switch name {
	case "None":
		return b.errorf(n, "assignment to None")
	case "True", "False":
		return b.errorf(n, "assignment to True or False is forbidden")
	}
	return nil
}

// setContext marks e and every element it unpacks into with ctx, rejecting
// expressions that cannot be assignment or deletion targets.
func (b *builder) setContext(e Expr, ctx ExprContext, n *Node) error {
	var exprName string
	var elts []Expr
	switch e := e.(type) {
	case *Attribute:
		if ctx == Store {
			if err := b.forbiddenCheck(n, e.Attr); err != nil {
				return err
			}
		}
		e.Ctx = ctx
	case *Name:
		if ctx == Store {
			if err := b.forbiddenCheck(n, e.ID); err != nil {
				return err
			}
		}
		e.Ctx = ctx
	case *Subscript:
		e.Ctx = ctx
	case *List:
		e.Ctx = ctx
		elts = e.Elts
	case *Tuple:
		if len(e.Elts) == 0 {
			return b.errorf(n, "can't assign to ()")
		}
		e.Ctx = ctx
		elts = e.Elts
	case *Lambda:
		exprName = "lambda"
	case *Call:
		exprName = "function call"
	case *BoolOp, *BinOp, *UnaryOp:
		exprName = "operator"
	case *GeneratorExp:
		exprName = "generator expression"
	case *Yield:
		exprName = "yield expression"
	case *ListComp:
		exprName = "list comprehension"
	case *Dict, *Num, *Str:
		exprName = "literal"
	case *Compare:
		exprName = "comparison expression"
	case *IfExp:
		exprName = "conditional expression"
	default:
		return b.errorf(n, "unexpected expression in assignment")
	}
	if exprName != "" {
		verb := "assign to"
		if ctx != Store {
			verb = "delete"
		}
		return b.errorf(n, "can't %s %s", verb, exprName)
	}
	for _, elt := range elts {
		if err := b.setContext(elt, ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (b *builder) astForStmt(n *Node) (Stmt, error) {
	if n.Type == SymStmt {
		n = n.Child(0)
	}
	if n.Type == SymSimpleStmt {
		n = n.Child(0)
	}
	if n.Type == SymSmallStmt {
		n = n.Child(0)
		switch n.Type {
		case SymExprStmt:
			return b.astForExprStmt(n)
		case SymPrintStmt:
			return b.astForPrintStmt(n)
		case SymDelStmt:
			return b.astForDelStmt(n)
		case SymPassStmt:
			return &Pass{pos(n)}, nil
		case SymFlowStmt:
			return b.astForFlowStmt(n)
		case SymImportStmt:
			return b.astForImportStmt(n)
		case SymGlobalStmt:
			return &Global{pos(n), nameList(n)}, nil
		case SymNonlocalStmt:
			return &NonLocal{pos(n), nameList(n)}, nil
		case SymExecStmt:
			return b.astForExecStmt(n)
		case SymAssertStmt:
			return b.astForAssertStmt(n)
		}
		return nil, b.errorf(n, "unhandled small_stmt %s", SymbolName(n.Type))
	}

	ch := n.Child(0)
	switch ch.Type {
	case SymIfStmt:
		return b.astForIfStmt(ch)
	case SymWhileStmt:
		return b.astForWhileStmt(ch)
	case SymForStmt:
		return b.astForForStmt(ch)
	case SymTryStmt:
		return b.astForTryStmt(ch)
	case SymWithStmt:
		return b.astForWithStmt(ch)
	case SymFuncdef:
		return b.astForFuncdef(ch, nil)
	case SymClassdef:
		return b.astForClassdef(ch, nil)
	case SymDecorated:
		return b.astForDecorated(ch)
	}
	return nil, b.errorf(ch, "unhandled compound_stmt %s", SymbolName(ch.Type))
}

func (b *builder) astForSuite(n *Node) ([]Stmt, error) {
	var seq []Stmt
	add := func(n *Node) error {
		s, err := b.astForStmt(n)
		if err != nil {
			return err
		}
		seq = append(seq, s)
		return nil
	}

	if n.Child(0).Type == SymSimpleStmt {
		n = n.Child(0)
		end := n.NCh() - 1
		if n.Child(end-1).Type == SEMI {
			end--
		}
		for i := 0; i < end; i += 2 {
			if err := add(n.Child(i)); err != nil {
				return nil, err
			}
		}
		return seq, nil
	}

	for i := 2; i < n.NCh()-1; i++ {
		ch := n.Child(i)
		if numStmts(ch) == 1 {
			if err := add(ch); err != nil {
				return nil, err
			}
			continue
		}
		ch = ch.Child(0)
		for j := 0; j < ch.NCh(); j += 2 {
			if ch.Child(j).NCh() == 0 {
				break
			}
			if err := add(ch.Child(j)); err != nil {
				return nil, err
			}
		}
	}
	return seq, nil
}

func (b *builder) astForExprStmt(n *Node) (Stmt, error) {
	if n.NCh() == 1 {
		e, err := b.astForTestlist(n.Child(0))
		if err != nil {
			return nil, err
		}
		return &ExprStmt{pos(n), e}, nil
	}

	if n.Child(1).Type == SymAugassign {
		ch := n.Child(0)
		target, err := b.astForTestlist(ch)
		if err != nil {
			return nil, err
		}
		switch t := target.(type) {
		case *GeneratorExp:
			return nil, b.errorf(ch, "augmented assignment to generator expression not possible")
		case *Yield:
			return nil, b.errorf(ch, "augmented assignment to yield expression not possible")
		case *Name:
			if err := b.forbiddenCheck(ch, t.ID); err != nil {
				return nil, err
			}
		case *Attribute, *Subscript:
		default:
			return nil, b.errorf(ch, "illegal expression for augmented assignment")
		}
		if err := b.setContext(target, Store, ch); err != nil {
			return nil, err
		}
		ch = n.Child(2)
		var value Expr
		if ch.Type == SymTestlist {
			value, err = b.astForTestlist(ch)
		} else {
			value, err = b.astForExpr(ch)
		}
		if err != nil {
			return nil, err
		}
		op, err := b.astForAugassign(n.Child(1))
		if err != nil {
			return nil, err
		}
		return &AugAssign{pos(n), target, op, value}, nil
	}

	if n.Child(1).Type != EQUAL {
		return nil, b.errorf(n.Child(1), "expected '='")
	}
	var targets []Expr
	for i := 0; i < n.NCh()-2; i += 2 {
		ch := n.Child(i)
		if ch.Type == SymYieldExpr {
			return nil, b.errorf(ch, "assignment to yield expression not possible")
		}
		e, err := b.astForTestlist(ch)
		if err != nil {
			return nil, err
		}
		if err := b.setContext(e, Store, ch); err != nil {
			return nil, err
		}
		targets = append(targets, e)
	}
	valueNode := n.Child(n.NCh() - 1)
	var value Expr
	var err error
	if valueNode.Type == SymTestlist {
		value, err = b.astForTestlist(valueNode)
	} else {
		value, err = b.astForExpr(valueNode)
	}
	if err != nil {
		return nil, err
	}
	return &Assign{pos(n), targets, value}, nil
}

func (b *builder) astForAugassign(n *Node) (Operator, error) {
	op := n.Child(0).Value
	switch op[0] {
	case '+':
		return Add, nil
	case '-':
		return Sub, nil
	case '/':
		if op[1] == '/' {
			return FloorDiv, nil
		}
		return Div, nil
	case '%':
		return Mod, nil
	case '<':
		return LShift, nil
	case '>':
		return RShift, nil
	case '&':
		return BitAnd, nil
	case '^':
		return BitXor, nil
	case '|':
		return BitOr, nil
	case '*':
		if op[1] == '*' {
			return Pow, nil
		}
		return Mult, nil
	}
	return 0, b.errorf(n, "invalid augassign: %s", op)
}

func (b *builder) astForPrintStmt(n *Node) (Stmt, error) {
	start := 1
	var dest Expr
	if n.NCh() >= 2 && n.Child(1).Type == RIGHTSHIFT {
		var err error
		if dest, err = b.astForExpr(n.Child(2)); err != nil {
			return nil, err
		}
		start = 4
	}
	var values []Expr
	for i := start; i < n.NCh(); i += 2 {
		e, err := b.astForExpr(n.Child(i))
		if err != nil {
			return nil, err
		}
		values = append(values, e)
	}
	nl := n.Child(n.NCh()-1).Type != COMMA
	return &Print{pos(n), dest, values, nl}, nil
}

func (b *builder) astForDelStmt(n *Node) (Stmt, error) {
	targets, err := b.astForExprlist(n.Child(1), Del)
	if err != nil {
		return nil, err
	}
	return &Delete{pos(n), targets}, nil
}

// astForExprlist converts an exprlist, applying ctx to each element when
// ctx is nonzero.
func (b *builder) astForExprlist(n *Node, ctx ExprContext) ([]Expr, error) {
	var seq []Expr
	for i := 0; i < n.NCh(); i += 2 {
		e, err := b.astForExpr(n.Child(i))
		if err != nil {
			return nil, err
		}
		if ctx != 0 {
			if err := b.setContext(e, ctx, n.Child(i)); err != nil {
				return nil, err
			}
		}
		seq = append(seq, e)
	}
	return seq, nil
}

func (b *builder) astForFlowStmt(n *Node) (Stmt, error) {
	ch := n.Child(0)
	switch ch.Type {
	case SymBreakStmt:
		return &Break{pos(n)}, nil
	case SymContinueStmt:
		return &Continue{pos(n)}, nil
	case SymYieldStmt:
		e, err := b.astForExpr(ch.Child(0))
		if err != nil {
			return nil, err
		}
		return &ExprStmt{pos(n), e}, nil
	case SymReturnStmt:
		if ch.NCh() == 1 {
			return &Return{pos(n), nil}, nil
		}
		e, err := b.astForTestlist(ch.Child(1))
		if err != nil {
			return nil, err
		}
		return &Return{pos(n), e}, nil
	case SymRaiseStmt:
		exprs := make([]Expr, 3)
		for i, j := 1, 0; i < ch.NCh(); i, j = i+2, j+1 {
			e, err := b.astForExpr(ch.Child(i))
			if err != nil {
				return nil, err
			}
			exprs[j] = e
		}
		return &Raise{pos(n), exprs[0], exprs[1], exprs[2]}, nil
	}
	return nil, b.errorf(ch, "unexpected flow_stmt %s", SymbolName(ch.Type))
}

// nameList collects the NAME children of a global or nonlocal statement.
func nameList(n *Node) []string {
	var names []string
	for i := 1; i < n.NCh(); i += 2 {
		names = append(names, n.Child(i).Value)
	}
	return names
}

func (b *builder) astForExecStmt(n *Node) (Stmt, error) {
	exprs := make([]Expr, 3)
	for i, j := 1, 0; i < n.NCh(); i, j = i+2, j+1 {
		e, err := b.astForExpr(n.Child(i))
		if err != nil {
			return nil, err
		}
		exprs[j] = e
	}
	return &Exec{pos(n), exprs[0], exprs[1], exprs[2]}, nil
}

func (b *builder) astForAssertStmt(n *Node) (Stmt, error) {
	test, err := b.astForExpr(n.Child(1))
	if err != nil {
		return nil, err
	}
	var msg Expr
	if n.NCh() == 4 {
		if msg, err = b.astForExpr(n.Child(3)); err != nil {
			return nil, err
		}
	}
	return &Assert{pos(n), test, msg}, nil
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

func (b *builder) aliasForImportName(n *Node) (*Alias, error) {
	for {
		switch n.Type {
		case SymImportAsName:
			a := &Alias{Name: n.Child(0).Value}
			if n.NCh() == 3 {
				a.Asname = n.Child(2).Value
			}
			return a, nil
		case SymDottedAsName:
			if n.NCh() == 1 {
				n = n.Child(0)
				continue
			}
			a, err := b.aliasForImportName(n.Child(0))
			if err != nil {
				return nil, err
			}
			a.Asname = n.Child(2).Value
			return a, nil
		case SymDottedName:
			parts := make([]string, 0, (n.NCh()+1)/2)
			for i := 0; i < n.NCh(); i += 2 {
				parts = append(parts, n.Child(i).Value)
			}
			return &Alias{Name: strings.Join(parts, ".")}, nil
		case STAR:
			return &Alias{Name: "*"}, nil
		}
		return nil, b.errorf(n, "unexpected import name")
	}
}

func (b *builder) astForImportStmt(n *Node) (Stmt, error) {
	p := pos(n)
	n = n.Child(0)
	if n.Type == SymImportName {
		n = n.Child(1)
		var aliases []*Alias
		for i := 0; i < n.NCh(); i += 2 {
			a, err := b.aliasForImportName(n.Child(i))
			if err != nil {
				return nil, err
			}
			aliases = append(aliases, a)
		}
		return &Import{p, aliases}, nil
	}

	var mod *Alias
	ndots := 0
	idx := 1
	for ; idx < n.NCh(); idx++ {
		ch := n.Child(idx)
		if ch.Type == SymDottedName {
			var err error
			if mod, err = b.aliasForImportName(ch); err != nil {
				return nil, err
			}
			idx++
			break
		}
		if ch.Type != DOT {
			break
		}
		ndots++
	}
	idx++ // the import keyword

	var names *Node
	switch ch := n.Child(idx); ch.Type {
	case STAR:
		names = ch
	case LPAR:
		names = n.Child(idx + 1)
	case SymImportAsNames:
		names = ch
		if names.NCh()%2 == 0 {
			return nil, b.errorf(n, "trailing comma not allowed without surrounding parentheses")
		}
	default:
		return nil, b.errorf(ch, "unexpected node-type in from-import")
	}

	var aliases []*Alias
	if names.Type == STAR {
		a, err := b.aliasForImportName(names)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	} else {
		for i := 0; i < names.NCh(); i += 2 {
			a, err := b.aliasForImportName(names.Child(i))
			if err != nil {
				return nil, err
			}
			aliases = append(aliases, a)
		}
	}
	modName := ""
	if mod != nil {
		modName = mod.Name
	}
	return &ImportFrom{p, modName, aliases, ndots}, nil
}

// ---------------------------------------------------------------------------
// Compound statements
// ---------------------------------------------------------------------------

func (b *builder) astForIfStmt(n *Node) (Stmt, error) {
	test, err := b.astForExpr(n.Child(1))
	if err != nil {
		return nil, err
	}
	body, err := b.astForSuite(n.Child(3))
	if err != nil {
		return nil, err
	}
	if n.NCh() == 4 {
		return &If{pos(n), test, body, nil}, nil
	}

	// "else" and "elif" differ in their third character
	decider := n.Child(4).Value[2]
	if decider == 's' {
		orelse, err := b.astForSuite(n.Child(6))
		if err != nil {
			return nil, err
		}
		return &If{pos(n), test, body, orelse}, nil
	}
	if decider != 'i' {
		return nil, b.errorf(n.Child(4), "unexpected token in 'if' statement: %s", n.Child(4).Value)
	}

	nElif := n.NCh() - 4
	hasElse := false
	if k := n.Child(nElif + 1); k.Type == NAME && len(k.Value) > 2 && k.Value[2] == 's' {
		hasElse = true
		nElif -= 3
	}
	nElif /= 4

	var orelse []Stmt
	if hasElse {
		nc := n.NCh()
		elifTest, err := b.astForExpr(n.Child(nc - 6))
		if err != nil {
			return nil, err
		}
		elifBody, err := b.astForSuite(n.Child(nc - 4))
		if err != nil {
			return nil, err
		}
		elseBody, err := b.astForSuite(n.Child(nc - 1))
		if err != nil {
			return nil, err
		}
		orelse = []Stmt{&If{pos(n.Child(nc - 6)), elifTest, elifBody, elseBody}}
		nElif--
	}
	for i := 0; i < nElif; i++ {
		off := 5 + (nElif-i-1)*4
		elifTest, err := b.astForExpr(n.Child(off))
		if err != nil {
			return nil, err
		}
		elifBody, err := b.astForSuite(n.Child(off + 2))
		if err != nil {
			return nil, err
		}
		orelse = []Stmt{&If{pos(n.Child(off)), elifTest, elifBody, orelse}}
	}
	return &If{pos(n), test, body, orelse}, nil
}

func (b *builder) astForWhileStmt(n *Node) (Stmt, error) {
	if n.NCh() != 4 && n.NCh() != 7 {
		return nil, b.errorf(n, "wrong number of tokens for 'while' statement")
	}
	test, err := b.astForExpr(n.Child(1))
	if err != nil {
		return nil, err
	}
	body, err := b.astForSuite(n.Child(3))
	if err != nil {
		return nil, err
	}
	var orelse []Stmt
	if n.NCh() == 7 {
		if orelse, err = b.astForSuite(n.Child(6)); err != nil {
			return nil, err
		}
	}
	return &While{pos(n), test, body, orelse}, nil
}

func (b *builder) astForForStmt(n *Node) (Stmt, error) {
	var orelse []Stmt
	var err error
	if n.NCh() == 9 {
		if orelse, err = b.astForSuite(n.Child(8)); err != nil {
			return nil, err
		}
	}
	targetNode := n.Child(1)
	targets, err := b.astForExprlist(targetNode, Store)
	if err != nil {
		return nil, err
	}
	var target Expr = targets[0]
	if targetNode.NCh() != 1 {
		target = &Tuple{pos(n), targets, Store}
	}
	iter, err := b.astForTestlist(n.Child(3))
	if err != nil {
		return nil, err
	}
	body, err := b.astForSuite(n.Child(5))
	if err != nil {
		return nil, err
	}
	return &For{pos(n), target, iter, body, orelse}, nil
}

func (b *builder) astForExceptClause(exc, body *Node) (*ExceptHandler, error) {
	suite, err := b.astForSuite(body)
	if err != nil {
		return nil, err
	}
	h := &ExceptHandler{Position: pos(exc), Body: suite}
	if exc.NCh() >= 2 {
		if h.Type, err = b.astForExpr(exc.Child(1)); err != nil {
			return nil, err
		}
	}
	if exc.NCh() == 4 {
		if h.Name, err = b.astForExpr(exc.Child(3)); err != nil {
			return nil, err
		}
		if err := b.setContext(h.Name, Store, exc.Child(3)); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (b *builder) astForTryStmt(n *Node) (Stmt, error) {
	nc := n.NCh()
	nexcept := (nc - 3) / 3
	var orelse, finally []Stmt

	body, err := b.astForSuite(n.Child(2))
	if err != nil {
		return nil, err
	}

	if k := n.Child(nc - 3); k.Type == NAME {
		if k.Value == "finally" {
			if nc >= 9 && n.Child(nc-6).Type == NAME {
				// try/except/else/finally
				if orelse, err = b.astForSuite(n.Child(nc - 4)); err != nil {
					return nil, err
				}
				nexcept--
			}
			if finally, err = b.astForSuite(n.Child(nc - 1)); err != nil {
				return nil, err
			}
			nexcept--
		} else {
			if orelse, err = b.astForSuite(n.Child(nc - 1)); err != nil {
				return nil, err
			}
			nexcept--
		}
	} else if k.Type != SymExceptClause {
		return nil, b.errorf(n, "malformed 'try' statement")
	}

	if nexcept > 0 {
		handlers := make([]*ExceptHandler, 0, nexcept)
		for i := 0; i < nexcept; i++ {
			h, err := b.astForExceptClause(n.Child(3+i*3), n.Child(5+i*3))
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		}
		except := &TryExcept{pos(n), body, handlers, orelse}
		if finally == nil {
			return except, nil
		}
		// try/except/finally nests the TryExcept inside a TryFinally
		body = []Stmt{except}
	}
	return &TryFinally{pos(n), body, finally}, nil
}

func (b *builder) astForWithStmt(n *Node) (Stmt, error) {
	suiteIndex := 3
	contextExpr, err := b.astForExpr(n.Child(1))
	if err != nil {
		return nil, err
	}
	var optionalVars Expr
	if n.Child(2).Type == SymWithVar {
		if optionalVars, err = b.astForExpr(n.Child(2).Child(1)); err != nil {
			return nil, err
		}
		if err := b.setContext(optionalVars, Store, n); err != nil {
			return nil, err
		}
		suiteIndex = 4
	}
	body, err := b.astForSuite(n.Child(suiteIndex))
	if err != nil {
		return nil, err
	}
	return &With{pos(n), contextExpr, optionalVars, body}, nil
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (b *builder) astForDottedName(n *Node) Expr {
	p := pos(n)
	var e Expr = &Name{p, n.Child(0).Value, Load}
	for i := 2; i < n.NCh(); i += 2 {
		e = &Attribute{p, e, n.Child(i).Value, Load}
	}
	return e
}

func (b *builder) astForDecorator(n *Node) (Expr, error) {
	nameExpr := b.astForDottedName(n.Child(1))
	switch n.NCh() {
	case 3:
		return nameExpr, nil
	case 5:
		return &Call{Position: pos(n), Func: nameExpr}, nil
	}
	return b.astForCall(n.Child(3), nameExpr)
}

func (b *builder) astForDecorated(n *Node) (Stmt, error) {
	var decorators []Expr
	for _, d := range n.Child(0).Children {
		e, err := b.astForDecorator(d)
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, e)
	}
	var thing Stmt
	var err error
	switch ch := n.Child(1); ch.Type {
	case SymFuncdef:
		thing, err = b.astForFuncdef(ch, decorators)
	case SymClassdef:
		thing, err = b.astForClassdef(ch, decorators)
	default:
		return nil, b.errorf(ch, "unexpected decorated node %s", SymbolName(ch.Type))
	}
	if err != nil {
		return nil, err
	}
	setPos(thing, pos(n))
	return thing, nil
}

func (b *builder) astForFuncdef(n *Node, decorators []Expr) (Stmt, error) {
	name := n.Child(1).Value
	if err := b.forbiddenCheck(n.Child(1), name); err != nil {
		return nil, err
	}
	args, err := b.astForArguments(n.Child(2))
	if err != nil {
		return nil, err
	}
	key := b.newScopeKey()
	body, err := b.astForSuite(n.Child(4))
	if err != nil {
		return nil, err
	}
	return &FunctionDef{pos(n), name, args, body, decorators, key}, nil
}

func (b *builder) astForClassdef(n *Node, decorators []Expr) (Stmt, error) {
	name := n.Child(1).Value
	if err := b.forbiddenCheck(n, name); err != nil {
		return nil, err
	}
	key := b.newScopeKey()
	var bases []Expr
	suite := n.Child(n.NCh() - 1)
	if n.NCh() == 7 {
		testlist := n.Child(3)
		if testlist.NCh() == 1 {
			e, err := b.astForExpr(testlist.Child(0))
			if err != nil {
				return nil, err
			}
			bases = []Expr{e}
		} else {
			var err error
			if bases, err = b.seqForTestlist(testlist); err != nil {
				return nil, err
			}
		}
	}
	body, err := b.astForSuite(suite)
	if err != nil {
		return nil, err
	}
	return &ClassDef{pos(n), name, bases, body, decorators, key}, nil
}

// astForArguments converts `parameters` or `varargslist`.
func (b *builder) astForArguments(n *Node) (*Arguments, error) {
	if n.Type == SymParameters {
		if n.NCh() == 2 {
			return &Arguments{}, nil
		}
		n = n.Child(1)
	}
	args := &Arguments{}
	foundDefault := false
	for i := 0; i < n.NCh(); {
		ch := n.Child(i)
		switch ch.Type {
		case SymFpdef:
			parenthesized := false
			for {
				if i+1 < n.NCh() && n.Child(i+1).Type == EQUAL {
					d, err := b.astForExpr(n.Child(i + 2))
					if err != nil {
						return nil, err
					}
					args.Defaults = append(args.Defaults, d)
					i += 2
					foundDefault = true
				} else if foundDefault {
					if parenthesized {
						return nil, b.errorf(n, "parenthesized arg with default")
					}
					return nil, b.errorf(n, "non-default argument follows default argument")
				}
				if ch.NCh() == 3 {
					ch = ch.Child(1)
					if ch.NCh() != 1 {
						return nil, b.errorf(n, "tuple parameter unpacking has been removed")
					}
					parenthesized = true
					ch = ch.Child(0)
					continue
				}
				break
			}
			if name := ch.Child(0); name.Type == NAME {
				if err := b.forbiddenCheck(n, name.Value); err != nil {
					return nil, err
				}
				args.Args = append(args.Args, &Name{pos(ch), name.Value, Param})
			}
			i += 2
			if parenthesized {
				return nil, b.errorf(n, "parenthesized argument names are invalid")
			}
		case STAR:
			name := n.Child(i + 1)
			if err := b.forbiddenCheck(name, name.Value); err != nil {
				return nil, err
			}
			args.Vararg = name.Value
			i += 3
		case DOUBLESTAR:
			name := n.Child(i + 1)
			if err := b.forbiddenCheck(name, name.Value); err != nil {
				return nil, err
			}
			args.Kwarg = name.Value
			i += 3
		default:
			return nil, b.errorf(ch, "unexpected node in varargslist: %s", SymbolName(ch.Type))
		}
	}
	return args, nil
}

// setPos overrides the position of a node after construction.
func setPos(node AST, p Position) {
	if s, ok := node.(interface{ setPos(Position) }); ok {
		s.setPos(p)
	}
}

func (p *Position) setPos(q Position) { *p = q }
