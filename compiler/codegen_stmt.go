package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (u *unit) stmts(body []Stmt) {
	for _, s := range body {
		u.stmt(s)
	}
}

func (u *unit) stmt(s Stmt) {
	u.annotate(s)
	switch s := s.(type) {
	case *FunctionDef:
		u.cfunction(s)
	case *ClassDef:
		u.cclass(s)
	case *Return:
		if u.ste.Type != FunctionBlock {
			u.cx.errorf(CompileError, s, "'return' outside function")
			return
		}
		var value string
		switch {
		case s.Value != nil:
			value = u.expr(s.Value)
			if len(u.finallies) > 0 {
				value = u.temp("ret", value)
			}
		case u.ste.Generator:
			value = "null"
		default:
			value = "Sk.builtin.none.none$"
		}
		u.leave(0, func() { u.out("return ", value, ";") })
	case *Delete:
		u.exprs(s.Targets)
	case *Assign:
		val := u.expr(s.Value)
		for _, t := range s.Targets {
			u.vexpr(t, val)
		}
	case *AugAssign:
		u.caugassign(s)
	case *Print:
		u.cprint(s)
	case *For:
		u.cfor(s)
	case *While:
		u.cwhile(s)
	case *If:
		u.cif(s)
	case *With:
		u.cwith(s)
	case *Raise:
		u.craise(s)
	case *TryExcept:
		u.ctryexcept(s)
	case *TryFinally:
		u.ctryfinally(s)
	case *Assert:
		u.cassert(s)
	case *Import:
		u.cimport(s)
	case *ImportFrom:
		u.cfromimport(s)
	case *Exec:
		u.cx.errorf(CompileError, s, "exec is not supported")
	case *Global, *NonLocal, *Pass:
	case *ExprStmt:
		u.expr(s.Value)
	case *Break:
		if len(u.breakBlocks) == 0 {
			u.cx.errorf(CompileError, s, "'break' outside loop")
			return
		}
		top := len(u.breakBlocks) - 1
		u.leave(u.loopExcDepth[top], func() { u.jump(u.breakBlocks[top]) })
	case *Continue:
		if len(u.continueBlocks) == 0 {
			u.cx.errorf(CompileError, s, "'continue' outside loop")
			return
		}
		top := len(u.continueBlocks) - 1
		u.leave(u.loopExcDepth[top], func() { u.jump(u.continueBlocks[top]) })
	default:
		u.cx.errorf(CompileError, s, "unhandled statement %T", s)
	}
}

func (u *unit) cif(s *If) {
	end := u.newBlock("end of if")
	next := u.newBlock("next branch of if")

	test := u.expr(s.Test)
	u.jumpFalse(test, next)
	u.stmts(s.Body)
	u.jump(end)

	u.setBlock(next)
	u.stmts(s.Orelse)
	u.jump(end)

	u.setBlock(end)
}

func (u *unit) cwhile(s *While) {
	top := u.newBlock("while test")
	u.jump(top)
	u.setBlock(top)

	next := u.newBlock("after while")
	orelse := -1
	if len(s.Orelse) > 0 {
		orelse = u.newBlock("while orelse")
	}
	body := u.newBlock("while body")

	exit := next
	if orelse >= 0 {
		exit = orelse
	}
	u.jumpFalse(u.expr(s.Test), exit)
	u.jump(body)

	u.pushLoop(next, top)
	u.setBlock(body)
	u.stmts(s.Body)
	u.jump(top)
	u.popLoop()

	if orelse >= 0 {
		u.setBlock(orelse)
		u.stmts(s.Orelse)
		u.jump(next)
	}
	u.setBlock(next)
}

func (u *unit) cfor(s *For) {
	start := u.newBlock("for start")
	cleanup := u.newBlock("for cleanup")
	end := u.newBlock("for end")

	toiter := u.expr(s.Iter)
	iter := u.temp("iter", "Sk.abstr.iter(", toiter, ")")
	u.jump(start)

	u.pushLoop(end, start)
	u.setBlock(start)
	nexti := u.gr("next", "Sk.abstr.iternext(", iter, ")")
	u.jumpUndef(nexti, cleanup)
	u.vexpr(s.Target, nexti)
	u.stmts(s.Body)
	u.jump(start)
	u.popLoop()

	u.setBlock(cleanup)
	u.stmts(s.Orelse)
	u.jump(end)

	u.setBlock(end)
}

func (u *unit) craise(s *Raise) {
	if n, ok := s.Type.(*Name); ok && n.ID == "StopIteration" {
		// ends the iteration under the runtime's iterator protocol
		u.out("return undefined;")
		return
	}
	switch {
	case s.Inst != nil:
		inst := u.expr(s.Inst)
		u.out("throw ", u.expr(s.Type), "(", inst, ");")
	case s.Type != nil:
		if _, ok := s.Type.(*Call); ok {
			u.out("throw ", u.expr(s.Type), ";")
		} else {
			u.out("throw ", u.expr(s.Type), "('');")
		}
	default:
		u.out("throw $err;")
	}
}

func (u *unit) ctryexcept(s *TryExcept) {
	n := len(s.Handlers)
	handlers := make([]int, n)
	for i := range handlers {
		handlers[i] = u.newBlock(fmt.Sprintf("except_%d_", i))
	}
	unhandled := u.newBlock("unhandled")
	orelse := u.newBlock("orelse")
	end := u.newBlock("end")

	u.setupExcept(handlers[0])
	u.stmts(s.Body)
	u.endExcept()
	u.jump(orelse)

	for i, h := range s.Handlers {
		u.setBlock(handlers[i])
		if h.Type == nil && i < n-1 {
			u.cx.errorf(CompileError, h, "default 'except:' must be last")
			return
		}
		if h.Type != nil {
			next := unhandled
			if i < n-1 {
				next = handlers[i+1]
			}
			ht := u.expr(h.Type)
			check := u.gr("instance", "$err instanceof ", ht)
			u.jumpFalse(check, next)
		}
		if h.Name != nil {
			u.vexpr(h.Name, "$err")
		}
		u.stmts(h.Body)
		u.jump(end)
	}

	u.setBlock(unhandled)
	u.out("throw $err;")

	u.setBlock(orelse)
	u.stmts(s.Orelse)
	u.jump(end)
	u.setBlock(end)
}

// ctryfinally routes every exit of the body through the final block. An
// error caught on the way is held in pending and rethrown afterwards; a
// break, continue or return records where to resume in exitTo.
func (u *unit) ctryfinally(s *TryFinally) {
	handler := u.newBlock("finally handler")
	final := u.newBlock("finally")
	end := u.newBlock("end of finally")

	pending := u.temp("pending", "undefined")
	exitTo := u.temp("exitto", "-1")
	u.finallies = append(u.finallies, finallyFrame{final: final, exitTo: exitTo, depth: u.excDepth})
	u.setupExcept(handler)
	u.stmts(s.Body)
	u.endExcept()
	u.finallies = u.finallies[:len(u.finallies)-1]
	u.jump(final)

	u.setBlock(handler)
	u.out(pending, "=$err;")
	u.jump(final)

	u.setBlock(final)
	u.stmts(s.FinalBody)
	u.out("if(typeof ", pending, " !== 'undefined'){throw ", pending, ";}")
	u.out("if(", exitTo, "!==-1){$blk=", exitTo, ";continue;}")
	u.jump(end)

	u.setBlock(end)
}

// cwith brackets the body with the manager's __enter__ and __exit__. A true
// result from __exit__ swallows the error.
func (u *unit) cwith(s *With) {
	mgr := u.expr(s.ContextExpr)
	exit := u.temp("exit", "Sk.abstr.gattr(", mgr, ",'__exit__')")
	enter := u.gr("enter", "Sk.abstr.gattr(", mgr, ",'__enter__')")
	value := u.gr("value", "Sk.misceval.callsim(", enter, ")")

	handler := u.newBlock("with handler")
	end := u.newBlock("end of with")

	u.setupExcept(handler)
	if s.OptionalVars != nil {
		u.vexpr(s.OptionalVars, value)
	}
	u.stmts(s.Body)
	u.endExcept()
	u.out("Sk.misceval.callsim(", exit, ",Sk.builtin.none.none$,Sk.builtin.none.none$,Sk.builtin.none.none$);")
	u.jump(end)

	u.setBlock(handler)
	suppress := u.gr("suppress", "Sk.misceval.callsim(", exit, ",$err.constructor,$err,Sk.builtin.none.none$)")
	u.jumpTrue(suppress, end)
	u.out("throw $err;")

	u.setBlock(end)
}

func (u *unit) cassert(s *Assert) {
	test := u.expr(s.Test)
	end := u.newBlock("end")
	u.jumpTrue(test, end)
	msg := ""
	if s.Msg != nil {
		msg = u.expr(s.Msg)
	}
	u.out("throw new Sk.builtin.AssertionError(", msg, ");")
	u.setBlock(end)
}

// cimportAs binds the leaf of a dotted import. __import__ returns the top
// package, so the remaining components are walked as attributes.
func (u *unit) cimportAs(name, asname, mod string, at AST) {
	cur := mod
	parts := strings.Split(name, ".")
	for _, attr := range parts[1:] {
		cur = u.gr("lattr", "Sk.abstr.gattr(", cur, ",", quoteJS(attr), ")")
	}
	u.nameop(asname, Store, cur, at)
}

func importArgs(name string, fromlist []string, level int) string {
	quoted := make([]string, len(fromlist))
	for i, f := range fromlist {
		quoted[i] = quoteJS(f)
	}
	s := quoteJS(name) + ",$gbl,$loc,[" + strings.Join(quoted, ", ") + "]"
	if level > 0 {
		s += "," + strconv.Itoa(level)
	}
	return s
}

func (u *unit) cimport(s *Import) {
	for _, a := range s.Names {
		mod := u.gr("module", "Sk.builtin.__import__(", importArgs(a.Name, nil, 0), ")")
		if a.Asname != "" {
			u.cimportAs(a.Name, a.Asname, mod, s)
			continue
		}
		top := a.Name
		if dot := strings.IndexByte(top, '.'); dot >= 0 {
			top = top[:dot]
		}
		u.nameop(top, Store, mod, s)
	}
}

func (u *unit) cfromimport(s *ImportFrom) {
	names := make([]string, len(s.Names))
	for i, a := range s.Names {
		names[i] = a.Name
	}
	mod := u.gr("module", "Sk.builtin.__import__(", importArgs(s.Module, names, s.Level), ")")
	for _, a := range s.Names {
		if a.Name == "*" {
			u.out("Sk.importStar(", mod, ",$loc, $gbl);")
			return
		}
		got := u.gr("item", "Sk.abstr.gattr(", mod, ",", quoteJS(a.Name), ")")
		store := a.Name
		if a.Asname != "" {
			store = a.Asname
		}
		u.nameop(store, Store, got, s)
	}
}

// cprint writes each value through str(). The destination of `print >>f`
// is evaluated for its side effects only; output always goes to the
// runtime's print hook.
func (u *unit) cprint(s *Print) {
	if s.Dest != nil {
		u.expr(s.Dest)
	}
	for i, v := range s.Values {
		if i > 0 {
			u.out("Sk.misceval.print_(' ');")
		}
		u.out("Sk.misceval.print_(Sk.ffi.remapToJs(new Sk.builtins.str(", u.expr(v), ")));")
	}
	if s.NL {
		u.out("Sk.misceval.print_('\\n');")
	}
}

// ---------------------------------------------------------------------------
// Code objects
// ---------------------------------------------------------------------------

func argName(e Expr) string {
	if n, ok := e.(*Name); ok {
		return n.ID
	}
	return ""
}

// paramRef is how the scope's own code reads a parameter during setup.
func (u *unit) paramRef(name string) string {
	js := fixReservedWords(fixReservedNames(MangleName(u.private, name)))
	if u.ste.Generator {
		return "$loc." + js
	}
	return js
}

// varTarget is the assignment target for a parameter filled in by the
// scope prologue (*args and **kwargs).
func (u *unit) varTarget(name string) string {
	js := fixReservedWords(fixReservedNames(MangleName(u.private, name)))
	if u.isCell(name) {
		return "$cell." + js
	}
	u.localNames = append(u.localNames, js)
	return js
}

// buildCodeObj compiles a function-like scope (def, lambda, generator
// expression) and returns the variable holding the function object.
// Decorators and defaults are evaluated in the enclosing scope first.
func (u *unit) buildCodeObj(n AST, coname string, key int, decorators []Expr, args *Arguments, body func(c *unit)) string {
	decos := u.exprs(decorators)
	var defaults, params []string
	var vararg, kwarg string
	if args != nil {
		defaults = u.exprs(args.Defaults)
		vararg, kwarg = args.Vararg, args.Kwarg
		for _, a := range args.Args {
			params = append(params, argName(a))
		}
	}
	containingHasFree := u.ste.HasFree

	c := u.cx.enterScope(u, coname, key, n.Pos().Lineno)
	isGen := c.ste.Generator
	hasFree := c.ste.HasFree
	hasCell := c.ste.ChildHasFree
	entry := c.newBlock("codeobj entry")

	var funcArgs []string
	if isGen {
		if kwarg != "" {
			u.cx.errorf(CompileError, n, "%s(): keyword arguments in generators not supported", coname)
		}
		if vararg != "" {
			u.cx.errorf(CompileError, n, "%s(): variable number of arguments in generators not supported", coname)
		}
		funcArgs = append(funcArgs, "$gen")
	} else {
		if kwarg != "" {
			funcArgs = append(funcArgs, "$kwa")
		}
		for i, p := range params {
			js := c.nameop(p, Param, "", args.Args[i])
			funcArgs = append(funcArgs, js)
			c.argNames = append(c.argNames, js)
		}
	}
	if hasFree {
		funcArgs = append(funcArgs, "$free")
	}

	var pre strings.Builder
	pre.WriteString("var " + c.scopeName + "=(function " + u.cx.niceName(coname) + "$(")
	pre.WriteString(strings.Join(funcArgs, ",") + "){")
	if isGen {
		pre.WriteString("\n// generator\n")
	}
	if containingHasFree {
		pre.WriteString("\n// containing has free\n")
	}
	if hasFree {
		pre.WriteString("\n// has free\n")
	}
	if hasCell {
		pre.WriteString("\n// has cell\n")
	}
	c.prefix = pre.String()

	// locals, the handler stack and cells of a generator persist on the
	// generator object across resumptions
	blk, locals, exc := strconv.Itoa(entry), "{}", "[]"
	cells := ""
	if isGen {
		blk, locals, exc = "$gen.gi$resumeat", "$gen.gi$locals", "$gen.gi$exc||($gen.gi$exc=[])"
		if hasCell {
			cells = ",$cell=$gen.gi$cell||($gen.gi$cell={})"
		}
	} else if hasCell {
		cells = ",$cell={}"
	}
	var decl strings.Builder
	decl.WriteString("var $blk=" + blk + ",$exc=" + exc + ",$loc=" + locals + cells + ",$gbl=this,$err;")

	if !isGen {
		maxargs := strconv.Itoa(len(params))
		if vararg != "" {
			maxargs = "Infinity"
		}
		fmt.Fprintf(&decl, "Sk.builtin.pyCheckArgs(%s, arguments, %d, %s, %t, %t);",
			quoteJS(coname), len(params)-len(defaults), maxargs, kwarg != "", hasFree)
	}

	// defaults are right-aligned with the parameter list
	offset := len(params) - len(defaults)
	for i := range defaults {
		ref := c.paramRef(params[i+offset])
		fmt.Fprintf(&decl, "if(typeof %s === 'undefined')%s=%s.$defaults[%d];", ref, ref, c.scopeName, i)
	}

	var cellCopy strings.Builder
	for _, p := range params {
		if c.isCell(p) {
			js := fixReservedWords(fixReservedNames(MangleName(c.private, p)))
			cellCopy.WriteString("$cell." + js + "=" + c.paramRef(p) + ";")
		}
	}
	if cellCopy.Len() > 0 {
		if isGen {
			decl.WriteString("if($blk===" + strconv.Itoa(entry) + "){" + cellCopy.String() + "}")
		} else {
			decl.WriteString(cellCopy.String())
		}
	}

	if vararg != "" && !isGen {
		fmt.Fprintf(&decl, "%s=new Sk.builtins['tuple'](Array.prototype.slice.call(arguments,%d)); /*vararg*/",
			c.varTarget(vararg), len(funcArgs))
	}
	if kwarg != "" && !isGen {
		decl.WriteString(c.varTarget(kwarg) + "=new Sk.builtins['dict']($kwa);")
	}
	c.varDecls = decl.String()

	c.switchCode = "while(true){try{switch($blk){"
	c.suffix = "}}catch(err){if ($exc.length>0) {$err=err;$blk=$exc.pop();continue;} else {throw err;}}}});"

	body(c)
	c.exitScope()

	if len(defaults) > 0 {
		u.out(c.scopeName, ".$defaults=[", defaults, "];")
	}
	if len(params) > 0 {
		quoted := make([]string, len(params))
		for i, p := range params {
			quoted[i] = quoteJS(p)
		}
		u.out(c.scopeName, ".co_varnames=[", strings.Join(quoted, ", "), "];")
	}
	if kwarg != "" {
		u.out(c.scopeName, ".co_kwargs=1;")
	}

	frees := ""
	if hasFree {
		frees = ",$cell"
		if containingHasFree {
			frees += ",$free"
		}
	}

	var obj string
	switch {
	case isGen && len(params) > 0:
		obj = u.gr("gener", "new Sk.builtins['function']((function(){var $origargs=Array.prototype.slice.call(arguments);Sk.builtin.pyCheckArgs(",
			quoteJS(coname), ",arguments,", len(params)-len(defaults), ",", len(params),
			");return new Sk.builtins['generator'](", c.scopeName, ",$gbl,$origargs", frees, ");}))")
	case isGen:
		obj = u.gr("gener", "new Sk.builtins['function']((function(){Sk.builtin.pyCheckArgs(", quoteJS(coname),
			",arguments,0,0);return new Sk.builtins['generator'](", c.scopeName, ",$gbl,[]", frees, ");}))")
	default:
		obj = u.gr("funcobj", "new Sk.builtins['function'](", c.scopeName, ",$gbl", frees, ")")
	}
	return u.decorate(decos, obj)
}

// decorate applies decorators innermost first.
func (u *unit) decorate(decos []string, obj string) string {
	for i := len(decos) - 1; i >= 0; i-- {
		obj = u.gr("decorated", "Sk.misceval.callsim(", decos[i], ",", obj, ")")
	}
	return obj
}

func (u *unit) cfunction(s *FunctionDef) {
	obj := u.buildCodeObj(s, s.Name, s.ScopeKey, s.DecoratorList, s.Args, func(c *unit) {
		c.stmts(s.Body)
		if c.ste.Generator {
			c.out("return null;")
		} else {
			c.out("return Sk.builtin.none.none$;")
		}
	})
	u.nameop(s.Name, Store, obj, s)
}

// cclass runs the class body inside a function that fills the namespace
// object handed in by the runtime's class builder.
func (u *unit) cclass(s *ClassDef) {
	decos := u.exprs(s.DecoratorList)
	bases := u.exprs(s.Bases)

	c := u.cx.enterScope(u, s.Name, s.ScopeKey, s.Lineno)
	entry := c.newBlock("class entry")
	js := fixReservedWords(s.Name)
	c.prefix = "var " + c.scopeName + "=(function $" + s.Name + "$class_outer($globals,$locals,$rest){var $gbl=$globals,$loc=$locals;"
	c.switchCode = "return(function " + js + "(){var $blk=" + strconv.Itoa(entry) + ",$exc=[],$err;while(true){try{switch($blk){"
	c.suffix = "}break;}catch(err){if ($exc.length>0) {$err=err;$blk=$exc.pop();continue;} else {throw err;}}}}).apply(null,$rest);});"
	c.private = s.Name

	c.stmts(s.Body)
	c.out("break;")
	c.exitScope()

	built := u.gr("built", "Sk.misceval.buildClass($gbl,", c.scopeName, ",", quoteJS(s.Name), ",[", bases, "])")
	u.nameop(s.Name, Store, u.decorate(decos, built), s)
}

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

func (cx *CodeGenContext) compileModule(mod *Module) string {
	u := cx.enterScope(nil, "<module>", mod.ScopeKey, 0)
	entry := u.newBlock("module entry")
	u.prefix = "var " + u.scopeName + "=(function($modname){"
	u.varDecls = "var $blk=" + strconv.Itoa(entry) + ",$exc=[],$gbl={},$loc=$gbl,$err;$gbl.__name__=$modname;Sk.globals=$gbl;"
	u.switchCode = "try {while(true){try{switch($blk){"
	u.suffix = "}}catch(err){if ($exc.length>0) {$err=err;$blk=$exc.pop();continue;} else {throw err;}}}}" +
		"catch(err){if (err instanceof Sk.builtin.SystemExit && !Sk.throwSystemExit) { Sk.misceval.print_(err.toString() + '\\n'); return $loc; } else { throw err; } } });"

	u.stmts(mod.Body)
	u.out("return $loc;")
	return u.scopeName
}
