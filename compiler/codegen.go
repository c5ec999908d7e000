package compiler

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ---------------------------------------------------------------------------
// Codegen: compile AST + symbol table to block-switch JavaScript
// ---------------------------------------------------------------------------

// CodeGenContext owns the state shared by every scope of one compilation:
// the symbol table, the gensym counter and the emitted units in entry order.
type CodeGenContext struct {
	fileName string
	st       *SymbolTable
	opts     Options
	source   []string
	gensymN  int
	units    []*unit
	err      *Error
}

func newCodeGenContext(fileName string, st *SymbolTable, source string, opts Options) *CodeGenContext {
	cx := &CodeGenContext{fileName: fileName, st: st, opts: opts}
	if opts.AnnotateSource {
		cx.source = strings.Split(source, "\n")
	}
	return cx
}

// errorf records the first error. Generation keeps going so the caller
// sees one diagnostic, but nothing produced after it is returned.
func (cx *CodeGenContext) errorf(kind ErrorKind, at AST, format string, args ...any) {
	if cx.err != nil {
		return
	}
	line, col := 0, -1
	if at != nil {
		p := at.Pos()
		line, col = p.Lineno, p.ColOffset
	}
	cx.err = newError(kind, cx.fileName, line, col, format, args...)
}

func (cx *CodeGenContext) gensym(hint string) string {
	s := "$" + hint + strconv.Itoa(cx.gensymN)
	cx.gensymN++
	return s
}

func (cx *CodeGenContext) niceName(rough string) string {
	r := strings.NewReplacer("<", "", ">", "", " ", "_")
	return cx.gensym(r.Replace(rough))
}

// ---------------------------------------------------------------------------
// Units and blocks
// ---------------------------------------------------------------------------

type block struct {
	name string
	code strings.Builder
}

// unit is the emission target for one JS function: its basic blocks plus
// the loop and handler bookkeeping of the construct being compiled.
type unit struct {
	cx        *CodeGenContext
	parent    *unit
	ste       *Scope
	name      string
	private   string // class name for mangling
	scopeName string

	blocks []*block
	cur    int

	prefix     string
	varDecls   string
	switchCode string
	suffix     string

	breakBlocks    []int
	continueBlocks []int
	loopExcDepth   []int
	excDepth       int
	finallies      []finallyFrame

	localNames []string
	argNames   []string

	setupExcepts int
	endExcepts   int
	suspensions  int
}

// UnitInfo describes one emitted scope function.
type UnitInfo struct {
	Name         string
	ScopeName    string
	Generator    bool
	Blocks       int
	Suspensions  int
	SetupExcepts int
	EndExcepts   int
}

func (cx *CodeGenContext) enterScope(parent *unit, name string, key, lineno int) *unit {
	ste, err := cx.st.ScopeFor(key)
	if err != nil {
		panic(fmt.Sprintf("codegen: %v", err))
	}
	u := &unit{cx: cx, parent: parent, ste: ste, name: name}
	if parent != nil {
		u.private = parent.private
	}
	u.scopeName = cx.gensym("scope")
	cx.units = append(cx.units, u)
	return u
}

// exitScope names the finished code object from the parent's side.
func (u *unit) exitScope() {
	if u.parent == nil {
		return
	}
	name := fixReservedNames(fixReservedWords(u.name))
	u.parent.out(u.scopeName, ".co_name=Sk.builtin.stringToPy(", quoteJS(name), ");")
}

func (u *unit) info() UnitInfo {
	return UnitInfo{
		Name:         u.name,
		ScopeName:    u.scopeName,
		Generator:    u.ste.Generator,
		Blocks:       len(u.blocks),
		Suspensions:  u.suspensions,
		SetupExcepts: u.setupExcepts,
		EndExcepts:   u.endExcepts,
	}
}

func (u *unit) newBlock(name string) int {
	u.blocks = append(u.blocks, &block{name: name})
	return len(u.blocks) - 1
}

func (u *unit) setBlock(n int) {
	if n < 0 || n >= len(u.blocks) {
		panic(fmt.Sprintf("codegen: block %d out of range", n))
	}
	u.cur = n
}

// out appends to the current block.
func (u *unit) out(parts ...any) {
	b := &u.blocks[u.cur].code
	for _, p := range parts {
		switch p := p.(type) {
		case string:
			b.WriteString(p)
		case int:
			b.WriteString(strconv.Itoa(p))
		case []string:
			b.WriteString(strings.Join(p, ","))
		default:
			fmt.Fprint(b, p)
		}
	}
}

// gr assigns an expression to a fresh variable and returns its name.
func (u *unit) gr(hint string, parts ...any) string {
	v := u.cx.gensym(hint)
	u.out("var ", v, "=")
	u.out(parts...)
	u.out(";")
	return v
}

// temp is like gr but the value survives a generator suspension.
func (u *unit) temp(hint string, parts ...any) string {
	if !u.ste.Generator {
		return u.gr(hint, parts...)
	}
	v := "$loc." + u.cx.gensym(hint)
	u.out(v, "=")
	u.out(parts...)
	u.out(";")
	return v
}

func (u *unit) interruptTest() {
	if !u.cx.opts.TimeLimitChecks {
		return
	}
	u.out("if (typeof Sk.execStart === 'undefined') {Sk.execStart=new Date()}")
	u.out("if (Sk.execLimit !== null && new Date() - Sk.execStart > Sk.execLimit) {throw new Sk.builtin.TimeLimitError(Sk.timeoutMsg())}")
}

func (u *unit) jumpFalse(test string, blk int) {
	cond := u.gr("jfalse", "(", test, "===false||!Sk.misceval.isTrue(", test, "))")
	u.interruptTest()
	u.out("if(", cond, "){/*test failed */$blk=", blk, ";continue;}")
}

func (u *unit) jumpTrue(test string, blk int) {
	cond := u.gr("jtrue", "(", test, "===true||Sk.misceval.isTrue(", test, "))")
	u.interruptTest()
	u.out("if(", cond, "){/*test passed */$blk=", blk, ";continue;}")
}

func (u *unit) jumpUndef(test string, blk int) {
	u.interruptTest()
	u.out("if(typeof ", test, " === 'undefined'){$blk=", blk, ";continue;}")
}

func (u *unit) jump(blk int) {
	u.interruptTest()
	u.out("$blk=", blk, ";/* jump */continue;")
}

func (u *unit) setupExcept(handler int) {
	u.out("$exc.push(", handler, ");")
	u.setupExcepts++
	u.excDepth++
}

func (u *unit) endExcept() {
	u.out("$exc.pop();")
	u.endExcepts++
	u.excDepth--
}

func (u *unit) pushLoop(breakTo, continueTo int) {
	u.breakBlocks = append(u.breakBlocks, breakTo)
	u.continueBlocks = append(u.continueBlocks, continueTo)
	u.loopExcDepth = append(u.loopExcDepth, u.excDepth)
}

func (u *unit) popLoop() {
	n := len(u.breakBlocks) - 1
	u.breakBlocks = u.breakBlocks[:n]
	u.continueBlocks = u.continueBlocks[:n]
	u.loopExcDepth = u.loopExcDepth[:n]
}

// finallyFrame is a try/finally whose body is being compiled. exitTo names
// the variable holding the block to resume at once the final body has run,
// or -1 to fall through.
type finallyFrame struct {
	final  int
	exitTo string
	depth  int // handler depth outside the try
}

func (u *unit) popHandlers(n int) {
	for range n {
		u.out("$exc.pop();")
	}
}

// leave exits every handler region above depth limit, running the final
// body of each try/finally on the way out, innermost first, then emits
// finish. Each final body resumes at a trampoline block that continues the
// exit.
func (u *unit) leave(limit int, finish func()) {
	saved := u.cur
	depth := u.excDepth
	for i := len(u.finallies) - 1; i >= 0 && u.finallies[i].depth >= limit; i-- {
		f := u.finallies[i]
		u.popHandlers(depth - f.depth)
		next := u.newBlock("leave through finally")
		u.out(f.exitTo, "=", next, ";")
		u.jump(f.final)
		u.setBlock(next)
		depth = f.depth
	}
	u.popHandlers(depth - limit)
	finish()
	u.setBlock(saved)
}

// annotate writes the source line as a comment and records the position
// for runtime error reports.
func (u *unit) annotate(at AST) {
	if u.cx.source == nil {
		return
	}
	p := at.Pos()
	line := ""
	if p.Lineno >= 1 && p.Lineno <= len(u.cx.source) {
		line = commentSafe(u.cx.source[p.Lineno-1])
	}
	u.out("\n//\n// line ", p.Lineno, ":\n// ", line, "\n// ")
	u.out(strings.Repeat(" ", max(p.ColOffset, 0)), "^\n//")
	u.out("\nSk.currLineNo = ", p.Lineno, ";Sk.currColNo = ", p.ColOffset, ";")
	u.out("\nSk.currFilename = ", quoteJS(u.cx.fileName), ";\n\n")
}

func commentSafe(s string) string {
	return strings.NewReplacer("\r", "", "\u2028", " ", "\u2029", " ").Replace(s)
}

// outputLocals declares the plain JS locals of a function, excluding its
// parameters.
func (u *unit) outputLocals() string {
	have := make(map[string]bool)
	for _, a := range u.argNames {
		have[a] = true
	}
	names := append([]string(nil), u.localNames...)
	sort.Strings(names)
	var decl []string
	for _, n := range names {
		if !have[n] {
			decl = append(decl, n)
			have[n] = true
		}
	}
	if len(decl) == 0 {
		return ""
	}
	return "var " + strings.Join(decl, ",") + "; /* locals */"
}

// assemble concatenates every unit in scope-entry order.
func (cx *CodeGenContext) assemble() string {
	var sb strings.Builder
	for _, u := range cx.units {
		sb.WriteString(u.prefix)
		sb.WriteString(u.outputLocals())
		sb.WriteString(u.varDecls)
		sb.WriteString(u.switchCode)
		for i, b := range u.blocks {
			fmt.Fprintf(&sb, "case %d: /* --- %s --- */", i, b.name)
			sb.WriteString(b.code.String())
		}
		sb.WriteString(u.suffix)
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Name resolution
// ---------------------------------------------------------------------------

type nameOp int

const (
	opFast nameOp = iota
	opGlobal
	opDeref
	opName
)

func (u *unit) isCell(name string) bool {
	return u.ste.ScopeOf(MangleName(u.private, name)) == ScopeCell
}

// nameop emits a load, store or delete of name according to its
// classification and returns the JS expression for loads.
func (u *unit) nameop(name string, ctx ExprContext, data string, at AST) string {
	if ctx == Store || ctx == AugStore || ctx == Del {
		switch name {
		case "__debug__":
			u.cx.errorf(ScopeError, at, "can not assign to __debug__")
			return ""
		case "None":
			u.cx.errorf(ScopeError, at, "can not assign to None")
			return ""
		}
	}
	switch name {
	case "None":
		return "Sk.builtin.none.none$"
	case "True":
		return "Sk.ffi.bool.True"
	case "False":
		return "Sk.ffi.bool.False"
	}

	mangled := MangleName(u.private, name)
	optype := opName
	dict := ""
	isFunc := u.ste.Type == FunctionBlock
	switch u.ste.ScopeOf(mangled) {
	case ScopeFree:
		dict, optype = "$free", opDeref
	case ScopeCell:
		dict, optype = "$cell", opDeref
	case ScopeLocal:
		// plain JS locals do not survive a generator suspension
		if isFunc && !u.ste.Generator {
			optype = opFast
		}
	case ScopeGlobalImplicit:
		if isFunc {
			optype = opGlobal
		}
	case ScopeGlobalExplicit:
		optype = opGlobal
	}

	mangled = fixReservedWords(fixReservedNames(mangled))
	bare := mangled
	if u.ste.Generator || !isFunc {
		mangled = "$loc." + mangled
	} else if optype == opFast || optype == opName {
		u.localNames = append(u.localNames, mangled)
	}

	switch optype {
	case opFast:
		switch ctx {
		case Load:
			u.out("if (typeof ", mangled, " === 'undefined') { throw new Error('local variable \\'",
				mangled, "\\' referenced before assignment'); }\n")
			return mangled
		case Param:
			return mangled
		case Store:
			u.out(mangled, "=", data, ";")
		case Del:
			u.out("delete ", mangled, ";")
		}
	case opName:
		switch ctx {
		case Load:
			v := u.cx.gensym("loadname")
			u.out("var ", v, "=(typeof ", mangled, " !== 'undefined') ? ", mangled,
				":Sk.misceval.loadname('", bare, "',$gbl);")
			return v
		case Param:
			return mangled
		case Store:
			u.out(mangled, "=", data, ";")
		case Del:
			u.out("delete ", mangled, ";")
		}
	case opGlobal:
		switch ctx {
		case Load:
			return u.gr("loadgbl", "Sk.misceval.loadname('", bare, "',$gbl)")
		case Store:
			u.out("$gbl.", bare, "=", data, ";")
		case Del:
			u.out("delete $gbl.", bare, ";")
		}
	case opDeref:
		switch ctx {
		case Load:
			return dict + "." + bare
		case Param:
			return bare
		case Store:
			u.out(dict, ".", bare, "=", data, ";")
		case Del:
			u.out("delete ", dict, ".", bare, ";")
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// JS spelling
// ---------------------------------------------------------------------------

var reservedWords = map[string]bool{
	"abstract": true, "as": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "continue": true,
	"const": true, "debugger": true, "default": true, "delete": true, "do": true,
	"double": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "final": true, "finally": true, "float": true, "for": true,
	"function": true, "goto": true, "if": true, "implements": true, "import": true,
	"in": true, "instanceof": true, "int": true, "interface": true, "is": true,
	"long": true, "namespace": true, "native": true, "new": true, "null": true,
	"package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "switch": true,
	"synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "true": true, "try": true, "typeof": true, "use": true,
	"var": true, "void": true, "volatile": true, "while": true, "with": true,
}

var reservedNames = map[string]bool{
	"__defineGetter__": true, "__defineSetter__": true, "apply": true, "call": true,
	"eval": true, "hasOwnProperty": true, "isPrototypeOf": true,
	"__lookupGetter__": true, "__lookupSetter__": true, "__noSuchMethod__": true,
	"propertyIsEnumerable": true, "toSource": true, "toLocaleString": true,
	"toString": true, "unwatch": true, "valueOf": true, "watch": true, "length": true,
}

func fixReservedWords(name string) string {
	if reservedWords[name] {
		return name + "_$rw$"
	}
	return name
}

func fixReservedNames(name string) string {
	if reservedNames[name] {
		return name + "_$rn$"
	}
	return name
}

// quoteJS renders s as a JS string literal, preferring single quotes.
func quoteJS(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var sb strings.Builder
	sb.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r < ' ' || (r >= 0x7f && r <= 0xff):
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, r1, r2)
		case r > 0xff:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteRune(quote)
	return sb.String()
}

// jsFloat spells a float so JS reads back the same value.
func jsFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
