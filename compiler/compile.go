package compiler

import (
	"errors"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pyjs.compiler")

// Options select optional parts of the generated code.
type Options struct {
	// AnnotateSource interleaves source lines as comments and keeps
	// Sk.currLineNo current.
	AnnotateSource bool
	// TimeLimitChecks emits the cooperative wall-clock check at every jump.
	TimeLimitChecks bool
}

// DefaultOptions enables every option.
func DefaultOptions() Options {
	return Options{AnnotateSource: true, TimeLimitChecks: true}
}

// Result is the output of a compilation. FuncName names the JS variable
// holding the module function, which takes the module name and returns
// the module's namespace object.
type Result struct {
	FuncName string
	Code     string
	Units    []UnitInfo
}

// Compile runs the whole pipeline with DefaultOptions.
func Compile(source, fileName string) (*Result, error) {
	return CompileWithOptions(source, fileName, DefaultOptions())
}

// CompileWithOptions parses, builds, analyzes and generates in sequence and
// stops at the first failing phase.
func CompileWithOptions(source, fileName string, opts Options) (*Result, error) {
	start := time.Now()
	cst, err := Parse(fileName, source)
	if err != nil {
		return nil, err
	}
	parsed := time.Now()

	mod, err := AstFromParse(cst, fileName)
	if err != nil {
		return nil, err
	}
	built := time.Now()

	st, err := BuildSymbolTable(mod, fileName)
	if err != nil {
		return nil, err
	}
	analyzed := time.Now()

	res, err := Generate(mod, st, source, fileName, opts)
	if err != nil {
		return nil, err
	}
	log.Debugf("%s: parse %s, build %s, symtable %s, codegen %s, %d scopes",
		fileName, parsed.Sub(start), built.Sub(parsed), analyzed.Sub(built),
		time.Since(analyzed), st.Len())
	return res, nil
}

// Generate emits JavaScript for a module whose symbol table has been
// analyzed. source is only read for annotations.
func Generate(mod *Module, st *SymbolTable, source, fileName string, opts Options) (*Result, error) {
	if !st.Analyzed() {
		return nil, errors.New("compiler: symbol table has not been analyzed")
	}
	cx := newCodeGenContext(fileName, st, source, opts)
	name := cx.compileModule(mod)
	if cx.err != nil {
		return nil, cx.err
	}
	res := &Result{FuncName: name, Code: cx.assemble()}
	for _, u := range cx.units {
		res.Units = append(res.Units, u.info())
	}
	return res, nil
}
