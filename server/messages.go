package server

// Procedure paths served by the compiler service.
const (
	ServiceName = "pyjs.v1.CompilerService"

	CompileProcedure      = "/" + ServiceName + "/Compile"
	ParseProcedure        = "/" + ServiceName + "/Parse"
	CheckProcedure        = "/" + ServiceName + "/Check"
	OpenSessionProcedure  = "/" + ServiceName + "/OpenSession"
	FeedSessionProcedure  = "/" + ServiceName + "/FeedSession"
	CloseSessionProcedure = "/" + ServiceName + "/CloseSession"
)

// CompileRequest asks for one module to be compiled. Nil option fields
// fall back to the server defaults.
type CompileRequest struct {
	FileName        string `cbor:"file_name"`
	Source          string `cbor:"source"`
	Annotate        *bool  `cbor:"annotate,omitempty"`
	TimeLimitChecks *bool  `cbor:"time_limit_checks,omitempty"`
}

type CompileResponse struct {
	FuncName string `cbor:"func_name"`
	Code     string `cbor:"code"`
	Cached   bool   `cbor:"cached"`
	Hash     string `cbor:"hash"`
}

// ParseRequest asks for a dump of one pipeline stage; Kind is one of
// DumpKinds and defaults to the parse tree.
type ParseRequest struct {
	FileName string `cbor:"file_name"`
	Source   string `cbor:"source"`
	Kind     string `cbor:"kind,omitempty"`
}

type ParseResponse struct {
	Dump string `cbor:"dump"`
}

type CheckRequest struct {
	FileName string `cbor:"file_name"`
	Source   string `cbor:"source"`
}

// Diagnostic is one problem found by Check. Kind is the compiler error
// kind, or JSError when the generated code failed to parse.
type Diagnostic struct {
	Kind    string `cbor:"kind"`
	Line    int    `cbor:"line"`
	Col     int    `cbor:"col"`
	Message string `cbor:"message"`
}

type CheckResponse struct {
	OK          bool         `cbor:"ok"`
	Diagnostics []Diagnostic `cbor:"diagnostics"`
}

type OpenSessionRequest struct {
	Name string `cbor:"name,omitempty"`
}

type OpenSessionResponse struct {
	SessionID string `cbor:"session_id"`
}

// FeedSessionRequest feeds one line; a blank line ends the input.
type FeedSessionRequest struct {
	SessionID string `cbor:"session_id"`
	Line      string `cbor:"line"`
}

// FeedSessionResponse reports Done once the input parsed. Dump holds the
// parse tree and Code the compiled statement.
type FeedSessionResponse struct {
	Done bool   `cbor:"done"`
	Dump string `cbor:"dump,omitempty"`
	Code string `cbor:"code,omitempty"`
}

type CloseSessionRequest struct {
	SessionID string `cbor:"session_id"`
}

type CloseSessionResponse struct{}
