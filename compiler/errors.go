package compiler

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Compiler diagnostics
// ---------------------------------------------------------------------------

// ErrorKind identifies the pipeline phase that rejected the input.
type ErrorKind int

const (
	TokenError   ErrorKind = iota // unclassifiable or malformed token
	ParseError                    // bad input, too much input, incomplete input
	BuildError                    // malformed CST shape or illegal target
	ScopeError                    // invalid name binding
	CompileError                  // invalid control flow placement
)

var errorKindNames = [...]string{
	TokenError:   "TokenError",
	ParseError:   "ParseError",
	BuildError:   "BuildError",
	ScopeError:   "ScopeError",
	CompileError: "CompileError",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a positioned compiler diagnostic. Col is -1 when unknown.
type Error struct {
	Kind       ErrorKind
	Msg        string
	FileName   string
	Line       int
	Col        int
	Incomplete bool // more input could make the source valid
}

func (e *Error) Error() string {
	if e.Col >= 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.FileName, e.Line, e.Col, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s: %s", e.FileName, e.Line, e.Kind, e.Msg)
}

func newError(kind ErrorKind, fileName string, line, col int, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Msg:      fmt.Sprintf(format, args...),
		FileName: fileName,
		Line:     line,
		Col:      col,
	}
}

// IsIncomplete reports whether err means the source ended too early, which
// an interactive front end answers by reading another line.
func IsIncomplete(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr) && cerr.Incomplete
}

// AsError extracts a compiler diagnostic from err.
func AsError(err error) (*Error, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}
