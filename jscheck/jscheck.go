// Package jscheck validates generated JavaScript by parsing it.
package jscheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robertkrimen/otto/parser"
)

// Diagnostic is one JavaScript syntax error.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

// Error reports every syntax error found in one piece of code.
type Error struct {
	FileName    string
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		parts[i] = e.FileName + ":" + d.String()
	}
	return "invalid JavaScript: " + strings.Join(parts, "; ")
}

// Check parses code as an ES5 program and returns its syntax errors.
// Regular expression literals are not validated.
func Check(fileName, code string) []Diagnostic {
	_, err := parser.ParseFile(nil, fileName, code, parser.IgnoreRegExpErrors)
	if err == nil {
		return nil
	}
	var list *parser.ErrorList
	if errors.As(err, &list) {
		out := make([]Diagnostic, len(*list))
		for i, e := range *list {
			out[i] = Diagnostic{Line: e.Position.Line, Column: e.Position.Column, Message: e.Message}
		}
		return out
	}
	var one *parser.Error
	if errors.As(err, &one) {
		return []Diagnostic{{Line: one.Position.Line, Column: one.Position.Column, Message: one.Message}}
	}
	return []Diagnostic{{Message: err.Error()}}
}

// Validate returns an *Error when code does not parse.
func Validate(fileName, code string) error {
	if diags := Check(fileName, code); len(diags) > 0 {
		return &Error{FileName: fileName, Diagnostics: diags}
	}
	return nil
}
