package server

import (
	"context"
	"fmt"

	"github.com/chazu/pyjs/compiler"
	"github.com/chazu/pyjs/compiler/hash"
)

// Dump kinds accepted by Workspace.Dump.
const (
	DumpParse  = "parse"
	DumpAST    = "ast"
	DumpSymtab = "symtab"
	DumpJS     = "js"
	DumpHash   = "hash"
)

// DumpKinds lists the accepted dump kinds in display order.
var DumpKinds = []string{DumpParse, DumpAST, DumpSymtab, DumpJS, DumpHash}

// Dump renders one stage of the pipeline for source as text.
func (ws *Workspace) Dump(ctx context.Context, kind, source, fileName string) (string, error) {
	switch kind {
	case DumpParse, "":
		root, err := compiler.Parse(fileName, source)
		if err != nil {
			return "", err
		}
		return compiler.ParseTreeDump(root), nil
	case DumpAST:
		root, err := compiler.Parse(fileName, source)
		if err != nil {
			return "", err
		}
		mod, err := compiler.AstFromParse(root, fileName)
		if err != nil {
			return "", err
		}
		return compiler.Dump(mod), nil
	case DumpSymtab:
		_, st, err := ws.Analyze(source, fileName)
		if err != nil {
			return "", err
		}
		return compiler.DumpSymbolTable(st), nil
	case DumpHash:
		mod, st, err := ws.Analyze(source, fileName)
		if err != nil {
			return "", err
		}
		d, err := hash.HashModule(mod, st)
		if err != nil {
			return "", err
		}
		return d.String() + "\n", nil
	case DumpJS:
		e, _, err := ws.Compile(ctx, source, fileName, ws.Options)
		if err != nil {
			return "", err
		}
		return e.Result.Code, nil
	}
	return "", fmt.Errorf("unknown dump kind %q (want one of %v)", kind, DumpKinds)
}
