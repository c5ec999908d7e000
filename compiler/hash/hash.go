package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/pyjs/compiler"
)

// Digest is a SHA-256 content hash.
type Digest [32]byte

// String returns the digest in lowercase hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// HashModule computes the SHA-256 content hash of a module.
//
// The hash is computed over a deterministic serialization of the module's
// normalized AST with de Bruijn indexing of function locals. Two modules
// that differ only in layout, comments and local variable names produce
// the same hash.
func HashModule(mod *compiler.Module, st *compiler.SymbolTable) (Digest, error) {
	hm, err := NormalizeModule(mod, st)
	if err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(Serialize(hm)), nil
}

// HashSource parses, builds and analyzes source, then hashes the module.
func HashSource(source, fileName string) (Digest, error) {
	cst, err := compiler.Parse(fileName, source)
	if err != nil {
		return Digest{}, err
	}
	mod, err := compiler.AstFromParse(cst, fileName)
	if err != nil {
		return Digest{}, err
	}
	st, err := compiler.BuildSymbolTable(mod, fileName)
	if err != nil {
		return Digest{}, err
	}
	return HashModule(mod, st)
}
