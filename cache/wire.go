package cache

import (
	"fmt"

	"github.com/chazu/pyjs/compiler"
	"github.com/fxamacker/cbor/v2"
)

// formatVersion is stored with every record. Records written by another
// version are treated as misses.
const formatVersion = 1

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type unitRecord struct {
	Name         string `cbor:"1,keyasint"`
	ScopeName    string `cbor:"2,keyasint"`
	Generator    bool   `cbor:"3,keyasint"`
	Blocks       int    `cbor:"4,keyasint"`
	Suspensions  int    `cbor:"5,keyasint"`
	SetupExcepts int    `cbor:"6,keyasint"`
	EndExcepts   int    `cbor:"7,keyasint"`
}

type record struct {
	Version  int          `cbor:"1,keyasint"`
	FuncName string       `cbor:"2,keyasint"`
	Code     string       `cbor:"3,keyasint"`
	Units    []unitRecord `cbor:"4,keyasint"`
}

// MarshalResult serializes a compile result to canonical CBOR bytes.
func MarshalResult(res *compiler.Result) ([]byte, error) {
	rec := record{Version: formatVersion, FuncName: res.FuncName, Code: res.Code}
	for _, u := range res.Units {
		rec.Units = append(rec.Units, unitRecord(u))
	}
	return cborEncMode.Marshal(&rec)
}

// UnmarshalResult deserializes a compile result from CBOR bytes.
func UnmarshalResult(data []byte) (*compiler.Result, error) {
	var rec record
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("cache: unmarshal result: %w", err)
	}
	if rec.Version != formatVersion {
		return nil, fmt.Errorf("cache: record format %d, want %d", rec.Version, formatVersion)
	}
	res := &compiler.Result{FuncName: rec.FuncName, Code: rec.Code}
	for _, u := range rec.Units {
		res.Units = append(res.Units, compiler.UnitInfo(u))
	}
	return res, nil
}
