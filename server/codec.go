package server

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CodecName is the codec name on the wire: connect advertises it as
// application/cbor and gRPC as application/grpc+cbor.
const CodecName = "cbor"

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Codec marshals service messages as deterministic CBOR. It satisfies
// both connect.Codec and grpc's encoding.Codec.
type Codec struct{}

// Name returns the registered codec name.
func (Codec) Name() string { return CodecName }

// Marshal encodes a message.
func (Codec) Marshal(v any) ([]byte, error) { return cborEncMode.Marshal(v) }

// Unmarshal decodes a message into v.
func (Codec) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }
