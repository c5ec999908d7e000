package hash

import (
	"encoding/binary"
	"math"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the frozen hashing AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B, uint16=2B)
//   - Floats: IEEE 754 big-endian 8B
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans: single byte (0/1)
//   - Lists: uint32 big-endian count, then each element
//   - Child nodes: serialized inline (flat)
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an HNode tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node HNode) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeFloat64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeInt(v int) {
	s.writeInt64(int64(v))
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeStrings(vs []string) {
	s.writeUint32(uint32(len(vs)))
	for _, v := range vs {
		s.writeString(v)
	}
}

func (s *serializer) writeNodes(nodes []HNode) {
	s.writeUint32(uint32(len(nodes)))
	for _, n := range nodes {
		s.serializeNode(n)
	}
}

func (s *serializer) serializeNode(node HNode) {
	switch n := node.(type) {
	case *HNum:
		s.writeByte(TagNum)
		s.writeByte(n.Kind)
		s.writeInt64(n.Int)
		s.writeFloat64(n.Float)
		s.writeString(n.Text)
		s.writeInt(n.Radix)

	case *HStr:
		s.writeByte(TagStr)
		s.writeString(n.Value)

	case *HAbsent:
		s.writeByte(TagAbsent)

	case *HEllipsis:
		s.writeByte(TagEllipsis)

	case *HLocalRef:
		s.writeByte(TagLocalRef)
		s.writeUint16(n.ScopeDepth)
		s.writeUint16(n.SlotIndex)

	case *HNameRef:
		s.writeByte(TagNameRef)
		s.writeString(n.Name)

	case *HTree:
		s.writeByte(n.Tag)
		s.writeStrings(n.Attrs)
		s.writeUint32(uint32(len(n.Children)))
		for _, list := range n.Children {
			s.writeNodes(list)
		}

	case *HFunction:
		s.writeByte(n.Tag)
		s.writeString(n.Name)
		s.writeStrings(n.Params)
		s.writeString(n.Vararg)
		s.writeString(n.Kwarg)
		s.writeInt(n.NumSlots)
		s.writeBool(n.Generator)
		s.writeNodes(n.Defaults)
		s.writeNodes(n.Decorators)
		s.writeNodes(n.Outer)
		s.writeNodes(n.Body)
		s.serializeNode(n.Target)

	case *HClass:
		s.writeByte(TagClass)
		s.writeString(n.Name)
		s.writeNodes(n.Bases)
		s.writeNodes(n.Decorators)
		s.writeNodes(n.Body)
		s.serializeNode(n.Target)

	case *HModule:
		s.writeByte(TagModule)
		s.writeNodes(n.Body)
	}
}
