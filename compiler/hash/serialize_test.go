package hash

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSerialize_Deterministic(t *testing.T) {
	node := &HFunction{
		Tag:      TagFunction,
		Name:     "f",
		Params:   []string{"x"},
		NumSlots: 1,
		Body: []HNode{
			&HTree{Tag: TagReturn, Children: [][]HNode{{
				&HTree{Tag: TagBinOp, Attrs: []string{"Add"}, Children: [][]HNode{
					{&HLocalRef{}}, {&HNum{Int: 42, Radix: 10}},
				}},
			}}},
		},
		Target: &HNameRef{Name: "f"},
	}

	data1 := Serialize(node)
	data2 := Serialize(node)

	if string(data1) != string(data2) {
		t.Error("serialization is not deterministic")
	}
}

func TestSerialize_VersionPrefix(t *testing.T) {
	data := Serialize(&HAbsent{})
	if len(data) != 2 {
		t.Fatalf("length: got %d, want 2", len(data))
	}
	if data[0] != HashVersion {
		t.Errorf("version prefix: got 0x%02X, want 0x%02X", data[0], HashVersion)
	}
	if data[1] != TagAbsent {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagAbsent)
	}
}

func TestSerialize_Num(t *testing.T) {
	data := Serialize(&HNum{Int: 12345, Float: 2.5, Radix: 10})

	// version(1) + tag(1) + kind(1) + int64(8) + float64(8) + len(4) + radix(8) = 31
	if len(data) != 31 {
		t.Fatalf("length: got %d, want 31", len(data))
	}
	if data[1] != TagNum {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagNum)
	}
	if v := int64(binary.BigEndian.Uint64(data[3:11])); v != 12345 {
		t.Errorf("int: got %d, want 12345", v)
	}
	if v := math.Float64frombits(binary.BigEndian.Uint64(data[11:19])); v != 2.5 {
		t.Errorf("float: got %f, want 2.5", v)
	}
	if v := binary.BigEndian.Uint64(data[23:31]); v != 10 {
		t.Errorf("radix: got %d, want 10", v)
	}
}

func TestSerialize_Str(t *testing.T) {
	data := Serialize(&HStr{Value: "hello"})

	// version(1) + tag(1) + len(4) + "hello"(5) = 11
	if len(data) != 11 {
		t.Fatalf("length: got %d, want 11", len(data))
	}
	if n := binary.BigEndian.Uint32(data[2:6]); n != 5 {
		t.Errorf("string length: got %d, want 5", n)
	}
	if string(data[6:]) != "hello" {
		t.Errorf("string: got %q, want hello", data[6:])
	}
}

func TestSerialize_LocalRef(t *testing.T) {
	data := Serialize(&HLocalRef{ScopeDepth: 2, SlotIndex: 7})

	// version(1) + tag(1) + depth(2) + slot(2) = 6
	if len(data) != 6 {
		t.Fatalf("length: got %d, want 6", len(data))
	}
	if d := binary.BigEndian.Uint16(data[2:4]); d != 2 {
		t.Errorf("depth: got %d, want 2", d)
	}
	if s := binary.BigEndian.Uint16(data[4:6]); s != 7 {
		t.Errorf("slot: got %d, want 7", s)
	}
}

func TestSerialize_EmptyTree(t *testing.T) {
	data := Serialize(&HTree{Tag: TagPass})

	// version(1) + tag(1) + attrs(4) + children(4) = 10
	if len(data) != 10 {
		t.Fatalf("length: got %d, want 10", len(data))
	}
	if data[1] != TagPass {
		t.Errorf("tag: got 0x%02X, want TagPass", data[1])
	}
}

func TestSerialize_ChildBoundaries(t *testing.T) {
	// The same nodes split differently across child lists must not collide.
	a := &HTree{Tag: TagIf, Children: [][]HNode{{&HAbsent{}, &HAbsent{}}, {}}}
	b := &HTree{Tag: TagIf, Children: [][]HNode{{&HAbsent{}}, {&HAbsent{}}}}
	if string(Serialize(a)) == string(Serialize(b)) {
		t.Error("child list boundaries are not encoded")
	}
}

func TestSerialize_DifferentRefs(t *testing.T) {
	pairs := [][2]HNode{
		{&HLocalRef{SlotIndex: 0}, &HLocalRef{SlotIndex: 1}},
		{&HLocalRef{ScopeDepth: 0}, &HLocalRef{ScopeDepth: 1}},
		{&HNameRef{Name: "a"}, &HNameRef{Name: "b"}},
		{&HLocalRef{}, &HNameRef{}},
		{&HNum{Kind: 0, Text: "1"}, &HNum{Kind: 1, Text: "1"}},
	}
	for i, p := range pairs {
		if string(Serialize(p[0])) == string(Serialize(p[1])) {
			t.Errorf("pair %d serializes identically", i)
		}
	}
}
