package compiler

import (
	"math"
	"testing"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		text  string
		kind  NumKind
		i     int64
		f     float64
		long  string
		radix int
	}{
		{text: "0", kind: IntNum, i: 0, radix: 10},
		{text: "10", kind: IntNum, i: 10, radix: 10},
		{text: "-7", kind: IntNum, i: -7, radix: 10},
		{text: "0x1F", kind: IntNum, i: 31, radix: 16},
		{text: "0XfF", kind: IntNum, i: 255, radix: 16},
		{text: "017", kind: IntNum, i: 15, radix: 8},
		{text: "0o17", kind: IntNum, i: 15, radix: 8},
		{text: "0b101", kind: IntNum, i: 5, radix: 2},
		{text: "10L", kind: LongNum, long: "10", radix: 10},
		{text: "017L", kind: LongNum, long: "017", radix: 8},
		{text: "0x10L", kind: LongNum, long: "10", radix: 16},
		{text: "-0x10L", kind: LongNum, long: "-10", radix: 16},
		{text: "9007199254740992", kind: IntNum, i: 1 << 53, radix: 10},
		{text: "9007199254740993", kind: LongNum, long: "9007199254740993", radix: 0},
		{text: "3.14", kind: FloatNum, f: 3.14},
		{text: "1e10", kind: FloatNum, f: 1e10},
		{text: "-2.5", kind: FloatNum, f: -2.5},
		{text: ".5", kind: FloatNum, f: 0.5},
		{text: "1e400", kind: FloatNum, f: math.Inf(1)},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			n, err := parseNumber(tc.text)
			if err != nil {
				t.Fatalf("parseNumber: %v", err)
			}
			if n.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", n.Kind, tc.kind)
			}
			switch tc.kind {
			case IntNum:
				if n.Int != tc.i {
					t.Errorf("value = %d, want %d", n.Int, tc.i)
				}
				if n.Radix != tc.radix {
					t.Errorf("radix = %d, want %d", n.Radix, tc.radix)
				}
			case LongNum:
				if n.Text != tc.long {
					t.Errorf("text = %q, want %q", n.Text, tc.long)
				}
				if n.Radix != tc.radix {
					t.Errorf("radix = %d, want %d", n.Radix, tc.radix)
				}
			case FloatNum:
				if n.Float != tc.f {
					t.Errorf("value = %g, want %g", n.Float, tc.f)
				}
			}
		})
	}
}

func TestParseNumberErrors(t *testing.T) {
	for _, text := range []string{"1j", "2.5J", "0x", "09"} {
		if _, err := parseNumber(text); err == nil {
			t.Errorf("parseNumber(%q) succeeded, want error", text)
		}
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		literal string
		want    string
	}{
		{`'abc'`, "abc"},
		{`"abc"`, "abc"},
		{`''`, ""},
		{`'''tri'ple'''`, "tri'ple"},
		{`"""a\nb"""`, "a\nb"},
		{`'a\tb'`, "a\tb"},
		{`'\x41é'`, "Aé"},
		{`'it\'s'`, "it's"},
		{`'\q'`, `\q`},
		{`r'\n'`, `\n`},
		{`u'x'`, "x"},
		{`'a\
b'`, "ab"},
	}
	for _, tc := range tests {
		got, err := decodeString(tc.literal)
		if err != nil {
			t.Errorf("decodeString(%s): %v", tc.literal, err)
			continue
		}
		if got != tc.want {
			t.Errorf("decodeString(%s) = %q, want %q", tc.literal, got, tc.want)
		}
	}
}

func TestDecodeStringErrors(t *testing.T) {
	for _, literal := range []string{`'`, `'abc"`, `'\x4'`, `'\uZZZZ'`} {
		if _, err := decodeString(literal); err == nil {
			t.Errorf("decodeString(%s) succeeded, want error", literal)
		}
	}
}
