package compiler

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// String literals
// ---------------------------------------------------------------------------

var errBadString = errors.New("malformed string literal")

// decodeString decodes one STRING token, including its prefix and quotes.
func decodeString(s string) (string, error) {
	raw := false
	for len(s) > 0 && strings.IndexByte("uUbBrR", s[0]) >= 0 {
		if s[0] == 'r' || s[0] == 'R' {
			raw = true
		}
		s = s[1:]
	}
	if len(s) < 2 {
		return "", errBadString
	}
	quote := s[0]
	if (quote != '\'' && quote != '"') || s[len(s)-1] != quote {
		return "", errBadString
	}
	s = s[1 : len(s)-1]
	if len(s) >= 4 && s[0] == quote && s[1] == quote {
		s = s[2 : len(s)-2]
	}
	if raw || strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}
	return decodeEscapes(s)
}

// decodeEscapes interprets backslash escapes. Unknown escapes are kept
// verbatim, backslash included.
func decodeEscapes(s string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errBadString
		}
		c = s[i]
		switch c {
		case 'n':
			sb.WriteByte('\n')
		case '\\':
			sb.WriteByte('\\')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '"', '\'':
			sb.WriteByte(c)
		case '\n':
			// escaped newline joins lines
		case 'x':
			r, err := hexRune(s, i+1, 2)
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
			i += 2
		case 'u', 'U':
			r, err := hexRune(s, i+1, 4)
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
			i += 4
		default:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

func hexRune(s string, at, width int) (rune, error) {
	if at+width > len(s) {
		return 0, errBadString
	}
	v, err := strconv.ParseUint(s[at:at+width], 16, 32)
	if err != nil {
		return 0, errBadString
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, errBadString
	}
	return r, nil
}

// ---------------------------------------------------------------------------
// Numeric literals
// ---------------------------------------------------------------------------

// longThreshold is the largest integer a float64 represents exactly.
var longThreshold = new(big.Int).Lsh(big.NewInt(1), 53)

// parseNumber classifies a NUMBER token. s may carry a leading '-' when a
// unary minus has been folded into the literal.
func parseNumber(s string) (Number, error) {
	end := s[len(s)-1]
	if end == 'j' || end == 'J' {
		return Number{}, errors.New("complex numbers are currently unsupported")
	}
	if strings.IndexByte(s, '.') >= 0 {
		return parseFloatLiteral(s)
	}

	tmp, neg := s, false
	if s[0] == '-' {
		tmp, neg = s[1:], true
	}
	hasSuffix := end == 'l' || end == 'L'
	hasExp := strings.ContainsAny(s, "eE")
	radix := 10

	switch {
	case len(tmp) > 1 && tmp[0] == '0' && (tmp[1] == 'x' || tmp[1] == 'X'):
		tmp, radix = tmp[2:], 16
	case hasExp:
		return parseFloatLiteral(s)
	case len(tmp) > 1 && tmp[0] == '0' && (tmp[1] == 'b' || tmp[1] == 'B'):
		tmp, radix = tmp[2:], 2
	case tmp[0] == '0' && tmp != "0":
		if hasSuffix {
			return Number{Kind: LongNum, Text: s[:len(s)-1], Radix: 8}, nil
		}
		tmp, radix = tmp[1:], 8
		if tmp[0] == 'o' || tmp[0] == 'O' {
			tmp = tmp[1:]
		}
	default:
		if hasSuffix {
			return Number{Kind: LongNum, Text: s[:len(s)-1], Radix: radix}, nil
		}
	}

	digits := strings.TrimRight(tmp, "lL")
	value, ok := new(big.Int).SetString(digits, radix)
	if !ok {
		return Number{}, errors.New("invalid numeric literal")
	}
	if hasSuffix {
		if neg {
			digits = "-" + digits
		}
		return Number{Kind: LongNum, Text: digits, Radix: radix}, nil
	}
	if value.Cmp(longThreshold) > 0 {
		return Number{Kind: LongNum, Text: s, Radix: 0}, nil
	}
	v := value.Int64()
	if neg {
		v = -v
	}
	return Number{Kind: IntNum, Int: v, Radix: radix}, nil
}

func parseFloatLiteral(s string) (Number, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange {
			return Number{}, errors.New("invalid numeric literal")
		}
	}
	return Number{Kind: FloatNum, Float: v, Text: s}, nil
}
