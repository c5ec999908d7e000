package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Tokenizer: line-at-a-time Python tokenizer
// ---------------------------------------------------------------------------

const tabSize = 8

// Tokenizer splits Python source into tokens one physical line at a time.
// Every token is handed to the emit callback; emit returns true once the
// consumer has accepted a complete input, after which Feed ignores further
// lines.
type Tokenizer struct {
	fileName string
	emit     func(Token) (bool, error)

	lnum      int
	parenlev  int
	continued bool
	indents   []int
	done      bool

	// state of a string literal spanning physical lines
	contQuote string
	contStr   string
	contLine  string
	strStart  Pos
	needCont  bool
}

// NewTokenizer creates a tokenizer that delivers tokens to emit.
func NewTokenizer(fileName string, emit func(Token) (bool, error)) *Tokenizer {
	return &Tokenizer{
		fileName: fileName,
		emit:     emit,
		indents:  []int{0},
	}
}

// Done reports whether the consumer has accepted a complete input.
func (t *Tokenizer) Done() bool { return t.done }

// InContinuation reports whether the last line left a bracket or a
// triple-quoted string open, so a blank line cannot end the statement.
func (t *Tokenizer) InContinuation() bool {
	return t.parenlev > 0 || t.contQuote != ""
}

// Feed tokenizes one physical line including its trailing newline. An empty
// line signals end of input.
func (t *Tokenizer) Feed(line string) (bool, error) {
	if t.done {
		return true, nil
	}
	t.lnum++
	pos, max := 0, len(line)

	switch {
	case t.contQuote != "":
		if line == "" {
			err := newError(TokenError, t.fileName, t.strStart.Line, t.strStart.Col, "EOF in multi-line string")
			err.Incomplete = true
			return false, err
		}
		if end, ok := endOfString(line, 0, t.contQuote); ok {
			pos = end
			tok := Token{STRING, t.contStr + line[:end], t.strStart, Pos{t.lnum, end}, t.contLine + line}
			t.resetString()
			if stop, err := t.send(tok); stop || err != nil {
				return stop, err
			}
		} else if t.needCont && !strings.HasSuffix(line, "\\\n") && !strings.HasSuffix(line, "\\\r\n") {
			tok := Token{ERRORTOKEN, t.contStr + line, t.strStart, Pos{t.lnum, len(line)}, t.contLine}
			t.resetString()
			return t.send(tok)
		} else {
			t.contStr += line
			t.contLine += line
			return false, nil
		}

	case t.parenlev == 0 && !t.continued:
		if line == "" {
			return t.endOfInput()
		}
		column := 0
	measure:
		for pos < max {
			switch line[pos] {
			case ' ':
				column++
			case '\t':
				column = (column/tabSize + 1) * tabSize
			case '\f':
				column = 0
			default:
				break measure
			}
			pos++
		}
		if pos == max {
			return false, nil
		}

		if c := line[pos]; c == '#' || c == '\r' || c == '\n' {
			if c == '#' {
				comment := strings.TrimRight(line[pos:], "\r\n")
				end := pos + len(comment)
				if stop, err := t.send(Token{COMMENT, comment, Pos{t.lnum, pos}, Pos{t.lnum, end}, line}); stop || err != nil {
					return stop, err
				}
				return t.send(Token{NL, line[end:], Pos{t.lnum, end}, Pos{t.lnum, len(line)}, line})
			}
			return t.send(Token{NL, line[pos:], Pos{t.lnum, pos}, Pos{t.lnum, len(line)}, line})
		}

		if column > t.indents[len(t.indents)-1] {
			t.indents = append(t.indents, column)
			if stop, err := t.send(Token{INDENT, line[:pos], Pos{t.lnum, 0}, Pos{t.lnum, pos}, line}); stop || err != nil {
				return stop, err
			}
		}
		for column < t.indents[len(t.indents)-1] {
			if !containsInt(t.indents, column) {
				return false, newError(TokenError, t.fileName, t.lnum, pos,
					"unindent does not match any outer indentation level")
			}
			t.indents = t.indents[:len(t.indents)-1]
			if stop, err := t.send(Token{DEDENT, "", Pos{t.lnum, pos}, Pos{t.lnum, pos}, line}); stop || err != nil {
				return stop, err
			}
		}

	default:
		if line == "" {
			err := newError(TokenError, t.fileName, t.lnum, 0, "EOF in multi-line statement")
			err.Incomplete = true
			return false, err
		}
		t.continued = false
	}

	return t.scanLine(line, pos)
}

// scanLine emits the tokens of line starting at byte offset pos.
func (t *Tokenizer) scanLine(line string, pos int) (bool, error) {
	max := len(line)
	for pos < max {
		for pos < max && (line[pos] == ' ' || line[pos] == '\t' || line[pos] == '\f') {
			pos++
		}
		if pos >= max {
			break
		}
		start := pos
		c := line[pos]

		var tok Token
		switch {
		case isDigit(c) || (c == '.' && pos+1 < max && isDigit(line[pos+1])):
			pos = scanNumber(line, pos)
			tok = Token{NUMBER, line[start:pos], Pos{t.lnum, start}, Pos{t.lnum, pos}, line}

		case c == '\r' || c == '\n':
			typ := NEWLINE
			if t.parenlev > 0 {
				typ = NL
			}
			tok = Token{typ, line[pos:], Pos{t.lnum, pos}, Pos{t.lnum, max}, line}
			pos = max

		case c == '#':
			comment := strings.TrimRight(line[pos:], "\r\n")
			pos += len(comment)
			tok = Token{COMMENT, comment, Pos{t.lnum, start}, Pos{t.lnum, pos}, line}

		case stringPrefixLen(line, pos) >= 0:
			body := pos + stringPrefixLen(line, pos)
			quote := line[body : body+1]
			if strings.HasPrefix(line[body:], strings.Repeat(quote, 3)) {
				quote = strings.Repeat(quote, 3)
			}
			end, ok := endOfString(line, body+len(quote), quote)
			if !ok {
				if len(quote) == 3 || strings.HasSuffix(line, "\\\n") || strings.HasSuffix(line, "\\\r\n") {
					t.contQuote = quote
					t.contStr = line[start:]
					t.contLine = line
					t.strStart = Pos{t.lnum, start}
					t.needCont = len(quote) == 1
					return false, nil
				}
				pos = body + 1
				tok = Token{ERRORTOKEN, line[start:pos], Pos{t.lnum, start}, Pos{t.lnum, pos}, line}
				break
			}
			pos = end
			tok = Token{STRING, line[start:pos], Pos{t.lnum, start}, Pos{t.lnum, pos}, line}

		case isNameStart(c):
			for pos < max && isNameChar(line[pos]) {
				pos++
			}
			tok = Token{NAME, line[start:pos], Pos{t.lnum, start}, Pos{t.lnum, pos}, line}

		case c == '\\':
			rest := line[pos+1:]
			if rest == "\n" || rest == "\r\n" {
				t.continued = true
				return false, nil
			}
			pos++
			tok = Token{ERRORTOKEN, "\\", Pos{t.lnum, start}, Pos{t.lnum, pos}, line}

		default:
			op := matchOperator(line[pos:])
			if op == "" {
				pos++
				tok = Token{ERRORTOKEN, line[start:pos], Pos{t.lnum, start}, Pos{t.lnum, pos}, line}
				break
			}
			switch op {
			case "(", "[", "{":
				t.parenlev++
			case ")", "]", "}":
				t.parenlev--
			}
			pos += len(op)
			tok = Token{OP, op, Pos{t.lnum, start}, Pos{t.lnum, pos}, line}
		}

		if stop, err := t.send(tok); stop || err != nil {
			return stop, err
		}
	}
	return false, nil
}

// endOfInput closes every open indentation level and emits ENDMARKER.
func (t *Tokenizer) endOfInput() (bool, error) {
	for range t.indents[1:] {
		if stop, err := t.send(Token{DEDENT, "", Pos{t.lnum, 0}, Pos{t.lnum, 0}, ""}); stop || err != nil {
			return stop, err
		}
	}
	t.indents = t.indents[:1]
	return t.send(Token{ENDMARKER, "", Pos{t.lnum, 0}, Pos{t.lnum, 0}, ""})
}

func (t *Tokenizer) send(tok Token) (bool, error) {
	stop, err := t.emit(tok)
	if err != nil {
		return false, err
	}
	if stop {
		t.done = true
	}
	return stop, nil
}

func (t *Tokenizer) resetString() {
	t.contQuote, t.contStr, t.contLine = "", "", ""
	t.needCont = false
}

// ---------------------------------------------------------------------------
// Scanning helpers
// ---------------------------------------------------------------------------

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool  { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }
func isNameStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNameChar(c byte) bool  { return isNameStart(c) || isDigit(c) }

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// scanNumber returns the end offset of the numeric literal starting at pos.
func scanNumber(line string, pos int) int {
	i, n := pos, len(line)
	suffix := func(i int, chars string) int {
		if i < n && strings.IndexByte(chars, line[i]) >= 0 {
			return i + 1
		}
		return i
	}
	if line[i] == '0' && i+1 < n {
		switch line[i+1] {
		case 'x', 'X':
			i += 2
			for i < n && isHexDigit(line[i]) {
				i++
			}
			return suffix(i, "lL")
		case 'o', 'O', 'b', 'B':
			i += 2
			for i < n && isDigit(line[i]) {
				i++
			}
			return suffix(i, "lL")
		}
	}
	for i < n && isDigit(line[i]) {
		i++
	}
	if i < n && line[i] == '.' {
		i++
		for i < n && isDigit(line[i]) {
			i++
		}
	}
	if i < n && (line[i] == 'e' || line[i] == 'E') {
		j := i + 1
		if j < n && (line[j] == '+' || line[j] == '-') {
			j++
		}
		if j < n && isDigit(line[j]) {
			i = j
			for i < n && isDigit(line[i]) {
				i++
			}
		}
	}
	return suffix(i, "jJlL")
}

// stringPrefixLen returns the length of a string prefix (u, b, r, ur, br)
// at pos when a quote follows it, or -1 when no string starts there.
func stringPrefixLen(line string, pos int) int {
	i := pos
	if i < len(line) && strings.IndexByte("uUbB", line[i]) >= 0 {
		i++
	}
	if i < len(line) && (line[i] == 'r' || line[i] == 'R') {
		i++
	}
	if i < len(line) && (line[i] == '\'' || line[i] == '"') {
		return i - pos
	}
	return -1
}

// endOfString finds the offset just past the closing quote, honoring
// backslash escapes.
func endOfString(line string, from int, quote string) (int, bool) {
	for i := from; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(line[i:], quote) {
			return i + len(quote), true
		}
	}
	return 0, false
}

// matchOperator returns the longest operator at the start of s.
func matchOperator(s string) string {
	for n := 3; n >= 1; n-- {
		if len(s) >= n {
			if _, ok := OpMap[s[:n]]; ok {
				return s[:n]
			}
		}
	}
	return ""
}
