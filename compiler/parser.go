package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Concrete syntax tree
// ---------------------------------------------------------------------------

// Node is a concrete syntax tree node. Terminals carry a token Value and no
// children; nonterminals (Type >= NT_OFFSET) carry children.
type Node struct {
	Type      int
	Value     string
	Lineno    int
	ColOffset int
	Children  []*Node
}

// NCh returns the number of children.
func (n *Node) NCh() int { return len(n.Children) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.Children[i] }

// ---------------------------------------------------------------------------
// Parser: DFA-driven push-down automaton
// ---------------------------------------------------------------------------

type stackEntry struct {
	dfa   *DFA
	state int
	node  *Node
}

// Parser turns a token sequence into a concrete syntax tree using the
// generated grammar tables.
type Parser struct {
	fileName string
	grammar  *Grammar
	stack    []stackEntry
	root     *Node
}

// NewParser creates a parser that recognizes the given start symbol.
func NewParser(fileName string, g *Grammar, start int) *Parser {
	root := &Node{Type: start, Lineno: 1, Children: []*Node{}}
	return &Parser{
		fileName: fileName,
		grammar:  g,
		stack:    []stackEntry{{dfa: g.DFAs[start], state: 0, node: root}},
	}
}

// Root returns the finished tree, or nil while the parse is incomplete.
func (p *Parser) Root() *Node { return p.root }

// AddToken feeds one token to the parser. It reports true once the start
// symbol has been recognized and the stack is empty.
func (p *Parser) AddToken(tok Token) (bool, error) {
	ilabel, err := p.classify(tok)
	if err != nil {
		return false, err
	}
	if len(p.stack) == 0 {
		return false, p.errorAt(tok, "too much input")
	}

	for {
		top := &p.stack[len(p.stack)-1]
		states := top.dfa.States
		arcs := states[top.state]

		pushed := false
		for _, arc := range arcs {
			t := p.grammar.Labels[arc.Label].Type
			if arc.Label == ilabel {
				p.shift(tok, arc.Next)
				state := arc.Next
				for isAcceptOnly(states[state], state) {
					p.pop()
					if len(p.stack) == 0 {
						return true, nil
					}
					top = &p.stack[len(p.stack)-1]
					state = top.state
					states = top.dfa.States
				}
				return false, nil
			}
			if t >= NT_OFFSET {
				itsDFA := p.grammar.DFAs[t]
				if itsDFA.First[ilabel] {
					p.push(t, itsDFA, arc.Next, tok)
					pushed = true
					break
				}
			}
		}
		if pushed {
			continue
		}

		if hasAccept(arcs, top.state) {
			p.pop()
			if len(p.stack) == 0 {
				return false, p.errorAt(tok, "too much input")
			}
			continue
		}
		return false, p.errorAt(tok, "bad input")
	}
}

// classify maps a token to its label number. Keywords take precedence over
// plain names.
func (p *Parser) classify(tok Token) (int, error) {
	if tok.Type == NAME {
		if ilabel, ok := p.grammar.Keywords[tok.Value]; ok {
			return ilabel, nil
		}
	}
	ilabel, ok := p.grammar.Tokens[tok.Type]
	if !ok {
		err := p.errorAt(tok, "bad token")
		err.Kind = TokenError
		return 0, err
	}
	return ilabel, nil
}

// shift attaches a leaf for tok and advances the top frame.
func (p *Parser) shift(tok Token, newState int) {
	top := &p.stack[len(p.stack)-1]
	leaf := &Node{
		Type:      tok.Type,
		Value:     tok.Value,
		Lineno:    tok.Start.Line,
		ColOffset: tok.Start.Col,
	}
	top.node.Children = append(top.node.Children, leaf)
	top.state = newState
}

// push enters a nonterminal; the current frame resumes at newState once the
// nonterminal is reduced.
func (p *Parser) push(typ int, dfa *DFA, newState int, tok Token) {
	top := &p.stack[len(p.stack)-1]
	top.state = newState
	node := &Node{
		Type:      typ,
		Lineno:    tok.Start.Line,
		ColOffset: tok.Start.Col,
		Children:  []*Node{},
	}
	p.stack = append(p.stack, stackEntry{dfa: dfa, state: 0, node: node})
}

// pop reduces the top frame into its parent, or into the root when the
// stack empties.
func (p *Parser) pop() {
	entry := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if len(p.stack) > 0 {
		parent := p.stack[len(p.stack)-1].node
		parent.Children = append(parent.Children, entry.node)
	} else {
		p.root = entry.node
	}
}

func (p *Parser) errorAt(tok Token, msg string) *Error {
	return newError(ParseError, p.fileName, tok.Start.Line, tok.Start.Col, "%s", msg)
}

// isAcceptOnly reports whether a state's only arc is the accepting self-loop.
func isAcceptOnly(arcs []Arc, state int) bool {
	return len(arcs) == 1 && arcs[0].Label == 0 && arcs[0].Next == state
}

func hasAccept(arcs []Arc, state int) bool {
	for _, arc := range arcs {
		if arc.Label == 0 && arc.Next == state {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Line-oriented driver
// ---------------------------------------------------------------------------

// LineParser couples a tokenizer and a parser so source can be supplied one
// line at a time, as a read-eval-print loop does.
type LineParser struct {
	fileName string
	parser   *Parser
	tok      *Tokenizer
	prefix   strings.Builder
	atEOF    bool
}

// NewLineParser creates a driver for the file_input start symbol.
func NewLineParser(fileName string) *LineParser {
	return NewLineParserFor(fileName, SymFileInput)
}

// NewLineParserFor creates a driver for an arbitrary start symbol.
func NewLineParserFor(fileName string, start int) *LineParser {
	lp := &LineParser{fileName: fileName}
	lp.parser = NewParser(fileName, PythonGrammar(), start)
	lp.tok = NewTokenizer(fileName, lp.addToken)
	return lp
}

func (lp *LineParser) addToken(tok Token) (bool, error) {
	switch tok.Type {
	case COMMENT, NL:
		lp.prefix.WriteString(tok.Value)
		return false, nil
	case OP:
		tok.Type = OpMap[tok.Value]
	}
	lp.prefix.Reset()
	done, err := lp.parser.AddToken(tok)
	if err != nil && lp.atEOF {
		if cerr, ok := err.(*Error); ok && cerr.Kind == ParseError {
			cerr.Msg = "incomplete input"
			cerr.Incomplete = true
		}
	}
	return done, err
}

// Feed supplies one line including its newline; an empty string marks end
// of input. It returns the tree once the parse is complete and nil while
// more input is needed.
func (lp *LineParser) Feed(line string) (*Node, error) {
	if line == "" {
		lp.atEOF = true
	}
	done, err := lp.tok.Feed(line)
	if err != nil {
		return nil, err
	}
	if done {
		return lp.parser.Root(), nil
	}
	if lp.atEOF {
		err := newError(ParseError, lp.fileName, lp.tok.lnum, -1, "incomplete input")
		err.Incomplete = true
		return nil, err
	}
	return nil, nil
}

// InContinuation reports whether the input so far ends inside brackets or
// a multi-line string.
func (lp *LineParser) InContinuation() bool { return lp.tok.InContinuation() }

// Parse parses a complete module.
func Parse(fileName, source string) (*Node, error) {
	lp := NewLineParser(fileName)
	lines := strings.SplitAfter(source+"\n", "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		if root, err := lp.Feed(line); err != nil || root != nil {
			return root, err
		}
	}
	return lp.Feed("")
}

// ---------------------------------------------------------------------------
// Debug dump
// ---------------------------------------------------------------------------

// ParseTreeDump renders a parse tree one node per line, indented by depth.
func ParseTreeDump(n *Node) string {
	var sb strings.Builder
	dumpNode(&sb, n, "")
	return sb.String()
}

func dumpNode(sb *strings.Builder, n *Node, indent string) {
	sb.WriteString(indent)
	if n.Type >= NT_OFFSET {
		sb.WriteString(SymbolName(n.Type))
		sb.WriteByte('\n')
		for _, child := range n.Children {
			dumpNode(sb, child, indent+"  ")
		}
		return
	}
	sb.WriteString(TokenName(n.Type))
	sb.WriteString(": ")
	sb.WriteString(quoteJS(n.Value))
	sb.WriteByte('\n')
}
