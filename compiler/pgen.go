package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Table generator: EBNF grammar text -> per-nonterminal DFAs
// ---------------------------------------------------------------------------

type nfaArc struct {
	label string // "" is an epsilon transition
	next  *nfaState
}

type nfaState struct {
	arcs []nfaArc
}

func (s *nfaState) addArc(next *nfaState, label string) {
	s.arcs = append(s.arcs, nfaArc{label, next})
}

type dfaState struct {
	nfaset  map[*nfaState]bool
	isFinal bool
	arcs    map[string]*dfaState
}

func newDFAState(nfaset map[*nfaState]bool, final *nfaState) *dfaState {
	return &dfaState{nfaset: nfaset, isFinal: nfaset[final], arcs: map[string]*dfaState{}}
}

func (s *dfaState) unify(old, new *dfaState) {
	for label, next := range s.arcs {
		if next == old {
			s.arcs[label] = new
		}
	}
}

func (s *dfaState) equal(other *dfaState) bool {
	if s.isFinal != other.isFinal || len(s.arcs) != len(other.arcs) {
		return false
	}
	for label, next := range s.arcs {
		if other.arcs[label] != next {
			return false
		}
	}
	return true
}

func (s *dfaState) sortedLabels() []string {
	labels := make([]string, 0, len(s.arcs))
	for label := range s.arcs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// grammarToken is a token of the grammar description language.
type grammarToken struct {
	kind  int // NAME, STRING, OP, NEWLINE, ENDMARKER
	value string
	line  int
}

// pgen holds the state of one table-generation run.
type pgen struct {
	toks  []grammarToken
	pos   int
	names []string // rule names in definition order
	dfas  map[string][]*dfaState
	first map[string]map[string]bool
}

// generateGrammar converts grammar text into parse tables.
func generateGrammar(text string) (*Grammar, error) {
	toks, err := scanGrammar(text)
	if err != nil {
		return nil, err
	}
	p := &pgen{toks: toks, dfas: map[string][]*dfaState{}, first: map[string]map[string]bool{}}
	if err := p.parseRules(); err != nil {
		return nil, err
	}
	if err := p.addFirstSets(); err != nil {
		return nil, err
	}
	return p.makeGrammar()
}

// scanGrammar tokenizes grammar text. Newlines inside brackets are ignored
// so a rule can continue on the next line.
func scanGrammar(text string) ([]grammarToken, error) {
	var toks []grammarToken
	depth := 0
	for lineno, line := range strings.Split(text, "\n") {
		i := 0
		sawToken := false
		for i < len(line) {
			c := line[i]
			switch {
			case c == ' ' || c == '\t' || c == '\r':
				i++
			case c == '#':
				i = len(line)
			case isNameStart(c):
				j := i
				for j < len(line) && isNameChar(line[j]) {
					j++
				}
				toks = append(toks, grammarToken{NAME, line[i:j], lineno + 1})
				sawToken = true
				i = j
			case c == '\'':
				j := strings.IndexByte(line[i+1:], '\'')
				if j < 0 {
					return nil, fmt.Errorf("grammar line %d: unterminated string", lineno+1)
				}
				toks = append(toks, grammarToken{STRING, line[i : i+j+2], lineno + 1})
				sawToken = true
				i += j + 2
			case strings.IndexByte(":|()[]*+", c) >= 0:
				switch c {
				case '(', '[':
					depth++
				case ')', ']':
					depth--
				}
				toks = append(toks, grammarToken{OP, string(c), lineno + 1})
				sawToken = true
				i++
			default:
				return nil, fmt.Errorf("grammar line %d: unexpected %q", lineno+1, c)
			}
		}
		if sawToken && depth == 0 {
			toks = append(toks, grammarToken{NEWLINE, "", lineno + 1})
		}
	}
	return append(toks, grammarToken{ENDMARKER, "", 0}), nil
}

func (p *pgen) peek() grammarToken { return p.toks[p.pos] }

func (p *pgen) expect(kind int, value string) (grammarToken, error) {
	tok := p.peek()
	if tok.kind != kind || (value != "" && tok.value != value) {
		return tok, fmt.Errorf("grammar line %d: expected %s %q, got %q", tok.line, TokenName(kind), value, tok.value)
	}
	p.pos++
	return tok, nil
}

func (p *pgen) isOp(value string) bool {
	tok := p.peek()
	return tok.kind == OP && tok.value == value
}

func (p *pgen) parseRules() error {
	for p.peek().kind != ENDMARKER {
		name, err := p.expect(NAME, "")
		if err != nil {
			return err
		}
		if _, err := p.expect(OP, ":"); err != nil {
			return err
		}
		start, finish, err := p.parseRHS()
		if err != nil {
			return err
		}
		if _, err := p.expect(NEWLINE, ""); err != nil {
			return err
		}
		if _, dup := p.dfas[name.value]; dup {
			return fmt.Errorf("grammar line %d: rule %s defined twice", name.line, name.value)
		}
		p.dfas[name.value] = simplifyDFA(makeDFA(start, finish))
		p.names = append(p.names, name.value)
	}
	return nil
}

// rhs: alt ('|' alt)*
func (p *pgen) parseRHS() (*nfaState, *nfaState, error) {
	a, z, err := p.parseAlt()
	if err != nil || !p.isOp("|") {
		return a, z, err
	}
	aa, zz := &nfaState{}, &nfaState{}
	aa.addArc(a, "")
	z.addArc(zz, "")
	for p.isOp("|") {
		p.pos++
		a, z, err = p.parseAlt()
		if err != nil {
			return nil, nil, err
		}
		aa.addArc(a, "")
		z.addArc(zz, "")
	}
	return aa, zz, nil
}

// alt: item+
func (p *pgen) parseAlt() (*nfaState, *nfaState, error) {
	a, b, err := p.parseItem()
	if err != nil {
		return nil, nil, err
	}
	for {
		tok := p.peek()
		if !(tok.kind == NAME || tok.kind == STRING || p.isOp("(") || p.isOp("[")) {
			return a, b, nil
		}
		c, d, err := p.parseItem()
		if err != nil {
			return nil, nil, err
		}
		b.addArc(c, "")
		b = d
	}
}

// item: '[' rhs ']' | atom ['+' | '*']
func (p *pgen) parseItem() (*nfaState, *nfaState, error) {
	if p.isOp("[") {
		p.pos++
		a, z, err := p.parseRHS()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expect(OP, "]"); err != nil {
			return nil, nil, err
		}
		a.addArc(z, "")
		return a, z, nil
	}
	a, z, err := p.parseAtom()
	if err != nil {
		return nil, nil, err
	}
	switch {
	case p.isOp("+"):
		p.pos++
		z.addArc(a, "")
		return a, z, nil
	case p.isOp("*"):
		p.pos++
		z.addArc(a, "")
		return a, a, nil
	}
	return a, z, nil
}

// atom: '(' rhs ')' | NAME | STRING
func (p *pgen) parseAtom() (*nfaState, *nfaState, error) {
	if p.isOp("(") {
		p.pos++
		a, z, err := p.parseRHS()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expect(OP, ")"); err != nil {
			return nil, nil, err
		}
		return a, z, nil
	}
	tok := p.peek()
	if tok.kind != NAME && tok.kind != STRING {
		return nil, nil, fmt.Errorf("grammar line %d: expected (...) or NAME or STRING, got %q", tok.line, tok.value)
	}
	p.pos++
	a, z := &nfaState{}, &nfaState{}
	a.addArc(z, tok.value)
	return a, z, nil
}

func addClosure(s *nfaState, base map[*nfaState]bool) {
	if base[s] {
		return
	}
	base[s] = true
	for _, arc := range s.arcs {
		if arc.label == "" {
			addClosure(arc.next, base)
		}
	}
}

// makeDFA runs the subset construction from an NFA start/finish pair.
func makeDFA(start, finish *nfaState) []*dfaState {
	closure := map[*nfaState]bool{}
	addClosure(start, closure)
	states := []*dfaState{newDFAState(closure, finish)}
	for i := 0; i < len(states); i++ {
		state := states[i]
		arcs := map[string]map[*nfaState]bool{}
		for nfa := range state.nfaset {
			for _, arc := range nfa.arcs {
				if arc.label == "" {
					continue
				}
				set, ok := arcs[arc.label]
				if !ok {
					set = map[*nfaState]bool{}
					arcs[arc.label] = set
				}
				addClosure(arc.next, set)
			}
		}
		labels := make([]string, 0, len(arcs))
		for label := range arcs {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			set := arcs[label]
			var target *dfaState
			for _, st := range states {
				if sameNFASet(st.nfaset, set) {
					target = st
					break
				}
			}
			if target == nil {
				target = newDFAState(set, finish)
				states = append(states, target)
			}
			state.arcs[label] = target
		}
	}
	return states
}

func sameNFASet(a, b map[*nfaState]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for s := range a {
		if !b[s] {
			return false
		}
	}
	return true
}

// simplifyDFA merges states that are indistinguishable.
func simplifyDFA(dfa []*dfaState) []*dfaState {
	for changed := true; changed; {
		changed = false
	scan:
		for i, si := range dfa {
			for j := i + 1; j < len(dfa); j++ {
				sj := dfa[j]
				if si.equal(sj) {
					copy(dfa[j:], dfa[j+1:])
					dfa = dfa[:len(dfa)-1]
					for _, s := range dfa {
						s.unify(sj, si)
					}
					changed = true
					break scan
				}
			}
		}
	}
	return dfa
}

// addFirstSets computes the FIRST set of every rule, rejecting left
// recursion and ambiguous alternatives.
func (p *pgen) addFirstSets() error {
	names := append([]string(nil), p.names...)
	sort.Strings(names)
	for _, name := range names {
		if _, ok := p.first[name]; !ok {
			if err := p.calcFirst(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pgen) calcFirst(name string) error {
	p.first[name] = nil // marks the rule as in progress
	state := p.dfas[name][0]
	total := map[string]bool{}
	inverse := map[string]string{}
	for _, label := range state.sortedLabels() {
		fset := map[string]bool{label: true}
		if _, isRule := p.dfas[label]; isRule {
			var ok bool
			fset, ok = p.first[label]
			if ok && fset == nil {
				return fmt.Errorf("grammar: recursion for rule %s", name)
			}
			if !ok {
				if err := p.calcFirst(label); err != nil {
					return err
				}
				fset = p.first[label]
			}
		}
		for sym := range fset {
			total[sym] = true
			if prev, dup := inverse[sym]; dup {
				return fmt.Errorf("grammar: rule %s is ambiguous; %s is in the first sets of %s as well as %s",
					name, sym, label, prev)
			}
			inverse[sym] = label
		}
	}
	p.first[name] = total
	return nil
}

// makeGrammar numbers rules and labels and flattens the DFAs into tables.
func (p *pgen) makeGrammar() (*Grammar, error) {
	g := &Grammar{
		Symbol2Number: map[string]int{},
		Number2Symbol: map[int]string{},
		DFAs:          map[int]*DFA{},
		Labels:        []Label{{Type: 0, Value: "EMPTY"}},
		Keywords:      map[string]int{},
		Tokens:        map[int]int{},
	}
	for i, name := range p.names {
		g.Symbol2Number[name] = NT_OFFSET + i
		g.Number2Symbol[NT_OFFSET+i] = name
	}
	g.Start = g.Symbol2Number[p.names[0]]

	for _, name := range p.names {
		dfa := p.dfas[name]
		index := map[*dfaState]int{}
		for i, st := range dfa {
			index[st] = i
		}
		out := &DFA{First: map[int]bool{}}
		for _, st := range dfa {
			var arcs []Arc
			for _, label := range st.sortedLabels() {
				id, err := p.makeLabel(g, label)
				if err != nil {
					return nil, err
				}
				arcs = append(arcs, Arc{Label: id, Next: index[st.arcs[label]]})
			}
			if st.isFinal {
				arcs = append(arcs, Arc{Label: 0, Next: index[st]})
			}
			out.States = append(out.States, arcs)
		}
		firstLabels := make([]string, 0, len(p.first[name]))
		for label := range p.first[name] {
			firstLabels = append(firstLabels, label)
		}
		sort.Strings(firstLabels)
		for _, label := range firstLabels {
			id, err := p.makeLabel(g, label)
			if err != nil {
				return nil, err
			}
			out.First[id] = true
		}
		g.DFAs[g.Symbol2Number[name]] = out
	}
	return g, nil
}

func (p *pgen) makeLabel(g *Grammar, label string) (int, error) {
	ilabel := len(g.Labels)
	c := label[0]
	switch {
	case isNameStart(c) && isRuleName(label):
		num, ok := g.Symbol2Number[label]
		if !ok {
			return 0, fmt.Errorf("grammar: undefined rule %s", label)
		}
		for i, l := range g.Labels {
			if l.Type == num {
				return i, nil
			}
		}
		g.Labels = append(g.Labels, Label{Type: num})
		return ilabel, nil

	case isNameStart(c):
		// named token
		typ := -1
		for i, name := range tokenNames {
			if name == label {
				typ = i
				break
			}
		}
		if typ < 0 {
			return 0, fmt.Errorf("grammar: unknown token %s", label)
		}
		if id, ok := g.Tokens[typ]; ok {
			return id, nil
		}
		g.Labels = append(g.Labels, Label{Type: typ})
		g.Tokens[typ] = ilabel
		return ilabel, nil

	case c == '\'':
		value := label[1 : len(label)-1]
		if isNameStart(value[0]) {
			// keyword
			if id, ok := g.Keywords[value]; ok {
				return id, nil
			}
			g.Labels = append(g.Labels, Label{Type: NAME, Value: value})
			g.Keywords[value] = ilabel
			return ilabel, nil
		}
		// operator
		typ, ok := OpMap[value]
		if !ok {
			return 0, fmt.Errorf("grammar: unknown operator %s", label)
		}
		if id, ok := g.Tokens[typ]; ok {
			return id, nil
		}
		g.Labels = append(g.Labels, Label{Type: typ})
		g.Tokens[typ] = ilabel
		return ilabel, nil
	}
	return 0, fmt.Errorf("grammar: bad label %s", label)
}

// isRuleName reports whether a grammar name refers to a rule rather than a
// token; token names are upper case.
func isRuleName(name string) bool {
	return name != strings.ToUpper(name)
}
