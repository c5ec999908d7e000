package server

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/pyjs/compiler"
)

const lspName = "pyjs-lsp"

var lspLog = commonlog.GetLogger("pyjs.lsp")

// LspServer bridges LSP editor features to the compiler via CompileWorker.
type LspServer struct {
	worker *CompileWorker

	mu     sync.Mutex
	docs   map[string]string                // URI → full document content
	tables map[string]*compiler.SymbolTable // URI → last good symbol table

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server compiling through ws.
func NewLSP(ws *Workspace) *LspServer {
	s := &LspServer{
		worker:  NewCompileWorker(ws),
		docs:    make(map[string]string),
		tables:  make(map[string]*compiler.SymbolTable),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Info("pyjs LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			text := whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	delete(s.tables, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	st := s.tables[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(st, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	st := s.tables[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(st, word), nil
}

// pythonKeywords returns the grammar's keywords, sorted.
func pythonKeywords() []string {
	g := compiler.PythonGrammar()
	kws := make([]string, 0, len(g.Keywords))
	for kw := range g.Keywords {
		kws = append(kws, kw)
	}
	sort.Strings(kws)
	return kws
}

// complete lists module-scope names and keywords starting with prefix.
func complete(st *compiler.SymbolTable, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	if st != nil {
		top := st.Top()
		for _, name := range top.Identifiers() {
			if !strings.HasPrefix(name, prefix) || strings.HasPrefix(name, ".") {
				continue
			}
			kind := protocol.CompletionItemKindVariable
			if top.Flags(name)&compiler.DefImport != 0 {
				kind = protocol.CompletionItemKindModule
			}
			detail := strings.ToLower(top.ScopeOf(name).String())
			nameCopy := name
			items = append(items, protocol.CompletionItem{
				Label:      name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &nameCopy,
			})
		}
	}

	for _, kw := range pythonKeywords() {
		if !strings.HasPrefix(kw, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := "keyword"
		kwCopy := kw
		items = append(items, protocol.CompletionItem{
			Label:      kw,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &kwCopy,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

// hover describes how word resolves in the module scope.
func hover(st *compiler.SymbolTable, word string) *protocol.Hover {
	var b strings.Builder
	if st != nil && st.Top().Flags(word) != 0 {
		top := st.Top()
		flags := top.Flags(word)
		fmt.Fprintf(&b, "**%s**: %s in module scope", word, top.ScopeOf(word))
		var uses []string
		if flags&compiler.DefLocal != 0 {
			uses = append(uses, "assigned")
		}
		if flags&compiler.DefImport != 0 {
			uses = append(uses, "imported")
		}
		if flags&compiler.DefGlobal != 0 {
			uses = append(uses, "declared global")
		}
		if flags&compiler.DefFreeClass != 0 {
			uses = append(uses, "used in a class body")
		}
		if len(uses) > 0 {
			fmt.Fprintf(&b, "\n\n%s", strings.Join(uses, ", "))
		}
	} else if _, ok := compiler.PythonGrammar().Keywords[word]; ok {
		fmt.Fprintf(&b, "**%s**: keyword", word)
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Diagnostics ---

// diagnose compiles text and returns its diagnostics and, when the module
// analyzed cleanly, its symbol table. Must run on the worker goroutine.
func diagnose(ws *Workspace, fileName, text string) ([]protocol.Diagnostic, *compiler.SymbolTable) {
	diagnostics := []protocol.Diagnostic{}
	_, st, err := ws.Analyze(text, fileName)
	if err == nil {
		_, _, err = ws.Compile(context.Background(), text, fileName, ws.Options)
	}
	if err == nil {
		return diagnostics, st
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	diag := protocol.Diagnostic{
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}
	if cerr, ok := compiler.AsError(err); ok {
		line := protocol.UInteger(0)
		if cerr.Line > 0 {
			line = protocol.UInteger(cerr.Line - 1)
		}
		col := protocol.UInteger(0)
		if cerr.Col > 0 {
			col = protocol.UInteger(cerr.Col)
		}
		code := protocol.IntegerOrString{Value: cerr.Kind.String()}
		diag.Code = &code
		diag.Message = cerr.Msg
		diag.Range = protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		}
	}
	return append(diagnostics, diag), st
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	type outcome struct {
		diagnostics []protocol.Diagnostic
		table       *compiler.SymbolTable
	}
	fileName := uriPath(uri)
	result, err := s.worker.Do(func(ws *Workspace) any {
		d, st := diagnose(ws, fileName, text)
		return outcome{d, st}
	})
	if err != nil {
		lspLog.Errorf("diagnostics for %s: %s", uri, err)
		return
	}
	out := result.(outcome)

	if out.table != nil {
		s.mu.Lock()
		s.tables[string(uri)] = out.table
		s.mu.Unlock()
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: out.diagnostics,
	})
}

// uriPath turns a file:// URI into the path used in error messages.
func uriPath(uri protocol.DocumentUri) string {
	return strings.TrimPrefix(string(uri), "file://")
}

// --- Text extraction helpers ---

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the identifier fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(rune(line[end])) {
		end++
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
