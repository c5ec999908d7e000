package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/pyjs/cache"
	"github.com/chazu/pyjs/compiler"
	"github.com/chazu/pyjs/jscheck"
)

// ErrorKindHeader carries the compiler error kind on InvalidArgument errors.
const ErrorKindHeader = "Pyjs-Error-Kind"

// CompilerService implements the compiler procedures on top of a CompileWorker.
type CompilerService struct {
	worker   *CompileWorker
	sessions *SessionStore
}

// NewCompilerService creates a CompilerService.
func NewCompilerService(worker *CompileWorker, sessions *SessionStore) *CompilerService {
	return &CompilerService{
		worker:   worker,
		sessions: sessions,
	}
}

type compileOutcome struct {
	entry *cache.Entry
	hit   bool
	err   error
}

func (s *CompilerService) compile(ctx context.Context, source, fileName string, opts compiler.Options) (compileOutcome, error) {
	v, err := s.worker.Do(func(ws *Workspace) any {
		e, hit, err := ws.Compile(ctx, source, fileName, opts)
		return compileOutcome{entry: e, hit: hit, err: err}
	})
	if err != nil {
		return compileOutcome{}, connect.NewError(connect.CodeInternal, err)
	}
	return v.(compileOutcome), nil
}

// Compile compiles one module.
func (s *CompilerService) Compile(
	ctx context.Context,
	req *connect.Request[CompileRequest],
) (*connect.Response[CompileResponse], error) {
	fileName := fileNameOr(req.Msg.FileName)
	opts := s.worker.Options()
	if req.Msg.Annotate != nil {
		opts.AnnotateSource = *req.Msg.Annotate
	}
	if req.Msg.TimeLimitChecks != nil {
		opts.TimeLimitChecks = *req.Msg.TimeLimitChecks
	}

	out, err := s.compile(ctx, req.Msg.Source, fileName, opts)
	if err != nil {
		return nil, err
	}
	if out.err != nil {
		return nil, toConnectError(out.err)
	}
	log.Debugf("compiled %s (cached=%t)", fileName, out.hit)
	return connect.NewResponse(&CompileResponse{
		FuncName: out.entry.Result.FuncName,
		Code:     out.entry.Result.Code,
		Cached:   out.hit,
		Hash:     out.entry.Semantic,
	}), nil
}

// Parse returns a text dump of one pipeline stage.
func (s *CompilerService) Parse(
	ctx context.Context,
	req *connect.Request[ParseRequest],
) (*connect.Response[ParseResponse], error) {
	fileName := fileNameOr(req.Msg.FileName)
	type outcome struct {
		dump string
		err  error
	}
	v, err := s.worker.Do(func(ws *Workspace) any {
		dump, err := ws.Dump(ctx, req.Msg.Kind, req.Msg.Source, fileName)
		return outcome{dump, err}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	out := v.(outcome)
	if out.err != nil {
		return nil, toConnectError(out.err)
	}
	return connect.NewResponse(&ParseResponse{Dump: out.dump}), nil
}

// Check compiles a module and validates the generated JavaScript.
// Problems are reported as diagnostics rather than errors.
func (s *CompilerService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	fileName := fileNameOr(req.Msg.FileName)
	out, err := s.compile(ctx, req.Msg.Source, fileName, s.worker.Options())
	if err != nil {
		return nil, err
	}
	if out.err != nil {
		cerr, ok := compiler.AsError(out.err)
		if !ok {
			return nil, connect.NewError(connect.CodeInternal, out.err)
		}
		return connect.NewResponse(&CheckResponse{
			Diagnostics: []Diagnostic{{
				Kind:    cerr.Kind.String(),
				Line:    cerr.Line,
				Col:     cerr.Col,
				Message: cerr.Msg,
			}},
		}), nil
	}

	res := &CheckResponse{OK: true, Diagnostics: []Diagnostic{}}
	for _, d := range jscheck.Check(fileName, out.entry.Result.Code) {
		res.OK = false
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    "JSError",
			Line:    d.Line,
			Col:     d.Column,
			Message: d.Message,
		})
	}
	return connect.NewResponse(res), nil
}

// OpenSession starts an interactive session.
func (s *CompilerService) OpenSession(
	ctx context.Context,
	req *connect.Request[OpenSessionRequest],
) (*connect.Response[OpenSessionResponse], error) {
	session := s.sessions.Create(req.Msg.Name)
	return connect.NewResponse(&OpenSessionResponse{SessionID: session.ID}), nil
}

// FeedSession feeds one line to a session and compiles the input once it
// is complete.
func (s *CompilerService) FeedSession(
	ctx context.Context,
	req *connect.Request[FeedSessionRequest],
) (*connect.Response[FeedSessionResponse], error) {
	if req.Msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}
	session, ok := s.sessions.Get(req.Msg.SessionID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.Msg.SessionID))
	}

	fed, err := session.Feed(req.Msg.Line)
	if err != nil {
		return nil, toConnectError(err)
	}
	res := &FeedSessionResponse{Done: fed.Done, Dump: fed.Dump}
	if !fed.Done || fed.Source == "" {
		return connect.NewResponse(res), nil
	}

	out, err := s.compile(ctx, fed.Source, session.FileName, s.worker.Options())
	if err != nil {
		return nil, err
	}
	if out.err != nil {
		return nil, toConnectError(out.err)
	}
	res.Code = out.entry.Result.Code
	return connect.NewResponse(res), nil
}

// CloseSession discards a session.
func (s *CompilerService) CloseSession(
	ctx context.Context,
	req *connect.Request[CloseSessionRequest],
) (*connect.Response[CloseSessionResponse], error) {
	if _, ok := s.sessions.Get(req.Msg.SessionID); !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.Msg.SessionID))
	}
	s.sessions.Destroy(req.Msg.SessionID)
	return connect.NewResponse(&CloseSessionResponse{}), nil
}

// toConnectError maps compiler diagnostics to InvalidArgument with a
// file:line:col: msg message; anything else is Internal.
func toConnectError(err error) error {
	if cerr, ok := compiler.AsError(err); ok {
		cErr := connect.NewError(connect.CodeInvalidArgument, errors.New(positionMessage(cerr)))
		cErr.Meta().Set(ErrorKindHeader, cerr.Kind.String())
		return cErr
	}
	return connect.NewError(connect.CodeInternal, err)
}

func positionMessage(e *compiler.Error) string {
	col := e.Col
	if col < 0 {
		col = 0
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.FileName, e.Line, col, e.Msg)
}

func fileNameOr(name string) string {
	if name == "" {
		return "<string>"
	}
	return name
}
