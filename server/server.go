package server

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pyjs.server")

// Server is the compile server. It serves the Connect protocol over
// HTTP/1.1 and gRPC over unencrypted HTTP/2 on the same port.
type Server struct {
	worker   *CompileWorker
	sessions *SessionStore
	mux      *http.ServeMux
	http     *http.Server

	stopSweeper func()
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	sweepInterval time.Duration
	sessionTTL    time.Duration
}

// WithSessionTTL sets how long an idle interactive session is kept.
func WithSessionTTL(interval, ttl time.Duration) ServerOption {
	return func(c *serverConfig) {
		c.sweepInterval = interval
		c.sessionTTL = ttl
	}
}

// New creates a Server around a new worker for ws.
func New(ws *Workspace, opts ...ServerOption) *Server {
	cfg := &serverConfig{
		sweepInterval: 5 * time.Minute,
		sessionTTL:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		worker:   NewCompileWorker(ws),
		sessions: NewSessionStore(),
		mux:      http.NewServeMux(),
	}

	svc := NewCompilerService(s.worker, s.sessions)
	codec := connect.WithCodec(Codec{})
	s.mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, svc.Compile, codec))
	s.mux.Handle(ParseProcedure, connect.NewUnaryHandler(ParseProcedure, svc.Parse, codec))
	s.mux.Handle(CheckProcedure, connect.NewUnaryHandler(CheckProcedure, svc.Check, codec))
	s.mux.Handle(OpenSessionProcedure, connect.NewUnaryHandler(OpenSessionProcedure, svc.OpenSession, codec))
	s.mux.Handle(FeedSessionProcedure, connect.NewUnaryHandler(FeedSessionProcedure, svc.FeedSession, codec))
	s.mux.Handle(CloseSessionProcedure, connect.NewUnaryHandler(CloseSessionProcedure, svc.CloseSession, codec))

	s.stopSweeper = s.sessions.StartSweeper(cfg.sweepInterval, cfg.sessionTTL)
	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler { return s.mux }

// Worker returns the server's compile worker.
func (s *Server) Worker() *CompileWorker { return s.worker }

// Protocols returns the protocol set the server accepts: HTTP/1.1 for
// Connect clients and prior-knowledge HTTP/2 for gRPC clients.
func Protocols() *http.Protocols {
	var p http.Protocols
	p.SetHTTP1(true)
	p.SetUnencryptedHTTP2(true)
	return &p
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		Protocols:         Protocols(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Noticef("compile server listening on %s", addr)
	log.Infof("  Connect (HTTP/CBOR): http://%s%s", addr, CompileProcedure)
	log.Infof("  gRPC (h2c):          grpc://%s", addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, waits for active requests and
// stops the worker.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.Stop()
	return err
}

// Stop shuts down the sweeper and the worker.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
		s.stopSweeper = nil
	}
	s.worker.Stop()
}
