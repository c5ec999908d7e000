package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/pyjs/cache"
	"github.com/chazu/pyjs/compiler"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// One worker without a cache is shared by the tests that only need to
// compile. Tests that care about caching or sessions build their own.
// ---------------------------------------------------------------------------

var testWorker *CompileWorker

// TestMain starts the shared worker for all server tests.
func TestMain(m *testing.M) {
	testWorker = NewCompileWorker(&Workspace{Options: compiler.DefaultOptions()})

	code := m.Run()

	testWorker.Stop()
	os.Exit(code)
}

// newTestServer starts a Server backed by an in-memory sqlite cache on an
// httptest listener that accepts both HTTP/1.1 and h2c.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	c, err := cache.Open(cache.DriverSQLite, "")
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	srv := New(&Workspace{Cache: c, Options: compiler.DefaultOptions()})
	ts := httptest.NewUnstartedServer(srv.Handler())
	ts.Config.Protocols = Protocols()
	ts.Start()
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
		c.Close()
	})
	return srv, ts
}

// newConnectClient returns a Connect client for one procedure on ts.
func newConnectClient[Req, Res any](ts *httptest.Server, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](http.DefaultClient, ts.URL+procedure, connect.WithCodec(Codec{}))
}
