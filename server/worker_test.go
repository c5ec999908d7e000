package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/chazu/pyjs/compiler"
)

func TestWorkerDo(t *testing.T) {
	v, err := testWorker.Do(func(ws *Workspace) any {
		return ws.Options.AnnotateSource
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != true {
		t.Errorf("AnnotateSource = %v, want true", v)
	}
}

func TestWorkerRecoversPanic(t *testing.T) {
	_, err := testWorker.Do(func(ws *Workspace) any {
		panic("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Errorf("err = %v, want boom", err)
	}
	// Still usable afterwards.
	v, err := testWorker.Do(func(ws *Workspace) any { return 42 })
	if err != nil || v != 42 {
		t.Errorf("Do after panic = %v, %v", v, err)
	}
}

func TestWorkerSerializes(t *testing.T) {
	var active, maxActive atomic.Int32
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			testWorker.Do(func(ws *Workspace) any {
				n := active.Add(1)
				if n > maxActive.Load() {
					maxActive.Store(n)
				}
				counter++
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent requests = %d, want 1", got)
	}
}

func TestWorkerStop(t *testing.T) {
	w := NewCompileWorker(nil)
	if !w.Options().TimeLimitChecks {
		t.Error("nil workspace did not get default options")
	}
	if _, err := w.Do(func(ws *Workspace) any { return nil }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	w.Stop()
	w.Stop()
	if _, err := w.Do(func(ws *Workspace) any { return nil }); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("Do after Stop = %v, want ErrWorkerStopped", err)
	}
}

func TestWorkerStopDrains(t *testing.T) {
	w := NewCompileWorker(nil)
	release := make(chan struct{})
	var done atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Do(func(ws *Workspace) any {
				<-release
				done.Add(1)
				return nil
			})
		}()
	}
	close(release)
	wg.Wait()
	w.Stop()
	if got := done.Load(); got != 5 {
		t.Errorf("completed = %d, want 5", got)
	}
}

func TestWorkspaceCompileWithoutCache(t *testing.T) {
	ws := &Workspace{Options: compiler.DefaultOptions()}
	e, hit, err := ws.Compile(context.Background(), "x = 1\n", "<test>", ws.Options)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if hit {
		t.Error("hit reported without a cache")
	}
	if e.Result.FuncName != "$scope0" || e.Semantic == "" {
		t.Errorf("entry = %+v", e)
	}
}

func TestWorkspaceDump(t *testing.T) {
	ws := &Workspace{Options: compiler.DefaultOptions()}
	tests := []struct {
		kind string
		want string
	}{
		{DumpParse, "file_input"},
		{DumpAST, "Assign @1:0"},
		{DumpSymtab, "Sym_name: top"},
		{DumpJS, "var $scope0="},
	}
	for _, tc := range tests {
		out, err := ws.Dump(context.Background(), tc.kind, "x = 1\n", "<test>")
		if err != nil {
			t.Errorf("Dump(%s): %v", tc.kind, err)
			continue
		}
		if !strings.Contains(out, tc.want) {
			t.Errorf("Dump(%s) missing %q:\n%s", tc.kind, tc.want, out)
		}
	}

	h, err := ws.Dump(context.Background(), DumpHash, "x = 1\n", "<test>")
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 65 {
		t.Errorf("hash dump = %q, want 64 hex digits and a newline", h)
	}
	if _, err := ws.Dump(context.Background(), "bytecode", "x = 1\n", "<test>"); err == nil {
		t.Error("unknown dump kind accepted")
	}
}
