package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/pyjs/cache"
	"github.com/chazu/pyjs/compiler"
)

// ErrWorkerStopped is returned by Do once Stop has been called.
var ErrWorkerStopped = errors.New("compile worker stopped")

// Workspace is the state owned by the worker goroutine: the default
// compile options and the optional compile cache.
type Workspace struct {
	Cache   *cache.Cache
	Options compiler.Options
}

// Compile runs the full pipeline for one file, going through the cache
// when one is configured. The bool reports a cache hit.
func (ws *Workspace) Compile(ctx context.Context, source, fileName string, opts compiler.Options) (*cache.Entry, bool, error) {
	if ws.Cache != nil {
		return ws.Cache.Compile(ctx, source, fileName, opts)
	}
	e, err := cache.Build(source, fileName, opts)
	return e, false, err
}

// Analyze parses and scopes a module without generating code.
func (ws *Workspace) Analyze(source, fileName string) (*compiler.Module, *compiler.SymbolTable, error) {
	root, err := compiler.Parse(fileName, source)
	if err != nil {
		return nil, nil, err
	}
	mod, err := compiler.AstFromParse(root, fileName)
	if err != nil {
		return nil, nil, err
	}
	st, err := compiler.BuildSymbolTable(mod, fileName)
	if err != nil {
		return nil, nil, err
	}
	return mod, st, nil
}

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*Workspace) any
	done chan workResult
}

// workResult holds the return value from a worker operation.
type workResult struct {
	value any
	err   error
}

// CompileWorker serializes all compiler access through a single goroutine.
// The cache has a single writer and compiles complete in submission order;
// the service, LSP and watcher all go through the worker.
type CompileWorker struct {
	ws       *Workspace
	requests chan workRequest
	quit     chan struct{}
	stopped  chan struct{}

	mu       sync.RWMutex
	closing  bool
	inflight sync.WaitGroup
}

// NewCompileWorker creates a CompileWorker and starts the processing goroutine.
func NewCompileWorker(ws *Workspace) *CompileWorker {
	if ws == nil {
		ws = &Workspace{Options: compiler.DefaultOptions()}
	}
	w := &CompileWorker{
		ws:       ws,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *CompileWorker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			// Drain whatever was queued before Stop.
			for {
				select {
				case req := <-w.requests:
					req.done <- w.execute(req.fn)
				default:
					return
				}
			}
		}
	}
}

// execute runs a function against the workspace, recovering from panics.
func (w *CompileWorker) execute(fn func(*Workspace) any) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("compile worker panic: %v", r)
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.ws)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *CompileWorker) Do(fn func(*Workspace) any) (any, error) {
	w.mu.RLock()
	if w.closing {
		w.mu.RUnlock()
		return nil, ErrWorkerStopped
	}
	w.inflight.Add(1)
	w.mu.RUnlock()
	defer w.inflight.Done()

	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Stop refuses new work, waits for queued requests to finish and shuts
// down the worker goroutine. It is safe to call more than once.
func (w *CompileWorker) Stop() {
	w.mu.Lock()
	if w.closing {
		w.mu.Unlock()
		<-w.stopped
		return
	}
	w.closing = true
	w.mu.Unlock()

	w.inflight.Wait()
	close(w.quit)
	<-w.stopped
}

// Options returns the workspace default compile options.
func (w *CompileWorker) Options() compiler.Options {
	return w.ws.Options
}
