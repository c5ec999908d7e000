// Package watch recompiles Python sources into JavaScript as they change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pyjs.watch")

// CompileFunc turns one module's source into JavaScript.
type CompileFunc func(ctx context.Context, fileName, source string) (string, error)

// Build describes one recompiled (or removed) file.
type Build struct {
	Source  string
	Output  string
	Removed bool
	Err     error
}

// Options configures a Watcher.
type Options struct {
	SourceDirs []string
	OutDir     string
	Compile    CompileFunc

	// Debounce is how long the watcher waits for changes to settle.
	Debounce time.Duration
	// PollInterval forces the polling backend when non-zero.
	PollInterval time.Duration
	// OnBuild, when set, is called after every file is handled.
	OnBuild func(Build)
}

// Watcher recompiles changed .py files under the source dirs into OutDir.
type Watcher struct {
	opts   Options
	events eventSource
}

// eventSource delivers paths of changed .py files.
type eventSource interface {
	Events() <-chan string
	Close() error
}

// New creates a Watcher. It uses the native notification backend when
// available and polling otherwise.
func New(opts Options) (*Watcher, error) {
	if len(opts.SourceDirs) == 0 {
		return nil, errors.New("watch: no source directories")
	}
	if opts.OutDir == "" {
		return nil, errors.New("watch: no output directory")
	}
	if opts.Compile == nil {
		return nil, errors.New("watch: no compile function")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	for _, dir := range opts.SourceDirs {
		if st, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		} else if !st.IsDir() {
			return nil, fmt.Errorf("watch: %s is not a directory", dir)
		}
	}

	var src eventSource
	if opts.PollInterval == 0 {
		native, err := newNativeSource(opts.SourceDirs)
		if err == nil {
			src = native
		} else {
			log.Infof("native file notification unavailable (%s), polling", err)
			opts.PollInterval = time.Second
		}
	}
	if src == nil {
		src = newPollSource(opts.SourceDirs, opts.PollInterval)
	}
	return &Watcher{opts: opts, events: src}, nil
}

// Close stops the event backend.
func (w *Watcher) Close() error {
	return w.events.Close()
}

// OutputPath maps a source file to its JavaScript output path: the path
// relative to its source dir, rooted at the output dir, with a .js suffix.
func (w *Watcher) OutputPath(source string) string {
	rel := filepath.Base(source)
	for _, dir := range w.opts.SourceDirs {
		if r, err := filepath.Rel(dir, source); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
			break
		}
	}
	return filepath.Join(w.opts.OutDir, strings.TrimSuffix(rel, ".py")+".js")
}

// BuildAll compiles every .py file under the source dirs and returns the
// number of files that failed.
func (w *Watcher) BuildAll(ctx context.Context) (int, error) {
	var files []string
	for _, dir := range w.opts.SourceDirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".py" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("watch: %w", err)
		}
	}
	sort.Strings(files)

	failed := 0
	for _, f := range files {
		if b := w.build(ctx, f); b.Err != nil {
			failed++
		}
	}
	return failed, nil
}

// Run builds everything once, then recompiles files as they change until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.BuildAll(ctx); err != nil {
		return err
	}
	log.Noticef("watching %s", strings.Join(w.opts.SourceDirs, ", "))

	pending := make(map[string]bool)
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-w.events.Events():
			if !ok {
				return errors.New("watch: event source closed")
			}
			pending[path] = true
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				w.build(ctx, p)
			}
		}
	}
}

// build compiles one file, or removes its output when the file is gone.
func (w *Watcher) build(ctx context.Context, path string) Build {
	b := Build{Source: path, Output: w.OutputPath(path)}
	defer func() {
		if w.opts.OnBuild != nil {
			w.opts.OnBuild(b)
		}
	}()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		b.Removed = true
		if err := os.Remove(b.Output); err != nil && !errors.Is(err, fs.ErrNotExist) {
			b.Err = err
		}
		log.Infof("removed %s", b.Output)
		return b
	}
	if err != nil {
		b.Err = err
		log.Errorf("%s", err)
		return b
	}

	code, err := w.opts.Compile(ctx, path, string(data))
	if err != nil {
		b.Err = err
		log.Errorf("%s", err)
		return b
	}
	if err := os.MkdirAll(filepath.Dir(b.Output), 0o755); err != nil {
		b.Err = err
		return b
	}
	if err := os.WriteFile(b.Output, []byte(code), 0o644); err != nil {
		b.Err = err
		return b
	}
	log.Infof("%s -> %s", path, b.Output)
	return b
}
