// pyjs CLI - compiles Python modules to JavaScript
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/pyjs/cache"
	"github.com/chazu/pyjs/manifest"
	"github.com/chazu/pyjs/server"
	"github.com/chazu/pyjs/watch"
)

var log = commonlog.GetLogger("pyjs")

func main() {
	os.Exit(run())
}

// run parses flags and dispatches to one mode, returning the exit code.
func run() int {
	outDir := flag.String("o", "", "Write name.js files into this directory instead of stdout")
	dumpKind := flag.String("dump", "", "Print a pipeline stage instead of compiling: "+strings.Join(server.DumpKinds, "|"))
	interactive := flag.Bool("i", false, "Start interactive REPL")
	check := flag.Bool("check", false, "Compile and validate the generated JavaScript")
	serveMode := flag.Bool("serve", false, "Start the compile server (Connect over HTTP/1.1, gRPC over h2c)")
	addr := flag.String("addr", "", "Compile server address (default from pyjs.toml, else "+manifest.DefaultAddr+")")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	watchMode := flag.Bool("watch", false, "Recompile source directories as files change")
	remote := flag.String("remote", "", "Send compile work to the compile server at this address")
	noAnnotate := flag.Bool("no-annotate", false, "Omit source line tracking from the output")
	noTimeChecks := flag.Bool("no-time-checks", false, "Omit execution time limit checks from the output")
	verbose := flag.Bool("v", false, "Verbose output")
	useCache := flag.Bool("cache", false, "Use the compile cache configured in pyjs.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pyjs [options] [file.py ...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles Python modules to JavaScript. With no files and a pyjs.toml\n")
		fmt.Fprintf(os.Stderr, "in scope, builds the project; otherwise starts the REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pyjs hello.py                  # Print compiled JavaScript\n")
		fmt.Fprintf(os.Stderr, "  pyjs -o build a.py b.py        # Write build/a.js and build/b.js\n")
		fmt.Fprintf(os.Stderr, "  pyjs -dump symtab hello.py     # Show the symbol table\n")
		fmt.Fprintf(os.Stderr, "  pyjs -check src/*.py           # Validate generated code\n")
		fmt.Fprintf(os.Stderr, "  pyjs -watch                    # Rebuild the project on change\n")
		fmt.Fprintf(os.Stderr, "  pyjs -serve -addr :8620        # Start the compile server\n")
		fmt.Fprintf(os.Stderr, "  pyjs -remote localhost:8620 hello.py\n")
	}
	flag.Parse()

	if *dumpKind != "" && !slices.Contains(server.DumpKinds, *dumpKind) {
		return fail(fmt.Errorf("unknown dump kind %q (want %s)", *dumpKind, strings.Join(server.DumpKinds, "|")))
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fail(err)
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return fail(err)
	}
	haveManifest := m != nil
	if m == nil {
		if m, err = manifest.Default(cwd); err != nil {
			return fail(err)
		}
	}

	configureLogging(*verbose, *lspMode, m)

	opts := m.Options()
	if *noAnnotate {
		opts.AnnotateSource = false
	}
	if *noTimeChecks {
		opts.TimeLimitChecks = false
	}
	ws := &server.Workspace{Options: opts}

	if *useCache {
		path := m.CachePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fail(err)
		}
		c, err := cache.Open(m.Cache.Driver, path)
		if err != nil {
			return fail(err)
		}
		defer c.Close()
		ws.Cache = c
		log.Infof("using %s cache at %s", c.Driver(), path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverAddr := *addr
	if serverAddr == "" {
		serverAddr = m.Server.Addr
	}

	switch {
	case *serveMode:
		return fail(serve(ctx, ws, serverAddr))
	case *lspMode:
		return fail(server.NewLSP(ws).Run())
	case *watchMode:
		return fail(watchProject(ctx, ws, m, *outDir))
	}

	var b backend
	if *remote != "" {
		client, err := server.NewRemoteClient(*remote)
		if err != nil {
			return fail(err)
		}
		defer client.Close()
		b = &remoteBackend{client: client, annotate: opts.AnnotateSource, checks: opts.TimeLimitChecks}
	} else {
		worker := server.NewCompileWorker(ws)
		defer worker.Stop()
		b = &localBackend{worker: worker}
	}

	files := flag.Args()
	if *interactive || (len(files) == 0 && !haveManifest) {
		newREPL(b, os.Stdin, os.Stdout).run(ctx)
		return 0
	}
	if len(files) == 0 {
		return fail(buildProject(ctx, ws, m, *outDir))
	}

	failed := 0
	for _, file := range files {
		if err := compileFile(ctx, b, file, *dumpKind, *check, *outDir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// compileFile handles one command-line file according to the mode flags.
func compileFile(ctx context.Context, b backend, file, dumpKind string, check bool, outDir string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	source := string(data)

	switch {
	case dumpKind != "":
		text, err := b.Dump(ctx, dumpKind, file, source)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	case check:
		problems, err := b.Check(ctx, file, source)
		if err != nil {
			return err
		}
		if len(problems) > 0 {
			return errors.New(strings.Join(problems, "\n"))
		}
		log.Noticef("%s: ok", file)
		return nil
	}

	code, err := b.Compile(ctx, file, source)
	if err != nil {
		return err
	}
	if outDir == "" {
		fmt.Println(code)
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(file), ".py")+".js")
	if err := os.WriteFile(out, []byte(code), 0o644); err != nil {
		return err
	}
	log.Infof("%s -> %s", file, out)
	return nil
}

// newWatcher builds a watcher over the manifest's source dirs that
// compiles through a worker.
func newWatcher(ws *server.Workspace, m *manifest.Manifest, outDir string) (*watch.Watcher, *server.CompileWorker, error) {
	if outDir == "" {
		outDir = m.OutputDirPath()
	}
	worker := server.NewCompileWorker(ws)
	w, err := watch.New(watch.Options{
		SourceDirs: m.SourceDirPaths(),
		OutDir:     outDir,
		Compile: func(ctx context.Context, fileName, source string) (string, error) {
			b := localBackend{worker: worker}
			return b.Compile(ctx, fileName, source)
		},
	})
	if err != nil {
		worker.Stop()
		return nil, nil, err
	}
	return w, worker, nil
}

func buildProject(ctx context.Context, ws *server.Workspace, m *manifest.Manifest, outDir string) error {
	w, worker, err := newWatcher(ws, m, outDir)
	if err != nil {
		return err
	}
	defer worker.Stop()
	defer w.Close()

	failed, err := w.BuildAll(ctx)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d files failed to compile", failed)
	}
	return nil
}

func watchProject(ctx context.Context, ws *server.Workspace, m *manifest.Manifest, outDir string) error {
	w, worker, err := newWatcher(ws, m, outDir)
	if err != nil {
		return err
	}
	defer worker.Stop()
	defer w.Close()
	return w.Run(ctx)
}

func serve(ctx context.Context, ws *server.Workspace, addr string) error {
	srv := server.New(ws)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %s", err)
		}
	}()
	return srv.ListenAndServe(addr)
}

// configureLogging sets the commonlog verbosity from -v and
// PYJS_LOG_LEVEL. The language server owns stdout, so in LSP mode logs go
// to the manifest's log file when one is set.
func configureLogging(verbose, lsp bool, m *manifest.Manifest) {
	def := 0
	if verbose {
		def = 2
	}
	var path *string
	if lsp && m.LSP.LogFile != "" {
		p := m.LSP.LogFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Dir, p)
		}
		path = &p
	}
	commonlog.Configure(manifest.LogVerbosity(def), path)
}

// fail prints err and returns the exit code for it; nil means success.
func fail(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
