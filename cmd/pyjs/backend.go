package main

import (
	"context"
	"fmt"

	"github.com/chazu/pyjs/cache"
	"github.com/chazu/pyjs/jscheck"
	"github.com/chazu/pyjs/server"
)

// backend is where the CLI sends compile work: the local worker or a
// remote compile server.
type backend interface {
	Compile(ctx context.Context, fileName, source string) (string, error)
	Dump(ctx context.Context, kind, fileName, source string) (string, error)
	// Check returns one formatted line per problem found.
	Check(ctx context.Context, fileName, source string) ([]string, error)
}

// ---------------------------------------------------------------------------
// Local backend
// ---------------------------------------------------------------------------

type localBackend struct {
	worker *server.CompileWorker
}

type localOutcome struct {
	entry *cache.Entry
	text  string
	err   error
}

func (b *localBackend) compile(ctx context.Context, fileName, source string) (*cache.Entry, error) {
	v, err := b.worker.Do(func(ws *server.Workspace) any {
		e, _, err := ws.Compile(ctx, source, fileName, ws.Options)
		return localOutcome{entry: e, err: err}
	})
	if err != nil {
		return nil, err
	}
	out := v.(localOutcome)
	return out.entry, out.err
}

func (b *localBackend) Compile(ctx context.Context, fileName, source string) (string, error) {
	e, err := b.compile(ctx, fileName, source)
	if err != nil {
		return "", err
	}
	return e.Result.Code, nil
}

func (b *localBackend) Dump(ctx context.Context, kind, fileName, source string) (string, error) {
	v, err := b.worker.Do(func(ws *server.Workspace) any {
		text, err := ws.Dump(ctx, kind, source, fileName)
		return localOutcome{text: text, err: err}
	})
	if err != nil {
		return "", err
	}
	out := v.(localOutcome)
	return out.text, out.err
}

func (b *localBackend) Check(ctx context.Context, fileName, source string) ([]string, error) {
	e, err := b.compile(ctx, fileName, source)
	if err != nil {
		return []string{err.Error()}, nil
	}
	var problems []string
	for _, d := range jscheck.Check(fileName, e.Result.Code) {
		problems = append(problems, fmt.Sprintf("%s: generated JavaScript: %s", fileName, d))
	}
	return problems, nil
}

// ---------------------------------------------------------------------------
// Remote backend
// ---------------------------------------------------------------------------

type remoteBackend struct {
	client   *server.RemoteClient
	annotate bool
	checks   bool
}

func (b *remoteBackend) Compile(ctx context.Context, fileName, source string) (string, error) {
	res, err := b.client.Compile(ctx, &server.CompileRequest{
		FileName:        fileName,
		Source:          source,
		Annotate:        &b.annotate,
		TimeLimitChecks: &b.checks,
	})
	if err != nil {
		return "", err
	}
	return res.Code, nil
}

func (b *remoteBackend) Dump(ctx context.Context, kind, fileName, source string) (string, error) {
	res, err := b.client.Parse(ctx, &server.ParseRequest{FileName: fileName, Source: source, Kind: kind})
	if err != nil {
		return "", err
	}
	return res.Dump, nil
}

func (b *remoteBackend) Check(ctx context.Context, fileName, source string) ([]string, error) {
	res, err := b.client.Check(ctx, &server.CheckRequest{FileName: fileName, Source: source})
	if err != nil {
		return nil, err
	}
	var problems []string
	for _, d := range res.Diagnostics {
		problems = append(problems, fmt.Sprintf("%s:%d:%d: %s: %s", fileName, d.Line, d.Col, d.Kind, d.Message))
	}
	return problems, nil
}
