// Package manifest handles pyjs.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/pyjs/compiler"
)

// FileName is the manifest file looked for in a project directory.
const FileName = "pyjs.toml"

// Manifest represents a pyjs.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Source  Source      `toml:"source"`
	Output  Output      `toml:"output"`
	Cache   CacheConfig `toml:"cache"`
	Server  Server      `toml:"server"`
	LSP     LSP         `toml:"lsp"`

	// Dir is the directory containing the pyjs.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Output configures where compiled modules go and how they are generated.
// Unset flags default to true.
type Output struct {
	Dir             string `toml:"dir"`
	Annotate        *bool  `toml:"annotate"`
	TimeLimitChecks *bool  `toml:"time-limit-checks"`
}

// CacheConfig selects the compile cache database.
type CacheConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// Server configures the compile service.
type Server struct {
	Addr string `toml:"addr"`
}

// LSP configures the language server. The protocol owns stdout, so its
// log goes to a file.
type LSP struct {
	LogFile string `toml:"log-file"`
}

// Defaults.
const (
	DefaultSourceDir   = "src"
	DefaultOutputDir   = "build"
	DefaultCacheDriver = "sqlite"
	DefaultCachePath   = ".pyjs/cache.db"
	DefaultAddr        = "localhost:8620"
)

// Load parses a pyjs.toml file from the given directory, validates it
// against the schema and applies environment overrides.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest text, then fills in defaults and
// environment overrides. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.applyDefaults()
	m.ApplyEnv()
	if err := Validate(m.values()); err != nil {
		return nil, fmt.Errorf("after environment overrides: %w", err)
	}
	return &m, nil
}

// Default returns the manifest used when a directory has no pyjs.toml.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs}
	m.applyDefaults()
	m.ApplyEnv()
	if err := Validate(m.values()); err != nil {
		return nil, fmt.Errorf("after environment overrides: %w", err)
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{DefaultSourceDir}
	}
	if m.Output.Dir == "" {
		m.Output.Dir = DefaultOutputDir
	}
	if m.Cache.Driver == "" {
		m.Cache.Driver = DefaultCacheDriver
	}
	if m.Cache.Path == "" {
		m.Cache.Path = DefaultCachePath
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
}

// FindAndLoad walks up from startDir to find a pyjs.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Options returns the compile options the manifest selects.
func (m *Manifest) Options() compiler.Options {
	opts := compiler.DefaultOptions()
	if m.Output.Annotate != nil {
		opts.AnnotateSource = *m.Output.Annotate
	}
	if m.Output.TimeLimitChecks != nil {
		opts.TimeLimitChecks = *m.Output.TimeLimitChecks
	}
	return opts
}

func (m *Manifest) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.abs(d))
	}
	return paths
}

// OutputDirPath returns the absolute output directory.
func (m *Manifest) OutputDirPath() string { return m.abs(m.Output.Dir) }

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string { return m.abs(m.Cache.Path) }

// EntryPath returns the absolute path of the entry module, or "" when none
// is configured. The entry is relative to the first source directory.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Source.Entry) {
		return m.Source.Entry
	}
	return filepath.Join(m.SourceDirPaths()[0], m.Source.Entry)
}

// values renders the manifest in the shape of the TOML document, for
// validation.
func (m *Manifest) values() map[string]any {
	output := map[string]any{"dir": m.Output.Dir}
	if m.Output.Annotate != nil {
		output["annotate"] = *m.Output.Annotate
	}
	if m.Output.TimeLimitChecks != nil {
		output["time-limit-checks"] = *m.Output.TimeLimitChecks
	}
	dirs := make([]any, len(m.Source.Dirs))
	for i, d := range m.Source.Dirs {
		dirs[i] = d
	}
	source := map[string]any{"dirs": dirs}
	if m.Source.Entry != "" {
		source["entry"] = m.Source.Entry
	}
	project := map[string]any{}
	if m.Project.Name != "" {
		project["name"] = m.Project.Name
	}
	if m.Project.Version != "" {
		project["version"] = m.Project.Version
	}
	return map[string]any{
		"project": project,
		"source":  source,
		"output":  output,
		"cache":   map[string]any{"driver": m.Cache.Driver, "path": m.Cache.Path},
		"server":  map[string]any{"addr": m.Server.Addr},
		"lsp":     map[string]any{"log-file": m.LSP.LogFile},
	}
}
