package manifest

import (
	"github.com/xyproto/env/v2"
)

// Environment variables that override manifest settings.
const (
	EnvCacheDriver = "PYJS_CACHE_DRIVER"
	EnvCachePath   = "PYJS_CACHE_PATH"
	EnvAddr        = "PYJS_ADDR"
	EnvAnnotate    = "PYJS_ANNOTATE"
	EnvLogLevel    = "PYJS_LOG_LEVEL"
)

// ApplyEnv overrides manifest settings from the environment.
func (m *Manifest) ApplyEnv() {
	// env caches the environment on first use; re-read it so values set
	// after startup are seen.
	env.Load()
	m.Cache.Driver = env.Str(EnvCacheDriver, m.Cache.Driver)
	m.Cache.Path = env.Str(EnvCachePath, m.Cache.Path)
	m.Server.Addr = env.Str(EnvAddr, m.Server.Addr)
	if env.Has(EnvAnnotate) {
		annotate := env.Bool(EnvAnnotate)
		m.Output.Annotate = &annotate
	}
}

// LogVerbosity returns the verbosity from PYJS_LOG_LEVEL, or def when it is
// unset or not a number.
func LogVerbosity(def int) int {
	env.Load()
	return env.Int(EnvLogLevel, def)
}
