// Package cache stores compiled modules in a SQL database keyed by a hash
// of the source text, the file name and the compile options.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/pyjs/compiler"
	"github.com/chazu/pyjs/compiler/hash"
	"github.com/tliron/commonlog"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("pyjs.cache")

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// ErrNotFound indicates the requested key has no record.
var ErrNotFound = errors.New("cache: not found")

// Entry is one cached compilation.
type Entry struct {
	Key      string
	Semantic string // content hash of the analyzed module
	Result   *compiler.Result
	Created  time.Time
}

// Cache is a persistent compile cache.
type Cache struct {
	db     *sql.DB
	driver string
	path   string
	mu     sync.Mutex
}

// Open opens (creating if needed) the cache database at path using the
// named driver. An empty path opens an in-memory database.
func Open(driver, path string) (*Cache, error) {
	dsn := path
	switch driver {
	case DriverSQLite:
		if path == "" {
			dsn = ":memory:"
		}
	case DriverDuckDB:
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", driver)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("cache: creating directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}
	if driver == DriverSQLite {
		// In-memory databases are per connection.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: setting busy timeout: %w", err)
		}
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS compiled (
		key TEXT PRIMARY KEY,
		semantic TEXT NOT NULL,
		data BLOB NOT NULL,
		created BIGINT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating table: %w", err)
	}

	log.Debugf("opened %s cache at %q", driver, path)
	return &Cache{db: db, driver: driver, path: path}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Driver returns the database driver name.
func (c *Cache) Driver() string { return c.driver }

// Key derives the cache key for compiling source under fileName with opts.
// Generated code embeds the file name and source lines, so all three take
// part.
func Key(source, fileName string, opts compiler.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d\x00%s\x00annotate=%t\x00timecheck=%t\x00",
		formatVersion, fileName, opts.AnnotateSource, opts.TimeLimitChecks)
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry stored under key, or ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		semantic string
		data     []byte
		created  int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT semantic, data, created FROM compiled WHERE key = ?", key,
	).Scan(&semantic, &data, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cache: querying entry: %w", err)
	}
	res, err := UnmarshalResult(data)
	if err != nil {
		// A record from another format version is as good as absent.
		log.Infof("dropping unreadable entry %s: %s", key, err)
		return nil, ErrNotFound
	}
	return &Entry{Key: key, Semantic: semantic, Result: res, Created: time.Unix(created, 0)}, nil
}

// Put stores an entry, replacing any previous one under the same key.
func (c *Cache) Put(ctx context.Context, e *Entry) error {
	data, err := MarshalResult(e.Result)
	if err != nil {
		return fmt.Errorf("cache: marshal result: %w", err)
	}
	created := e.Created
	if created.IsZero() {
		created = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO compiled (key, semantic, data, created) VALUES (?, ?, ?, ?)",
		e.Key, e.Semantic, data, created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache: saving entry: %w", err)
	}
	return nil
}

// Len returns the number of stored entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM compiled").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: counting entries: %w", err)
	}
	return n, nil
}

// Prune deletes entries created before cutoff and reports how many went.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.db.ExecContext(ctx, "DELETE FROM compiled WHERE created < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cache: pruning: %w", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache: pruning: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Compile-through
// ---------------------------------------------------------------------------

// Compile returns the cached result for source when there is one, and
// otherwise runs the pipeline and stores what it produced. The boolean
// reports a cache hit. Compile errors are returned unwrapped and are never
// cached.
func (c *Cache) Compile(ctx context.Context, source, fileName string, opts compiler.Options) (*Entry, bool, error) {
	key := Key(source, fileName, opts)
	e, err := c.Get(ctx, key)
	if err == nil {
		log.Debugf("hit %s (%s)", fileName, key[:12])
		return e, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	e, err = Build(source, fileName, opts)
	if err != nil {
		return nil, false, err
	}
	e.Key = key
	if err := c.Put(ctx, e); err != nil {
		return nil, false, err
	}
	log.Debugf("miss %s (%s)", fileName, key[:12])
	return e, false, nil
}

// Build runs the compiler pipeline once and also records the content hash
// of the analyzed module. The returned entry has no key.
func Build(source, fileName string, opts compiler.Options) (*Entry, error) {
	cst, err := compiler.Parse(fileName, source)
	if err != nil {
		return nil, err
	}
	mod, err := compiler.AstFromParse(cst, fileName)
	if err != nil {
		return nil, err
	}
	st, err := compiler.BuildSymbolTable(mod, fileName)
	if err != nil {
		return nil, err
	}
	digest, err := hash.HashModule(mod, st)
	if err != nil {
		return nil, err
	}
	res, err := compiler.Generate(mod, st, source, fileName, opts)
	if err != nil {
		return nil, err
	}
	return &Entry{Semantic: digest.String(), Result: res}, nil
}
