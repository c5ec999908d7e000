package cache

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/chazu/pyjs/compiler"
)

func openTemp(t *testing.T, driver string) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "compiled."+driver)
	c, err := Open(driver, path)
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

const sample = "def f(a):\n    return a + 1\nx = f(1)\n"

func TestCompileThroughDrivers(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverDuckDB} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			c := openTemp(t, driver)

			first, hit, err := c.Compile(ctx, sample, "m.py", compiler.DefaultOptions())
			if err != nil {
				t.Fatalf("first Compile: %v", err)
			}
			if hit {
				t.Error("first Compile reported a hit")
			}
			second, hit, err := c.Compile(ctx, sample, "m.py", compiler.DefaultOptions())
			if err != nil {
				t.Fatalf("second Compile: %v", err)
			}
			if !hit {
				t.Error("second Compile missed")
			}
			if !reflect.DeepEqual(first.Result, second.Result) {
				t.Error("cached result differs from the compiled one")
			}
			if first.Semantic == "" || first.Semantic != second.Semantic {
				t.Errorf("semantic hash: %q then %q", first.Semantic, second.Semantic)
			}
			if n, err := c.Len(ctx); err != nil || n != 1 {
				t.Errorf("Len = %d, %v; want 1", n, err)
			}
		})
	}
}

func TestCompileMissesOnChangedOptions(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t, DriverSQLite)

	if _, _, err := c.Compile(ctx, sample, "m.py", compiler.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	e, hit, err := c.Compile(ctx, sample, "m.py", compiler.Options{AnnotateSource: true})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("changed option set hit the cache")
	}
	if _, hit, _ := c.Compile(ctx, sample, "other.py", compiler.DefaultOptions()); hit {
		t.Error("changed file name hit the cache")
	}
	if n, _ := c.Len(ctx); n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}
	if e.Result.Code == "" {
		t.Error("empty code")
	}
}

func TestCompileErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t, DriverSQLite)

	_, _, err := c.Compile(ctx, "x = = 1\n", "bad.py", compiler.DefaultOptions())
	if err == nil {
		t.Fatal("expected an error")
	}
	cerr, ok := compiler.AsError(err)
	if !ok {
		t.Fatalf("error %T is not a compiler error", err)
	}
	if cerr.Kind != compiler.ParseError {
		t.Errorf("kind = %s, want ParseError", cerr.Kind)
	}
	if n, _ := c.Len(ctx); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestGetMissing(t *testing.T) {
	c := openTemp(t, DriverSQLite)
	if _, err := c.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t, DriverSQLite)
	res, err := compiler.Compile("x = 1\n", "m.py")
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := c.Put(ctx, &Entry{Key: "old", Semantic: "s", Result: res, Created: old}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, &Entry{Key: "new", Semantic: "s", Result: res}); err != nil {
		t.Fatal(err)
	}
	n, err := c.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if _, err := c.Get(ctx, "new"); err != nil {
		t.Errorf("Get(new) after prune: %v", err)
	}
}

func TestInMemory(t *testing.T) {
	c, err := Open(DriverSQLite, "")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, _, err := c.Compile(context.Background(), "x = 1\n", "m.py", compiler.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Compile(context.Background(), "x = 1\n", "m.py", compiler.DefaultOptions()); !hit {
		t.Error("in-memory cache missed")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", ""); err == nil {
		t.Error("Open accepted driver mysql")
	}
}

func TestKey(t *testing.T) {
	opts := compiler.DefaultOptions()
	k := Key("x = 1\n", "m.py", opts)
	if len(k) != 64 {
		t.Errorf("key length = %d, want 64", len(k))
	}
	if k != Key("x = 1\n", "m.py", opts) {
		t.Error("Key is not deterministic")
	}
	for _, other := range []string{
		Key("x = 2\n", "m.py", opts),
		Key("x = 1\n", "n.py", opts),
		Key("x = 1\n", "m.py", compiler.Options{}),
	} {
		if other == k {
			t.Error("distinct inputs share a key")
		}
	}
}

func TestResultWire(t *testing.T) {
	res := &compiler.Result{
		FuncName: "$scope0",
		Code:     "var $scope0=1;",
		Units:    []compiler.UnitInfo{{Name: "<module>", ScopeName: "$scope0", Blocks: 2, SetupExcepts: 1, EndExcepts: 1}},
	}
	data, err := MarshalResult(res)
	if err != nil {
		t.Fatal(err)
	}
	again, err := MarshalResult(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(again) {
		t.Error("encoding is not deterministic")
	}
	got, err := UnmarshalResult(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, res) {
		t.Errorf("round trip = %+v, want %+v", got, res)
	}
	if _, err := UnmarshalResult([]byte{0xff}); err == nil {
		t.Error("UnmarshalResult accepted garbage")
	}
	stale, _ := cborEncMode.Marshal(&record{Version: formatVersion + 1})
	if _, err := UnmarshalResult(stale); err == nil {
		t.Error("UnmarshalResult accepted another format version")
	}
}
