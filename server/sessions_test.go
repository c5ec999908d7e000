package server

import (
	"strings"
	"testing"
	"time"

	"github.com/chazu/pyjs/compiler"
)

// feedAll feeds lines in order and returns the last result.
func feedAll(t *testing.T, s *Session, lines ...string) FeedResult {
	t.Helper()
	var res FeedResult
	for i, line := range lines {
		var err error
		res, err = s.Feed(line)
		if err != nil {
			t.Fatalf("Feed(%q): %v", line, err)
		}
		if i < len(lines)-1 && res.Done {
			t.Fatalf("done early at line %d %q", i, line)
		}
	}
	return res
}

func TestSessionSimpleStatement(t *testing.T) {
	store := NewSessionStore()
	s := store.Create("")
	if s.FileName != "<stdin>" {
		t.Errorf("FileName = %q, want <stdin>", s.FileName)
	}

	res := feedAll(t, s, "x = 1", "")
	if !res.Done {
		t.Fatal("not done after blank line")
	}
	if !strings.HasPrefix(res.Dump, "file_input") {
		t.Errorf("dump does not start at file_input:\n%s", res.Dump)
	}
	if res.Source != "x = 1\n" {
		t.Errorf("source = %q", res.Source)
	}
}

func TestSessionCompoundStatement(t *testing.T) {
	s := NewSessionStore().Create("repl")
	res := feedAll(t, s, "def f(a):\n", "    return a\n", "\n")
	if !res.Done {
		t.Fatal("not done after blank line")
	}
	if res.Source != "def f(a):\n    return a\n" {
		t.Errorf("source = %q", res.Source)
	}
	if !strings.Contains(res.Dump, "funcdef") {
		t.Errorf("dump lacks funcdef:\n%s", res.Dump)
	}

	// The session starts over for the next input.
	res = feedAll(t, s, "y = 2", "")
	if res.Source != "y = 2\n" {
		t.Errorf("second source = %q", res.Source)
	}
}

func TestSessionErrorResets(t *testing.T) {
	s := NewSessionStore().Create("")
	_, err := s.Feed("x = = 1")
	cerr, ok := compiler.AsError(err)
	if !ok {
		t.Fatalf("err = %v, want a compiler error", err)
	}
	if cerr.Line != 1 || cerr.Col != 4 {
		t.Errorf("error at %d:%d, want 1:4", cerr.Line, cerr.Col)
	}

	res := feedAll(t, s, "z = 3", "")
	if !res.Done || res.Source != "z = 3\n" {
		t.Errorf("after reset: %+v", res)
	}
}

func TestSessionIncompleteAtEnd(t *testing.T) {
	s := NewSessionStore().Create("")
	if _, err := s.Feed("x = (1,"); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	_, err := s.Feed("")
	if !compiler.IsIncomplete(err) {
		t.Errorf("err = %v, want incomplete input", err)
	}
}

func TestSessionBlankLineInsideContinuation(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"bracket", []string{"x = (1,", "\n", "  2)", "\n"}, "x = (1,\n\n  2)\n"},
		{"string", []string{"s = '''a", "   ", "b'''", "\n"}, "s = '''a\n   \nb'''\n"},
	}
	for _, tc := range tests {
		s := NewSessionStore().Create("")
		res := feedAll(t, s, tc.lines...)
		if !res.Done {
			t.Errorf("%s: not done", tc.name)
			continue
		}
		if res.Source != tc.want {
			t.Errorf("%s: source = %q, want %q", tc.name, res.Source, tc.want)
		}
	}
}

func TestSessionBlankOnEmpty(t *testing.T) {
	s := NewSessionStore().Create("")
	res, err := s.Feed("")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Done || res.Dump != "" {
		t.Errorf("blank feed on empty session = %+v", res)
	}
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()
	a := store.Create("a")
	b := store.Create("b")
	if a.ID == b.ID {
		t.Fatal("session ids collide")
	}
	if len(a.ID) != 36 {
		t.Errorf("id %q is not a uuid", a.ID)
	}
	if got, ok := store.Get(a.ID); !ok || got != a {
		t.Error("Get did not return the created session")
	}
	store.Destroy(a.ID)
	if _, ok := store.Get(a.ID); ok {
		t.Error("session survived Destroy")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestSessionSweep(t *testing.T) {
	store := NewSessionStore()
	old := store.Create("old")
	old.lastUsed = time.Now().Add(-time.Hour)
	fresh := store.Create("fresh")

	if n := store.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if _, ok := store.Get(old.ID); ok {
		t.Error("idle session kept")
	}
	if _, ok := store.Get(fresh.ID); !ok {
		t.Error("fresh session swept")
	}
}
