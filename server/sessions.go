package server

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/pyjs/compiler"
)

// Session is an interactive compile session. Lines are fed one at a time
// into a LineParser; the accumulated source is kept so the finished
// statement can be compiled.
type Session struct {
	ID       string
	Name     string
	FileName string

	mu       sync.Mutex
	parser   *compiler.LineParser
	source   strings.Builder
	lastUsed time.Time
}

// FeedResult reports what a fed line produced.
type FeedResult struct {
	Done   bool
	Dump   string
	Source string
}

// Feed supplies one line. The empty string ends the current input, as does
// a blank line outside brackets and multi-line strings. While more input is
// needed Done is false. Once the parse
// completes the session is reset for the next input. A syntax error also
// resets the session.
func (s *Session) Feed(line string) (FeedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	end := line == "" || (strings.TrimSpace(line) == "" && !s.parser.InContinuation())
	if !end && !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if !end {
		s.source.WriteString(line)
		root, err := s.parser.Feed(line)
		if err != nil {
			s.reset()
			return FeedResult{}, err
		}
		if root == nil {
			return FeedResult{}, nil
		}
		return s.finish(root), nil
	}

	if s.source.Len() == 0 {
		return FeedResult{Done: true}, nil
	}
	root, err := s.parser.Feed("")
	if err != nil {
		s.reset()
		return FeedResult{}, err
	}
	return s.finish(root), nil
}

func (s *Session) finish(root *compiler.Node) FeedResult {
	res := FeedResult{Done: true, Dump: compiler.ParseTreeDump(root), Source: s.source.String()}
	s.reset()
	return res
}

func (s *Session) reset() {
	s.parser = compiler.NewLineParser(s.FileName)
	s.source.Reset()
}

// SessionStore manages interactive sessions keyed by uuid.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a new session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create creates a new session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	fileName := name
	if fileName == "" {
		fileName = "<stdin>"
	}
	session := &Session{
		ID:       uuid.NewString(),
		Name:     name,
		FileName: fileName,
		parser:   compiler.NewLineParser(fileName),
		lastUsed: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Debugf("session %s opened", session.ID)
	return session
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Destroy removes a session.
func (s *SessionStore) Destroy(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions that haven't been fed within the TTL.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, session := range s.sessions {
		session.mu.Lock()
		idle := session.lastUsed.Before(cutoff)
		session.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *SessionStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(ttl); n > 0 {
					log.Infof("swept %d idle sessions", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
