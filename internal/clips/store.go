package clips

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/logging"
)

// Store is the process-wide registry of live sessions. It is the in-memory
// authority for session state; durability belongs to the snapshot writer.
// The map lock is never held while waiting on a session's mutation lock.
type Store struct {
	clock  clockwork.Clock
	logger *slog.Logger
	newID  func() string

	mu      sync.RWMutex
	entries map[string]*entry

	// OnSizeChange, when set, is called with the new session count after
	// every insertion or eviction.
	OnSizeChange func(n int)
	// OnEvict, when set, receives the identifiers removed by EvictIdle.
	OnEvict func(ids []string)
}

type entry struct {
	session    *Session
	lastAccess atomic.Int64 // unix nanos
}

func (e *entry) touch(now time.Time) {
	e.lastAccess.Store(now.UnixNano())
}

// NewStore creates an empty store.
func NewStore(clock clockwork.Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:   clock,
		logger:  logging.OrDiscard(logger),
		newID:   NewSessionID,
		entries: make(map[string]*entry),
	}
}

// NewSessionID returns a time-ordered unique session identifier.
func NewSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Create registers a new empty session and returns it.
func (s *Store) Create() *Session {
	now := s.clock.Now()
	session := newSession(s.newID(), now)
	s.put(session, now)
	return session
}

// Get returns the session registered under id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, apperrors.NotFound("session %s not found", id)
	}
	e.touch(s.clock.Now())
	return e.session, nil
}

// Register inserts session, replacing any live session with the same id.
func (s *Store) Register(session *Session) {
	s.put(session, s.clock.Now())
}

func (s *Store) put(session *Session, now time.Time) {
	e := &entry{session: session}
	e.touch(now)

	s.mu.Lock()
	_, replaced := s.entries[session.ID()]
	s.entries[session.ID()] = e
	n := len(s.entries)
	s.mu.Unlock()

	if replaced {
		s.logger.Info("session replaced", "session_id", session.ID())
	}
	s.sizeChanged(n)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// EvictIdle removes every session not accessed within ttl of now and returns
// the evicted identifiers.
func (s *Store) EvictIdle(now time.Time, ttl time.Duration) []string {
	cutoff := now.Add(-ttl).UnixNano()

	var evicted []string
	s.mu.Lock()
	for id, e := range s.entries {
		if e.lastAccess.Load() < cutoff {
			delete(s.entries, id)
			evicted = append(evicted, id)
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	if len(evicted) > 0 {
		s.logger.Info("evicted idle sessions", "count", len(evicted), "ttl", ttl.String())
		s.sizeChanged(n)
		if s.OnEvict != nil {
			s.OnEvict(evicted)
		}
	}
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is done. A
// non-positive ttl disables eviction.
func (s *Store) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.EvictIdle(s.clock.Now(), ttl)
		}
	}
}

func (s *Store) sizeChanged(n int) {
	if s.OnSizeChange != nil {
		s.OnSizeChange(n)
	}
}
