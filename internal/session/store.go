package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Store is an in-memory, mutex-guarded session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opt      analysis.Options
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewStore creates a store. ttl <= 0 disables expiry.
func NewStore(opt analysis.Options, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		opt:      opt,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With("component", "session-store"),
	}
}

// Create registers a new session for t.
func (st *Store) Create(t *dataset.Table) *Session {
	s := New(uuid.NewString(), t, st.opt, st.now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	n := len(st.sessions)
	st.mu.Unlock()
	st.logger.Info("session created", "session_id", s.ID, "file", s.Name, "rows", t.Rows(), "columns", len(t.Columns()), "sessions", n)
	return s
}

// Get returns the session and marks it as recently used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(st.now())
	return s, nil
}

// Replace swaps the dataset behind an existing session ID.
func (st *Store) Replace(id string, t *dataset.Table) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return nil, ErrNotFound
	}
	s := New(id, t, st.opt, st.now())
	st.sessions[id] = s
	st.logger.Info("session replaced", "session_id", id, "file", s.Name, "rows", t.Rows())
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Expire drops sessions idle for longer than the TTL and returns how many were removed.
func (st *Store) Expire(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastSeen()) > st.ttl {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (st *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || st.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := st.Expire(st.now()); n > 0 {
				st.logger.Info("expired idle sessions", "count", n, "remaining", st.Len())
			}
		}
	}
}
