// ABOUTME: In-memory session store with TTL cleanup and capacity limits.
// ABOUTME: Evicted and expired sessions are closed so their layout runners stop.
package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds live sessions keyed by uuid.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	onChange    func(n int)
}

// NewStore creates a store holding at most maxSessions sessions, each
// expiring ttl after its last access.
func NewStore(maxSessions int, ttl time.Duration) *Store {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		onChange:    func(int) {},
	}
}

// Add registers sess under a fresh ID, evicting the least recently used
// session when the store is full.
func (s *Store) Add(sess *Session) string {
	var evicted *Session

	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		var oldestID string
		var oldest time.Time
		for id, existing := range s.sessions {
			if last := existing.LastAccess(); oldest.IsZero() || last.Before(oldest) {
				oldestID = id
				oldest = last
			}
		}
		evicted = s.sessions[oldestID]
		delete(s.sessions, oldestID)
	}
	sess.ID = uuid.New().String()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	s.onChange(n)
	return sess.ID
}

// Get retrieves a session by ID and marks it accessed.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.Touch()
	return sess, true
}

// Delete closes and removes a session. It reports whether one existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if ok {
		sess.Close()
		s.onChange(n)
	}
	return ok
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup closes and removes sessions idle longer than the TTL.
func (s *Store) Cleanup() int {
	cutoff := time.Now().Add(-s.ttl)
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastAccess().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		s.onChange(n)
	}
	return len(expired)
}

// StartCleanup runs Cleanup every interval and returns a stop function.
func (s *Store) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
}

// CloseAll closes and removes every session.
func (s *Store) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.Close()
	}
	s.onChange(0)
}
