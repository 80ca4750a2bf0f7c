package sessions

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
)

// InMemoryStore is a thread-safe in-memory session store. Sessions that sit
// idle longer than the configured timeout are treated as absent by Get and
// reclaimed by a background reaper.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewInMemoryStore creates a store with the given idle timeout and starts
// its reaper. Call Close to stop the reaper.
func NewInMemoryStore(idleTimeout time.Duration) *InMemoryStore {
	s := &InMemoryStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	go s.reap()
	return s
}

// Create makes a new anonymous session with a random identifier.
func (s *InMemoryStore) Create() (Session, error) {
	now := time.Now()
	session := Session{
		ID:         newSessionID(),
		CreatedAt:  now,
		LastAccess: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &session
	return copySession(&session), nil
}

// Get returns the session and touches its last-access time. Expired sessions
// are removed and reported as not found.
func (s *InMemoryStore) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, apperrors.ErrSessionNotFound
	}
	if s.expired(session, time.Now()) {
		delete(s.sessions, id)
		return Session{}, apperrors.ErrSessionNotFound
	}

	session.LastAccess = time.Now()
	return copySession(session), nil
}

// PutIdentity attaches an identity record to an existing session.
func (s *InMemoryStore) PutIdentity(id string, identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session, time.Now()) {
		return apperrors.ErrSessionNotFound
	}

	ident := identity
	session.Identity = &ident
	session.LastAccess = time.Now()
	return nil
}

// ClearIdentity removes the identity record from an existing session. The
// session itself survives; clearing an already anonymous session is a no-op.
func (s *InMemoryStore) ClearIdentity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session, time.Now()) {
		return apperrors.ErrSessionNotFound
	}

	session.Identity = nil
	session.LastAccess = time.Now()
	return nil
}

// Delete destroys the session. Deleting an unknown session is not an error.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Close stops the background reaper.
func (s *InMemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *InMemoryStore) expired(session *Session, now time.Time) bool {
	return s.idleTimeout > 0 && now.Sub(session.LastAccess) > s.idleTimeout
}

func (s *InMemoryStore) reap() {
	interval := s.idleTimeout
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, session := range s.sessions {
				if s.expired(session, now) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// copySession returns a detached copy so callers cannot mutate stored state.
func copySession(session *Session) Session {
	out := *session
	if session.Identity != nil {
		ident := *session.Identity
		out.Identity = &ident
	}
	return out
}
