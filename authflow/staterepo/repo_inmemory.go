package staterepo

import (
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
)

// DefaultTTL bounds how long a login attempt may sit between the redirect to
// the provider and the callback.
const DefaultTTL = 10 * time.Minute

// InMemoryRepo is a thread-safe in-memory implementation of Repo. Entries
// expire after the configured TTL; expired entries fail Consume the same way
// unknown ones do.
type InMemoryRepo struct {
	mu     sync.Mutex
	states map[string]*FlowState
	ttl    time.Duration
}

// NewInMemoryRepo creates a repo with the given TTL. Zero means DefaultTTL.
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryRepo{
		states: make(map[string]*FlowState),
		ttl:    ttl,
	}
}

// Save stores a pending login attempt keyed by its state value.
func (r *InMemoryRepo) Save(state string, flowState *FlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flowState == nil {
		return errors.New("flowState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *flowState
	r.states[state] = &stored
	return nil
}

// Consume atomically retrieves and deletes the flow state, guaranteeing
// single use. Unknown, already-consumed and expired states all fail with
// apperrors.ErrInvalidState.
func (r *InMemoryRepo) Consume(state string) (*FlowState, error) {
	if state == "" {
		return nil, apperrors.ErrInvalidState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flowState, ok := r.states[state]
	if !ok {
		return nil, apperrors.ErrInvalidState
	}
	delete(r.states, state)

	if time.Since(flowState.CreatedAt) > r.ttl {
		return nil, apperrors.ErrInvalidState
	}

	out := *flowState
	return &out, nil
}
