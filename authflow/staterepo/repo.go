package staterepo

import "time"

// FlowState is the per-login-attempt record keyed by the state parameter.
// It lives only between the redirect to the provider and the callback.
type FlowState struct {
	SessionID string
	Nonce     string
	ReturnURL string
	CreatedAt time.Time
}

// Repo stores pending login attempts. Consume must be atomic: once a state
// value has been consumed it must never validate a second callback.
type Repo interface {
	Save(state string, flowState *FlowState) error
	Consume(state string) (*FlowState, error)
}
