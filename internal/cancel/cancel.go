// Package cancel provides the cooperative cancellation primitives shared by
// the pipeline and its callers. A run's token is set from outside the worker
// and polled at stage boundaries; once set it is terminal for that run.
package cancel

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrCancelled signals a cooperative abort. It is a distinct result variant,
// not an error state: callers are expected to branch on errors.Is rather than
// matching message strings.
var ErrCancelled = errors.New("run cancelled")

// Token is an externally settable boolean flag. Polled, never awaited.
type Token struct {
	flag atomic.Bool
}

// NewToken returns an unset token.
func NewToken() *Token { return &Token{} }

// Cancel sets the token. Setting is terminal for the run it guards.
func (t *Token) Cancel() { t.flag.Store(true) }

// Cancelled reports whether the token has been set. Safe for concurrent use.
func (t *Token) Cancelled() bool {
	return t != nil && t.flag.Load()
}

// Err returns ErrCancelled when the token is set, nil otherwise.
func (t *Token) Err() error {
	if t.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Registry maps run identifiers to their cancellation tokens. It is the only
// process-wide state shared across concurrent pipeline runs and supports safe
// concurrent insertion, lookup, and removal by non-overlapping run IDs.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*Token)}
}

// Register creates and stores a fresh token for the given run ID, replacing
// any previous token under the same ID.
func (r *Registry) Register(runID string) *Token {
	t := NewToken()
	r.mu.Lock()
	r.tokens[runID] = t
	r.mu.Unlock()
	return t
}

// Lookup returns the token registered for runID, if any.
func (r *Registry) Lookup(runID string) (*Token, bool) {
	r.mu.RLock()
	t, ok := r.tokens[runID]
	r.mu.RUnlock()
	return t, ok
}

// Cancel sets the token for runID and reports whether one was registered.
func (r *Registry) Cancel(runID string) bool {
	t, ok := r.Lookup(runID)
	if ok {
		t.Cancel()
	}
	return ok
}

// Remove discards the token for runID. Tokens are created before and removed
// after the single run they guard.
func (r *Registry) Remove(runID string) {
	r.mu.Lock()
	delete(r.tokens, runID)
	r.mu.Unlock()
}
