// Package session scopes every ledger interaction to a short-lived,
// identity-bound connection. A session is opened for one logical operation
// and closed on every exit path, including panics.
package session

import (
	"context"

	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/network"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

// Session is an open connection acting as one identity.
type Session struct {
	id       string
	identity *identity.Identity
	profile  *network.ConnectionProfile
	handle   *ledger.Handle
}

// ID returns the unique id of the session, used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// Identity returns the identity the session acts as.
func (s *Session) Identity() *identity.Identity {
	return s.identity
}

// Profile returns the connection profile the session was opened with.
func (s *Session) Profile() *network.ConnectionProfile {
	return s.profile
}

// Submit runs a state-changing transaction.
func (s *Session) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return s.handle.Submit(ctx, fn, args...)
}

// Evaluate runs a read-only query.
func (s *Session) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return s.handle.Evaluate(ctx, fn, args...)
}

// Runner opens sessions. Services depend on this rather than on *Manager.
type Runner interface {
	WithSession(ctx context.Context, identityName string, fn func(*Session) error) error
}

// Do runs fn inside a session and returns its value.
func Do[T any](ctx context.Context, r Runner, identityName string, fn func(*Session) (T, error)) (T, error) {
	var out T
	err := r.WithSession(ctx, identityName, func(s *Session) error {
		v, err := fn(s)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
