package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/internal/metrics"
	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/network"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

// ProfileSource returns connection profiles by organization id or MSP id.
type ProfileSource interface {
	Get(orgID string) (*network.ConnectionProfile, error)
}

// Manager opens identity-scoped sessions.
type Manager struct {
	identities identity.Store
	profiles   ProfileSource
	connector  Connector
	logger     *zap.Logger
}

// NewManager creates a session manager.
func NewManager(identities identity.Store, profiles ProfileSource, connector Connector, opts ...Option) *Manager {
	s := applyOptions(opts)
	return &Manager{
		identities: identities,
		profiles:   profiles,
		connector:  connector,
		logger:     s.logger,
	}
}

// WithSession resolves identityName, opens a session as that identity, runs
// fn and closes the session before returning. fn is never called when the
// session could not be established. A panic in fn is recovered and returned
// as an internal error after the session is closed.
func (m *Manager) WithSession(ctx context.Context, identityName string, fn func(*Session) error) (err error) {
	defer func() {
		if err != nil {
			metrics.SessionErrors.WithLabelValues(apperrors.KindOf(err).String()).Inc()
		}
	}()

	if identityName == "" {
		return apperrors.ValidationError(nil, "identity name is required")
	}

	id, err := m.identities.Get(ctx, identityName)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return apperrors.IdentityNotFoundError(err, fmt.Sprintf("identity %q not found", identityName))
		}
		return apperrors.GeneralError(fmt.Errorf("resolve identity: %w", err))
	}

	profile, err := m.profiles.Get(id.OrganizationName)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindConfig) {
			// fall back to the membership id before giving up
			if p, mspErr := m.profiles.Get(id.MSPID); mspErr == nil {
				profile, err = p, nil
			}
		}
		if err != nil {
			return err
		}
	}

	conn, err := m.connector.Connect(ctx, profile, id)
	if err != nil {
		var svcErr *apperrors.ServiceError
		if errors.As(err, &svcErr) {
			return err
		}
		return apperrors.ConnectionError(err, "failed to establish ledger session")
	}

	// the connection is released on every path from here on, including a
	// panic while binding the contract
	sessionID := uuid.NewString()
	log := m.logger.With(zap.String("session_id", sessionID), zap.String("identity", id.Name))
	metrics.SessionsOpened.Inc()
	var handle *ledger.Handle
	defer func() {
		if handle != nil {
			handle.Invalidate()
		}
		if cerr := conn.Close(); cerr != nil {
			log.Warn("failed to close ledger connection", zap.Error(cerr))
		}
		metrics.SessionsClosed.Inc()
		log.Debug("session closed")
	}()

	var fnErr error
	recovered := panics.Try(func() {
		handle = ledger.NewHandle(conn.Contract(profile.Channel, profile.Chaincode), m.logger)
		log.Debug("session opened", zap.String("profile", profile.Name))
		fnErr = fn(&Session{id: sessionID, identity: id, profile: profile, handle: handle})
	})
	if recovered != nil {
		log.Error("panic inside session", zap.String("panic", recovered.String()))
		return apperrors.GeneralError(recovered.AsError())
	}
	return fnErr
}
