// Package registry serves read-only views of the network and of the enrolled
// identities, so clients can discover whom they may act as.
package registry

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	apphttp "github.com/chainsafe/cbdc-gateway/pkg/app/http"
	"github.com/chainsafe/cbdc-gateway/pkg/app/result"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/network"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

// Profiles is the profile lookup the registry reads from.
type Profiles interface {
	Topology() *network.Topology
	Get(orgID string) (*network.ConnectionProfile, error)
}

// Registry answers network and identity discovery requests.
type Registry struct {
	profiles     Profiles
	identities   identity.Store
	organization string
	logger       *zap.Logger
}

// New creates a registry. organization is the profile returned when a
// request does not name one.
func New(profiles Profiles, identities identity.Store, organization string, logger *zap.Logger) *Registry {
	return &Registry{
		profiles:     profiles,
		identities:   identities,
		organization: organization,
		logger:       logger,
	}
}

// NetworkView is the network configuration exposed to clients. Credentials
// are never part of it.
type NetworkView struct {
	Name          string                     `json:"name"`
	Channel       string                     `json:"channel"`
	Chaincode     string                     `json:"chaincode"`
	Organizations []network.Organization     `json:"organizations"`
	Profile       *network.ConnectionProfile `json:"profile,omitempty"`
}

// Network returns the topology summary and the connection profile of orgID,
// or of the default organization when orgID is empty.
func (r *Registry) Network(orgID string) result.Result[NetworkView] {
	t := r.profiles.Topology()
	if t == nil {
		return result.Fail[NetworkView](apperrors.ConfigError(nil, "network topology is not loaded"))
	}
	view := NetworkView{
		Name:          t.Name,
		Channel:       t.Channel,
		Chaincode:     t.Chaincode,
		Organizations: t.Organizations,
	}

	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		orgID = r.organization
	}
	if orgID != "" {
		profile, err := r.profiles.Get(orgID)
		if err != nil {
			return result.Fail[NetworkView](err)
		}
		view.Profile = profile
	}
	return result.OK(view, "")
}

// Identities lists the enrolled identities without key material.
func (r *Registry) Identities(ctx context.Context) result.Result[[]identity.Summary] {
	list, err := r.identities.List(ctx)
	if err != nil {
		r.logger.Error("failed to list identities", zap.Error(err))
		return result.Fail[[]identity.Summary](apperrors.GeneralError(err))
	}
	return result.OK(list, "")
}

// RegisterRoutes registers GET /network and GET /identities on rt.
func RegisterRoutes(rt chi.Router, reg *Registry) {
	rt.Get("/network", func(w http.ResponseWriter, req *http.Request) {
		apphttp.WriteResult(w, reg.Network(req.URL.Query().Get("organization")))
	})
	rt.Get("/identities", func(w http.ResponseWriter, req *http.Request) {
		apphttp.WriteResult(w, reg.Identities(req.Context()))
	})
}
