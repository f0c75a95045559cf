package network

import (
	"fmt"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

// ConnectionProfile is everything a session needs to reach the network as a
// member of one organization. It holds file paths, never key material.
type ConnectionProfile struct {
	Name                   string                 `json:"name"`
	Channel                string                 `json:"channel"`
	Chaincode              string                 `json:"chaincode"`
	Organization           Organization           `json:"organization"`
	Peers                  []Endpoint             `json:"peers"`
	Orderers               []Endpoint             `json:"orderers"`
	CertificateAuthorities []CertificateAuthority `json:"certificateAuthorities"`
}

// GatewayPeer returns the peer sessions connect through.
func (p *ConnectionProfile) GatewayPeer() Endpoint {
	return p.Peers[0]
}

// Build assembles the connection profile of orgID. It fails with a config
// error when the organization or any of its endpoints are missing.
func Build(t *Topology, orgID string) (*ConnectionProfile, error) {
	if t == nil {
		return nil, apperrors.ConfigError(nil, "network topology is not loaded")
	}
	org, ok := t.Organization(orgID)
	if !ok {
		return nil, apperrors.ConfigError(nil, fmt.Sprintf("organization %q is not part of the network", orgID))
	}
	if org.MSPID == "" {
		return nil, apperrors.ConfigError(nil, fmt.Sprintf("organization %q has no msp id", org.ID))
	}
	if len(org.Peers) == 0 {
		return nil, apperrors.ConfigError(nil, fmt.Sprintf("organization %q has no peers", org.ID))
	}
	for _, peer := range org.Peers {
		if peer.Address == "" {
			return nil, apperrors.ConfigError(nil, fmt.Sprintf("peer %q of %q has no endpoint", peer.Name, org.ID))
		}
	}

	orderers := append(append([]Endpoint{}, org.Orderers...), t.Orderers...)
	if len(orderers) == 0 {
		return nil, apperrors.ConfigError(nil, "network topology has no orderers")
	}
	if len(org.CertificateAuthorities) == 0 {
		return nil, apperrors.ConfigError(nil, fmt.Sprintf("organization %q has no certificate authority", org.ID))
	}

	return &ConnectionProfile{
		Name:                   fmt.Sprintf("%s-%s", networkName(t), org.ID),
		Channel:                t.Channel,
		Chaincode:              t.Chaincode,
		Organization:           *org,
		Peers:                  append([]Endpoint{}, org.Peers...),
		Orderers:               orderers,
		CertificateAuthorities: append([]CertificateAuthority{}, org.CertificateAuthorities...),
	}, nil
}

func networkName(t *Topology) string {
	if t.Name != "" {
		return t.Name
	}
	return "network"
}
