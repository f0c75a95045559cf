// Package network builds per-organization connection profiles from the
// network topology document.
package network

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

// Topology describes the permissioned network the gateway talks to.
type Topology struct {
	Name          string         `yaml:"name"`
	Channel       string         `yaml:"channel"`
	Chaincode     string         `yaml:"chaincode"`
	Organizations []Organization `yaml:"organizations"`
	Orderers      []Endpoint     `yaml:"orderers"`
}

// Organization is one member of the network.
type Organization struct {
	ID                     string                 `yaml:"id" json:"id"`
	MSPID                  string                 `yaml:"mspId" json:"mspId"`
	Domain                 string                 `yaml:"domain" json:"domain"`
	Type                   string                 `yaml:"type" json:"type"`
	Peers                  []Endpoint             `yaml:"peers" json:"-"`
	Orderers               []Endpoint             `yaml:"orderers" json:"-"`
	CertificateAuthorities []CertificateAuthority `yaml:"certificateAuthorities" json:"-"`
}

// Endpoint is a peer or orderer reachable over gRPC.
type Endpoint struct {
	Name         string `yaml:"name" json:"name"`
	Address      string `yaml:"endpoint" json:"endpoint"`
	TLSCACert    string `yaml:"tlsCACert" json:"tlsCACert,omitempty"`
	HostOverride string `yaml:"hostOverride" json:"hostOverride,omitempty"`
}

// CertificateAuthority is an organization CA.
type CertificateAuthority struct {
	Name      string `yaml:"name" json:"name"`
	URL       string `yaml:"url" json:"url"`
	TLSCACert string `yaml:"tlsCACert" json:"tlsCACert,omitempty"`
}

// ParseTopology decodes a YAML topology document.
func ParseTopology(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, apperrors.ConfigError(err, "invalid network topology")
	}
	if t.Channel == "" || t.Chaincode == "" {
		return nil, apperrors.ConfigError(nil, "network topology must name a channel and a chaincode")
	}
	return &t, nil
}

// LoadTopology reads and parses the topology file at path.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConfigError(fmt.Errorf("read topology: %w", err), "network topology not readable")
	}
	return ParseTopology(data)
}

// Organization returns the organization whose id or MSP id equals orgID.
func (t *Topology) Organization(orgID string) (*Organization, bool) {
	for i := range t.Organizations {
		org := &t.Organizations[i]
		if org.ID == orgID || org.MSPID == orgID {
			return org, true
		}
	}
	return nil, false
}
