package network

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

const topologyYAML = `
name: cbdc
channel: cbdc-channel
chaincode: cbdc
orderers:
  - name: orderer.example.com
    endpoint: localhost:7050
    tlsCACert: /crypto/orderer/tls/ca.crt
organizations:
  - id: CentralBank
    mspId: CentralBankMSP
    domain: cb.example.com
    type: central_bank
    peers:
      - name: peer0.cb.example.com
        endpoint: localhost:7051
        tlsCACert: /crypto/cb/tls/ca.crt
        hostOverride: peer0.cb.example.com
    certificateAuthorities:
      - name: ca.cb.example.com
        url: https://localhost:7054
  - id: BankA
    mspId: BankAMSP
    domain: bank-a.example.com
    type: commercial_bank
    peers:
      - name: peer0.bank-a.example.com
        endpoint: localhost:9051
    certificateAuthorities:
      - name: ca.bank-a.example.com
        url: https://localhost:8054
  - id: BankB
    mspId: BankBMSP
    domain: bank-b.example.com
    type: commercial_bank
    certificateAuthorities:
      - name: ca.bank-b.example.com
        url: https://localhost:10054
`

func mustTopology(t *testing.T) *Topology {
	t.Helper()
	top, err := ParseTopology([]byte(topologyYAML))
	require.NoError(t, err)
	return top
}

func TestBuild(t *testing.T) {
	top := mustTopology(t)

	profile, err := Build(top, "CentralBank")
	require.NoError(t, err)
	assert.Equal(t, "cbdc-CentralBank", profile.Name)
	assert.Equal(t, "cbdc-channel", profile.Channel)
	assert.Equal(t, "cbdc", profile.Chaincode)
	assert.Equal(t, "CentralBankMSP", profile.Organization.MSPID)
	assert.Equal(t, "localhost:7051", profile.GatewayPeer().Address)
	assert.Len(t, profile.Orderers, 1)

	// lookup by msp id
	profile, err = Build(top, "BankAMSP")
	require.NoError(t, err)
	assert.Equal(t, "BankA", profile.Organization.ID)
}

func TestBuild_ConfigErrors(t *testing.T) {
	top := mustTopology(t)

	tests := []struct {
		name  string
		top   *Topology
		orgID string
	}{
		{"nil topology", nil, "CentralBank"},
		{"unknown organization", top, "BankZ"},
		{"organization without peers", top, "BankB"},
		{"network without orderers", &Topology{Channel: "c", Chaincode: "cc", Organizations: top.Organizations}, "BankA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.top, tt.orgID)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindConfig), "got %v", err)
		})
	}
}

func TestParseTopology_Invalid(t *testing.T) {
	_, err := ParseTopology([]byte("channel: [unterminated"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))

	_, err = ParseTopology([]byte("name: no-channel\n"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
}

func TestLoadTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(topologyYAML), 0o600))

	top, err := LoadTopology(path)
	require.NoError(t, err)
	assert.Len(t, top.Organizations, 3)

	_, err = LoadTopology(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
}

func TestProfiles_Get(t *testing.T) {
	profiles, err := NewProfiles(mustTopology(t))
	require.NoError(t, err)
	defer profiles.Close()

	var wg sync.WaitGroup
	got := make([]*ConnectionProfile, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := profiles.Get("BankA")
			assert.NoError(t, err)
			got[i] = p
		}(i)
	}
	wg.Wait()

	first, err := profiles.Get("BankA")
	require.NoError(t, err)
	for _, p := range got {
		assert.Equal(t, first.Name, p.Name)
	}

	_, err = profiles.Get("BankB")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
}

func TestProfiles_Warm(t *testing.T) {
	top := mustTopology(t)
	profiles, err := NewProfiles(top)
	require.NoError(t, err)
	defer profiles.Close()

	// BankB has no peers
	assert.Error(t, profiles.Warm())

	top.Organizations = top.Organizations[:2]
	assert.NoError(t, profiles.Warm())
}
