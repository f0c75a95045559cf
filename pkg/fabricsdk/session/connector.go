package session

import (
	"context"

	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/network"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

// Conn is an established connection to the network for one identity.
type Conn interface {
	// Contract returns the chaincode endpoint on channel.
	Contract(channel, chaincode string) ledger.Contract
	// Close releases the connection. It is called exactly once.
	Close() error
}

// Connector opens connections for an identity using a connection profile.
type Connector interface {
	Connect(ctx context.Context, profile *network.ConnectionProfile, id *identity.Identity) (Conn, error)
}
