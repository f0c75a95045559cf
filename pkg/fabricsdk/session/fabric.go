package session

import (
	"context"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/hash"
	gwidentity "github.com/hyperledger/fabric-gateway/pkg/identity"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/network"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

// FabricConnector connects to the gateway peer of a profile over gRPC and
// signs with the identity's private key.
type FabricConnector struct {
	timeouts ledger.Timeouts
	dialOpts []grpc.DialOption
	logger   *zap.Logger
}

// NewFabricConnector returns the production connector.
func NewFabricConnector(opts ...Option) *FabricConnector {
	s := applyOptions(opts)
	return &FabricConnector{
		timeouts: s.timeouts.WithDefaults(),
		dialOpts: s.dialOpts,
		logger:   s.logger,
	}
}

func (c *FabricConnector) Connect(_ context.Context, profile *network.ConnectionProfile, id *identity.Identity) (Conn, error) {
	peer := profile.GatewayPeer()

	opts, err := c.dialOptions(peer)
	if err != nil {
		return nil, err
	}
	grpcConn, err := grpc.NewClient(peer.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial gateway peer %s: %w", peer.Address, err)
	}

	signer, clientID, err := signingIdentity(id)
	if err != nil {
		_ = grpcConn.Close()
		return nil, err
	}

	gw, err := client.Connect(clientID,
		client.WithSign(signer),
		client.WithHash(hash.SHA256),
		client.WithClientConnection(grpcConn),
		client.WithEvaluateTimeout(c.timeouts.Evaluate),
		client.WithEndorseTimeout(c.timeouts.Endorse),
		client.WithSubmitTimeout(c.timeouts.Submit),
		client.WithCommitStatusTimeout(c.timeouts.CommitStatus),
	)
	if err != nil {
		_ = grpcConn.Close()
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	c.logger.Debug("gateway connected",
		zap.String("peer", peer.Name),
		zap.String("address", peer.Address),
		zap.String("msp_id", id.MSPID))
	return &fabricConn{gw: gw, grpcConn: grpcConn}, nil
}

func (c *FabricConnector) dialOptions(peer network.Endpoint) ([]grpc.DialOption, error) {
	var opts []grpc.DialOption
	if peer.TLSCACert == "" {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		return append(opts, c.dialOpts...), nil
	}

	pem, err := os.ReadFile(peer.TLSCACert)
	if err != nil {
		return nil, fmt.Errorf("read TLS CA for %s: %w", peer.Name, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("append TLS CA for %s: no certificates found", peer.Name)
	}
	opts = append(opts, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(pool, peer.HostOverride)))
	return append(opts, c.dialOpts...), nil
}

func signingIdentity(id *identity.Identity) (gwidentity.Sign, *gwidentity.X509Identity, error) {
	cert, err := gwidentity.CertificateFromPEM(id.Certificate)
	if err != nil {
		return nil, nil, fmt.Errorf("read certificate of %s: %w", id.Name, err)
	}
	clientID, err := gwidentity.NewX509Identity(id.MSPID, cert)
	if err != nil {
		return nil, nil, fmt.Errorf("create identity for %s: %w", id.Name, err)
	}
	key, err := gwidentity.PrivateKeyFromPEM(id.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("read private key of %s: %w", id.Name, err)
	}
	signer, err := gwidentity.NewPrivateKeySign(key)
	if err != nil {
		return nil, nil, fmt.Errorf("create signer for %s: %w", id.Name, err)
	}
	return signer, clientID, nil
}

type fabricConn struct {
	gw       *client.Gateway
	grpcConn *grpc.ClientConn
}

func (c *fabricConn) Contract(channel, chaincode string) ledger.Contract {
	return &gatewayContract{contract: c.gw.GetNetwork(channel).GetContract(chaincode)}
}

func (c *fabricConn) Close() error {
	gwErr := c.gw.Close()
	connErr := c.grpcConn.Close()
	if gwErr != nil {
		return gwErr
	}
	return connErr
}

type gatewayContract struct {
	contract *client.Contract
}

func (g *gatewayContract) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return g.contract.SubmitWithContext(ctx, fn, client.WithArguments(args...))
}

func (g *gatewayContract) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return g.contract.EvaluateWithContext(ctx, fn, client.WithArguments(args...))
}
