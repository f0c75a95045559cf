// Package gateway assembles the ledger access stack shared by the API server
// and the CLI: network profiles, the identity store and the session manager.
package gateway

import (
	"context"
	"fmt"
	"os"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/pkg/config"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/network"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/session"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
	"github.com/chainsafe/cbdc-gateway/pkg/identity/pgstore"
	"github.com/chainsafe/cbdc-gateway/pkg/identity/wallet"
	"github.com/chainsafe/cbdc-gateway/pkg/pgutil"
)

// Stack holds the long-lived components needed to talk to the ledger.
type Stack struct {
	Profiles   *network.Profiles
	Identities identity.Store
	Sessions   *session.Manager

	db *bun.DB
}

// Open builds a Stack. The caller must Close it.
func Open(
	ctx context.Context,
	fabricCfg *config.FabricConfig,
	identityCfg *config.IdentityConfig,
	logger *zap.Logger,
	connector session.Connector,
) (*Stack, error) {
	topology, err := network.LoadTopology(fabricCfg.TopologyPath)
	if err != nil {
		return nil, err
	}
	if fabricCfg.Channel != "" {
		topology.Channel = fabricCfg.Channel
	}
	if fabricCfg.Chaincode != "" {
		topology.Chaincode = fabricCfg.Chaincode
	}

	profiles, err := network.NewProfiles(topology)
	if err != nil {
		return nil, err
	}
	if err := profiles.Warm(); err != nil {
		profiles.Close()
		return nil, err
	}
	logger.Info("Loaded network topology",
		zap.String("network", topology.Name),
		zap.String("channel", topology.Channel),
		zap.String("chaincode", topology.Chaincode),
		zap.Int("organizations", len(topology.Organizations)),
	)

	st := &Stack{Profiles: profiles}
	if err := st.openIdentities(ctx, identityCfg, logger); err != nil {
		profiles.Close()
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithTimeouts(fabricCfg.Timeouts.Ledger()),
	}
	if connector == nil {
		connector = session.NewFabricConnector(opts...)
	}
	st.Sessions = session.NewManager(st.Identities, profiles, connector, opts...)

	return st, nil
}

func (s *Stack) openIdentities(ctx context.Context, cfg *config.IdentityConfig, logger *zap.Logger) error {
	switch cfg.Backend {
	case config.IdentityBackendPostgres:
		masterKey, err := masterKey(cfg.MasterKeyEnv)
		if err != nil {
			return err
		}
		cipher, err := pgstore.NewKeyCipher(masterKey)
		if err != nil {
			return err
		}
		db, err := pgutil.ConnectDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("connect identity db: %w", err)
		}
		s.db = db
		s.Identities = pgstore.NewStore(db, cipher)
		logger.Info("Using postgres identity store",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
	default:
		store, err := wallet.NewStore(cfg.WalletPath)
		if err != nil {
			return err
		}
		s.Identities = store
		logger.Info("Using wallet identity store", zap.String("path", cfg.WalletPath))
	}
	return nil
}

func masterKey(env string) ([]byte, error) {
	encoded := os.Getenv(env)
	if encoded == "" {
		return nil, fmt.Errorf(
			"identity master key not set: env=%s (hint: openssl rand -base64 32)", env,
		)
	}
	key, err := pgstore.MasterKeyFromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid identity master key: %w", err)
	}
	return key, nil
}

// Close releases the identity database and the profile cache.
func (s *Stack) Close() error {
	s.Profiles.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
