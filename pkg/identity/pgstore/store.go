// Package pgstore is a PostgreSQL identity.Store. Rows are provisioned by the
// enrollment tooling; the gateway only reads them.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

type pgStore struct {
	db     *bun.DB
	cipher *KeyCipher
}

// NewStore creates a new postgres implementation of the identity store
func NewStore(db *bun.DB, cipher *KeyCipher) identity.Store {
	return &pgStore{db: db, cipher: cipher}
}

func (s *pgStore) Get(ctx context.Context, name string) (*identity.Identity, error) {
	dao := new(IdentityDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", identity.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	key, err := s.cipher.Decrypt(dao.Name, dao.PrivateKeyEncrypted)
	if err != nil {
		return nil, err
	}

	sum := toSummary(dao)
	id := &identity.Identity{
		Name:             sum.Name,
		OrganizationName: sum.OrganizationName,
		OrganizationType: sum.OrganizationType,
		MSPID:            sum.MSPID,
		FullName:         sum.FullName,
		Certificate:      []byte(dao.Certificate),
		PrivateKey:       key,
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return id, nil
}

func (s *pgStore) List(ctx context.Context) ([]identity.Summary, error) {
	var daos []IdentityDao
	err := s.db.NewSelect().
		Model(&daos).
		Column("name", "organization_name", "organization_type", "msp_id", "full_name").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	out := make([]identity.Summary, 0, len(daos))
	for i := range daos {
		out = append(out, toSummary(&daos[i]))
	}
	return out, nil
}
