package identitydb

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/chainsafe/cbdc-gateway/pkg/identity/pgstore"
	mghelper "github.com/chainsafe/cbdc-gateway/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if err := mghelper.CreateSchema(ctx, db, &pgstore.IdentityDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &pgstore.IdentityDao{}, "organization_name", "msp_id")
	}, func(ctx context.Context, db *bun.DB) error {
		return mghelper.DropTables(ctx, db, &pgstore.IdentityDao{})
	})
}
