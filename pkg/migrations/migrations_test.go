package migrations

import (
	"context"
	"testing"

	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/pkg/migrations/identitydb"
	"github.com/chainsafe/cbdc-gateway/pkg/pgutil"
	mghelper "github.com/chainsafe/cbdc-gateway/pkg/pgutil/migrations"
)

func TestIdentityDBMigrations_UpAndDown(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()
	logger := zap.NewNop()

	migrator := migrate.NewMigrator(db, identitydb.Migrations)

	for _, cmd := range []string{"init", "up", "status"} {
		if err := mghelper.RunMigrations(ctx, migrator, logger, cmd); err != nil {
			t.Fatalf("RunMigrations(%s) failed: %v", cmd, err)
		}
	}

	pgutil.AssertTableExists(t, db, "identities")
	pgutil.AssertTableExists(t, db, "bun_migrations")
	pgutil.AssertIndexExists(t, db, "idx_identities_organization_name")
	pgutil.AssertIndexExists(t, db, "idx_identities_msp_id")

	// a second up is a no-op
	if err := mghelper.RunMigrations(ctx, migrator, logger, "up"); err != nil {
		t.Fatalf("second up failed: %v", err)
	}

	if err := mghelper.RunMigrations(ctx, migrator, logger, "down"); err != nil {
		t.Fatalf("RunMigrations(down) failed: %v", err)
	}
	pgutil.AssertTableNotExists(t, db, "identities")
}

func TestRunMigrations_BadCommand(t *testing.T) {
	migrator := new(migrate.Migrator)

	if err := mghelper.RunMigrations(context.Background(), migrator, zap.NewNop()); err == nil {
		t.Error("expected error when no command is given")
	}
	if err := mghelper.RunMigrations(context.Background(), migrator, zap.NewNop(), "sideways"); err == nil {
		t.Error("expected error for unknown command")
	}
}
