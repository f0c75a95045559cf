// Package identitydb holds the migrations for the identity database read by
// the postgres identity backend.
package identitydb

import "github.com/uptrace/bun/migrate"

// Migrations is the registry the migrate binary runs.
var Migrations = migrate.NewMigrations()
