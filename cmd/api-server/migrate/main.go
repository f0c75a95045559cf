package main

import (
	"context"
	"flag"
	"log"

	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/cbdc-gateway/pkg/config"
	"github.com/chainsafe/cbdc-gateway/pkg/migrations/identitydb"
	"github.com/chainsafe/cbdc-gateway/pkg/pgutil"
	mghelper "github.com/chainsafe/cbdc-gateway/pkg/pgutil/migrations"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAPIServer(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("error creating logger: %s", err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Connect to database
	db, err := pgutil.ConnectDB(ctx, &cfg.Identity.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for identity database (%s)...\n", cfg.Identity.Database.Database)

	// Create migrator
	migrator := migrate.NewMigrator(db, identitydb.Migrations)

	// Run migrations with args
	err = mghelper.RunMigrations(ctx, migrator, logger, flag.Args()...)
	if err != nil {
		mghelper.Exitf(err.Error())
	}
}
