package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chainsafe/cbdc-gateway/pkg/app"
	"github.com/chainsafe/cbdc-gateway/pkg/app/api"
	"github.com/chainsafe/cbdc-gateway/pkg/config"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAPIServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = api.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "API server stopped with error: %v\n", err)
		os.Exit(1)
	}
}
