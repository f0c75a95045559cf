package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainsafe/cbdc-gateway/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.Open, os.Args[1:])
	stop()
	os.Exit(code)
}
