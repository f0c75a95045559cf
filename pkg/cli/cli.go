// Package cli implements the cbdc-cli operator commands. Every command
// prints the uniform result JSON and fails when the result is not a success.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/app/result"
	"github.com/chainsafe/cbdc-gateway/pkg/config"
	"github.com/chainsafe/cbdc-gateway/pkg/gateway"
	"github.com/chainsafe/cbdc-gateway/pkg/query"
	"github.com/chainsafe/cbdc-gateway/pkg/registry"
	"github.com/chainsafe/cbdc-gateway/pkg/token/service"
)

// EnvIdentity names the identity used when --identity is not given.
const EnvIdentity = "CBDC_IDENTITY"

// ErrFailed is returned by a command whose result was not a success. The
// result itself has already been printed.
var ErrFailed = errors.New("operation failed")

// Backend is what the commands run against.
type Backend struct {
	Token    service.Service
	Query    *query.Engine
	Registry *registry.Registry
	Close    func() error
}

// Opener builds a Backend from the config file at configPath.
type Opener func(ctx context.Context, configPath string) (*Backend, error)

// Open is the production Opener: it reads the CLI config and connects to the
// configured network.
func Open(ctx context.Context, configPath string) (*Backend, error) {
	cfg, err := config.LoadCLI(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	stack, err := gateway.Open(ctx, &cfg.Fabric, &cfg.Identity, logger, nil)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &Backend{
		Token:    service.NewLog(service.NewTokenService(stack.Sessions), logger),
		Query:    query.NewEngine(stack.Sessions, logger, query.WithMaxPageSize(cfg.Query.MaxPageSize)),
		Registry: registry.New(stack.Profiles, stack.Identities, cfg.Fabric.Organization, logger),
		Close: func() error {
			defer func() { _ = logger.Sync() }()
			return stack.Close()
		},
	}, nil
}

type app struct {
	open       Opener
	configPath string
	identity   string

	backend *Backend
}

// NewRootCmd returns the cbdc-cli command tree.
func NewRootCmd(open Opener) *cobra.Command {
	return (&app{open: open}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cbdc-cli",
		Short: "Operate the CBDC token ledger.",
		Long: `Operate the CBDC token ledger as an enrolled identity.

The identity is taken from --identity or the ` + EnvIdentity + ` environment variable.
Every command prints the result as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context(), a.configPath)
			if err != nil {
				return fmt.Errorf("failed to open gateway: %w", err)
			}
			a.backend = b
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to the CLI configuration file")
	flags.StringVarP(&a.identity, "identity", "i", "", "identity to act as (default $"+EnvIdentity+")")

	root.AddCommand(
		a.identitiesCmd(),
		a.networkCmd(),
		a.infoCmd(),
		a.supplyCmd(),
		a.balanceCmd(),
		a.accountCmd(),
		a.initializeCmd(),
		a.mintCmd(),
		a.burnCmd(),
		a.transferCmd(),
		a.transferBatchCmd(),
		a.transferFromCmd(),
		a.approveCmd(),
		a.allowanceCmd(),
		a.queryCmd(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, open Opener, args []string) int {
	a := &app{open: open}
	// post-run hooks are skipped when a command fails
	defer func() { _ = a.close() }()

	root := a.rootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func (a *app) close() error {
	if a.backend == nil || a.backend.Close == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	return err
}

// caller resolves the acting identity. It is read on every command so no
// identity outlives the invocation that named it.
func (a *app) caller() (string, error) {
	name := strings.TrimSpace(a.identity)
	if name == "" {
		name = strings.TrimSpace(os.Getenv(EnvIdentity))
	}
	if name == "" {
		return "", apperrors.ValidationError(nil, "identity is required: pass --identity or set "+EnvIdentity)
	}
	return name, nil
}

// emit prints res and maps a failed result onto ErrFailed.
func emit[T any](cmd *cobra.Command, res result.Result[T]) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", ErrFailed, res.Error)
	}
	return nil
}

// asCaller resolves the identity and runs fn as that identity. A missing
// identity is reported as a failed result like any other error.
func asCaller[T any](a *app, cmd *cobra.Command, fn func(ctx context.Context, identityName string) result.Result[T]) error {
	name, err := a.caller()
	if err != nil {
		return emit(cmd, result.Fail[T](err))
	}
	return emit(cmd, fn(cmd.Context(), name))
}
