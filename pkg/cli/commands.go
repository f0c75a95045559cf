package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/app/result"
	"github.com/chainsafe/cbdc-gateway/pkg/query"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
	"github.com/chainsafe/cbdc-gateway/pkg/token/service"
)

func (a *app) identitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identities",
		Short: "List enrolled identities.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return emit(cmd, a.backend.Registry.Identities(cmd.Context()))
		},
	}
}

func (a *app) networkCmd() *cobra.Command {
	var organization string
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Show the network topology and an organization's connection profile.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return emit(cmd, a.backend.Registry.Network(organization))
		},
	}
	cmd.Flags().StringVar(&organization, "organization", "", "organization id or MSP id (default from config)")
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show token name, symbol, decimals and total supply.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return asCaller(a, cmd, a.backend.Token.TokenInfo)
		},
	}
}

func (a *app) supplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Show the total supply.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return asCaller(a, cmd, a.backend.Token.TotalSupply)
		},
	}
}

func (a *app) balanceCmd() *cobra.Command {
	var batch []string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the caller's balance, or the balance of each --batch identity.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(batch) > 0 {
				return emit(cmd, a.backend.Token.BatchBalance(cmd.Context(), &token.BatchBalanceRequest{Identities: batch}))
			}
			return asCaller(a, cmd, a.backend.Token.Balance)
		},
	}
	cmd.Flags().StringSliceVar(&batch, "batch", nil, "comma separated identities to read")
	return cmd
}

func (a *app) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the caller's ledger account id.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return asCaller(a, cmd, a.backend.Token.AccountID)
		},
	}
}

func (a *app) initializeCmd() *cobra.Command {
	req := &token.InitializeRequest{}
	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Set the token metadata. Central bank only, once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[token.Receipt] {
				return a.backend.Token.Initialize(ctx, name, req)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Name, "name", "", "token name")
	flags.StringVar(&req.Symbol, "symbol", "", "token symbol")
	flags.StringVar(&req.Decimals, "decimals", "", "number of decimals (0-18)")
	return cmd
}

func (a *app) mintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <amount>",
		Short: "Mint tokens to the caller. Central bank only.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[token.Receipt] {
				return a.backend.Token.Mint(ctx, name, &token.AmountRequest{Amount: args[0]})
			})
		},
	}
}

func (a *app) burnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "burn <amount>",
		Short: "Burn tokens from the caller. Central bank only.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[token.Receipt] {
				return a.backend.Token.Burn(ctx, name, &token.AmountRequest{Amount: args[0]})
			})
		},
	}
}

func (a *app) transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <recipient> <amount>",
		Short: "Transfer tokens from the caller.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[token.Receipt] {
				return a.backend.Token.Transfer(ctx, name, &token.TransferRequest{Recipient: args[0], Amount: args[1]})
			})
		},
	}
}

func (a *app) transferBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-batch <recipient=amount>...",
		Short: "Run several transfers from the caller, one after the other.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transfers, err := parseTransfers(args)
			if err != nil {
				return emit(cmd, result.Fail[service.BatchTransferReport](err))
			}
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[service.BatchTransferReport] {
				return a.backend.Token.BatchTransfer(ctx, name, &token.BatchTransferRequest{Transfers: transfers})
			})
		},
	}
}

func parseTransfers(args []string) ([]token.TransferRequest, error) {
	out := make([]token.TransferRequest, 0, len(args))
	for _, arg := range args {
		recipient, amount, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, apperrors.ValidationError(nil, fmt.Sprintf("transfer %q must be recipient=amount", arg))
		}
		out = append(out, token.TransferRequest{Recipient: recipient, Amount: amount})
	}
	return out, nil
}

func (a *app) transferFromCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-from <from> <to> <amount>",
		Short: "Transfer tokens between two accounts using the caller's allowance.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[token.Receipt] {
				return a.backend.Token.TransferFrom(ctx, name, &token.TransferFromRequest{From: args[0], To: args[1], Amount: args[2]})
			})
		},
	}
}

func (a *app) approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <spender> <amount>",
		Short: "Allow spender to move up to amount of the caller's tokens.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[token.Receipt] {
				return a.backend.Token.Approve(ctx, name, &token.ApproveRequest{Spender: args[0], Amount: args[1]})
			})
		},
	}
}

func (a *app) allowanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allowance <owner> <spender>",
		Short: "Show how much spender may still move on behalf of owner.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[token.Allowance] {
				return a.backend.Token.Allowance(ctx, name, &token.AllowanceRequest{Owner: args[0], Spender: args[1]})
			})
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	spec := &query.Spec{}
	cmd := &cobra.Command{
		Use:       "query <rich|offset|bookmark|history|all>",
		Short:     "Query transactions.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"rich", "offset", "bookmark", "history", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := query.ParseMode(args[0])
			if err != nil {
				return emit(cmd, result.Fail[any](err))
			}
			return asCaller(a, cmd, func(ctx context.Context, name string) result.Result[any] {
				return a.backend.Query.Run(ctx, name, mode, spec)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&spec.UserID, "user-id", "", "account to query (default the caller's)")
	flags.StringVar(&spec.MinAmount, "min-amount", "", "minimum amount, 0 for none")
	flags.StringVar(&spec.MaxAmount, "max-amount", "", "maximum amount, 0 for none")
	flags.StringVar(&spec.TransactionType, "type", "", "transaction type filter")
	flags.StringVar(&spec.Counterparty, "counterparty", "", "counterparty filter")
	flags.StringVar(&spec.PageSize, "page-size", "", "page size")
	flags.StringVar(&spec.Offset, "offset", "", "page offset (offset mode)")
	flags.StringVar(&spec.Bookmark, "bookmark", "", "continuation bookmark (bookmark mode)")
	return cmd
}
