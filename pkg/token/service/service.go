// Package service implements the token operations of the gateway. Every
// operation validates its request locally, then runs exactly one ledger
// session for the calling identity.
package service

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainsafe/cbdc-gateway/internal/metrics"
	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/app/result"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/session"
	"github.com/chainsafe/cbdc-gateway/pkg/role"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

// Service defines the token operations exposed to HTTP and CLI adapters.
type Service interface {
	Initialize(ctx context.Context, identityName string, req *token.InitializeRequest) result.Result[token.Receipt]
	Mint(ctx context.Context, identityName string, req *token.AmountRequest) result.Result[token.Receipt]
	Burn(ctx context.Context, identityName string, req *token.AmountRequest) result.Result[token.Receipt]
	Transfer(ctx context.Context, identityName string, req *token.TransferRequest) result.Result[token.Receipt]
	BatchTransfer(ctx context.Context, identityName string, req *token.BatchTransferRequest) result.Result[BatchTransferReport]
	TransferFrom(ctx context.Context, identityName string, req *token.TransferFromRequest) result.Result[token.Receipt]
	Approve(ctx context.Context, identityName string, req *token.ApproveRequest) result.Result[token.Receipt]
	Allowance(ctx context.Context, identityName string, req *token.AllowanceRequest) result.Result[token.Allowance]
	Balance(ctx context.Context, identityName string) result.Result[token.Balance]
	BatchBalance(ctx context.Context, req *token.BatchBalanceRequest) result.Result[[]BatchBalanceItem]
	CallerBatchBalance(ctx context.Context, callerName string, req *token.BatchBalanceRequest) result.Result[[]BatchBalanceItem]
	AccountID(ctx context.Context, identityName string) result.Result[token.Account]
	TotalSupply(ctx context.Context, identityName string) result.Result[decimal.Decimal]
	Name(ctx context.Context, identityName string) result.Result[string]
	Symbol(ctx context.Context, identityName string) result.Result[string]
	Decimals(ctx context.Context, identityName string) result.Result[int]
	TokenInfo(ctx context.Context, identityName string) result.Result[token.Info]
}

// BatchBalanceItem is the outcome of one balance read in a batch.
type BatchBalanceItem struct {
	Identity string                        `json:"identity"`
	Result   result.Result[token.Balance] `json:"result"`
}

// BatchTransferItem is the outcome of one transfer in a batch.
type BatchTransferItem struct {
	Index     int                          `json:"index"`
	Recipient string                       `json:"recipient"`
	Amount    string                       `json:"amount"`
	Result    result.Result[token.Receipt] `json:"result"`
}

// BatchTransferReport summarizes a batch of transfers. Total is the sum of
// the transfers that succeeded.
type BatchTransferReport struct {
	BatchID   string              `json:"batchId"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Total     decimal.Decimal     `json:"total"`
	Items     []BatchTransferItem `json:"items"`
}

// TokenService runs token operations through ledger sessions.
type TokenService struct {
	sessions session.Runner
	validate *validator.Validate
}

// NewTokenService creates a new token service
func NewTokenService(sessions session.Runner) *TokenService {
	return &TokenService{
		sessions: sessions,
		validate: token.NewValidator(),
	}
}

func (s *TokenService) Initialize(ctx context.Context, identityName string, req *token.InitializeRequest) result.Result[token.Receipt] {
	if err := s.check(req); err != nil {
		return observe("initialize", result.Fail[token.Receipt](err))
	}
	res := s.submit(ctx, identityName, token.FnInitialize, req.Name, req.Symbol, req.Decimals)
	return observe("initialize", res.WithMessage("token initialized"))
}

func (s *TokenService) Mint(ctx context.Context, identityName string, req *token.AmountRequest) result.Result[token.Receipt] {
	if err := s.check(req); err != nil {
		return observe("mint", result.Fail[token.Receipt](err))
	}
	res := s.submit(ctx, identityName, token.FnMint, req.Amount)
	return observe("mint", res.WithMessage("minted "+req.Amount))
}

func (s *TokenService) Burn(ctx context.Context, identityName string, req *token.AmountRequest) result.Result[token.Receipt] {
	if err := s.check(req); err != nil {
		return observe("burn", result.Fail[token.Receipt](err))
	}
	res := s.submit(ctx, identityName, token.FnBurn, req.Amount)
	return observe("burn", res.WithMessage("burned "+req.Amount))
}

func (s *TokenService) Transfer(ctx context.Context, identityName string, req *token.TransferRequest) result.Result[token.Receipt] {
	if err := s.check(req); err != nil {
		return observe("transfer", result.Fail[token.Receipt](err))
	}
	res := s.submit(ctx, identityName, token.FnTransfer, req.Recipient, req.Amount)
	return observe("transfer", res.WithMessage("transferred "+req.Amount+" to "+req.Recipient))
}

// BatchTransfer submits the transfers one after another, each in its own
// session. A failed item is recorded and the remaining items still run.
func (s *TokenService) BatchTransfer(ctx context.Context, identityName string, req *token.BatchTransferRequest) result.Result[BatchTransferReport] {
	if err := s.check(req); err != nil {
		return observe("batch_transfer", result.Fail[BatchTransferReport](err))
	}

	report := BatchTransferReport{
		BatchID: uuid.NewString(),
		Total:   decimal.Zero,
		Items:   make([]BatchTransferItem, 0, len(req.Transfers)),
	}
	for i := range req.Transfers {
		tr := req.Transfers[i]
		res := s.Transfer(ctx, identityName, &tr)
		if res.Success {
			report.Succeeded++
			report.Total = report.Total.Add(decimal.RequireFromString(tr.Amount))
		} else {
			report.Failed++
		}
		report.Items = append(report.Items, BatchTransferItem{
			Index:     i,
			Recipient: tr.Recipient,
			Amount:    tr.Amount,
			Result:    res,
		})
	}

	msg := strconv.Itoa(report.Succeeded) + " of " + strconv.Itoa(len(req.Transfers)) + " transfers succeeded"
	return observe("batch_transfer", result.OK(report, msg))
}

func (s *TokenService) TransferFrom(ctx context.Context, identityName string, req *token.TransferFromRequest) result.Result[token.Receipt] {
	if err := s.check(req); err != nil {
		return observe("transfer_from", result.Fail[token.Receipt](err))
	}
	res := s.submit(ctx, identityName, token.FnTransferFrom, req.From, req.To, req.Amount)
	return observe("transfer_from", res.WithMessage("transferred "+req.Amount+" from "+req.From+" to "+req.To))
}

func (s *TokenService) Approve(ctx context.Context, identityName string, req *token.ApproveRequest) result.Result[token.Receipt] {
	if err := s.check(req); err != nil {
		return observe("approve", result.Fail[token.Receipt](err))
	}
	res := s.submit(ctx, identityName, token.FnApprove, req.Spender, req.Amount)
	return observe("approve", res.WithMessage("approved "+req.Spender+" for "+req.Amount))
}

func (s *TokenService) Allowance(ctx context.Context, identityName string, req *token.AllowanceRequest) result.Result[token.Allowance] {
	if err := s.check(req); err != nil {
		return observe("allowance", result.Fail[token.Allowance](err))
	}
	amount, err := s.evaluateAmount(ctx, identityName, token.FnAllowance, req.Owner, req.Spender)
	out := token.Allowance{Owner: req.Owner, Spender: req.Spender, Allowance: amount}
	return observe("allowance", result.From(out, err, ""))
}

func (s *TokenService) Balance(ctx context.Context, identityName string) result.Result[token.Balance] {
	return observe("balance", s.balance(ctx, identityName))
}

func (s *TokenService) balance(ctx context.Context, identityName string) result.Result[token.Balance] {
	amount, err := s.evaluateAmount(ctx, identityName, token.FnClientAccountBalance)
	return result.From(token.Balance{Identity: identityName, Balance: amount}, err, "")
}

// BatchBalance reads each identity's balance in its own session, in order.
func (s *TokenService) BatchBalance(ctx context.Context, req *token.BatchBalanceRequest) result.Result[[]BatchBalanceItem] {
	if err := s.check(req); err != nil {
		return observe("batch_balance", result.Fail[[]BatchBalanceItem](err))
	}
	return observe("batch_balance", result.OK(s.batchBalance(ctx, req.Identities), ""))
}

// CallerBatchBalance is BatchBalance on behalf of callerName. A central bank
// caller may read any identity and a bank admin the identities of its own
// domain. Everyone else may only read itself. An unauthorized name rejects
// the whole request before any other identity's session is opened.
func (s *TokenService) CallerBatchBalance(ctx context.Context, callerName string, req *token.BatchBalanceRequest) result.Result[[]BatchBalanceItem] {
	if err := s.check(req); err != nil {
		return observe("batch_balance", result.Fail[[]BatchBalanceItem](err))
	}
	if err := s.authorizeBatch(ctx, callerName, req.Identities); err != nil {
		return observe("batch_balance", result.Fail[[]BatchBalanceItem](err))
	}
	return observe("batch_balance", result.OK(s.batchBalance(ctx, req.Identities), ""))
}

func (s *TokenService) batchBalance(ctx context.Context, names []string) []BatchBalanceItem {
	items := make([]BatchBalanceItem, 0, len(names))
	for _, name := range names {
		items = append(items, BatchBalanceItem{Identity: name, Result: s.balance(ctx, name)})
	}
	return items
}

func (s *TokenService) authorizeBatch(ctx context.Context, callerName string, names []string) error {
	if !slices.ContainsFunc(names, func(n string) bool { return n != callerName }) {
		return nil
	}
	caller, err := session.Do(ctx, s.sessions, callerName, func(ss *session.Session) (role.CallerRole, error) {
		return role.Derive(ss.Identity()), nil
	})
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == callerName || caller.IsCentralBank {
			continue
		}
		if caller.Role == role.BankAdmin && strings.EqualFold(domainOf(name), caller.CallerDomain) {
			continue
		}
		return apperrors.UnAuthorizedError(nil, fmt.Sprintf("%s may not read the balance of %q", callerName, name))
	}
	return nil
}

func domainOf(name string) string {
	_, domain, _ := strings.Cut(name, "@")
	return domain
}

func (s *TokenService) AccountID(ctx context.Context, identityName string) result.Result[token.Account] {
	id, err := s.evaluateString(ctx, identityName, token.FnClientAccountID)
	return observe("account_id", result.From(token.Account{Identity: identityName, AccountID: id}, err, ""))
}

func (s *TokenService) TotalSupply(ctx context.Context, identityName string) result.Result[decimal.Decimal] {
	supply, err := s.evaluateAmount(ctx, identityName, token.FnTotalSupply)
	return observe("total_supply", result.From(supply, err, ""))
}

func (s *TokenService) Name(ctx context.Context, identityName string) result.Result[string] {
	name, err := s.evaluateString(ctx, identityName, token.FnName)
	return observe("name", result.From(name, err, ""))
}

func (s *TokenService) Symbol(ctx context.Context, identityName string) result.Result[string] {
	symbol, err := s.evaluateString(ctx, identityName, token.FnSymbol)
	return observe("symbol", result.From(symbol, err, ""))
}

func (s *TokenService) Decimals(ctx context.Context, identityName string) result.Result[int] {
	d, err := session.Do(ctx, s.sessions, identityName, func(ss *session.Session) (int, error) {
		return evaluateDecimals(ctx, ss)
	})
	return observe("decimals", result.From(d, err, ""))
}

// TokenInfo reads the metadata and supply in a single session.
func (s *TokenService) TokenInfo(ctx context.Context, identityName string) result.Result[token.Info] {
	info, err := session.Do(ctx, s.sessions, identityName, func(ss *session.Session) (token.Info, error) {
		var (
			info token.Info
			err  error
		)
		if info.Name, err = evaluateString(ctx, ss, token.FnName); err != nil {
			return info, err
		}
		if info.Symbol, err = evaluateString(ctx, ss, token.FnSymbol); err != nil {
			return info, err
		}
		if info.Decimals, err = evaluateDecimals(ctx, ss); err != nil {
			return info, err
		}
		info.TotalSupply, err = evaluateAmount(ctx, ss, token.FnTotalSupply)
		return info, err
	})
	return observe("token_info", result.From(info, err, ""))
}

type normalizer interface {
	Normalize()
}

// check trims and validates req. It runs before any session is opened.
func (s *TokenService) check(req normalizer) error {
	if req == nil || reflect.ValueOf(req).IsNil() {
		return apperrors.ValidationError(nil, "request body is required")
	}
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return apperrors.ValidationError(nil, token.Describe(err))
	}
	return nil
}

func (s *TokenService) submit(ctx context.Context, identityName, fn string, args ...string) result.Result[token.Receipt] {
	receipt, err := session.Do(ctx, s.sessions, identityName, func(ss *session.Session) (token.Receipt, error) {
		payload, err := ss.Submit(ctx, fn, args...)
		if err != nil {
			return token.Receipt{}, err
		}
		return token.Receipt{
			TxID:     strings.TrimSpace(string(payload)),
			Function: fn,
			Identity: ss.Identity().Name,
		}, nil
	})
	return result.From(receipt, err, "")
}

func (s *TokenService) evaluateAmount(ctx context.Context, identityName, fn string, args ...string) (decimal.Decimal, error) {
	return session.Do(ctx, s.sessions, identityName, func(ss *session.Session) (decimal.Decimal, error) {
		return evaluateAmount(ctx, ss, fn, args...)
	})
}

func (s *TokenService) evaluateString(ctx context.Context, identityName, fn string) (string, error) {
	return session.Do(ctx, s.sessions, identityName, func(ss *session.Session) (string, error) {
		return evaluateString(ctx, ss, fn)
	})
}

func evaluateAmount(ctx context.Context, ss *session.Session, fn string, args ...string) (decimal.Decimal, error) {
	payload, err := ss.Evaluate(ctx, fn, args...)
	if err != nil {
		return decimal.Zero, err
	}
	amount, err := token.ParseAmount(payload)
	if err != nil {
		return decimal.Zero, apperrors.SerializationError(err, fn+" returned a non-numeric payload")
	}
	return amount, nil
}

func evaluateString(ctx context.Context, ss *session.Session, fn string) (string, error) {
	payload, err := ss.Evaluate(ctx, fn)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(payload)), nil
}

func evaluateDecimals(ctx context.Context, ss *session.Session) (int, error) {
	payload, err := ss.Evaluate(ctx, token.FnDecimals)
	if err != nil {
		return 0, err
	}
	d, err := strconv.Atoi(strings.Trim(strings.TrimSpace(string(payload)), `"`))
	if err != nil {
		return 0, apperrors.SerializationError(err, "Decimals returned a non-integer payload")
	}
	return d, nil
}

func observe[T any](op string, res result.Result[T]) result.Result[T] {
	metrics.TokenOperations.WithLabelValues(op, metrics.Outcome(res.Err())).Inc()
	return res
}
