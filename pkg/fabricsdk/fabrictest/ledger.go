// Package fabrictest provides an in-memory CBDC token ledger that plugs into
// the session manager in place of a real network. It implements the token
// chaincode contract closely enough for service and handler tests, and
// counts opened and closed connections.
package fabrictest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"

	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/ledger"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/network"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/session"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

// Handler overrides a chaincode function.
type Handler func(caller *identity.Identity, args []string) ([]byte, error)

// Transaction is a ledger-side transaction record.
type Transaction struct {
	ID        string
	Type      string
	Amount    decimal.Decimal
	From      string
	To        string
	Spender   string
	Timestamp time.Time
}

// ReportedRole is the caller role the ledger attaches to QueryAllTransactions.
type ReportedRole struct {
	CallerID      string `json:"callerId"`
	CallerDomain  string `json:"callerDomain"`
	IsAdmin       bool   `json:"isAdmin"`
	IsCentralBank bool   `json:"isCentralBank"`
}

// Ledger is the in-memory network. The zero value is not usable; call New.
type Ledger struct {
	mu          sync.Mutex
	initialized bool
	name        string
	symbol      string
	decimals    int
	balances    map[string]decimal.Decimal
	allowances  map[string]map[string]decimal.Decimal
	txs         []Transaction
	overrides   map[string]Handler
	clock       func() time.Time
	connectErr  error
	forgedRole  *ReportedRole

	opened atomic.Int64
	closed atomic.Int64
}

// New returns an empty, uninitialized token ledger.
func New() *Ledger {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	return &Ledger{
		balances:   make(map[string]decimal.Decimal),
		allowances: make(map[string]map[string]decimal.Decimal),
		overrides:  make(map[string]Handler),
		clock: func() time.Time {
			return start.Add(time.Duration(tick.Add(1)) * time.Minute)
		},
	}
}

// Override replaces the chaincode function fn with h.
func (l *Ledger) Override(fn string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[fn] = h
}

// FailConnect makes every later Connect fail with err.
func (l *Ledger) FailConnect(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connectErr = err
}

// ForgeRole makes QueryAllTransactions report r as the caller role.
func (l *Ledger) ForgeRole(r ReportedRole) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forgedRole = &r
}

// Opened returns the number of connections established.
func (l *Ledger) Opened() int64 { return l.opened.Load() }

// Closed returns the number of connections closed.
func (l *Ledger) Closed() int64 { return l.closed.Load() }

// Balance returns the balance of account.
func (l *Ledger) Balance(account string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account].String()
}

// Transactions returns a copy of the recorded transactions, oldest first.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction(nil), l.txs...)
}

// Connect implements session.Connector.
func (l *Ledger) Connect(_ context.Context, profile *network.ConnectionProfile, id *identity.Identity) (session.Conn, error) {
	l.mu.Lock()
	err := l.connectErr
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if profile == nil || len(profile.Peers) == 0 {
		return nil, fmt.Errorf("no gateway peer")
	}
	l.opened.Add(1)
	return &conn{ledger: l, caller: id}, nil
}

type conn struct {
	ledger *Ledger
	caller *identity.Identity
	once   sync.Once
}

func (c *conn) Contract(string, string) ledger.Contract {
	return &contract{ledger: c.ledger, caller: c.caller}
}

func (c *conn) Close() error {
	c.once.Do(func() { c.ledger.closed.Add(1) })
	return nil
}

type contract struct {
	ledger *Ledger
	caller *identity.Identity
}

func (c *contract) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return c.ledger.invoke(ctx, c.caller, fn, args)
}

func (c *contract) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return c.ledger.invoke(ctx, c.caller, fn, args)
}

// ChaincodeError builds the error a gateway peer returns when the chaincode
// rejects a proposal.
func ChaincodeError(msg string) error {
	st := status.New(codes.Aborted, "failed to endorse transaction, see attached details for more info")
	detailed, err := st.WithDetails(protoadapt.MessageV1Of(&gateway.ErrorDetail{
		Address: "peer0.example.com:7051",
		MspId:   "CentralBankMSP",
		Message: "chaincode response 500, " + msg,
	}))
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

func (l *Ledger) invoke(ctx context.Context, caller *identity.Identity, fn string, args []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	l.mu.Lock()
	h, ok := l.overrides[fn]
	l.mu.Unlock()
	if ok {
		return h(caller, args)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch fn {
	case token.FnInitialize:
		return l.initialize(caller, args)
	case token.FnMint:
		return l.mint(caller, args)
	case token.FnBurn:
		return l.burn(caller, args)
	case token.FnTransfer:
		return l.transfer(caller, args)
	case token.FnTransferFrom:
		return l.transferFrom(caller, args)
	case token.FnApprove:
		return l.approve(caller, args)
	case token.FnAllowance:
		if err := arity(args, 2); err != nil {
			return nil, err
		}
		return []byte(l.allowances[args[0]][args[1]].String()), nil
	case token.FnClientAccountBalance:
		return []byte(l.balances[caller.Name].String()), nil
	case token.FnClientAccountID:
		return []byte(caller.Name), nil
	case token.FnTotalSupply:
		total := decimal.Zero
		for _, b := range l.balances {
			total = total.Add(b)
		}
		return []byte(total.String()), nil
	case token.FnName:
		return l.metadata(l.name)
	case token.FnSymbol:
		return l.metadata(l.symbol)
	case token.FnDecimals:
		return l.metadata(fmt.Sprint(l.decimals))
	case token.FnQueryUserTransactions,
		token.FnQueryUserTransactionsWithOffset,
		token.FnQueryUserTransactionsWithBookmark,
		token.FnGetUserTransactionHistory,
		token.FnQueryAllTransactions:
		return l.query(caller, fn, args)
	default:
		return nil, ChaincodeError(fmt.Sprintf("function %s not found", fn))
	}
}

func (l *Ledger) metadata(v string) ([]byte, error) {
	if !l.initialized {
		return nil, ChaincodeError("contract options need to be set before calling any function, call Initialize() to initialize contract")
	}
	return []byte(v), nil
}

func arity(args []string, n int) error {
	if len(args) != n {
		return ChaincodeError(fmt.Sprintf("incorrect number of arguments: expecting %d, got %d", n, len(args)))
	}
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ChaincodeError(fmt.Sprintf("amount %q must be a positive integer", s))
	}
	return d, nil
}

func (l *Ledger) requireMinter(caller *identity.Identity) error {
	if caller.OrganizationType != identity.CentralBank {
		return ChaincodeError("client is not authorized to mint or burn tokens")
	}
	return nil
}

func (l *Ledger) requireInit() error {
	if !l.initialized {
		return ChaincodeError("contract options need to be set before calling any function, call Initialize() to initialize contract")
	}
	return nil
}

func (l *Ledger) record(typ string, amount decimal.Decimal, from, to, spender string) []byte {
	tx := Transaction{
		ID:        fmt.Sprintf("tx%04d", len(l.txs)+1),
		Type:      typ,
		Amount:    amount,
		From:      from,
		To:        to,
		Spender:   spender,
		Timestamp: l.clock(),
	}
	l.txs = append(l.txs, tx)
	return []byte(tx.ID)
}

func (l *Ledger) initialize(caller *identity.Identity, args []string) ([]byte, error) {
	if err := arity(args, 3); err != nil {
		return nil, err
	}
	if caller.OrganizationType != identity.CentralBank {
		return nil, ChaincodeError("client is not authorized to initialize contract")
	}
	if l.initialized {
		return nil, ChaincodeError("contract options are already set, client is not authorized to change them")
	}
	var decimals int
	if _, err := fmt.Sscan(args[2], &decimals); err != nil {
		return nil, ChaincodeError(fmt.Sprintf("invalid decimals %q", args[2]))
	}
	l.initialized, l.name, l.symbol, l.decimals = true, args[0], args[1], decimals
	return l.record("initialize", decimal.Zero, "", caller.Name, ""), nil
}

func (l *Ledger) mint(caller *identity.Identity, args []string) ([]byte, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	if err := l.requireInit(); err != nil {
		return nil, err
	}
	if err := l.requireMinter(caller); err != nil {
		return nil, err
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return nil, err
	}
	l.balances[caller.Name] = l.balances[caller.Name].Add(amount)
	return l.record("mint", amount, "", caller.Name, ""), nil
}

func (l *Ledger) burn(caller *identity.Identity, args []string) ([]byte, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	if err := l.requireInit(); err != nil {
		return nil, err
	}
	if err := l.requireMinter(caller); err != nil {
		return nil, err
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return nil, err
	}
	if l.balances[caller.Name].LessThan(amount) {
		return nil, ChaincodeError("minter has insufficient funds to burn")
	}
	l.balances[caller.Name] = l.balances[caller.Name].Sub(amount)
	return l.record("burn", amount, caller.Name, "", ""), nil
}

func (l *Ledger) move(from, to string, amount decimal.Decimal) error {
	if from == to {
		return ChaincodeError("cannot transfer to and from same client account")
	}
	if l.balances[from].LessThan(amount) {
		return ChaincodeError(fmt.Sprintf("client account %s has insufficient funds", from))
	}
	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}

func (l *Ledger) transfer(caller *identity.Identity, args []string) ([]byte, error) {
	if err := arity(args, 2); err != nil {
		return nil, err
	}
	if err := l.requireInit(); err != nil {
		return nil, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return nil, err
	}
	if err := l.move(caller.Name, args[0], amount); err != nil {
		return nil, err
	}
	return l.record("transfer", amount, caller.Name, args[0], ""), nil
}

func (l *Ledger) transferFrom(caller *identity.Identity, args []string) ([]byte, error) {
	if err := arity(args, 3); err != nil {
		return nil, err
	}
	if err := l.requireInit(); err != nil {
		return nil, err
	}
	from, to := args[0], args[1]
	amount, err := parseAmount(args[2])
	if err != nil {
		return nil, err
	}
	allowed := l.allowances[from][caller.Name]
	if allowed.LessThan(amount) {
		return nil, ChaincodeError("spender does not have enough allowance for transfer")
	}
	if err := l.move(from, to, amount); err != nil {
		return nil, err
	}
	l.allowances[from][caller.Name] = allowed.Sub(amount)
	return l.record("transferFrom", amount, from, to, caller.Name), nil
}

func (l *Ledger) approve(caller *identity.Identity, args []string) ([]byte, error) {
	if err := arity(args, 2); err != nil {
		return nil, err
	}
	if err := l.requireInit(); err != nil {
		return nil, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return nil, err
	}
	if l.allowances[caller.Name] == nil {
		l.allowances[caller.Name] = make(map[string]decimal.Decimal)
	}
	l.allowances[caller.Name][args[0]] = amount
	return l.record("approve", amount, caller.Name, args[0], args[0]), nil
}

func domainOf(account string) string {
	if _, d, ok := strings.Cut(account, "@"); ok {
		return d
	}
	return ""
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
