package token

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InitializeRequest sets the token metadata. Only the central bank may call it, once.
type InitializeRequest struct {
	Name     string `json:"name" validate:"required"`
	Symbol   string `json:"symbol" validate:"required"`
	Decimals string `json:"decimals" validate:"decimals"`
}

// AmountRequest is the argument of Mint and Burn.
type AmountRequest struct {
	Amount string `json:"amount" validate:"amount"`
}

// TransferRequest moves tokens from the caller to Recipient.
type TransferRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Amount    string `json:"amount" validate:"amount"`
}

// TransferFromRequest moves tokens between two accounts using the caller's allowance.
type TransferFromRequest struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Amount string `json:"amount" validate:"amount"`
}

// ApproveRequest lets Spender move up to Amount of the caller's tokens.
type ApproveRequest struct {
	Spender string `json:"spender" validate:"required"`
	Amount  string `json:"amount" validate:"amount"`
}

// AllowanceRequest asks how much Spender may still move on behalf of Owner.
type AllowanceRequest struct {
	Owner   string `json:"owner" validate:"required"`
	Spender string `json:"spender" validate:"required"`
}

// BatchBalanceRequest reads the balance of several identities.
type BatchBalanceRequest struct {
	Identities []string `json:"identities" validate:"min=1,dive,required"`
}

// BatchTransferRequest submits several transfers for one identity.
type BatchTransferRequest struct {
	Transfers []TransferRequest `json:"transfers" validate:"min=1"`
}

// Normalize trims surrounding whitespace from the identity and metadata
// fields. Amounts and decimals are validated exactly as given.
func (r *InitializeRequest) Normalize() {
	r.Name, r.Symbol = trim(r.Name), trim(r.Symbol)
}

func (r *AmountRequest) Normalize() {}

func (r *TransferRequest) Normalize() {
	r.Recipient = trim(r.Recipient)
}

func (r *TransferFromRequest) Normalize() {
	r.From, r.To = trim(r.From), trim(r.To)
}

func (r *ApproveRequest) Normalize() {
	r.Spender = trim(r.Spender)
}

func (r *AllowanceRequest) Normalize() {
	r.Owner, r.Spender = trim(r.Owner), trim(r.Spender)
}

func (r *BatchBalanceRequest) Normalize() {
	for i := range r.Identities {
		r.Identities[i] = trim(r.Identities[i])
	}
}

func (r *BatchTransferRequest) Normalize() {
	for i := range r.Transfers {
		r.Transfers[i].Normalize()
	}
}

func trim(s string) string { return strings.TrimSpace(s) }

// Receipt is returned by state-changing operations.
type Receipt struct {
	TxID     string `json:"txId"`
	Function string `json:"function"`
	Identity string `json:"identity"`
}

// Balance of one account.
type Balance struct {
	Identity string          `json:"identity"`
	Balance  decimal.Decimal `json:"balance"`
}

// Allowance remaining for a spender.
type Allowance struct {
	Owner     string          `json:"owner"`
	Spender   string          `json:"spender"`
	Allowance decimal.Decimal `json:"allowance"`
}

// Account is the ledger account id of an identity.
type Account struct {
	Identity  string `json:"identity"`
	AccountID string `json:"accountId"`
}

// Info is the token metadata together with the current supply.
type Info struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    int             `json:"decimals"`
	TotalSupply decimal.Decimal `json:"totalSupply"`
}
