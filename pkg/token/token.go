// Package token holds the token contract vocabulary shared by the gateway:
// chaincode entrypoint names and the local argument rules applied before
// any request reaches the ledger.
package token

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Chaincode entrypoints of the CBDC token contract.
const (
	FnInitialize           = "Initialize"
	FnMint                 = "Mint"
	FnBurn                 = "Burn"
	FnTransfer             = "Transfer"
	FnTransferFrom         = "TransferFrom"
	FnApprove              = "Approve"
	FnAllowance            = "Allowance"
	FnClientAccountBalance = "ClientAccountBalance"
	FnClientAccountID      = "ClientAccountID"
	FnTotalSupply          = "TotalSupply"
	FnName                 = "Name"
	FnSymbol               = "Symbol"
	FnDecimals             = "Decimals"

	FnQueryUserTransactions             = "QueryUserTransactions"
	FnQueryUserTransactionsWithOffset   = "QueryUserTransactionsWithOffset"
	FnQueryUserTransactionsWithBookmark = "QueryUserTransactionsWithBookmark"
	FnGetUserTransactionHistory         = "GetUserTransactionHistory"
	FnQueryAllTransactions              = "QueryAllTransactions"
)

// MaxDecimals is the largest number of decimal places a token may declare.
const MaxDecimals = 18

var (
	amountPattern   = regexp.MustCompile(`^[1-9][0-9]*$`)
	decimalsPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
)

// IsValidAmount reports whether s is a positive integer without sign, leading
// zeros, fraction or exponent.
func IsValidAmount(s string) bool {
	return amountPattern.MatchString(s)
}

// IsValidDecimals reports whether s is an integer string in [0, MaxDecimals].
func IsValidDecimals(s string) bool {
	if !decimalsPattern.MatchString(s) {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n <= MaxDecimals
}

// ParseAmount parses a ledger-reported quantity. Ledgers answer with bare
// numbers, so surrounding whitespace and quotes are tolerated.
func ParseAmount(payload []byte) (decimal.Decimal, error) {
	s := string(payload)
	d, err := decimal.NewFromString(trimQuotes(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}
