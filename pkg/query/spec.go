// Package query runs the transaction queries of the token contract and
// normalizes what the ledger returns into stable page shapes.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/creasty/defaults"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

// Mode selects the ledger query shape.
type Mode string

const (
	ModeRich     Mode = "rich"
	ModeOffset   Mode = "offset"
	ModeBookmark Mode = "bookmark"
	ModeHistory  Mode = "history"
	ModeAll      Mode = "all"
)

// Function returns the chaincode function serving the mode.
func (m Mode) Function() string {
	switch m {
	case ModeRich:
		return token.FnQueryUserTransactions
	case ModeOffset:
		return token.FnQueryUserTransactionsWithOffset
	case ModeBookmark:
		return token.FnQueryUserTransactionsWithBookmark
	case ModeHistory:
		return token.FnGetUserTransactionHistory
	case ModeAll:
		return token.FnQueryAllTransactions
	}
	return ""
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m.Function() == "" {
		return "", apperrors.ValidationError(nil, fmt.Sprintf("unknown query mode %q", s))
	}
	return m, nil
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Spec holds the filter and paging arguments of a query. All values are the
// decimal strings the chaincode expects. A zero MaxAmount means unbounded.
type Spec struct {
	UserID          string `json:"userId"`
	MinAmount       string `json:"minAmount" default:"0"`
	MaxAmount       string `json:"maxAmount" default:"0"`
	TransactionType string `json:"transactionType"`
	Counterparty    string `json:"counterparty"`
	PageSize        string `json:"pageSize" default:"20"`
	Offset          string `json:"offset" default:"0"`
	Bookmark        string `json:"bookmark"`
}

// paging is the validated numeric form of PageSize and Offset.
type paging struct {
	size   int
	offset int
}

// SpecFromValues reads a Spec from URL query parameters.
func SpecFromValues(v url.Values) *Spec {
	return &Spec{
		UserID:          v.Get("userId"),
		MinAmount:       v.Get("minAmount"),
		MaxAmount:       v.Get("maxAmount"),
		TransactionType: v.Get("transactionType"),
		Counterparty:    v.Get("counterparty"),
		PageSize:        v.Get("pageSize"),
		Offset:          v.Get("offset"),
		Bookmark:        v.Get("bookmark"),
	}
}

func (s *Spec) hasFilters() bool {
	return s.MinAmount != "" || s.MaxAmount != "" || s.TransactionType != "" || s.Counterparty != ""
}

// Prepare trims the spec, checks it against mode, applies defaults and
// validates the result. Offset and bookmark are checked for exclusivity
// before defaults are applied, since the offset default would otherwise
// always collide.
func (s *Spec) Prepare(mode Mode, maxPageSize int) error {
	_, err := s.prepare(mode, maxPageSize)
	return err
}

func (s *Spec) prepare(mode Mode, maxPageSize int) (paging, error) {
	var p paging
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	for _, f := range []*string{&s.UserID, &s.MinAmount, &s.MaxAmount, &s.TransactionType, &s.Counterparty, &s.PageSize, &s.Offset, &s.Bookmark} {
		*f = strings.TrimSpace(*f)
	}

	if s.Offset != "" && s.Bookmark != "" {
		return p, apperrors.ValidationError(nil, "offset and bookmark are mutually exclusive")
	}
	switch mode {
	case ModeRich:
		if s.PageSize != "" || s.Offset != "" || s.Bookmark != "" {
			return p, apperrors.ValidationError(nil, "rich queries are not paginated; use offset or bookmark mode")
		}
	case ModeOffset:
		if s.Bookmark != "" {
			return p, apperrors.ValidationError(nil, "bookmark is not accepted in offset mode")
		}
	case ModeBookmark:
		if s.Offset != "" {
			return p, apperrors.ValidationError(nil, "offset is not accepted in bookmark mode")
		}
	case ModeHistory:
		if s.Bookmark != "" {
			return p, apperrors.ValidationError(nil, "bookmark is not accepted in history mode")
		}
		if s.hasFilters() || s.UserID != "" {
			return p, apperrors.ValidationError(nil, "history queries take no filters and always list the caller's own transactions")
		}
	case ModeAll:
		if s.Bookmark != "" {
			return p, apperrors.ValidationError(nil, "bookmark is not accepted in all-transactions mode")
		}
		if s.UserID != "" {
			return p, apperrors.ValidationError(nil, "userId is not accepted in all-transactions mode; visibility follows the caller's role")
		}
	default:
		return p, apperrors.ValidationError(nil, fmt.Sprintf("unknown query mode %q", mode))
	}

	if err := defaults.Set(s); err != nil {
		return p, apperrors.GeneralError(err)
	}

	minAmount, err := nonNegative("minAmount", s.MinAmount)
	if err != nil {
		return p, err
	}
	maxAmount, err := nonNegative("maxAmount", s.MaxAmount)
	if err != nil {
		return p, err
	}
	if maxAmount > 0 && minAmount > maxAmount {
		return p, apperrors.ValidationError(nil, fmt.Sprintf("minAmount %s exceeds maxAmount %s", s.MinAmount, s.MaxAmount))
	}

	if p.size, err = strconv.Atoi(s.PageSize); err != nil || p.size < 1 || p.size > maxPageSize {
		return p, apperrors.ValidationError(nil, fmt.Sprintf("pageSize must be an integer between 1 and %d, got %q", maxPageSize, s.PageSize))
	}
	if p.offset, err = nonNegativeInt("offset", s.Offset); err != nil {
		return p, err
	}
	return p, nil
}

func nonNegative(field, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, apperrors.ValidationError(nil, fmt.Sprintf("%s must be a non-negative integer, got %q", field, v))
	}
	return n, nil
}

func nonNegativeInt(field, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.ValidationError(nil, fmt.Sprintf("%s must be a non-negative integer, got %q", field, v))
	}
	return n, nil
}

// Tuple returns the rich-query argument tuple
// (minAmount, maxAmount, transactionType, counterparty, pageSize, offset).
func (s *Spec) Tuple() []string {
	return []string{s.MinAmount, s.MaxAmount, s.TransactionType, s.Counterparty, s.PageSize, s.Offset}
}

// Args returns the chaincode arguments for mode. userID is ignored in ModeAll.
func (s *Spec) Args(mode Mode, userID string) []string {
	filters := s.Tuple()[:4]
	switch mode {
	case ModeRich:
		return append([]string{userID}, filters...)
	case ModeOffset:
		return append(append([]string{userID}, filters...), s.PageSize, s.Offset)
	case ModeBookmark:
		return append(append([]string{userID}, filters...), s.PageSize, s.Bookmark)
	case ModeHistory:
		return []string{userID, s.PageSize, s.Offset}
	default:
		return s.Tuple()
	}
}

// Conditions echoes the filters a page was produced with.
type Conditions struct {
	MinAmount       string `json:"minAmount"`
	MaxAmount       string `json:"maxAmount"`
	TransactionType string `json:"transactionType"`
	Counterparty    string `json:"counterparty"`
}

func (s *Spec) conditions() Conditions {
	return Conditions{
		MinAmount:       s.MinAmount,
		MaxAmount:       s.MaxAmount,
		TransactionType: s.TransactionType,
		Counterparty:    s.Counterparty,
	}
}
