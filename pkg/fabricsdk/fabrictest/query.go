package fabrictest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chainsafe/cbdc-gateway/pkg/identity"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

const bookmarkPrefix = "g1AAAA"

type filter struct {
	min, max     decimal.Decimal
	txType       string
	counterparty string
}

func parseFilter(args []string) (filter, error) {
	lo, err := decimal.NewFromString(args[0])
	if err != nil {
		return filter{}, ChaincodeError(fmt.Sprintf("invalid minAmount %q", args[0]))
	}
	hi, err := decimal.NewFromString(args[1])
	if err != nil {
		return filter{}, ChaincodeError(fmt.Sprintf("invalid maxAmount %q", args[1]))
	}
	return filter{min: lo, max: hi, txType: args[2], counterparty: args[3]}, nil
}

func (f filter) match(tx Transaction, user string) bool {
	if f.min.IsPositive() && tx.Amount.LessThan(f.min) {
		return false
	}
	if f.max.IsPositive() && tx.Amount.GreaterThan(f.max) {
		return false
	}
	if f.txType != "" && !strings.EqualFold(f.txType, tx.Type) {
		return false
	}
	if f.counterparty != "" {
		other := tx.To
		if tx.To == user {
			other = tx.From
		}
		if user == "" {
			if tx.From != f.counterparty && tx.To != f.counterparty {
				return false
			}
		} else if other != f.counterparty {
			return false
		}
	}
	return true
}

func (f filter) conditions() map[string]string {
	return map[string]string{
		"minAmount":       f.min.String(),
		"maxAmount":       f.max.String(),
		"transactionType": f.txType,
		"counterparty":    f.counterparty,
	}
}

func involves(tx Transaction, user string) bool {
	return tx.From == user || tx.To == user || tx.Spender == user
}

// newestFirst returns the transactions accepted by keep, newest first.
func (l *Ledger) newestFirst(keep func(Transaction) bool) []Transaction {
	var out []Transaction
	for i := len(l.txs) - 1; i >= 0; i-- {
		if keep(l.txs[i]) {
			out = append(out, l.txs[i])
		}
	}
	return out
}

// recordJSON renders tx the way the chaincode does: amount as a JSON number and
// timestamp in unix seconds.
func recordJSON(tx Transaction) map[string]any {
	r := map[string]any{
		"txId":      tx.ID,
		"type":      tx.Type,
		"amount":    json.Number(tx.Amount.String()),
		"from":      tx.From,
		"to":        tx.To,
		"timestamp": tx.Timestamp.Unix(),
		"status":    "SUCCESS",
	}
	if tx.Spender != "" {
		r["spender"] = tx.Spender
	}
	return r
}

// historyJSON renders tx the way the history endpoint does, which differs
// from the query endpoints in field names and timestamp encoding.
func historyJSON(tx Transaction) map[string]any {
	r := map[string]any{
		"txID":      tx.ID,
		"type":      tx.Type,
		"amount":    tx.Amount.String(),
		"from":      tx.From,
		"to":        tx.To,
		"timestamp": tx.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	if tx.Spender != "" {
		r["spender"] = tx.Spender
	}
	return r
}

func render(txs []Transaction, f func(Transaction) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		out = append(out, f(tx))
	}
	return out
}

func page(txs []Transaction, size, offset int) []Transaction {
	if offset >= len(txs) {
		return nil
	}
	end := offset + size
	if end > len(txs) {
		end = len(txs)
	}
	return txs[offset:end]
}

func atoiArg(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, ChaincodeError(fmt.Sprintf("invalid %s %q", name, v))
	}
	return n, nil
}

func (l *Ledger) query(caller *identity.Identity, fn string, args []string) ([]byte, error) {
	switch fn {
	case token.FnQueryUserTransactions:
		if err := arity(args, 5); err != nil {
			return nil, err
		}
		f, err := parseFilter(args[1:5])
		if err != nil {
			return nil, err
		}
		user := args[0]
		txs := l.newestFirst(func(tx Transaction) bool { return involves(tx, user) && f.match(tx, user) })
		return mustJSON(map[string]any{
			"userID":          user,
			"queryConditions": f.conditions(),
			"totalCount":      len(txs),
			"transactions":    render(txs, recordJSON),
		}), nil

	case token.FnQueryUserTransactionsWithOffset:
		if err := arity(args, 7); err != nil {
			return nil, err
		}
		f, err := parseFilter(args[1:5])
		if err != nil {
			return nil, err
		}
		size, err := atoiArg("pageSize", args[5])
		if err != nil {
			return nil, err
		}
		offset, err := atoiArg("offset", args[6])
		if err != nil {
			return nil, err
		}
		user := args[0]
		txs := l.newestFirst(func(tx Transaction) bool { return involves(tx, user) && f.match(tx, user) })
		return mustJSON(map[string]any{
			"userID":          user,
			"queryConditions": f.conditions(),
			"transactions":    render(page(txs, size, offset), recordJSON),
			"pagination":      offsetPagination(size, offset, len(txs)),
		}), nil

	case token.FnQueryUserTransactionsWithBookmark:
		if err := arity(args, 7); err != nil {
			return nil, err
		}
		f, err := parseFilter(args[1:5])
		if err != nil {
			return nil, err
		}
		size, err := atoiArg("pageSize", args[5])
		if err != nil {
			return nil, err
		}
		start := 0
		if args[6] != "" {
			n, err := strconv.Atoi(strings.TrimPrefix(args[6], bookmarkPrefix))
			if err != nil || !strings.HasPrefix(args[6], bookmarkPrefix) {
				return nil, ChaincodeError(fmt.Sprintf("invalid bookmark %q", args[6]))
			}
			start = n
		}
		user := args[0]
		txs := l.newestFirst(func(tx Transaction) bool { return involves(tx, user) && f.match(tx, user) })
		fetched := page(txs, size, start)
		next := start + len(fetched)
		// CouchDB hands out a bookmark even on the last page
		return mustJSON(map[string]any{
			"userID":          user,
			"queryConditions": f.conditions(),
			"transactions":    render(fetched, recordJSON),
			"pagination": map[string]any{
				"pageSize":            size,
				"nextBookmark":        fmt.Sprintf("%s%d", bookmarkPrefix, next),
				"hasMore":             next < len(txs),
				"fetchedRecordsCount": len(fetched),
			},
		}), nil

	case token.FnGetUserTransactionHistory:
		if err := arity(args, 3); err != nil {
			return nil, err
		}
		size, err := atoiArg("pageSize", args[1])
		if err != nil {
			return nil, err
		}
		offset, err := atoiArg("offset", args[2])
		if err != nil {
			return nil, err
		}
		user := args[0]
		txs := l.newestFirst(func(tx Transaction) bool { return involves(tx, user) })
		return mustJSON(map[string]any{
			"userID":       user,
			"transactions": render(page(txs, size, offset), historyJSON),
			"pagination":   offsetPagination(size, offset, len(txs)),
		}), nil

	default: // token.FnQueryAllTransactions
		if err := arity(args, 6); err != nil {
			return nil, err
		}
		f, err := parseFilter(args[0:4])
		if err != nil {
			return nil, err
		}
		size, err := atoiArg("pageSize", args[4])
		if err != nil {
			return nil, err
		}
		offset, err := atoiArg("offset", args[5])
		if err != nil {
			return nil, err
		}

		reported := l.callerRole(caller)
		visible := func(tx Transaction) bool {
			switch {
			case caller.OrganizationType == identity.CentralBank:
				return true
			case strings.EqualFold(caller.Designation(), "admin"):
				d := caller.Domain()
				return domainOf(tx.From) == d || domainOf(tx.To) == d
			default:
				return involves(tx, caller.Name)
			}
		}
		txs := l.newestFirst(func(tx Transaction) bool { return visible(tx) && f.match(tx, "") })
		current := page(txs, size, offset)
		return mustJSON(map[string]any{
			"queryConditions":  f.conditions(),
			"pagination":       offsetPagination(size, offset, len(txs)),
			"currentPageCount": len(current),
			"transactions":     render(current, recordJSON),
			"userRole":         reported,
		}), nil
	}
}

func (l *Ledger) callerRole(caller *identity.Identity) ReportedRole {
	if l.forgedRole != nil {
		return *l.forgedRole
	}
	return ReportedRole{
		CallerID:      caller.Name,
		CallerDomain:  caller.Domain(),
		IsAdmin:       strings.EqualFold(caller.Designation(), "admin"),
		IsCentralBank: caller.OrganizationType == identity.CentralBank,
	}
}

func offsetPagination(size, offset, total int) map[string]any {
	hasMore := offset+size < total
	next := -1
	if hasMore {
		next = offset + size
	}
	return map[string]any{
		"pageSize":      size,
		"currentOffset": offset,
		"nextOffset":    next,
		"hasMore":       hasMore,
		"totalCount":    total,
	}
}
