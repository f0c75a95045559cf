package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

// SecondsThreshold separates second and millisecond epoch timestamps. Values
// below it are taken as seconds; 10^12 ms is September 2001, while 10^12 s is
// tens of thousands of years away.
const SecondsThreshold = 1_000_000_000_000

// NormalizeTimestampMillis converts a ledger timestamp to epoch milliseconds.
// Numbers (or numeric strings) below SecondsThreshold are seconds and are
// multiplied by 1000; other strings must be RFC 3339.
func NormalizeTimestampMillis(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		return normalizeNumeric(string(t))
	case float64:
		return fromEpoch(t)
	case int64:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty timestamp")
		}
		if ms, err := normalizeNumeric(s); err == nil {
			return ms, nil
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, fmt.Errorf("unrecognized timestamp %q", s)
		}
		return ts.UnixMilli(), nil
	case nil:
		return 0, fmt.Errorf("missing timestamp")
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func normalizeNumeric(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric timestamp %q", s)
	}
	return fromEpoch(f)
}

// fromEpoch converts seconds or milliseconds to milliseconds. float64(MaxInt64)
// rounds up to 2^63, so anything at or above it does not fit.
func fromEpoch(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("invalid numeric timestamp %v", f)
	}
	if f < SecondsThreshold {
		return int64(math.Round(f * 1000)), nil
	}
	if f >= math.MaxInt64 {
		return 0, fmt.Errorf("timestamp %v is out of range", f)
	}
	return int64(f), nil
}

// Record is a normalized ledger transaction.
type Record struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	From            string `json:"from"`
	To              string `json:"to"`
	Spender         string `json:"spender,omitempty"`
	TimestampMillis int64  `json:"timestampMillis"`
	Status          string `json:"status,omitempty"`
}

var (
	idAliases        = []string{"id", "txId", "txID", "transactionId"}
	timestampAliases = []string{"timestamp", "timestampMillis", "time"}
)

func first(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// NormalizeRecord maps one raw ledger transaction onto Record.
func NormalizeRecord(raw map[string]any) (Record, error) {
	id, ok := first(raw, idAliases)
	if !ok {
		return Record{}, fmt.Errorf("transaction has no id")
	}

	amount := decimal.Zero
	switch v := raw["amount"].(type) {
	case nil:
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return Record{}, fmt.Errorf("transaction %v: invalid amount %q", id, v)
		}
		amount = d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return Record{}, fmt.Errorf("transaction %v: invalid amount %q", id, v)
		}
		amount = d
	case float64:
		amount = decimal.NewFromFloat(v)
	default:
		return Record{}, fmt.Errorf("transaction %v: unsupported amount type %T", id, v)
	}

	var millis int64
	if ts, ok := first(raw, timestampAliases); ok {
		ms, err := NormalizeTimestampMillis(ts)
		if err != nil {
			return Record{}, fmt.Errorf("transaction %v: %w", id, err)
		}
		millis = ms
	}

	return Record{
		ID:              fmt.Sprint(id),
		Type:            str(raw, "type"),
		Amount:          amount.String(),
		From:            str(raw, "from"),
		To:              str(raw, "to"),
		Spender:         str(raw, "spender"),
		TimestampMillis: millis,
		Status:          str(raw, "status"),
	}, nil
}

// ledgerPage is the union of the payload shapes the query functions return.
type ledgerPage struct {
	UserID           string            `json:"userID"`
	TotalCount       *int              `json:"totalCount"`
	CurrentPageCount *int              `json:"currentPageCount"`
	Transactions     []json.RawMessage `json:"transactions"`
	Pagination       *ledgerPagination `json:"pagination"`
	UserRole         json.RawMessage   `json:"userRole"`
}

type ledgerPagination struct {
	PageSize      *int   `json:"pageSize"`
	CurrentOffset *int   `json:"currentOffset"`
	NextOffset    *int   `json:"nextOffset"`
	HasMore       *bool  `json:"hasMore"`
	TotalCount    *int   `json:"totalCount"`
	NextBookmark  string `json:"nextBookmark"`
}

func decodePage(fn string, payload []byte) (*ledgerPage, []Record, error) {
	var page ledgerPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, nil, apperrors.SerializationError(err, fmt.Sprintf("%s returned malformed JSON", fn))
	}

	records := make([]Record, 0, len(page.Transactions))
	for _, rawTx := range page.Transactions {
		dec := json.NewDecoder(bytes.NewReader(rawTx))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, apperrors.SerializationError(err, fmt.Sprintf("%s returned a malformed transaction", fn))
		}
		rec, err := NormalizeRecord(raw)
		if err != nil {
			return nil, nil, apperrors.SerializationError(err, fmt.Sprintf("%s returned a malformed transaction", fn))
		}
		records = append(records, rec)
	}
	return &page, records, nil
}

// OffsetPagination is the paging state of offset and history pages.
type OffsetPagination struct {
	PageSize      int  `json:"pageSize"`
	CurrentOffset int  `json:"currentOffset"`
	NextOffset    int  `json:"nextOffset"`
	HasMore       bool `json:"hasMore"`
	TotalCount    int  `json:"totalCount"`
}

// NoNextOffset is the NextOffset of the last page.
const NoNextOffset = -1

// UnknownTotal is the TotalCount of a page whose ledger reported no total.
const UnknownTotal = -1

// NewOffsetPagination computes the paging state of the page at offset.
func NewOffsetPagination(pageSize, offset, totalCount int) OffsetPagination {
	p := OffsetPagination{
		PageSize:      pageSize,
		CurrentOffset: offset,
		NextOffset:    NoNextOffset,
		HasMore:       offset+pageSize < totalCount,
		TotalCount:    totalCount,
	}
	if p.HasMore {
		p.NextOffset = offset + pageSize
	}
	return p
}

// offsetPagination recomputes the paging state from the request and the
// ledger's total. Without a total the ledger's hasMore is trusted, falling
// back to whether the page came back full, and TotalCount is UnknownTotal.
func offsetPagination(req paging, page *ledgerPage, fetched int) OffsetPagination {
	total := page.TotalCount
	if page.Pagination != nil && page.Pagination.TotalCount != nil {
		total = page.Pagination.TotalCount
	}
	if total != nil {
		return NewOffsetPagination(req.size, req.offset, *total)
	}

	hasMore := fetched == req.size
	if page.Pagination != nil && page.Pagination.HasMore != nil {
		hasMore = *page.Pagination.HasMore
	}
	p := OffsetPagination{
		PageSize:      req.size,
		CurrentOffset: req.offset,
		NextOffset:    NoNextOffset,
		HasMore:       hasMore,
		TotalCount:    UnknownTotal,
	}
	if hasMore {
		p.NextOffset = req.offset + req.size
	}
	return p
}

// BookmarkPagination is the paging state of bookmark pages. NextBookmark is
// empty on the last page and must otherwise be passed back verbatim.
type BookmarkPagination struct {
	PageSize     int    `json:"pageSize"`
	NextBookmark string `json:"nextBookmark"`
	HasMore      bool   `json:"hasMore"`
}

func bookmarkPagination(req paging, page *ledgerPage, fetched int) BookmarkPagination {
	var next string
	hasMore := fetched == req.size
	if page.Pagination != nil {
		next = page.Pagination.NextBookmark
		if page.Pagination.HasMore != nil {
			hasMore = *page.Pagination.HasMore
		}
	}
	if next == "" {
		hasMore = false
	}
	p := BookmarkPagination{PageSize: req.size, HasMore: hasMore}
	if hasMore {
		p.NextBookmark = next
	}
	return p
}
