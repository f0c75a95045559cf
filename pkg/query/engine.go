package query

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/internal/metrics"
	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/app/result"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/session"
	"github.com/chainsafe/cbdc-gateway/pkg/role"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

// RichPage holds every transaction matching the filters, up to the ledger's cap.
type RichPage struct {
	UserID       string     `json:"userId"`
	Conditions   Conditions `json:"queryConditions"`
	TotalCount   int        `json:"totalCount"`
	Transactions []Record   `json:"transactions"`
}

// OffsetPage is one page of an offset-paginated query.
type OffsetPage struct {
	UserID       string           `json:"userId"`
	Conditions   Conditions       `json:"queryConditions"`
	Transactions []Record         `json:"transactions"`
	Pagination   OffsetPagination `json:"pagination"`
}

// BookmarkPage is one page of a bookmark-paginated query.
type BookmarkPage struct {
	UserID       string             `json:"userId"`
	Conditions   Conditions         `json:"queryConditions"`
	Transactions []Record           `json:"transactions"`
	Pagination   BookmarkPagination `json:"pagination"`
}

// HistoryPage is one page of the caller's own transaction history.
type HistoryPage struct {
	UserID       string           `json:"userId"`
	Transactions []Record         `json:"transactions"`
	Pagination   OffsetPagination `json:"pagination"`
}

// AllPage is one page of the all-transactions query. Which transactions it
// holds is decided by the ledger; UserRole describes the caller for display.
type AllPage struct {
	Conditions       Conditions       `json:"queryConditions"`
	Pagination       OffsetPagination `json:"pagination"`
	CurrentPageCount int              `json:"currentPageCount"`
	Transactions     []Record         `json:"transactions"`
	UserRole         role.CallerRole  `json:"userRole"`
}

// Engine runs transaction queries, one ledger session per query.
type Engine struct {
	sessions    session.Runner
	logger      *zap.Logger
	maxPageSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPageSize overrides MaxPageSize.
func WithMaxPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPageSize = n
		}
	}
}

// NewEngine creates a query engine.
func NewEngine(sessions session.Runner, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{sessions: sessions, logger: logger, maxPageSize: MaxPageSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rich returns all transactions of the user matching the filters.
func (e *Engine) Rich(ctx context.Context, identityName string, spec *Spec) result.Result[RichPage] {
	res := run(ctx, e, identityName, ModeRich, spec, func(ss *session.Session, spec *Spec, req paging, page *ledgerPage, recs []Record, userID string) (RichPage, error) {
		total := len(recs)
		if page.TotalCount != nil {
			total = *page.TotalCount
		}
		return RichPage{UserID: userID, Conditions: spec.conditions(), TotalCount: total, Transactions: recs}, nil
	})
	return observe(ModeRich, res)
}

// Offset returns one page of the user's transactions by offset.
func (e *Engine) Offset(ctx context.Context, identityName string, spec *Spec) result.Result[OffsetPage] {
	res := run(ctx, e, identityName, ModeOffset, spec, func(ss *session.Session, spec *Spec, req paging, page *ledgerPage, recs []Record, userID string) (OffsetPage, error) {
		return OffsetPage{
			UserID:       userID,
			Conditions:   spec.conditions(),
			Transactions: recs,
			Pagination:   offsetPagination(req, page, len(recs)),
		}, nil
	})
	return observe(ModeOffset, res)
}

// Bookmark returns one page of the user's transactions by bookmark.
func (e *Engine) Bookmark(ctx context.Context, identityName string, spec *Spec) result.Result[BookmarkPage] {
	res := run(ctx, e, identityName, ModeBookmark, spec, func(ss *session.Session, spec *Spec, req paging, page *ledgerPage, recs []Record, userID string) (BookmarkPage, error) {
		return BookmarkPage{
			UserID:       userID,
			Conditions:   spec.conditions(),
			Transactions: recs,
			Pagination:   bookmarkPagination(req, page, len(recs)),
		}, nil
	})
	return observe(ModeBookmark, res)
}

// History returns one page of the caller's own transactions.
func (e *Engine) History(ctx context.Context, identityName string, spec *Spec) result.Result[HistoryPage] {
	res := run(ctx, e, identityName, ModeHistory, spec, func(ss *session.Session, spec *Spec, req paging, page *ledgerPage, recs []Record, userID string) (HistoryPage, error) {
		return HistoryPage{
			UserID:       userID,
			Transactions: recs,
			Pagination:   offsetPagination(req, page, len(recs)),
		}, nil
	})
	return observe(ModeHistory, res)
}

// All returns one page of the transactions the ledger lets the caller see,
// together with the caller role derived from the session identity.
func (e *Engine) All(ctx context.Context, identityName string, spec *Spec) result.Result[AllPage] {
	res := run(ctx, e, identityName, ModeAll, spec, func(ss *session.Session, spec *Spec, req paging, page *ledgerPage, recs []Record, _ string) (AllPage, error) {
		derived := role.Derive(ss.Identity())
		e.checkReportedRole(ss, page.UserRole, derived)

		count := len(recs)
		if page.CurrentPageCount != nil {
			count = *page.CurrentPageCount
		}
		return AllPage{
			Conditions:       spec.conditions(),
			Pagination:       offsetPagination(req, page, len(recs)),
			CurrentPageCount: count,
			Transactions:     recs,
			UserRole:         derived,
		}, nil
	})
	return observe(ModeAll, res)
}

// Run dispatches spec to the query of mode and returns the page as JSON-ready data.
func (e *Engine) Run(ctx context.Context, identityName string, mode Mode, spec *Spec) result.Result[any] {
	switch mode {
	case ModeRich:
		return erase(e.Rich(ctx, identityName, spec))
	case ModeOffset:
		return erase(e.Offset(ctx, identityName, spec))
	case ModeBookmark:
		return erase(e.Bookmark(ctx, identityName, spec))
	case ModeHistory:
		return erase(e.History(ctx, identityName, spec))
	case ModeAll:
		return erase(e.All(ctx, identityName, spec))
	}
	_, err := ParseMode(string(mode))
	return result.Fail[any](err)
}

func erase[T any](r result.Result[T]) result.Result[any] {
	if !r.Success {
		return result.Fail[any](r.Err())
	}
	return result.OK[any](r.Data, r.Message)
}

// checkReportedRole compares the role the ledger attached to the page with
// the derived one. The ledger's claim is never returned to the caller.
func (e *Engine) checkReportedRole(ss *session.Session, raw json.RawMessage, derived role.CallerRole) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	var reported role.CallerRole
	if err := json.Unmarshal(raw, &reported); err != nil {
		e.logger.Warn("ledger reported an unreadable caller role",
			zap.String("session", ss.ID()),
			zap.Error(err))
		return
	}
	if !reported.Equal(derived) {
		e.logger.Warn("ledger reported caller role differs from derived role; using derived role",
			zap.String("session", ss.ID()),
			zap.String("identity", derived.CallerID),
			zap.Bool("reported_central_bank", reported.IsCentralBank),
			zap.Bool("reported_admin", reported.IsAdmin),
			zap.Bool("derived_central_bank", derived.IsCentralBank),
			zap.Bool("derived_admin", derived.IsAdmin))
	}
}

type shapeFunc[T any] func(ss *session.Session, spec *Spec, req paging, page *ledgerPage, recs []Record, userID string) (T, error)

// run validates a copy of spec, then inside one session resolves the user,
// evaluates the query and shapes the page. The caller's spec is left as it
// was so it can be reused for the next page.
func run[T any](ctx context.Context, e *Engine, identityName string, mode Mode, in *Spec, shape shapeFunc[T]) result.Result[T] {
	var spec Spec
	if in != nil {
		spec = *in
	}
	req, err := spec.prepare(mode, e.maxPageSize)
	if err != nil {
		return result.Fail[T](err)
	}

	out, err := session.Do(ctx, e.sessions, identityName, func(ss *session.Session) (T, error) {
		var zero T

		userID := spec.UserID
		if mode == ModeHistory || (mode != ModeAll && userID == "") {
			id, err := ss.Evaluate(ctx, token.FnClientAccountID)
			if err != nil {
				return zero, err
			}
			userID = strings.TrimSpace(string(id))
			if userID == "" {
				return zero, apperrors.SerializationError(nil, "ClientAccountID returned an empty account id")
			}
		}

		fn := mode.Function()
		payload, err := ss.Evaluate(ctx, fn, spec.Args(mode, userID)...)
		if err != nil {
			return zero, err
		}
		page, recs, err := decodePage(fn, payload)
		if err != nil {
			return zero, err
		}
		if page.UserID != "" && mode != ModeAll {
			userID = page.UserID
		}
		return shape(ss, &spec, req, page, recs, userID)
	})
	return result.From(out, err, "")
}

func observe[T any](mode Mode, res result.Result[T]) result.Result[T] {
	metrics.QueryPages.WithLabelValues(string(mode), metrics.Outcome(res.Err())).Inc()
	return res
}
