package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/fabrictest"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/session"
	"github.com/chainsafe/cbdc-gateway/pkg/identity"
	"github.com/chainsafe/cbdc-gateway/pkg/role"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

func newEnv(t *testing.T) *fabrictest.Env {
	t.Helper()
	env, err := fabrictest.NewEnv()
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

// seed issues the token and records ten transactions, seven of which
// involve BankAUser1.
func seed(t *testing.T, env *fabrictest.Env) {
	t.Helper()
	ctx := context.Background()
	submit := func(name, fn string, args ...string) {
		t.Helper()
		err := env.Sessions.WithSession(ctx, name, func(s *session.Session) error {
			_, err := s.Submit(ctx, fn, args...)
			return err
		})
		require.NoError(t, err, "%s %v", fn, args)
	}

	submit(fabrictest.CentralBankAdmin, token.FnInitialize, "Digital Yuan", "DCEP", "2")
	submit(fabrictest.CentralBankAdmin, token.FnMint, "1000")
	for _, amt := range []string{"10", "20", "30", "40", "50"} {
		submit(fabrictest.CentralBankAdmin, token.FnTransfer, fabrictest.BankAUser1, amt)
	}
	submit(fabrictest.BankAUser1, token.FnTransfer, fabrictest.BankAUser2, "5")
	submit(fabrictest.BankAUser1, token.FnTransfer, fabrictest.BankAUser2, "6")
	submit(fabrictest.CentralBankAdmin, token.FnTransfer, fabrictest.BankBUser1, "100")
}

func setupEngine(t *testing.T) (*fabrictest.Env, *Engine) {
	t.Helper()
	env := newEnv(t)
	seed(t, env)
	return env, NewEngine(env.Sessions, zap.NewNop())
}

func assertNoLeak(t *testing.T, env *fabrictest.Env) {
	t.Helper()
	assert.Equal(t, env.Ledger.Opened(), env.Ledger.Closed(), "every opened session must be closed")
}

func ids(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestEngine_RichDefaultsToCallerAccount(t *testing.T) {
	env, e := setupEngine(t)

	res := e.Rich(context.Background(), fabrictest.BankAUser1, &Spec{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, fabrictest.BankAUser1, res.Data.UserID)
	assert.Equal(t, 7, res.Data.TotalCount)
	assert.Len(t, res.Data.Transactions, 7)
	assert.Equal(t, Conditions{MinAmount: "0", MaxAmount: "0"}, res.Data.Conditions)

	newest := res.Data.Transactions[0]
	assert.Equal(t, "6", newest.Amount)
	assert.Equal(t, fabrictest.BankAUser2, newest.To)
	assert.Greater(t, newest.TimestampMillis, int64(SecondsThreshold), "timestamps must be in milliseconds")

	assertNoLeak(t, env)
}

func TestEngine_RichFilters(t *testing.T) {
	_, e := setupEngine(t)
	ctx := context.Background()

	res := e.Rich(ctx, fabrictest.BankAUser1, &Spec{MinAmount: "20", MaxAmount: "40", TransactionType: "TRANSFER"})
	require.True(t, res.Success, res.Error)
	amounts := []string{}
	for _, r := range res.Data.Transactions {
		amounts = append(amounts, r.Amount)
	}
	assert.Equal(t, []string{"40", "30", "20"}, amounts)

	res = e.Rich(ctx, fabrictest.BankAUser1, &Spec{Counterparty: fabrictest.BankAUser2})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Data.TotalCount)

	res = e.Rich(ctx, fabrictest.CentralBankAdmin, &Spec{UserID: fabrictest.BankBUser1})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, fabrictest.BankBUser1, res.Data.UserID)
	assert.Equal(t, 1, res.Data.TotalCount)
}

func TestEngine_OffsetPagingVisitsEveryPage(t *testing.T) {
	env, e := setupEngine(t)
	ctx := context.Background()

	var (
		seen  []string
		pages int
		last  OffsetPagination
	)
	offset := "0"
	for {
		res := e.Offset(ctx, fabrictest.BankAUser1, &Spec{PageSize: "3", Offset: offset})
		require.True(t, res.Success, res.Error)
		pages++
		last = res.Data.Pagination
		assert.Equal(t, 7, last.TotalCount)
		assert.Equal(t, 3, last.PageSize)
		seen = append(seen, ids(res.Data.Transactions)...)
		if !last.HasMore {
			break
		}
		offset = itoa(last.NextOffset)
		require.Less(t, pages, 10)
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, NoNextOffset, last.NextOffset)
	assert.Equal(t, 6, last.CurrentOffset)
	assert.Len(t, seen, 7)
	assert.ElementsMatch(t, seen, uniq(seen))
	assertNoLeak(t, env)
}

func TestEngine_BookmarkPaging(t *testing.T) {
	env, e := setupEngine(t)
	ctx := context.Background()

	var (
		seen     []string
		pages    int
		bookmark string
	)
	for {
		res := e.Bookmark(ctx, fabrictest.BankAUser1, &Spec{PageSize: "3", Bookmark: bookmark})
		require.True(t, res.Success, res.Error)
		pages++
		seen = append(seen, ids(res.Data.Transactions)...)
		p := res.Data.Pagination
		if !p.HasMore {
			assert.Empty(t, p.NextBookmark, "last page must not carry a bookmark")
			break
		}
		require.NotEmpty(t, p.NextBookmark)
		bookmark = p.NextBookmark
		require.Less(t, pages, 10)
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, uniq(seen), 7)
	assertNoLeak(t, env)
}

func TestEngine_BookmarkPagingReusesSpec(t *testing.T) {
	env, e := setupEngine(t)
	ctx := context.Background()

	spec := &Spec{PageSize: " 3 ", TransactionType: "transfer"}
	var (
		seen  []string
		pages int
	)
	for {
		res := e.Bookmark(ctx, fabrictest.BankAUser1, spec)
		require.True(t, res.Success, res.Error)
		pages++
		seen = append(seen, ids(res.Data.Transactions)...)

		assert.Empty(t, spec.Offset, "the caller's spec must not be defaulted")
		assert.Empty(t, spec.MinAmount)
		assert.Equal(t, " 3 ", spec.PageSize, "the caller's spec must not be trimmed")
		assert.Equal(t, "0", res.Data.Conditions.MinAmount, "pages echo the defaulted filters")

		p := res.Data.Pagination
		if !p.HasMore {
			break
		}
		spec.Bookmark = p.NextBookmark
		require.Less(t, pages, 10)
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, uniq(seen), 7)
	assertNoLeak(t, env)
}

func TestEngine_NilSpecUsesDefaults(t *testing.T) {
	_, e := setupEngine(t)

	res := e.Offset(context.Background(), fabrictest.BankAUser1, nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, DefaultPageSize, res.Data.Pagination.PageSize)
	assert.Len(t, res.Data.Transactions, 7)
}

func TestEngine_HistoryMatchesRichRecords(t *testing.T) {
	_, e := setupEngine(t)
	ctx := context.Background()

	rich := e.Rich(ctx, fabrictest.BankAUser1, &Spec{})
	require.True(t, rich.Success, rich.Error)

	hist := e.History(ctx, fabrictest.BankAUser1, &Spec{PageSize: "10"})
	require.True(t, hist.Success, hist.Error)
	assert.Equal(t, fabrictest.BankAUser1, hist.Data.UserID)
	assert.False(t, hist.Data.Pagination.HasMore)
	assert.Equal(t, NoNextOffset, hist.Data.Pagination.NextOffset)

	// the history endpoint renders ids, amounts and timestamps differently
	require.Len(t, hist.Data.Transactions, len(rich.Data.Transactions))
	for i, r := range rich.Data.Transactions {
		h := hist.Data.Transactions[i]
		assert.Equal(t, r.ID, h.ID)
		assert.Equal(t, r.Amount, h.Amount)
		assert.Equal(t, r.TimestampMillis, h.TimestampMillis)
	}
}

func TestEngine_AllUsesDerivedRole(t *testing.T) {
	_, e := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		identity  string
		wantRole  role.Role
		wantCount int
	}{
		{"central bank sees everything", fabrictest.CentralBankAdmin, role.CentralBank, 10},
		{"bank admin sees its bank", fabrictest.BankAAdmin, role.BankAdmin, 7},
		{"end user sees own", fabrictest.BankAUser1, role.EndUser, 7},
		{"other bank user", fabrictest.BankBUser1, role.EndUser, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.All(ctx, tt.identity, &Spec{})
			require.True(t, res.Success, res.Error)
			assert.Equal(t, tt.wantRole, res.Data.UserRole.Role)
			assert.Equal(t, tt.identity, res.Data.UserRole.CallerID)
			assert.Equal(t, tt.wantCount, res.Data.Pagination.TotalCount)
			assert.Equal(t, tt.wantCount, res.Data.CurrentPageCount)
		})
	}
}

func TestEngine_AllIgnoresForgedLedgerRole(t *testing.T) {
	env := newEnv(t)
	seed(t, env)
	core, logs := observer.New(zap.WarnLevel)
	e := NewEngine(env.Sessions, zap.New(core))

	env.Ledger.ForgeRole(fabrictest.ReportedRole{
		CallerID:      fabrictest.BankAUser1,
		CallerDomain:  "banka.example.com",
		IsAdmin:       true,
		IsCentralBank: true,
	})

	res := e.All(context.Background(), fabrictest.BankAUser1, &Spec{})
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Data.UserRole.IsCentralBank)
	assert.False(t, res.Data.UserRole.IsAdmin)
	assert.Equal(t, role.EndUser, res.Data.UserRole.Role)
	assert.Equal(t, 1, logs.FilterMessageSnippet("differs from derived role").Len())
}

func TestEngine_ValidationOpensNoSession(t *testing.T) {
	env := newEnv(t)
	e := NewEngine(env.Sessions, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, apperrors.KindValidation, e.Offset(ctx, fabrictest.BankAUser1, &Spec{Offset: "3", Bookmark: "g1AAAA3"}).Kind)
	assert.Equal(t, apperrors.KindValidation, e.Bookmark(ctx, fabrictest.BankAUser1, &Spec{Offset: "3", Bookmark: "g1AAAA3"}).Kind)
	assert.Equal(t, apperrors.KindValidation, e.Offset(ctx, fabrictest.BankAUser1, &Spec{PageSize: "500"}).Kind)
	assert.Equal(t, apperrors.KindValidation, e.Run(ctx, fabrictest.BankAUser1, Mode("nope"), &Spec{}).Kind)
	assert.Zero(t, env.Ledger.Opened())
}

func TestEngine_SerializationErrors(t *testing.T) {
	env := newEnv(t)
	e := NewEngine(env.Sessions, zap.NewNop())
	ctx := context.Background()

	env.Ledger.Override(token.FnQueryUserTransactionsWithOffset, func(*identity.Identity, []string) ([]byte, error) {
		return []byte("<html>gateway timeout</html>"), nil
	})
	env.Ledger.Override(token.FnGetUserTransactionHistory, func(*identity.Identity, []string) ([]byte, error) {
		return []byte(`{"transactions":[{"txId":"tx1","amount":"many","timestamp":1}]}`), nil
	})

	res := e.Offset(ctx, fabrictest.BankAUser1, &Spec{})
	assert.Equal(t, apperrors.KindSerialization, res.Kind)

	hist := e.History(ctx, fabrictest.BankAUser1, &Spec{})
	assert.Equal(t, apperrors.KindSerialization, hist.Kind)

	env.Ledger.Override(token.FnQueryUserTransactionsWithBookmark, func(*identity.Identity, []string) ([]byte, error) {
		return []byte(`{"transactions":[{"txId":"tx1","amount":"1","timestamp":1e19}]}`), nil
	})
	bm := e.Bookmark(ctx, fabrictest.BankAUser1, &Spec{})
	assert.Equal(t, apperrors.KindSerialization, bm.Kind, "timestamps beyond int64 are rejected")

	assert.EqualValues(t, 3, env.Ledger.Opened())
	assertNoLeak(t, env)
}

func TestEngine_LedgerErrorsAreTyped(t *testing.T) {
	env := newEnv(t)
	e := NewEngine(env.Sessions, zap.NewNop())

	env.Ledger.Override(token.FnQueryAllTransactions, func(*identity.Identity, []string) ([]byte, error) {
		return nil, fabrictest.ChaincodeError("couchdb index missing")
	})

	res := e.All(context.Background(), fabrictest.CentralBankAdmin, &Spec{})
	assert.Equal(t, apperrors.KindLedger, res.Kind)
	assert.Contains(t, res.Error, "couchdb index missing")
	assertNoLeak(t, env)
}

func TestEngine_RunDispatches(t *testing.T) {
	_, e := setupEngine(t)

	res := e.Run(context.Background(), fabrictest.BankAUser1, ModeHistory, &Spec{PageSize: "2"})
	require.True(t, res.Success, res.Error)
	page, ok := res.Data.(HistoryPage)
	require.True(t, ok, "unexpected data %T", res.Data)
	assert.Len(t, page.Transactions, 2)
	assert.Equal(t, 2, page.Pagination.NextOffset)
}
