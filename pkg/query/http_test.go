package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/pkg/auth"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/fabrictest"
)

func newQueryTestServer(t *testing.T) (*fabrictest.Env, http.Handler) {
	t.Helper()
	env, e := setupEngine(t)
	r := chi.NewRouter()
	r.Use(auth.Middleware(nil, zap.NewNop()))
	RegisterRoutes(r, e, zap.NewNop())
	return env, r
}

func get(t *testing.T, h http.Handler, path, identityName string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(auth.HeaderIdentity, identityName)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response JSON %q: %v", rec.Body.String(), err)
	}
	return rec.Code
}

func TestQueryHTTP_RoleCannotBeForged(t *testing.T) {
	env, h := newQueryTestServer(t)
	env.Ledger.ForgeRole(fabrictest.ReportedRole{IsCentralBank: true, IsAdmin: true})

	var got struct {
		Success bool `json:"success"`
		Data    struct {
			UserRole struct {
				CallerID      string `json:"callerId"`
				IsAdmin       bool   `json:"isAdmin"`
				IsCentralBank bool   `json:"isCentralBank"`
				Role          string `json:"role"`
			} `json:"userRole"`
			Pagination OffsetPagination `json:"pagination"`
		} `json:"data"`
	}
	code := get(t, h, "/transactions/all?isCentralBank=true&isAdmin=true&role=central_bank&userRole=central_bank", fabrictest.BankAUser1, &got)
	if code != http.StatusOK || !got.Success {
		t.Fatalf("expected success, got %d %+v", code, got)
	}
	if got.Data.UserRole.IsCentralBank || got.Data.UserRole.IsAdmin {
		t.Fatalf("caller-supplied role fields were honored: %+v", got.Data.UserRole)
	}
	if got.Data.UserRole.Role != "end_user" || got.Data.UserRole.CallerID != fabrictest.BankAUser1 {
		t.Fatalf("unexpected role %+v", got.Data.UserRole)
	}
	if got.Data.Pagination.TotalCount != 7 {
		t.Fatalf("expected 7 visible transactions, got %d", got.Data.Pagination.TotalCount)
	}
}

func TestQueryHTTP_OffsetAndBookmark_ReturnsBadRequest(t *testing.T) {
	env, h := newQueryTestServer(t)
	opened := env.Ledger.Opened()

	var got struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}
	code := get(t, h, "/transactions/offset?offset=3&bookmark=g1AAAA3", fabrictest.BankAUser1, &got)
	if code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, code)
	}
	if got.Kind != "ValidationError" || got.Message != "offset and bookmark are mutually exclusive" {
		t.Fatalf("unexpected body %+v", got)
	}
	if env.Ledger.Opened() != opened {
		t.Fatal("validation failure opened a session")
	}
}

func TestQueryHTTP_UnknownMode(t *testing.T) {
	_, h := newQueryTestServer(t)

	var got struct {
		Kind string `json:"kind"`
	}
	code := get(t, h, "/transactions/sideways", fabrictest.BankAUser1, &got)
	if code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, code)
	}
}

func TestQueryHTTP_OffsetPage(t *testing.T) {
	_, h := newQueryTestServer(t)

	var got struct {
		Data OffsetPage `json:"data"`
	}
	code := get(t, h, "/transactions/offset?pageSize=5&offset=5", fabrictest.BankAUser1, &got)
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	p := got.Data.Pagination
	if p.CurrentOffset != 5 || p.HasMore || p.NextOffset != NoNextOffset || len(got.Data.Transactions) != 2 {
		t.Fatalf("unexpected page %+v with %d transactions", p, len(got.Data.Transactions))
	}
}
