package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/pkg/auth"
	"github.com/chainsafe/cbdc-gateway/pkg/fabricsdk/fabrictest"
	"github.com/chainsafe/cbdc-gateway/pkg/query"
	"github.com/chainsafe/cbdc-gateway/pkg/registry"
	tokenservice "github.com/chainsafe/cbdc-gateway/pkg/token/service"
)

func newTestRouter(t *testing.T, metricsEnabled bool) (*fabrictest.Env, http.Handler) {
	t.Helper()
	env, err := fabrictest.NewEnv()
	require.NoError(t, err)
	t.Cleanup(env.Close)

	logger := zap.NewNop()
	h := Handlers{
		Token:    tokenservice.NewLog(tokenservice.NewTokenService(env.Sessions), logger),
		Query:    query.NewEngine(env.Sessions, logger),
		Registry: registry.New(env.Profiles, env.Identities, "CentralBank", logger),
	}
	return env, NewRouter(h, metricsEnabled, logger)
}

func serve(h http.Handler, method, path, identityName, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if identityName != "" {
		req.Header.Set(auth.HeaderIdentity, identityName)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	_, h := newTestRouter(t, true)

	rec := serve(h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = serve(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	_, h := newTestRouter(t, false)

	rec := serve(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_NetworkReadNeedsNoCaller(t *testing.T) {
	_, h := newTestRouter(t, false)

	rec := serve(h, http.MethodGet, "/api/v1/network", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Success bool `json:"success"`
		Data    struct {
			Channel   string `json:"channel"`
			Chaincode string `json:"chaincode"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "cbdc-channel", got.Data.Channel)
	assert.Equal(t, "cbdc", got.Data.Chaincode)
}

func TestRouter_TokenFlow(t *testing.T) {
	env, h := newTestRouter(t, false)

	rec := serve(h, http.MethodGet, "/api/v1/balance", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodPost, "/api/v1/token/initialize", fabrictest.CentralBankAdmin,
		`{"name":"Digital Yuan","symbol":"DCEP","decimals":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodPost, "/api/v1/token/mint", fabrictest.CentralBankAdmin, `{"amount":"500"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodGet, "/api/v1/transactions/history", fabrictest.CentralBankAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, int64(3), env.Ledger.Opened())
	assert.Equal(t, env.Ledger.Opened(), env.Ledger.Closed())
}
