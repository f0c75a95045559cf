package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	apphttp "github.com/chainsafe/cbdc-gateway/pkg/app/http"
	"github.com/chainsafe/cbdc-gateway/pkg/auth"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

const maxBodySize = 1 << 20 // 1MB

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the token endpoints on r. The caller identity must
// already be in the request context (see auth.Middleware).
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Get("/token/info", apphttp.HandleError(h.info))
	r.Get("/token/supply", apphttp.HandleError(h.supply))
	r.Post("/token/initialize", apphttp.HandleError(h.initialize))
	r.Post("/mint", apphttp.HandleError(h.mint))
	r.Post("/burn", apphttp.HandleError(h.burn))
	r.Post("/transfer", apphttp.HandleError(h.transfer))
	r.Post("/transfer/batch", apphttp.HandleError(h.batchTransfer))
	r.Post("/transfer-from", apphttp.HandleError(h.transferFrom))
	r.Post("/approve", apphttp.HandleError(h.approve))
	r.Get("/allowance", apphttp.HandleError(h.allowance))
	r.Get("/balance", apphttp.HandleError(h.balance))
	r.Post("/balance/batch", apphttp.HandleError(h.batchBalance))
	r.Get("/account", apphttp.HandleError(h.account))
}

func caller(r *http.Request) (string, error) {
	name, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return "", apperrors.UnAuthorizedError(nil, "caller identity required")
	}
	return name, nil
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}

func (h *HTTP) info(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.TokenInfo(r.Context(), name))
	return nil
}

func (h *HTTP) supply(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.TotalSupply(r.Context(), name))
	return nil
}

func (h *HTTP) initialize(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.InitializeRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.Initialize(r.Context(), name, &req))
	return nil
}

func (h *HTTP) mint(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.AmountRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.Mint(r.Context(), name, &req))
	return nil
}

func (h *HTTP) burn(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.AmountRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.Burn(r.Context(), name, &req))
	return nil
}

func (h *HTTP) transfer(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.TransferRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.Transfer(r.Context(), name, &req))
	return nil
}

func (h *HTTP) batchTransfer(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.BatchTransferRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.BatchTransfer(r.Context(), name, &req))
	return nil
}

func (h *HTTP) transferFrom(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.TransferFromRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.TransferFrom(r.Context(), name, &req))
	return nil
}

func (h *HTTP) approve(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.ApproveRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.Approve(r.Context(), name, &req))
	return nil
}

func (h *HTTP) allowance(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	req := token.AllowanceRequest{Owner: q.Get("owner"), Spender: q.Get("spender")}
	apphttp.WriteResult(w, h.service.Allowance(r.Context(), name, &req))
	return nil
}

func (h *HTTP) balance(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.Balance(r.Context(), name))
	return nil
}

// batchBalance reads the balances of the listed identities the caller is
// allowed to see.
func (h *HTTP) batchBalance(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	var req token.BatchBalanceRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.CallerBatchBalance(r.Context(), name, &req))
	return nil
}

func (h *HTTP) account(w http.ResponseWriter, r *http.Request) error {
	name, err := caller(r)
	if err != nil {
		return err
	}
	apphttp.WriteResult(w, h.service.AccountID(r.Context(), name))
	return nil
}
