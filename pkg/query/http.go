package query

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	apphttp "github.com/chainsafe/cbdc-gateway/pkg/app/http"
	"github.com/chainsafe/cbdc-gateway/pkg/auth"
)

// HTTP wraps the Engine to provide HTTP endpoints
type HTTP struct {
	engine *Engine
	logger *zap.Logger
}

// RegisterRoutes registers GET /transactions/{mode}. Only the filter and
// paging parameters of Spec are read; any other parameter, including role
// fields, is ignored.
func RegisterRoutes(r chi.Router, engine *Engine, logger *zap.Logger) {
	h := &HTTP{
		engine: engine,
		logger: logger,
	}

	r.Get("/transactions/{mode}", apphttp.HandleError(h.transactions))
}

func (h *HTTP) transactions(w http.ResponseWriter, r *http.Request) error {
	name, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "caller identity required")
	}
	mode, err := ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		return err
	}

	res := h.engine.Run(r.Context(), name, mode, SpecFromValues(r.URL.Query()))
	apphttp.WriteResult(w, res)
	return nil
}
