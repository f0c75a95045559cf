// Package http provides HTTP utilities including chi-compatible error handling
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	"github.com/chainsafe/cbdc-gateway/pkg/app/result"
)

// HandlerFunc defines a function that returns an error for clean error handling
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// HandleError wraps an error-returning HandlerFunc into a standard http.HandlerFunc
// This allows using clean error-returning handlers with any router (chi, http.ServeMux, etc.)
//
// Usage with chi:
//
//	r.Post("/mint", http.HandleError(handler.mint))
func HandleError(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			DefaultErrorHandler(w, err)
		}
	}
}

type errorResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	ErrMsg  string         `json:"error"`
	Kind    apperrors.Kind `json:"kind"`
	Code    int            `json:"code"`
}

// DefaultErrorHandler handles errors returned from HTTP handlers
func DefaultErrorHandler(w http.ResponseWriter, err error) {
	var svcErr *apperrors.ServiceError

	if errors.As(err, &svcErr) {
		detail := svcErr.Error()
		if svcErr.Kind == apperrors.KindInternal {
			detail = svcErr.Message
		}
		WriteJSON(w, svcErr.StatusCode(), &errorResponse{
			Message: svcErr.Message,
			ErrMsg:  detail,
			Kind:    svcErr.Kind,
			Code:    svcErr.StatusCode(),
		})
		return
	}

	// Handle unknown errors
	WriteJSON(w, http.StatusInternalServerError, &errorResponse{
		Message: "Unexpected Service Error",
		ErrMsg:  "Unexpected Service Error",
		Kind:    apperrors.KindInternal,
		Code:    http.StatusInternalServerError,
	})
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteResult writes an operation result with the status derived from its outcome.
func WriteResult[T any](w http.ResponseWriter, res result.Result[T]) {
	WriteJSON(w, res.StatusCode(), res)
}
