// Package auth resolves which enrolled identity an HTTP request acts as.
//
// With bearer auth enabled the identity is the token subject; otherwise it is
// taken from the X-Identity header, for deployments that terminate
// authentication in front of the gateway. Roles are never read from the
// request: they are derived later from the resolved identity.
package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
	apphttp "github.com/chainsafe/cbdc-gateway/pkg/app/http"
)

// HeaderIdentity carries the identity name when bearer auth is disabled.
const HeaderIdentity = "X-Identity"

// Middleware stores the caller identity in the request context. Requests
// without one are rejected with 401.
func Middleware(v *JWTValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, err := resolve(v, r)
			if err != nil {
				logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
				apphttp.DefaultErrorHandler(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), name)))
		})
	}
}

func resolve(v *JWTValidator, r *http.Request) (string, error) {
	if v != nil && v.IsConfigured() {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", apperrors.UnAuthorizedError(nil, "bearer token required")
		}
		sub, err := v.Subject(r.Context(), strings.TrimSpace(token))
		if err != nil {
			return "", apperrors.UnAuthorizedError(err, "invalid bearer token")
		}
		return sub, nil
	}

	name := strings.TrimSpace(r.Header.Get(HeaderIdentity))
	if name == "" {
		return "", apperrors.UnAuthorizedError(nil, "caller identity required")
	}
	return name, nil
}
