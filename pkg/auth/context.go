package auth

import "context"

type contextKey string

// ContextKeyIdentity is the context key for the name of the identity a request acts as.
const ContextKeyIdentity contextKey = "identity"

// WithIdentity adds the identity name to the context
func WithIdentity(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, name)
}

// IdentityFromContext retrieves the identity name from the context
func IdentityFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ContextKeyIdentity).(string)
	return name, ok && name != ""
}
