package identity

import "context"

// Identity is the authenticated caller as seen by the tenant isolation layer.
type Identity struct {
	Subject  string
	Tenant   string
	IsUser   bool
	IsDevice bool
}

type ctxKey struct{}

// WithContext stores the identity in the context.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the identity from the context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
