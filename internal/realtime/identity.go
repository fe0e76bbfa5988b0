package realtime

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the resolved caller of a realtime operation.
type Identity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
}

type identityCtxKey struct{}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext returns the caller identity, if any. Absence of an
// identity is not an error: publish-type operations treat it as a no-op.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(Identity)
	return identity, ok
}

// IdentityProvider resolves the acting participant for an operation.
type IdentityProvider interface {
	Current(ctx context.Context) (Identity, bool)
}

// ContextIdentityProvider resolves identity from the request context, where
// the auth middleware stores it.
type ContextIdentityProvider struct{}

func (ContextIdentityProvider) Current(ctx context.Context) (Identity, bool) {
	return IdentityFromContext(ctx)
}
