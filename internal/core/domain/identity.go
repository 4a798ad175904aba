package domain

import "context"

// Identity is the authenticated caller. UserID is the value stored in
// Contract.CreatedBy.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type identityContextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}
