package auth

import (
	"context"

	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// Resolver maps a verified token subject to a user record via the store.
type Resolver struct {
	store interfaces.MessageStore
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(store interfaces.MessageStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the user for a verified subject. A token whose subject no
// longer exists in the store resolves to interfaces.ErrUserNotFound; the
// caller treats that as an authentication failure, not a crash.
func (r *Resolver) Resolve(ctx context.Context, subject string) (*types.User, error) {
	return r.store.FindUserByID(ctx, subject)
}
