package interfaces

import (
	"context"
	"time"

	"chatrelay/pkg/types"
)

// MessageStore is the relay's persistence boundary. All other storage (needs,
// donations, offers, reviews) belongs to the CRUD layer and is out of scope.
type MessageStore interface {
	// InsertMessage durably records a message and returns it with the
	// store-assigned ID. The relay must not fan out a message whose insert
	// failed.
	InsertMessage(ctx context.Context, senderID, receiverID, body string, ts time.Time) (*types.Message, error)

	// MarkMessageRead flips the read flag for messageID, guarded so only the
	// addressed receiver can mark it and only once. Returns the updated
	// message, or (nil, nil) when no row matched: unknown ID, wrong reader,
	// or already read are all benign no-ops.
	MarkMessageRead(ctx context.Context, messageID, readerID string) (*types.Message, error)

	// FindUserByID resolves a verified token subject to a user record.
	// Returns ErrUserNotFound when no such user exists.
	FindUserByID(ctx context.Context, userID string) (*types.User, error)

	// HealthCheck verifies store connectivity.
	HealthCheck(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// TokenVerifier validates a bearer token and extracts its subject. The relay
// only verifies tokens; issuance lives elsewhere.
type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}
