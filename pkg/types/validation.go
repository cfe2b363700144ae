package types

import (
	"regexp"
	"strings"
)

// Compiled once; validation runs on every inbound signal.
var (
	userIDRegex         = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	conversationIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// MaxMessageBodyBytes caps a single chat message body at 64KB.
const MaxMessageBodyBytes = 65536

// IsValidUserID checks if a user ID meets format requirements.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// IsValidConversationID checks a conversation identifier. The identifier is
// minted by the REST layer and opaque to the relay; only shape is enforced.
func IsValidConversationID(conversationID string) bool {
	if len(conversationID) < 1 || len(conversationID) > 64 {
		return false
	}
	return conversationIDRegex.MatchString(conversationID)
}

// ValidateMessageBody rejects bodies that are empty after trimming or exceed
// the size cap. The trimmed form is not substituted; the original body is
// what gets persisted and relayed.
func ValidateMessageBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessageBody
	}
	if len(body) > MaxMessageBodyBytes {
		return ErrMessageBodyTooLarge
	}
	return nil
}
