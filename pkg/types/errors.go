package types

import "errors"

// Validation error types shared across components.
var (
	ErrInvalidUserID         = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidConversationID = errors.New("conversation ID must be 1-64 characters, alphanumeric + underscore/hyphen only")
	ErrEmptyMessageBody      = errors.New("message body cannot be empty")
	ErrMessageBodyTooLarge   = errors.New("message body exceeds 64KB limit")
)
