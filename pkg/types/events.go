package types

import "time"

// Inbound event names (client -> relay).
const (
	EventAuthenticate      = "authenticate"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventMarkAsRead        = "mark_as_read"
)

// Outbound event names (relay -> client).
const (
	EventAuthenticated       = "authenticated"
	EventAuthError           = "auth_error"
	EventJoinedConversation  = "joined_conversation"
	EventLeftConversation    = "left_conversation"
	EventNewMessage          = "new_message"
	EventMessageNotification = "message_notification"
	EventUserTyping          = "user_typing"
	EventMessageRead         = "message_read"
	EventUserOnline          = "user_online"
	EventUserOffline         = "user_offline"
	EventError               = "error"
)

// Inbound payloads.

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type JoinConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type LeaveConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	ReceiverID     string `json:"receiverId"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

type MarkAsReadPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// Outbound payloads.

type AuthenticatedPayload struct {
	User *User `json:"user"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// MessageEvent is the body of new_message and message_notification. It carries
// the store-assigned message ID so clients can correlate read receipts.
type MessageEvent struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	ReceiverID     string    `json:"receiverId"`
	Body           string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

type UserTypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	IsTyping       bool   `json:"isTyping"`
}

type MessageReadPayload struct {
	MessageID string    `json:"messageId"`
	ReadBy    string    `json:"readBy"`
	ReadAt    time.Time `json:"readAt"`
}

type PresencePayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
