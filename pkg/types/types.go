package types

import (
	"encoding/json"
	"time"
)

// User is the relay's view of an account row. The CRUD layer owns the full
// record; the relay only needs identity and a display name.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Message is a persisted chat message. The store assigns ID on insert; after
// that the relay never mutates a message except to flip the read flag.
type Message struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"`
	ReceiverID string     `json:"receiver_id"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"created_at"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// Envelope is the wire frame in both directions: a named event plus a
// JSON-serializable payload.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// InboundEnvelope is the client->relay frame with the payload left raw so
// each signal handler can decode its own shape.
type InboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
