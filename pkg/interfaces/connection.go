package interfaces

// Connection is one live duplex transport session. The handle is assigned by
// the transport on accept and is never reused across reconnects.
type Connection interface {
	// ID returns the opaque connection handle.
	ID() string

	// Send writes a named event with a JSON-serializable payload to the
	// client. Implementations must be safe for concurrent use; delivery is
	// best-effort and an error means only that this connection did not take
	// the frame.
	Send(event string, data interface{}) error

	// SetIdentity records the authenticated user. Called exactly once per
	// connection, after a successful authenticate signal.
	SetIdentity(userID, displayName string)

	// UserID returns the authenticated user's ID, empty until SetIdentity.
	UserID() string

	// DisplayName returns the authenticated user's display name.
	DisplayName() string

	// IsAuthenticated reports whether SetIdentity has been called.
	IsAuthenticated() bool

	// Close tears down the transport and releases resources.
	Close() error
}
