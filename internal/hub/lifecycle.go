package hub

import (
	"encoding/json"
	"log"

	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// handleAuthenticate drives the Connected -> Authenticated transition. On any
// failure the connection stays open and unauthenticated; the client may retry.
func (h *Hub) handleAuthenticate(conn interfaces.Connection, data json.RawMessage) {
	if _, ok := h.registry.UserForConnection(conn.ID()); ok {
		h.sendError(conn, "already authenticated")
		return
	}

	var payload types.AuthenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Token == "" {
		h.sendAuthError(conn, "missing token")
		return
	}

	subject, err := h.verifier.Verify(payload.Token)
	if err != nil {
		h.sendAuthError(conn, "invalid or expired token")
		return
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	user, err := h.resolver.Resolve(ctx, subject)
	if err != nil {
		if err == interfaces.ErrUserNotFound {
			h.sendAuthError(conn, "unknown user")
		} else {
			log.Printf("Identity lookup failed for subject %s: %v", subject, err)
			h.sendAuthError(conn, "authentication temporarily unavailable")
		}
		return
	}

	conn.SetIdentity(user.ID, user.Name)
	h.registry.Register(user.ID, conn)

	if err := conn.Send(types.EventAuthenticated, types.AuthenticatedPayload{User: user}); err != nil {
		log.Printf("Failed to confirm authentication to %s: %v", conn.ID(), err)
	}

	log.Printf("Connection authenticated: handle=%s user=%s", conn.ID(), user.ID)

	h.broadcast(types.EventUserOnline, types.PresencePayload{
		UserID:   user.ID,
		UserName: user.Name,
	}, conn.ID())
}

// handleDisconnect tears down registry and room state for a dropped
// connection. Idempotent, and it must not assume the connection ever
// authenticated.
func (h *Hub) handleDisconnect(conn interfaces.Connection) {
	userID, wasRegistered := h.registry.UserForConnection(conn.ID())

	h.registry.Unregister(conn.ID())
	h.rooms.LeaveAll(conn.ID())

	if !wasRegistered {
		return
	}

	// An orphaned connection going away does not take the user offline: the
	// superseding connection still holds the registry entry.
	if _, stillOnline := h.registry.ConnectionForUser(userID); stillOnline {
		return
	}

	log.Printf("Connection disconnected: handle=%s user=%s", conn.ID(), userID)

	h.broadcast(types.EventUserOffline, types.PresencePayload{
		UserID:   userID,
		UserName: conn.DisplayName(),
	}, conn.ID())
}

func (h *Hub) sendAuthError(conn interfaces.Connection, message string) {
	if err := conn.Send(types.EventAuthError, types.ErrorPayload{Message: message}); err != nil {
		log.Printf("Failed to send auth error to %s: %v", conn.ID(), err)
	}
}
