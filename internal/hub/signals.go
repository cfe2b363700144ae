package hub

import (
	"encoding/json"
	"log"

	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// handleJoinConversation adds the connection to a room, creating the room on
// first join.
func (h *Hub) handleJoinConversation(conn interfaces.Connection, data json.RawMessage) {
	var payload types.JoinConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil || !types.IsValidConversationID(payload.ConversationID) {
		h.sendError(conn, types.ErrInvalidConversationID.Error())
		return
	}

	h.rooms.Join(payload.ConversationID, conn)

	if err := conn.Send(types.EventJoinedConversation, types.ConversationPayload{ConversationID: payload.ConversationID}); err != nil {
		log.Printf("Failed to confirm join to %s: %v", conn.ID(), err)
	}
}

// handleLeaveConversation removes the connection from a room.
func (h *Hub) handleLeaveConversation(conn interfaces.Connection, data json.RawMessage) {
	var payload types.LeaveConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil || !types.IsValidConversationID(payload.ConversationID) {
		h.sendError(conn, types.ErrInvalidConversationID.Error())
		return
	}

	h.rooms.Leave(payload.ConversationID, conn.ID())

	if err := conn.Send(types.EventLeftConversation, types.ConversationPayload{ConversationID: payload.ConversationID}); err != nil {
		log.Printf("Failed to confirm leave to %s: %v", conn.ID(), err)
	}
}

// handleTyping broadcasts a typing-state change to the other members of the
// room. Ephemeral: nothing is persisted and delivery is best-effort.
func (h *Hub) handleTyping(conn interfaces.Connection, userID string, data json.RawMessage) {
	var payload types.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || !types.IsValidConversationID(payload.ConversationID) {
		h.sendError(conn, types.ErrInvalidConversationID.Error())
		return
	}

	outbound := types.UserTypingPayload{
		ConversationID: payload.ConversationID,
		UserID:         userID,
		UserName:       conn.DisplayName(),
		IsTyping:       payload.IsTyping,
	}

	for _, member := range h.rooms.MembersOf(payload.ConversationID) {
		if member.ID() == conn.ID() {
			continue
		}
		if err := member.Send(types.EventUserTyping, outbound); err != nil {
			log.Printf("Failed to deliver typing state to %s: %v", member.ID(), err)
		}
	}
}

// handleMarkAsRead flips a message's read flag and, when the update landed,
// emits a read receipt to the original sender if they are connected. A store
// update that affects no row is a benign no-op: unknown IDs and foreign
// messages look identical to the reader.
func (h *Hub) handleMarkAsRead(conn interfaces.Connection, readerID string, data json.RawMessage) {
	var payload types.MarkAsReadPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == "" {
		h.sendError(conn, "malformed payload")
		return
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	message, err := h.store.MarkMessageRead(ctx, payload.MessageID, readerID)
	if err != nil {
		log.Printf("Mark-as-read failed for message %s by %s: %v", payload.MessageID, readerID, err)
		h.sendError(conn, "could not mark message as read")
		return
	}
	if message == nil || message.ReadAt == nil {
		return
	}

	senderConn, online := h.registry.ConnectionForUser(message.SenderID)
	if !online {
		return
	}

	receipt := types.MessageReadPayload{
		MessageID: message.ID,
		ReadBy:    readerID,
		ReadAt:    *message.ReadAt,
	}
	if err := senderConn.Send(types.EventMessageRead, receipt); err != nil {
		log.Printf("Failed to deliver read receipt to %s: %v", message.SenderID, err)
	}
}
