package hub

import (
	"encoding/json"
	"log"
	"time"

	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// handleSendMessage persists a message and fans it out to the conversation
// room, plus at most one direct notification to a recipient who is connected
// but has not joined the room. Persist-then-relay: if the store call fails,
// nothing is delivered to anyone.
func (h *Hub) handleSendMessage(conn interfaces.Connection, senderID string, data json.RawMessage) {
	var payload types.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(conn, "malformed payload")
		return
	}

	if !types.IsValidConversationID(payload.ConversationID) {
		h.sendError(conn, types.ErrInvalidConversationID.Error())
		return
	}
	if !types.IsValidUserID(payload.ReceiverID) {
		h.sendError(conn, types.ErrInvalidUserID.Error())
		return
	}
	if err := types.ValidateMessageBody(payload.Message); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	// Sender identity and display name are captured here, before the store
	// call. If the sender disconnects while the insert is in flight, the
	// message is still delivered to whoever is in the room at delivery time.
	senderName := conn.DisplayName()

	ctx, cancel := h.storeContext()
	defer cancel()

	message, err := h.store.InsertMessage(ctx, senderID, payload.ReceiverID, payload.Message, time.Now())
	if err != nil {
		log.Printf("Message persistence failed for %s: %v", senderID, err)
		h.sendError(conn, "message could not be delivered")
		return
	}

	outbound := types.MessageEvent{
		MessageID:      message.ID,
		ConversationID: payload.ConversationID,
		SenderID:       message.SenderID,
		SenderName:     senderName,
		ReceiverID:     message.ReceiverID,
		Body:           message.Body,
		Timestamp:      message.CreatedAt,
	}

	for _, member := range h.rooms.MembersOf(payload.ConversationID) {
		if err := member.Send(types.EventNewMessage, outbound); err != nil {
			log.Printf("Failed to deliver message %s to %s: %v", message.ID, member.ID(), err)
		}
	}

	// Direct notification for a recipient who is online but not in the room.
	// Never duplicated: a recipient already in the room was covered by the
	// fan-out above.
	receiverConn, online := h.registry.ConnectionForUser(payload.ReceiverID)
	if online && !h.rooms.IsMember(payload.ConversationID, receiverConn.ID()) {
		if err := receiverConn.Send(types.EventMessageNotification, outbound); err != nil {
			log.Printf("Failed to notify %s of message %s: %v", payload.ReceiverID, message.ID, err)
		}
	}
}
