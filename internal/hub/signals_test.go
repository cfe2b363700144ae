package hub

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/pkg/types"
)

func TestJoinLeaveConversation(t *testing.T) {
	h := newTestHub(newFakeStore("alice"))
	conn := authenticate(t, h, "h1", "alice")

	join(t, h, conn, "42")
	assert.True(t, h.rooms.IsMember("42", "h1"))

	h.handleSignal(conn, env(t, types.EventLeaveConversation, types.LeaveConversationPayload{ConversationID: "42"}))
	assert.Equal(t, 1, conn.eventCount(types.EventLeftConversation))
	assert.False(t, h.rooms.IsMember("42", "h1"))

	// Leaving a room never joined is acknowledged all the same.
	h.handleSignal(conn, env(t, types.EventLeaveConversation, types.LeaveConversationPayload{ConversationID: "99"}))
	assert.Equal(t, 2, conn.eventCount(types.EventLeftConversation))
}

func TestJoinConversation_InvalidRoomID(t *testing.T) {
	h := newTestHub(newFakeStore("alice"))
	conn := authenticate(t, h, "h1", "alice")

	h.handleSignal(conn, env(t, types.EventJoinConversation, types.JoinConversationPayload{ConversationID: "no spaces"}))

	assert.Equal(t, 1, conn.eventCount(types.EventError))
	assert.Equal(t, 0, conn.eventCount(types.EventJoinedConversation))
}

func TestTyping_ExcludesSender(t *testing.T) {
	h := newTestHub(newFakeStore("alice", "bob", "carol"))
	aliceConn := authenticate(t, h, "h1", "alice")
	bobConn := authenticate(t, h, "h2", "bob")
	carolConn := authenticate(t, h, "h3", "carol")
	join(t, h, aliceConn, "42")
	join(t, h, bobConn, "42")

	h.handleSignal(aliceConn, env(t, types.EventTyping, types.TypingPayload{ConversationID: "42", IsTyping: true}))

	assert.Equal(t, 0, aliceConn.eventCount(types.EventUserTyping))
	require.Equal(t, 1, bobConn.eventCount(types.EventUserTyping))
	assert.Equal(t, 0, carolConn.eventCount(types.EventUserTyping), "typing stays inside the room")

	state := bobConn.events(types.EventUserTyping)[0].(types.UserTypingPayload)
	assert.Equal(t, "alice", state.UserID)
	assert.True(t, state.IsTyping)

	h.handleSignal(aliceConn, env(t, types.EventTyping, types.TypingPayload{ConversationID: "42", IsTyping: false}))
	require.Equal(t, 2, bobConn.eventCount(types.EventUserTyping))
	assert.False(t, bobConn.events(types.EventUserTyping)[1].(types.UserTypingPayload).IsTyping)
}

func TestMarkAsRead_ReceiptToSender(t *testing.T) {
	store := newFakeStore("alice", "bob")
	h := newTestHub(store)
	aliceConn := authenticate(t, h, "h1", "alice")
	bobConn := authenticate(t, h, "h2", "bob")
	join(t, h, aliceConn, "42")
	join(t, h, bobConn, "42")

	sendMessage(t, h, aliceConn, "42", "bob", "read me")
	messageID := bobConn.events(types.EventNewMessage)[0].(types.MessageEvent).MessageID

	h.handleSignal(bobConn, env(t, types.EventMarkAsRead, types.MarkAsReadPayload{MessageID: messageID, ConversationID: "42"}))

	require.Equal(t, 1, aliceConn.eventCount(types.EventMessageRead))
	receipt := aliceConn.events(types.EventMessageRead)[0].(types.MessageReadPayload)
	assert.Equal(t, messageID, receipt.MessageID)
	assert.Equal(t, "bob", receipt.ReadBy)
	assert.False(t, receipt.ReadAt.IsZero())
}

// Unknown IDs, foreign messages, and double marks all disappear without an
// error or a receipt.
func TestMarkAsRead_BenignNoOps(t *testing.T) {
	store := newFakeStore("alice", "bob", "carol")
	h := newTestHub(store)
	aliceConn := authenticate(t, h, "h1", "alice")
	bobConn := authenticate(t, h, "h2", "bob")
	carolConn := authenticate(t, h, "h3", "carol")
	join(t, h, aliceConn, "42")
	join(t, h, bobConn, "42")

	sendMessage(t, h, aliceConn, "42", "bob", "for bob only")
	messageID := bobConn.events(types.EventNewMessage)[0].(types.MessageEvent).MessageID

	// Carol is not the receiver.
	h.handleSignal(carolConn, env(t, types.EventMarkAsRead, types.MarkAsReadPayload{MessageID: messageID}))
	// Nobody has this message.
	h.handleSignal(bobConn, env(t, types.EventMarkAsRead, types.MarkAsReadPayload{MessageID: "msg-missing"}))

	assert.Equal(t, 0, aliceConn.eventCount(types.EventMessageRead))
	assert.Equal(t, 0, carolConn.eventCount(types.EventError))
	assert.Equal(t, 0, bobConn.eventCount(types.EventError))

	// The real mark lands once; marking again is silent.
	h.handleSignal(bobConn, env(t, types.EventMarkAsRead, types.MarkAsReadPayload{MessageID: messageID}))
	h.handleSignal(bobConn, env(t, types.EventMarkAsRead, types.MarkAsReadPayload{MessageID: messageID}))
	assert.Equal(t, 1, aliceConn.eventCount(types.EventMessageRead))
}

func TestMarkAsRead_StoreFailure(t *testing.T) {
	store := newFakeStore("alice", "bob")
	h := newTestHub(store)
	bobConn := authenticate(t, h, "h2", "bob")

	store.markErr = errors.New("database locked")
	h.handleSignal(bobConn, env(t, types.EventMarkAsRead, types.MarkAsReadPayload{MessageID: "msg-1"}))

	assert.Equal(t, 1, bobConn.eventCount(types.EventError))
}

func TestMarkAsRead_SenderOffline(t *testing.T) {
	store := newFakeStore("alice", "bob")
	h := newTestHub(store)
	aliceConn := authenticate(t, h, "h1", "alice")
	bobConn := authenticate(t, h, "h2", "bob")
	join(t, h, aliceConn, "42")
	join(t, h, bobConn, "42")

	sendMessage(t, h, aliceConn, "42", "bob", "bye")
	messageID := bobConn.events(types.EventNewMessage)[0].(types.MessageEvent).MessageID
	h.handleDisconnect(aliceConn)

	// Receipt is simply dropped when the sender is gone.
	h.handleSignal(bobConn, env(t, types.EventMarkAsRead, types.MarkAsReadPayload{MessageID: messageID}))
	assert.Equal(t, 0, bobConn.eventCount(types.EventError))
}
