package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/internal/config"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// recordingRelay captures dispatched signals and disconnects.
type recordingRelay struct {
	mu           sync.Mutex
	dispatched   []types.InboundEnvelope
	disconnects  int
	dispatchErr  error
	disconnected chan struct{}
}

func newRecordingRelay() *recordingRelay {
	return &recordingRelay{disconnected: make(chan struct{}, 1)}
}

func (r *recordingRelay) Dispatch(conn interfaces.Connection, env types.InboundEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dispatchErr != nil {
		return r.dispatchErr
	}
	r.dispatched = append(r.dispatched, env)
	return nil
}

func (r *recordingRelay) Disconnect(conn interfaces.Connection) {
	r.mu.Lock()
	r.disconnects++
	r.mu.Unlock()
	select {
	case r.disconnected <- struct{}{}:
	default:
	}
}

func (r *recordingRelay) dispatchedEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]string, len(r.dispatched))
	for i, env := range r.dispatched {
		events[i] = env.Event
	}
	return events
}

func testWebSocketConfig() *config.WebSocketConfig {
	return &config.WebSocketConfig{
		PingInterval: time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: time.Second,
		BufferSize:   16,
	}
}

func dialHandler(t *testing.T, relay Relay) *websocket.Conn {
	t.Helper()

	handler := NewHandler(relay, testWebSocketConfig())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial handler: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) types.InboundEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	var env types.InboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Failed to decode frame %q: %v", data, err)
	}
	return env
}

func TestHandler_DispatchesDecodedSignals(t *testing.T) {
	relay := newRecordingRelay()
	conn := dialHandler(t, relay)

	frame, _ := json.Marshal(map[string]interface{}{
		"event": types.EventTyping,
		"data":  map[string]interface{}{"conversationId": "42", "isTyping": true},
	})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := relay.dispatchedEvents(); len(events) == 1 {
			if events[0] != types.EventTyping {
				t.Fatalf("Expected typing event, got %q", events[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Signal never reached the relay")
}

func TestHandler_MalformedFrameIsNonFatal(t *testing.T) {
	relay := newRecordingRelay()
	conn := dialHandler(t, relay)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Event != types.EventError {
		t.Errorf("Expected error event, got %q", env.Event)
	}

	// The connection survived; a valid frame still goes through.
	frame, _ := json.Marshal(map[string]interface{}{"event": types.EventTyping, "data": map[string]interface{}{}})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Write after malformed frame failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(relay.dispatchedEvents()) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Connection did not survive the malformed frame")
}

func TestHandler_MissingEventNameIsRejected(t *testing.T) {
	relay := newRecordingRelay()
	conn := dialHandler(t, relay)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"data":{}}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Event != types.EventError {
		t.Errorf("Expected error event, got %q", env.Event)
	}
	if len(relay.dispatchedEvents()) != 0 {
		t.Error("Frame without an event name must not reach the relay")
	}
}

func TestHandler_DispatchFailureReportsBusy(t *testing.T) {
	relay := newRecordingRelay()
	relay.dispatchErr = ErrWriteTimeout // any error will do
	conn := dialHandler(t, relay)

	frame, _ := json.Marshal(map[string]interface{}{"event": types.EventTyping, "data": map[string]interface{}{}})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Event != types.EventError {
		t.Errorf("Expected error event, got %q", env.Event)
	}
}

func TestHandler_DisconnectReachesRelay(t *testing.T) {
	relay := newRecordingRelay()
	conn := dialHandler(t, relay)

	conn.Close()

	select {
	case <-relay.disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("Relay never notified of the disconnect")
	}
}
