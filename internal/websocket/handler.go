package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/internal/config"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// Relay consumes inbound signals and connection lifecycle events. Implemented
// by the hub; kept as a local interface so the transport layer carries no
// business logic.
type Relay interface {
	// Dispatch queues one inbound signal for processing.
	Dispatch(conn interfaces.Connection, env types.InboundEnvelope) error

	// Disconnect notifies the relay that the transport dropped.
	Disconnect(conn interfaces.Connection)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced upstream by the platform's edge proxy.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades HTTP requests to WebSocket connections and pumps inbound
// frames into the relay. Connections start unauthenticated; credentials
// arrive in-band via the authenticate signal, never in the URL.
type Handler struct {
	relay Relay
	cfg   *config.WebSocketConfig
}

// NewHandler creates a WebSocket handler.
func NewHandler(relay Relay, cfg *config.WebSocketConfig) *Handler {
	return &Handler{
		relay: relay,
		cfg:   cfg,
	}
}

// HandleWebSocket accepts a duplex connection and starts its read pump.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(wsConn, h.cfg.BufferSize, h.cfg.WriteTimeout)
	log.Printf("Connection established: handle=%s remote=%s", conn.ID(), r.RemoteAddr)

	go h.readPump(conn)
}

// readPump reads frames until the transport drops, forwarding each decoded
// signal to the relay. Teardown always reaches the relay exactly once, from
// the deferred disconnect, regardless of how the loop exits.
func (h *Handler) readPump(conn *Connection) {
	defer func() {
		h.relay.Disconnect(conn)
		_ = conn.Close()
		log.Printf("Connection closed: handle=%s", conn.ID())
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error on %s: %v", conn.ID(), err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var env types.InboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			// Malformed payload is terminal for this frame only.
			_ = conn.Send(types.EventError, types.ErrorPayload{Message: "malformed payload"})
			continue
		}

		if err := h.relay.Dispatch(conn, env); err != nil {
			log.Printf("Dispatch failed for %s event %q: %v", conn.ID(), env.Event, err)
			_ = conn.Send(types.EventError, types.ErrorPayload{Message: "server busy, signal dropped"})
		}
	}
}
