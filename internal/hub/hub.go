package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"chatrelay/internal/auth"
	"chatrelay/internal/registry"
	"chatrelay/internal/rooms"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// Hub is the relay's coordination point: a single goroutine drains the event
// channel and processes one inbound signal or disconnect at a time. Registry
// and room mutations therefore never interleave; the only suspension points
// are calls into the store, each bounded by storeTimeout.
type Hub struct {
	eventChannel    chan event
	shutdownChannel chan struct{}

	registry *registry.Registry
	rooms    *rooms.Manager
	store    interfaces.MessageStore
	verifier interfaces.TokenVerifier
	resolver *auth.Resolver

	storeTimeout time.Duration

	running bool
	mu      sync.RWMutex
}

type eventKind int

const (
	eventSignal eventKind = iota
	eventDisconnect
)

// event is one unit of work for the dispatch loop.
type event struct {
	kind eventKind
	conn interfaces.Connection
	env  types.InboundEnvelope
}

// NewHub creates a hub. The registry and room manager are owned values passed
// in at startup, not ambient globals, so the core stays testable with fake
// stores and connections.
func NewHub(reg *registry.Registry, roomMgr *rooms.Manager, store interfaces.MessageStore, verifier interfaces.TokenVerifier, storeTimeout time.Duration) *Hub {
	return &Hub{
		eventChannel:    make(chan event, 1000),
		shutdownChannel: make(chan struct{}),
		registry:        reg,
		rooms:           roomMgr,
		store:           store,
		verifier:        verifier,
		resolver:        auth.NewResolver(store),
		storeTimeout:    storeTimeout,
	}
}

// Start begins the dispatch loop.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting relay hub...")
	go h.run(ctx)

	return nil
}

// Stop shuts down the dispatch loop.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	log.Println("Stopping relay hub...")

	select {
	case <-h.shutdownChannel:
	default:
		close(h.shutdownChannel)
	}

	return nil
}

// Dispatch queues one inbound signal. Non-blocking: under burst the frame is
// dropped with an error rather than stalling the transport's read pump.
func (h *Hub) Dispatch(conn interfaces.Connection, env types.InboundEnvelope) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.eventChannel <- event{kind: eventSignal, conn: conn, env: env}:
		return nil
	default:
		return ErrEventChannelFull
	}
}

// Disconnect queues transport teardown for a connection. Unlike Dispatch this
// blocks until accepted: losing a disconnect would leak registry and room
// state.
func (h *Hub) Disconnect(conn interfaces.Connection) {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	select {
	case h.eventChannel <- event{kind: eventDisconnect, conn: conn}:
	case <-h.shutdownChannel:
	}
}

// run drains the event channel one event at a time.
func (h *Hub) run(ctx context.Context) {
	defer log.Println("Relay hub stopped")

	for {
		select {
		case ev := <-h.eventChannel:
			h.handleEvent(ev)
		case <-h.shutdownChannel:
			return
		case <-ctx.Done():
			log.Println("Relay hub context cancelled")
			return
		}
	}
}

func (h *Hub) handleEvent(ev event) {
	if ev.conn == nil {
		return
	}

	switch ev.kind {
	case eventDisconnect:
		h.handleDisconnect(ev.conn)
	case eventSignal:
		h.handleSignal(ev.conn, ev.env)
	}
}

// handleSignal routes one inbound signal. Every privileged signal checks the
// registry first; errors are terminal for the signal only and never close the
// connection.
func (h *Hub) handleSignal(conn interfaces.Connection, env types.InboundEnvelope) {
	if env.Event == types.EventAuthenticate {
		h.handleAuthenticate(conn, env.Data)
		return
	}

	userID, ok := h.registry.UserForConnection(conn.ID())
	if !ok {
		h.sendError(conn, "authentication required")
		return
	}

	switch env.Event {
	case types.EventJoinConversation:
		h.handleJoinConversation(conn, env.Data)
	case types.EventLeaveConversation:
		h.handleLeaveConversation(conn, env.Data)
	case types.EventSendMessage:
		h.handleSendMessage(conn, userID, env.Data)
	case types.EventTyping:
		h.handleTyping(conn, userID, env.Data)
	case types.EventMarkAsRead:
		h.handleMarkAsRead(conn, userID, env.Data)
	default:
		h.sendError(conn, "unknown event")
	}
}

// storeContext bounds a store call so a slow store delays, never wedges, the
// dispatch loop.
func (h *Hub) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.storeTimeout)
}

func (h *Hub) sendError(conn interfaces.Connection, message string) {
	if err := conn.Send(types.EventError, types.ErrorPayload{Message: message}); err != nil {
		log.Printf("Failed to send error to %s: %v", conn.ID(), err)
	}
}

// broadcast delivers an event to every active authenticated connection except
// excludeHandle. Best-effort, no delivery guarantee.
func (h *Hub) broadcast(eventName string, data interface{}, excludeHandle string) {
	for _, conn := range h.registry.Connections() {
		if conn.ID() == excludeHandle {
			continue
		}
		if err := conn.Send(eventName, data); err != nil {
			log.Printf("Failed to broadcast %s to %s: %v", eventName, conn.ID(), err)
		}
	}
}
