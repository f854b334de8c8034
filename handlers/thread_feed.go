package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"postforum/metrics"
	"postforum/models"
)

const feedWriteTimeout = 5 * time.Second

// ThreadEvent is what subscribers of a thread receive for each new reply.
type ThreadEvent struct {
	Type   string       `json:"type"`
	RootID int          `json:"root_id"`
	Post   *models.Post `json:"post"`
}

// ThreadHub fans new replies out to the websocket clients reading a thread.
type ThreadHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	events   chan ThreadEvent

	mu      sync.Mutex
	clients map[int]map[*websocket.Conn]bool
}

func NewThreadHub(logger *zap.Logger) *ThreadHub {
	return &ThreadHub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		events:   make(chan ThreadEvent, 64),
		clients:  make(map[int]map[*websocket.Conn]bool),
	}
}

// Publish queues a reply for delivery. It never blocks the request that created
// the reply; when the queue is full the event is dropped.
func (hub *ThreadHub) Publish(post *models.Post) {
	event := ThreadEvent{Type: "reply", RootID: post.RootID, Post: post}
	select {
	case hub.events <- event:
	default:
		hub.logger.Warn("thread feed queue full, dropping event", zap.Int("root_id", post.RootID))
	}
}

// Run delivers queued events until ctx is done, then closes every connection.
func (hub *ThreadHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			hub.closeAll()
			return
		case event := <-hub.events:
			hub.broadcast(event)
		}
	}
}

func (hub *ThreadHub) broadcast(event ThreadEvent) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for conn := range hub.clients[event.RootID] {
		conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			hub.logger.Debug("Error sending thread event", zap.Int("root_id", event.RootID), zap.Error(err))
			conn.Close()
			hub.remove(event.RootID, conn)
		}
	}
}

// remove expects hub.mu to be held.
func (hub *ThreadHub) remove(rootID int, conn *websocket.Conn) {
	conns := hub.clients[rootID]
	if !conns[conn] {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(hub.clients, rootID)
	}
	metrics.ThreadSubscribers.Dec()
}

func (hub *ThreadHub) add(rootID int, conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.clients[rootID] == nil {
		hub.clients[rootID] = make(map[*websocket.Conn]bool)
	}
	hub.clients[rootID][conn] = true
	metrics.ThreadSubscribers.Inc()
}

func (hub *ThreadHub) closeAll() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for rootID, conns := range hub.clients {
		for conn := range conns {
			conn.Close()
			hub.remove(rootID, conn)
		}
	}
}

// Subscribers reports how many clients watch the thread rooted at rootID.
func (hub *ThreadHub) Subscribers(rootID int) int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients[rootID])
}

// ThreadFeed upgrades to a websocket that receives the replies posted to the
// thread of {pk}. Anything the client sends is read and discarded.
func (h *Handler) ThreadFeed(w http.ResponseWriter, r *http.Request, post *models.Post) {
	if h.hub == nil {
		http.Error(w, "Thread feed unavailable.", http.StatusServiceUnavailable)
		return
	}
	hub := h.hub

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade error", zap.Error(err))
		return
	}

	rootID := post.RootID
	hub.add(rootID, conn)
	defer func() {
		hub.mu.Lock()
		hub.remove(rootID, conn)
		hub.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
