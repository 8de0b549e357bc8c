// Package gateway is the realtime layer: a websocket hub that maps user IDs
// to live connections, owns the in-memory presence tracker and relays the
// named events between clients and the chat service. All of its state is
// process-local; a reconnecting client is a brand-new connection.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"duochat/auth"
	"duochat/chat"
	"duochat/models"
	"duochat/presence"
	"duochat/store"
)

type Hub struct {
	secret    string
	awayAfter time.Duration

	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	presence *presence.Tracker
	statuses *store.Statuses
	chat     *chat.Service
}

func NewHub(secret string, awayAfter time.Duration, tracker *presence.Tracker, statuses *store.Statuses) *Hub {
	return &Hub{
		secret:     secret,
		awayAfter:  awayAfter,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   tracker,
		statuses:   statuses,
	}
}

// SetChatService breaks the construction cycle: the chat service emits
// through the hub, the hub dispatches inbound events to the chat service.
func (h *Hub) SetChatService(svc *chat.Service) {
	h.chat = svc
}

func (h *Hub) Run(ctx context.Context) {
	var away <-chan time.Time
	if h.awayAfter > 0 {
		ticker := time.NewTicker(h.awayAfter / 4)
		defer ticker.Stop()
		away = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.userID]; ok {
				old.conn.Close()
			}
			h.clients[client.userID] = client
			total := len(h.clients)
			h.mu.Unlock()

			h.appendStatus(client.userID, models.StatusOnline)
			entry := h.presence.SetOnline(client.userID, client.username)
			h.broadcastExcept(client.userID, "userStatusUpdate", statusUpdate(entry))
			client.enqueue("onlineUsers", h.presence.Online(client.userID))
			log.Printf("user %s connected (%d online)", client.username, total)

		case client := <-h.unregister:
			h.mu.Lock()
			current := h.clients[client.userID] == client
			if current {
				delete(h.clients, client.userID)
			}
			total := len(h.clients)
			// Closed under the lock so a concurrent emit or broadcast,
			// which send while holding h.mu, can never hit a closed channel.
			close(client.send)
			h.mu.Unlock()

			if !current {
				// Replaced by a newer connection for the same user.
				continue
			}

			h.appendStatus(client.userID, models.StatusOffline)
			if entry, ok := h.presence.SetOffline(client.userID); ok {
				h.broadcastExcept(client.userID, "userStatusUpdate", statusUpdate(entry))
			}
			log.Printf("user %s disconnected (%d online)", client.username, total)

		case <-away:
			for _, entry := range h.presence.MarkIdle(h.awayAfter) {
				h.Broadcast("userStatusUpdate", statusUpdate(entry))
			}
		}
	}
}

// StatusUpdate is the userStatusUpdate payload.
type StatusUpdate struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

func statusUpdate(e presence.Entry) StatusUpdate {
	return StatusUpdate{
		UserID:   e.ID,
		Username: e.Username,
		Status:   e.Status,
		LastSeen: e.LastSeen,
	}
}

// appendStatus writes a row to the durable presence log. Failures are logged;
// the in-memory state stays authoritative for this process.
func (h *Hub) appendStatus(userID, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.statuses.Create(ctx, userID, status, time.Now()); err != nil {
		log.Printf("status log append (%s -> %s) failed: %v", userID, status, err)
	}
}

func marshalEvent(event string, data any) ([]byte, bool) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("marshaling %s event failed: %v", event, err)
		return nil, false
	}
	return payload, true
}

// EmitToUser sends the event to the user's connection, reporting whether the
// user is connected to this process. Slow consumers have events dropped
// rather than blocking the caller. The lock is held across the send so the
// unregister path cannot close the channel underneath it.
func (h *Hub) EmitToUser(userID, event string, data any) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[userID]
	if !ok {
		return false
	}

	payload, ok := marshalEvent(event, data)
	if !ok {
		return true
	}
	select {
	case client.send <- payload:
	default:
		log.Printf("dropping %s event for slow client %s", event, userID)
	}
	return true
}

func (h *Hub) Broadcast(event string, data any) {
	h.broadcastExcept("", event, data)
}

func (h *Hub) broadcastExcept(exclude, event string, data any) {
	payload, ok := marshalEvent(event, data)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, client := range h.clients {
		if userID == exclude {
			continue
		}
		select {
		case client.send <- payload:
		default:
			log.Printf("dropping %s event for slow client %s", event, userID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleUpgrade authenticates the handshake and promotes the connection to a
// registered client. The token travels in ?token= or the Authorization
// header; a bad token is rejected before the upgrade with no detail beyond
// the status code.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := auth.VerifyToken(h.secret, token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		userID:   claims.Subject,
		username: claims.Username,
		send:     make(chan []byte, 256),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}
