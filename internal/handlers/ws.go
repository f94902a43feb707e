package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/chepyr/go-task-manager/internal/service"
	"github.com/gorilla/websocket"
)

const (
	EventTaskCreated       = "task_created"
	EventTaskStatusUpdated = "task_status_updated"
	EventTaskDeleted       = "task_deleted"
)

const (
	// writeWait bounds a single write to a peer.
	writeWait = 10 * time.Second
	// sendBuffer is how many events may queue for one connection before it
	// is dropped as too slow.
	sendBuffer = 16
)

type TaskEvent struct {
	Event string       `json:"event"`
	Task  *models.Task `json:"task"`
}

// wsClient is one open connection. Only its writer goroutine writes to conn.
type wsClient struct {
	conn   *websocket.Conn
	caller service.Caller
	send   chan []byte
}

// WSHub tracks open websocket connections together with the caller that
// opened them. Broadcasting never waits on a peer.
type WSHub struct {
	clients map[*wsClient]struct{}
	mutex   sync.Mutex
}

func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*wsClient]struct{})}
}

func (hub *WSHub) add(conn *websocket.Conn, caller service.Caller) *wsClient {
	client := &wsClient{conn: conn, caller: caller, send: make(chan []byte, sendBuffer)}
	hub.mutex.Lock()
	hub.clients[client] = struct{}{}
	hub.mutex.Unlock()
	go client.writeLoop()
	return client
}

// remove unregisters client and stops its writer, which closes the
// connection. Safe to call more than once.
func (hub *WSHub) remove(client *wsClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.drop(client)
}

// drop must be called with the mutex held.
func (hub *WSHub) drop(client *wsClient) {
	if _, ok := hub.clients[client]; !ok {
		return
	}
	delete(hub.clients, client)
	close(client.send)
}

// BroadcastTaskEvent queues event for every admin and for the workers
// assigned to task. A connection whose queue is full is dropped.
func (hub *WSHub) BroadcastTaskEvent(event string, task *models.Task) {
	message, err := json.Marshal(TaskEvent{Event: event, Task: task})
	if err != nil {
		log.Printf("Failed to marshal task event: %v", err)
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	for client := range hub.clients {
		if !client.caller.IsAdmin() && !task.IsAssignedTo(client.caller.ID) {
			continue
		}
		select {
		case client.send <- message:
		default:
			log.Printf("WebSocket client %s too slow, dropping", client.caller.ID)
			hub.drop(client)
		}
	}
}

// Close drops every connection, used on shutdown.
func (hub *WSHub) Close() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	for client := range hub.clients {
		hub.drop(client)
	}
}

func (hub *WSHub) size() int {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.clients)
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("Failed to send WebSocket message: %v", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.AllowedOrigin == "" || origin == h.AllowedOrigin
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.WSHub == nil {
		sendError(w, "Live updates are disabled", http.StatusServiceUnavailable)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if !h.checkOrigin(r) {
		log.Printf("WebSocket origin rejected: %s", r.Header.Get("Origin"))
		sendError(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	client := h.WSHub.add(conn, caller)
	log.Printf("WebSocket connected: %s", caller.ID)

	// the feed is one-way; reading only detects the client going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			h.WSHub.remove(client)
			return
		}
	}
}
