package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"

	"RoomBoard/internal/store"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Notifier fans out room change events.
type Notifier interface {
	Publish(ctx context.Context, ev store.Event) error
}

type client struct {
	id     ksuid.KSUID
	roomID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks the websocket watchers of every room on this server.
type Hub struct {
	rooms map[string]map[*client]bool
	mu    sync.RWMutex
}

var _ Notifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]bool),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.roomID] == nil {
		h.rooms[c.roomID] = make(map[*client]bool)
	}
	h.rooms[c.roomID][c] = true
	log.Printf("[SERVER] Watcher %s joined room %s (%d watching)", c.id, c.roomID, len(h.rooms[c.roomID]))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	watchers, ok := h.rooms[c.roomID]
	if !ok || !watchers[c] {
		return
	}
	delete(watchers, c)
	close(c.send)
	if len(watchers) == 0 {
		delete(h.rooms, c.roomID)
	}
	log.Printf("[SERVER] Watcher %s left room %s", c.id, c.roomID)
}

// Watchers returns how many connections are watching roomID.
func (h *Hub) Watchers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast queues data for every watcher of roomID. A watcher whose queue is
// full is dropped.
func (h *Hub) Broadcast(roomID string, data []byte) {
	var slow []*client
	h.mu.RLock()
	for c := range h.rooms[roomID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		log.Printf("[SERVER] Dropping slow watcher %s", c.id)
		h.remove(c)
	}
}

// Publish delivers ev to this server's watchers of the event's room.
func (h *Hub) Publish(_ context.Context, ev store.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	h.Broadcast(ev.RoomID, data)
	return nil
}

// ServeWS upgrades the request and streams roomID's events until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] Websocket upgrade failed: %v", err)
		return
	}
	c := &client{id: ksuid.New(), roomID: roomID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)

	go c.readLoop(h)
	c.writeLoop()
}

// readLoop drains the connection so close frames are seen.
func (c *client) readLoop(h *Hub) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[SERVER] Write to watcher %s failed: %v", c.id, err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
