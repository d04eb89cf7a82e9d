package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/pratik7mo/AI-TaskManagement/internal/tasks"
)

const writeTimeout = 500 * time.Millisecond

// Hub tracks every live chat connection and fans events out to all of them.
// It is the process-wide broadcast path for both chat-originated and
// REST-originated task mutations.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: map[string]*client{}}
}

// client serializes writes to one connection; broadcasts from other
// sessions and personal sends from the read loop may race otherwise.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

func (h *Hub) Broadcast(evt Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(evt); err != nil {
			log.Printf("chat: broadcast to %s: %v", c.id, err)
		}
	}
}

// tasks.Broadcaster, so REST mutations reach open chat clients too.

func (h *Hub) TaskCreated(t tasks.Task) {
	h.Broadcast(Event{Type: EventTaskCreated, Task: &t})
}

func (h *Hub) TaskUpdated(t tasks.Task) {
	h.Broadcast(Event{Type: EventTaskUpdated, Task: &t})
}

func (h *Hub) TaskDeleted(id int) {
	h.Broadcast(Event{Type: EventTaskDeleted, TaskID: id})
}

func (h *Hub) TaskListUpdated() {
	h.Broadcast(Event{Type: EventTaskListUpdate, Message: "Task list updated"})
}
