package ws

import (
	"encoding/json"
	"sync"

	"chat-style-studio/internal/model"
	"github.com/gorilla/websocket"
)

// CollectionHub delivers events only to clients watching the event's
// collection.
type CollectionHub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewCollectionHub() *CollectionHub {
	return &CollectionHub{clients: map[string]map[*Client]struct{}{}}
}

func (h *CollectionHub) Register(collectionID string, conn *websocket.Conn) *Client {
	var c *Client
	c = newClientWithClose(conn, func() { h.Unregister(collectionID, c) })
	h.add(collectionID, c)
	return c
}

func (h *CollectionHub) add(collectionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[collectionID]; !ok {
		h.clients[collectionID] = map[*Client]struct{}{}
	}
	h.clients[collectionID][c] = struct{}{}
}

func (h *CollectionHub) Unregister(collectionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(collectionID, c)
}

func (h *CollectionHub) removeLocked(collectionID string, c *Client) {
	if m, ok := h.clients[collectionID]; ok {
		if _, exist := m[c]; exist {
			delete(m, c)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.clients, collectionID)
		}
	}
}

func (h *CollectionHub) Watchers(collectionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[collectionID])
}

// Publish drops slow clients rather than blocking the caller. Sends happen
// under the lock so a concurrent Unregister cannot close a channel mid-send.
func (h *CollectionHub) Publish(evt model.Event) {
	if evt.CollectionID == "" {
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[evt.CollectionID] {
		select {
		case c.send <- b:
		default:
			h.removeLocked(evt.CollectionID, c)
		}
	}
}
