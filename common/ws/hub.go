package ws

import (
	"sync"
	"time"

	"printmonitor/common/logger"
	commonstorage "printmonitor/common/storage"
)

// Hub fans broadcast messages out to in-process subscribers. It knows
// nothing about net/http; ServeWS bridges a websocket client onto it.
// Callers register a buffered channel to receive messages.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]chan Message
	register   chan registration
	unregister chan string
	broadcast  chan Message
	shutdown   chan struct{}
	stopOnce   sync.Once
}

type registration struct {
	id string
	ch chan Message
}

// NewHub creates and starts a new Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]chan Message),
		register:   make(chan registration),
		unregister: make(chan string),
		broadcast:  make(chan Message, 100),
		shutdown:   make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case reg := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[reg.id]; ok && old != reg.ch {
				close(old)
			}
			h.clients[reg.id] = reg.ch
			h.mu.Unlock()
		case id := <-h.unregister:
			h.mu.Lock()
			if ch, ok := h.clients[id]; ok {
				close(ch)
				delete(h.clients, id)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for id, ch := range h.clients {
				select {
				case ch <- msg:
				default:
					if logger.Global != nil {
						logger.Global.WarnRateLimited("ws_drop_"+id, 30*time.Second,
							"WebSocket client too slow, dropping message", "client", id, "type", msg.Type)
					}
				}
			}
			h.mu.RUnlock()
		case <-h.shutdown:
			h.mu.Lock()
			for id, ch := range h.clients {
				close(ch)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client channel under id. The channel should be buffered
// (10 is plenty) and is closed by the hub on Unregister or Stop.
func (h *Hub) Register(id string, ch chan Message) {
	select {
	case h.register <- registration{id: id, ch: ch}:
	case <-h.shutdown:
		close(ch)
	}
}

// Unregister removes the client with the given id.
func (h *Hub) Unregister(id string) {
	select {
	case h.unregister <- id:
	case <-h.shutdown:
	}
}

// Broadcast queues msg for every client. It never blocks; messages are
// dropped when the queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		if logger.Global != nil {
			logger.Global.WarnRateLimited("ws_broadcast_full", 30*time.Second,
				"WebSocket broadcast queue full, dropping message", "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishSnapshot broadcasts a device's newly stored snapshot.
func (h *Hub) PublishSnapshot(deviceID string, snap commonstorage.Snapshot) {
	h.Broadcast(DeviceStatusMessage(deviceID, snap))
}

// PublishRemoval broadcasts that a device was removed.
func (h *Hub) PublishRemoval(deviceID string) {
	h.Broadcast(DeviceRemovedMessage(deviceID))
}

// Stop shuts down the hub and closes all client channels. Safe to call
// more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.shutdown) })
}
