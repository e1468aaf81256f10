package http

import (
	"encoding/json"
	"log"
	"sync"

	"live-quiz-service/internal/app"
)

const sendBuffer = 64

// Hub delivers events to the websocket connections of this process. Each
// connection owns a buffered channel drained by its writer goroutine.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan []byte
	rooms   map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]chan []byte),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Register creates the outbound queue of connID.
func (h *Hub) Register(connID string) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan []byte, sendBuffer)
	h.clients[connID] = ch
	return ch
}

// Unregister drops connID from every room and closes its queue.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(connID)
}

func (h *Hub) JoinRoom(pin, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.rooms[pin]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[pin] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) LeaveRoom(pin, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[pin]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, pin)
		}
	}
}

func (h *Hub) CloseRoom(pin string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, pin)
}

func (h *Hub) ToRoom(pin string, event app.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: encode %s: %v", event.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID := range h.rooms[pin] {
		h.enqueueLocked(connID, data)
	}
}

func (h *Hub) ToConnection(connID string, event app.Event) {
	h.Send(connID, event)
}

// Send queues any JSON value for connID.
func (h *Hub) Send(connID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("hub: encode for %s: %v", connID, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enqueueLocked(connID, data)
}

// RoomSize reports how many local connections are in pin.
func (h *Hub) RoomSize(pin string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[pin])
}

func (h *Hub) enqueueLocked(connID string, data []byte) {
	ch, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case ch <- data:
	default:
		// A client this far behind is dropped; its reader sees the close.
		log.Printf("hub: %s too slow, dropping connection", connID)
		h.dropLocked(connID)
	}
}

func (h *Hub) dropLocked(connID string) {
	ch, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	close(ch)
	for pin, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, pin)
		}
	}
}
