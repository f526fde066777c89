package realtime

import (
	"fmt"
	"sync"

	"github.com/fitduel-vn/fitduel/pkg/logging"
	"github.com/fitduel-vn/fitduel/pkg/utils"
	"go.uber.org/zap"
)

// Sender is one connected client. *Conn satisfies it; tests substitute
// an in-memory recorder.
type Sender interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Channel is the room-based notification fanout. It is constructed
// explicitly and handed to every component; nothing looks it up from
// ambient process state.
type Channel interface {
	Register(client Sender) string
	Unregister(handle string)
	Lookup(handle string) (Sender, bool)
	Join(handle string, roomId string) error
	Emit(roomId string, event string, payload interface{})
}

// Event is the wire frame for every room broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]Sender          // connection handle -> client
	rooms   map[string]map[string]bool // roomId -> set of handles
	joined  map[string]map[string]bool // handle -> set of roomIds
}

var ErrUnknownHandle = fmt.Errorf("unknown connection handle")

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]Sender),
		rooms:   make(map[string]map[string]bool),
		joined:  make(map[string]map[string]bool),
	}
}

// Register adds a live connection and returns its addressable handle.
func (h *Hub) Register(client Sender) string {
	handle := utils.GenerateUUID()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[handle] = client
	h.joined[handle] = make(map[string]bool)
	return handle
}

// Unregister drops the connection and removes it from every room.
func (h *Hub) Unregister(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomId := range h.joined[handle] {
		delete(h.rooms[roomId], handle)
		if len(h.rooms[roomId]) == 0 {
			delete(h.rooms, roomId)
		}
	}
	delete(h.joined, handle)
	delete(h.clients, handle)
}

func (h *Hub) Lookup(handle string) (Sender, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[handle]
	return client, ok
}

func (h *Hub) Join(handle string, roomId string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[handle]; !ok {
		return ErrUnknownHandle
	}
	if h.rooms[roomId] == nil {
		h.rooms[roomId] = make(map[string]bool)
	}
	h.rooms[roomId][handle] = true
	h.joined[handle][roomId] = true
	return nil
}

// Emit pushes the event to every member of the room. Write failures are
// logged, not propagated: a dead consumer must not fail a transition.
func (h *Hub) Emit(roomId string, event string, payload interface{}) {
	h.mu.RLock()
	members := make([]Sender, 0, len(h.rooms[roomId]))
	for handle := range h.rooms[roomId] {
		if client, ok := h.clients[handle]; ok {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		if err := client.WriteJSON(Event{Type: event, Data: payload}); err != nil {
			logging.Error("couldn't notify room member",
				zap.String("room_id", roomId),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}
