package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// AllowedOrigins is populated from the ALLOWED_ORIGINS env var, comma
// separated; falls back to localhost with a [SECURITY] warning, exactly
// as internal/server/websocket.go does.
var AllowedOrigins = loadAllowedOrigins()

func loadAllowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		log.Println("[SECURITY] ALLOWED_ORIGINS not set, defaulting to localhost only")
		return []string{"http://localhost:3000", "http://localhost:8080"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		log.Println("[SECURITY] rejected WS upgrade with missing Origin header")
		return false
	}
	for _, allowed := range AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	log.Printf("[SECURITY] rejected WS upgrade from origin %s", origin)
	return false
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// InboundMessage is the JSON envelope every Room-channel frame arrives
// in, per spec §6.2 framing rules.
type InboundMessage struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// Hub tracks, per Room, which participantId is claimed by which live
// Client, generalized from the single global `clients map[string]interface{}`
// the teacher's HandleWebSocket held under one mutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*Client // roomID -> participantID -> Client
}

func New() *Hub {
	return &Hub{clients: make(map[string]map[string]*Client)}
}

// Register claims a participant slot for conn. If another live
// connection already holds that slot, it is closed with REPLACED first,
// per spec §4.F step 2.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.clients[c.RoomID]
	if !ok {
		room = make(map[string]*Client)
		h.clients[c.RoomID] = room
	}
	if existing, exists := room[c.ParticipantID]; exists {
		existing.Replace()
	}
	room[c.ParticipantID] = c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.clients[c.RoomID]
	if !ok {
		return
	}
	if room[c.ParticipantID] == c {
		delete(room, c.ParticipantID)
	}
	if len(room) == 0 {
		delete(h.clients, c.RoomID)
	}
}

// SendTo delivers data to one participant's live connection, if any.
func (h *Hub) SendTo(roomID, participantID string, data []byte, messageType string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.clients[roomID]
	if !ok {
		return
	}
	if c, ok := room[participantID]; ok {
		c.Send(data, messageType)
	}
}

// Broadcast delivers data to every live connection in a Room.
func (h *Hub) Broadcast(roomID string, data []byte, messageType string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[roomID] {
		c.Send(data, messageType)
	}
}

func (h *Hub) CloseRoom(roomID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients[roomID] {
		c.Close(reason)
	}
	delete(h.clients, roomID)
}

func (h *Hub) ConnectionCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[roomID])
}

// Envelope wraps an outbound payload with its type tag, matching the
// `{type, ...payload}` framing of spec §6.2/§6.3.
func Envelope(messageType string, payload interface{}) ([]byte, error) {
	body := map[string]interface{}{"type": messageType}
	if m, ok := payload.(map[string]interface{}); ok {
		for k, v := range m {
			body[k] = v
		}
	} else if payload != nil {
		body["payload"] = payload
	}
	return json.Marshal(body)
}
