package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phrack/ShootOFF-sub002/internal/app"
)

const (
	writeWait      = 5 * time.Second
	clientQueueLen = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is the JSON message pushed to /api/events clients.
type Event struct {
	Type      string     `json:"type"`
	Camera    string     `json:"camera"`
	SessionID string     `json:"session_id"`
	Shot      *ShotEvent `json:"shot,omitempty"`
	Warning   string     `json:"warning,omitempty"`
	Message   string     `json:"message,omitempty"`
	Time      time.Time  `json:"time"`
}

// ShotEvent is the shot payload of an Event, in frame coordinates.
type ShotEvent struct {
	Color        string  `json:"color"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Frame        int     `json:"frame"`
	MarkerRadius int     `json:"marker_radius"`
}

// EventHub broadcasts shots and warnings to WebSocket clients. It is an
// app.Listener; slow clients drop events instead of stalling the pipeline.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*websocket.Conn]chan []byte),
		done:    make(chan struct{}),
	}
}

// Close disconnects every client with a going-away close frame and refuses
// new ones. http.Server.Shutdown does not wait for hijacked connections, so
// the hub has to be closed on its own.
func (h *EventHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan []byte, clientQueueLen)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Keep connection alive by reading messages
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-h.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) OnShot(ev app.ShotEvent) {
	h.broadcast(Event{
		Type:      "shot",
		Camera:    ev.Camera,
		SessionID: ev.SessionID,
		Shot: &ShotEvent{
			Color:        ev.Shot.Color.String(),
			X:            ev.Shot.X,
			Y:            ev.Shot.Y,
			Frame:        ev.Shot.Frame,
			MarkerRadius: ev.Shot.MarkerRadius,
		},
		Time: ev.Shot.Timestamp,
	})
}

func (h *EventHub) OnWarning(ev app.WarningEvent) {
	h.broadcast(Event{
		Type:      "warning",
		Camera:    ev.Camera,
		SessionID: ev.SessionID,
		Warning:   string(ev.Warning),
		Message:   ev.Warning.Message(),
		Time:      ev.Time,
	})
}

func (h *EventHub) broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			log.Printf("Dropping %s event for slow client %s", ev.Type, conn.RemoteAddr())
		}
	}
}
