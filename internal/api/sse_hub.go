package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"climateprep/domain/core"
	apperrors "climateprep/internal/errors"
	"climateprep/ports"

	"github.com/gin-gonic/gin"
)

const (
	clientBuffer    = 16
	broadcastBuffer = 256
	keepAlive       = 30 * time.Second
)

// ProgressHub fans pipeline progress events out to Server-Sent Events clients
// listening on a session. It implements ports.ProgressReporter.
type ProgressHub struct {
	clients   map[core.SessionID]map[chan ports.ProgressEvent]bool
	clientsMu sync.RWMutex
	broadcast chan ports.ProgressEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewProgressHub creates a hub and starts its dispatch loop
func NewProgressHub() *ProgressHub {
	hub := &ProgressHub{
		clients:   make(map[core.SessionID]map[chan ports.ProgressEvent]bool),
		broadcast: make(chan ports.ProgressEvent, broadcastBuffer),
		done:      make(chan struct{}),
	}

	go hub.run()
	return hub
}

func (h *ProgressHub) run() {
	for {
		select {
		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.SessionID] {
				select {
				case clientChan <- event:
				default:
					log.Printf("[SSE] Client channel full for session %s, skipping %s event",
						event.SessionID, event.Stage)
				}
			}
			h.clientsMu.RUnlock()

		case <-h.done:
			return
		}
	}
}

// Report queues an event for the session's clients. Events without a session
// are dropped, and Report never blocks the pipeline.
func (h *ProgressHub) Report(event ports.ProgressEvent) {
	if event.SessionID == "" {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping %s event for session %s", event.Stage, event.SessionID)
	}
}

// Subscribe registers a client channel for a session. The returned function
// unregisters it and closes the channel.
func (h *ProgressHub) Subscribe(sessionID core.SessionID) (<-chan ports.ProgressEvent, func()) {
	ch := make(chan ports.ProgressEvent, clientBuffer)

	h.clientsMu.Lock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[chan ports.ProgressEvent]bool)
	}
	h.clients[sessionID][ch] = true
	log.Printf("[SSE] Client registered for session %s (total clients: %d)", sessionID, len(h.clients[sessionID]))
	h.clientsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.clientsMu.Lock()
			defer h.clientsMu.Unlock()
			clients := h.clients[sessionID]
			delete(clients, ch)
			close(ch)
			if len(clients) == 0 {
				delete(h.clients, sessionID)
			}
			log.Printf("[SSE] Client unregistered from session %s (remaining clients: %d)", sessionID, len(clients))
		})
	}
}

// Close stops the dispatch loop
func (h *ProgressHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// HandleSSE streams a session's progress events
func (h *ProgressHub) HandleSSE(c *gin.Context) {
	sessionID, err := core.ParseSessionID(c.Query("session_id"))
	if err != nil {
		respondError(c, apperrors.ValidationError("session_id parameter required"))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")

	events, unsubscribe := h.Subscribe(sessionID)
	defer unsubscribe()

	// announce the subscription so clients know the stream is live
	c.SSEvent("ready", `{"session_id":"`+sessionID.String()+`"}`)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent("progress", string(eventJSON))
			return true

		case <-time.After(keepAlive):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// ActiveSessions returns sessions with connected clients
func (h *ProgressHub) ActiveSessions() []core.SessionID {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	sessions := make([]core.SessionID, 0, len(h.clients))
	for sessionID := range h.clients {
		sessions = append(sessions, sessionID)
	}
	return sessions
}

// ClientCount returns the number of connected clients for a session
func (h *ProgressHub) ClientCount(sessionID core.SessionID) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[sessionID])
}
