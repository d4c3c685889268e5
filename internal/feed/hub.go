// Package feed broadcasts telemetry events to connected Monitor viewers
// over WebSocket.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/emotext/internal/domain"
	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Event is one telemetry record pushed to live Monitor viewers.
// Prediction events omit the raw text: the live feed is an aggregate
// view, the full log is behind the Monitor endpoint.
type Event struct {
	Type       string    `json:"type"` // "visit" or "prediction"
	Page       string    `json:"page,omitempty"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	At         time.Time `json:"at"`
}

// Hub tracks connected viewers and fans events out to them. Broadcast
// never blocks record writing: slow or dead connections are dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Register adds a viewer connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a viewer connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// VisitRecorded implements router.TelemetryNotifier.
func (h *Hub) VisitRecorded(rec domain.PageVisitRecord) {
	h.broadcast(Event{Type: "visit", Page: rec.PageName, At: rec.VisitedAt})
}

// PredictionRecorded implements router.TelemetryNotifier.
func (h *Hub) PredictionRecorded(rec domain.PredictionRecord) {
	h.broadcast(Event{
		Type:       "prediction",
		Label:      rec.PredictedLabel,
		Confidence: rec.Confidence,
		At:         rec.PredictedAt,
	})
}

func (h *Hub) broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal feed event", "type", event.Type, "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			// Expected when a viewer disconnects abruptly.
			slog.Debug("feed write failed, dropping viewer", "error", err)
			h.Unregister(conn)
		}
	}
}
