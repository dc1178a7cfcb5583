package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"creperie-promo/internal/service"
	ws "creperie-promo/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		// In production, check against allowed origins
		return true
	},
}

// StatsBroadcaster pushes refreshed access stats to the dashboard hub.
// A nil broadcaster is a no-op, so handlers can run without the hub.
type StatsBroadcaster struct {
	hub           *ws.Hub
	accessService *service.AccessService
}

func NewStatsBroadcaster(hub *ws.Hub, accessService *service.AccessService) *StatsBroadcaster {
	return &StatsBroadcaster{
		hub:           hub,
		accessService: accessService,
	}
}

// Push broadcasts the current stats, tagging the update with what
// triggered it. Failures are logged; the dashboard is best-effort.
func (b *StatsBroadcaster) Push(ctx context.Context, source string) {
	if b == nil {
		return
	}

	stats, err := b.accessService.Stats(ctx)
	if err != nil {
		slog.Warn("failed to gather stats for dashboard push",
			slog.String("error", err.Error()))
		return
	}

	msg := ws.StatsMessage{
		Type:           "stats_update",
		ActiveSessions: stats.ActiveSessions,
		WeekStart:      stats.WeekStart,
		Source:         source,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stats message",
			slog.String("error", err.Error()))
		return
	}
	b.hub.Broadcast(data)
}

// StatsFeedHandler upgrades dashboard connections onto the stats hub.
type StatsFeedHandler struct {
	hub         *ws.Hub
	broadcaster *StatsBroadcaster
}

// NewStatsFeedHandler creates a new stats feed handler
func NewStatsFeedHandler(hub *ws.Hub, broadcaster *StatsBroadcaster) *StatsFeedHandler {
	return &StatsFeedHandler{
		hub:         hub,
		broadcaster: broadcaster,
	}
}

// HandleConnection handles WebSocket upgrade and connection
func (h *StatsFeedHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(r.Context(), h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	// Seed the new dashboard with a snapshot.
	h.broadcaster.Push(r.Context(), "connect")
}
