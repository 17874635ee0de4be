package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/mallok/internal/events"
)

// EventSource is the per-user stream of task status events.
type EventSource interface {
	Subscribe(userID string) (<-chan events.Event, func())
	ReplaySince(lastEventID, userID string) []events.Event
}

type EventsHandler struct {
	source    EventSource
	keepalive time.Duration
}

func NewEventsHandler(source EventSource) *EventsHandler {
	return &EventsHandler{source: source, keepalive: 15 * time.Second}
}

// Routes registers event routes on the given router.
func (h *EventsHandler) Routes(r chi.Router) {
	r.Get("/events", h.StreamEvents)
}

// StreamEvents opens an SSE connection and pushes the caller's task events.
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		WriteError(w, http.StatusServiceUnavailable, "event streaming not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	userID := requestUser(r)

	// Streams outlive the server write timeout
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	// Subscribe before replaying so nothing published in between is lost
	ch, cancel := h.source.Subscribe(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		for _, e := range h.source.ReplaySince(lastEventID, userID) {
			writeEvent(w, e)
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	log := hlog.FromRequest(r)
	log.Info().Msg("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			log.Info().Msg("SSE client disconnected")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, event)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e events.Event) {
	fmt.Fprintf(w, "id: %s\nevent: status\ndata: %s\n\n", e.ID, e.Data)
}
