package streamhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ems/internal/platform/realtime"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
)

const defaultHeartbeat = 25 * time.Second

type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan realtime.Event, error)
}

type Handler struct {
	Hub       Subscriber
	Log       *zap.Logger
	Heartbeat time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

func NewHandler(hub Subscriber, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Hub: hub, Log: log, Heartbeat: defaultHeartbeat, closing: make(chan struct{})}
}

// Shutdown ends every open stream. http.Server.Shutdown never sees a stream
// as idle, so register this with RegisterOnShutdown.
func (h *Handler) Shutdown() {
	h.closeOnce.Do(func() { close(h.closing) })
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/stream/{topic}", h.handleStream)
}

// handleStream relays hub events as server-sent events until the client
// goes away. Each event names the record that changed; the client re-fetches.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	select {
	case <-h.closing:
		api.Fail(w, http.StatusServiceUnavailable, "shutting_down", "server is shutting down", requestID)
		return
	default:
	}
	topic := chi.URLParam(r, "topic")
	if !realtime.ValidTopic(topic) {
		api.Fail(w, http.StatusNotFound, "unknown_topic", "unknown stream topic", requestID)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported", requestID)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events, err := h.Hub.Subscribe(ctx, topic)
	if err != nil {
		h.Log.Warn("stream subscribe failed", zap.String("topic", topic), zap.Error(err))
		api.Fail(w, http.StatusServiceUnavailable, "stream_unavailable", "realtime updates unavailable", requestID)
		return
	}

	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				h.Log.Warn("stream encode failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
