package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/internal/middleware"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

const (
	streamBuffer      = 32
	heartbeatInterval = 30 * time.Second
)

// HeartbeatEvent keeps idle streams open through proxies.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// StreamHandler pushes view changes over Server-Sent Events.
type StreamHandler struct {
	bus       *events.Bus
	snapshot  func() PageView
	heartbeat time.Duration
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler. snapshot renders the page
// sent when a client connects.
func NewStreamHandler(bus *events.Bus, snapshot func() PageView, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		bus:       bus,
		snapshot:  snapshot,
		heartbeat: heartbeatInterval,
		logger:    log,
	}
}

// Stream handles GET /api/v1/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	// Subscribe before the snapshot so no change falls between the two.
	ch := h.bus.Channel(ctx, streamBuffer, events.Filter{})

	if err := sendSSEEvent(w, flusher, "connected", h.snapshot()); err != nil {
		h.logger.Warn("failed to send snapshot", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected",
				zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			)
			return

		case e, open := <-ch:
			if !open {
				return
			}
			if err := sendSSEEvent(w, flusher, string(e.Type), e); err != nil {
				h.logger.Warn("failed to send event", zap.String("type", string(e.Type)), zap.Error(err))
				return
			}

		case <-heartbeat.C:
			if err := sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
