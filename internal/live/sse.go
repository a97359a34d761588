package live

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// SSEHandler bridges the Redis live channel to Server-Sent Events clients.
type SSEHandler struct {
	client *redis.Client
	logger *slog.Logger
}

// NewSSEHandler constructs an SSEHandler.
func NewSSEHandler(client *redis.Client, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{client: client, logger: logger}
}

// ServeHTTP streams live events until the client disconnects. A heartbeat
// comment every 30 seconds keeps proxies from closing the idle stream.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Drop the server write deadline so the stream outlives it.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("live: clear write deadline", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	sub := h.client.Subscribe(ctx, Channel)
	defer func() {
		if err := sub.Close(); err != nil {
			h.logger.Warn("live: close subscription", slog.Any("error", err))
		}
	}()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case msg, open := <-msgs:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
			flusher.Flush()
		}
	}
}
