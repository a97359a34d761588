// Package live broadcasts update events to subscribed presentation clients.
// Delivery is best-effort: no ack, no replay for disconnected clients.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel the SSE bridge subscribes to.
const Channel = "meridian:live"

// Event is the envelope published for every update.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Broadcaster publishes events over Redis pub/sub.
type Broadcaster struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBroadcaster constructs a Broadcaster.
func NewBroadcaster(client *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{client: client, logger: logger}
}

// Emit publishes an event. Failures are logged, never surfaced; a dropped
// live update must not affect the operation that produced it.
func (b *Broadcaster) Emit(ctx context.Context, event string, payload any) {
	if b == nil || b.client == nil {
		return
	}
	data, err := json.Marshal(Event{Name: event, Payload: payload, At: time.Now().UTC()})
	if err != nil {
		b.logger.Warn("live: marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}
	if err := b.client.Publish(ctx, Channel, data).Err(); err != nil {
		b.logger.Warn("live: publish", slog.String("event", event), slog.Any("error", err))
	}
}
