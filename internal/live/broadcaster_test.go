package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, Channel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	b := NewBroadcaster(rdb, slog.New(slog.DiscardHandler))
	b.Emit(ctx, "inventory_updated", map[string]any{"id": 7})

	select {
	case msg := <-sub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.Equal(t, "inventory_updated", event.Name)
		require.False(t, event.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestEmitWithoutClientIsNoOp(t *testing.T) {
	var b *Broadcaster
	b.Emit(context.Background(), "noop", nil)
}
