package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomly/internal/events"
	"roomly/internal/models"
)

func newTestCache(t *testing.T) (*RoomCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := zerolog.Nop()
	return NewRoomCache(rdb, time.Minute, &logger), mr
}

func TestRoomCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx)
	assert.False(t, ok, "empty cache misses")

	rooms := []models.Room{{ID: 1, Name: "Aurora", Capacity: 10}}
	c.Set(ctx, rooms)

	got, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Aurora", got[0].Name)
}

func TestRoomCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, []models.Room{{ID: 1, Name: "Aurora"}})
	c.Invalidate(ctx)

	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestRoomCacheCorruptEntryDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("roomly:rooms", "not json"))

	_, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.False(t, mr.Exists("roomly:rooms"), "corrupt entry is deleted")
}

func TestRoomCacheTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, []models.Room{{ID: 1, Name: "Aurora"}})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx)
	assert.False(t, ok, "snapshot expires after TTL")
}

func TestRoomCacheInvalidatedByEvents(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	bus := events.NewEventBus()
	c.Register(bus)

	for _, eventType := range []string{events.TypeBookingChanged, events.TypeRoomChanged} {
		c.Set(ctx, []models.Room{{ID: 1, Name: "Aurora"}})
		_, ok := c.Get(ctx)
		require.True(t, ok)

		bus.Publish(events.Event{Type: eventType})
		_, ok = c.Get(ctx)
		assert.False(t, ok, "event %s drops the snapshot", eventType)
	}
}
