// Package cache keeps a redis snapshot of the room list for the read path.
// The snapshot is invalidated by booking/room change events published after
// commit, so it can never outlive the state it was derived from.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomly/internal/events"
	"roomly/internal/models"
)

const roomsKey = "roomly:rooms"

// RoomCache caches the rooms read model in redis.
type RoomCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewRoomCache creates a cache with the given TTL.
func NewRoomCache(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RoomCache {
	return &RoomCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Register subscribes cache invalidation to change events.
func (c *RoomCache) Register(bus *events.EventBus) {
	invalidate := func(events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.Invalidate(ctx)
	}
	bus.Subscribe(events.TypeBookingChanged, invalidate)
	bus.Subscribe(events.TypeRoomChanged, invalidate)
}

// Get returns the cached room list, or ok=false on miss or redis trouble.
func (c *RoomCache) Get(ctx context.Context) ([]models.Room, bool) {
	data, err := c.rdb.Get(ctx, roomsKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("room cache read failed")
		return nil, false
	}
	var rooms []models.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		c.logger.Warn().Err(err).Msg("room cache corrupt, dropping")
		c.Invalidate(ctx)
		return nil, false
	}
	return rooms, true
}

// Set stores the room list.
func (c *RoomCache) Set(ctx context.Context, rooms []models.Room) {
	data, err := json.Marshal(rooms)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, roomsKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("room cache write failed")
	}
}

// Invalidate drops the cached snapshot.
func (c *RoomCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, roomsKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("room cache invalidation failed")
	}
}
