// Package cache keeps per-resource snapshots of blocking reservation
// intervals warm for availability checks.
//
// The snapshot is a latency optimization only: it feeds the in-memory
// availability engine so pickers respond fast, but the final write
// decision always goes through the store's transactional overlap check.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rentadesk/internal/events"
	"rentadesk/internal/models"
)

// IntervalSource fetches the authoritative blocking intervals.
type IntervalSource interface {
	GetBlockingIntervals(ctx context.Context, resourceID int64) ([]models.Interval, error)
}

// SnapshotCache is a read-through cache of blocking intervals keyed by
// resource id. Redis is optional; without it every read goes to source.
type SnapshotCache struct {
	source IntervalSource
	redis  *redis.Client
	ttl    time.Duration
	log    *zerolog.Logger
}

// NewSnapshotCache builds a cache over source. rdb may be nil.
func NewSnapshotCache(source IntervalSource, rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{source: source, redis: rdb, ttl: ttl, log: logger}
}

func snapshotKey(resourceID int64) string {
	return fmt.Sprintf("intervals:%d", resourceID)
}

// Get returns the blocking intervals for a resource, reading through to
// the store on a miss.
func (c *SnapshotCache) Get(ctx context.Context, resourceID int64) ([]models.Interval, error) {
	if intervals, ok := c.readCache(ctx, resourceID); ok {
		return intervals, nil
	}

	intervals, err := c.source.GetBlockingIntervals(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, resourceID, intervals)
	return intervals, nil
}

// Invalidate drops the snapshot for a resource so the next read is fresh.
func (c *SnapshotCache) Invalidate(ctx context.Context, resourceID int64) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, snapshotKey(resourceID)).Err(); err != nil {
		c.log.Warn().Err(err).Int64("resource_id", resourceID).Msg("snapshot invalidate failed")
	}
}

// BindBus invalidates snapshots whenever a reservation changes.
func (c *SnapshotCache) BindBus(bus *events.Bus) {
	bus.SubscribeAll(func(e events.Event) {
		if e.ResourceID > 0 {
			c.Invalidate(context.Background(), e.ResourceID)
		}
	})
}

// StartRefresh re-reads snapshots for all listed resources on a fixed
// interval, bounding how stale a client-facing availability view can get
// when a change slips past the event bus (e.g. direct db edits).
func (c *SnapshotCache) StartRefresh(ctx context.Context, interval time.Duration, listResourceIDs func(ctx context.Context) ([]int64, error)) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ids, err := listResourceIDs(ctx)
				if err != nil {
					c.log.Warn().Err(err).Msg("snapshot refresh: list resources failed")
					continue
				}
				for _, id := range ids {
					intervals, err := c.source.GetBlockingIntervals(ctx, id)
					if err != nil {
						c.log.Warn().Err(err).Int64("resource_id", id).Msg("snapshot refresh failed")
						continue
					}
					c.writeCache(ctx, id, intervals)
				}
			}
		}
	}()
}

func (c *SnapshotCache) readCache(ctx context.Context, resourceID int64) ([]models.Interval, bool) {
	if c.redis == nil || c.ttl <= 0 {
		return nil, false
	}
	val, err := c.redis.Get(ctx, snapshotKey(resourceID)).Result()
	if err != nil {
		return nil, false
	}
	var intervals []models.Interval
	if err := json.Unmarshal([]byte(val), &intervals); err != nil {
		return nil, false
	}
	return intervals, true
}

func (c *SnapshotCache) writeCache(ctx context.Context, resourceID int64, intervals []models.Interval) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(intervals)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, snapshotKey(resourceID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("resource_id", resourceID).Msg("snapshot write failed")
	}
}
