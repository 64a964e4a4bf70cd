package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/xavierca1/field-dispatch/internal/entity"
)

const (
	weekViewPrefix     = "dispatch:weekview:"
	weekViewGeneration = weekViewPrefix + "generation"
)

// Store is the slice of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// WeekViewCache stores week rows under a generation counter. Invalidate
// bumps the counter, which orphans every cached week at once; orphans
// expire through the TTL.
type WeekViewCache struct {
	client Store
	ttl    time.Duration
}

func NewWeekViewCache(client Store, ttl time.Duration) *WeekViewCache {
	return &WeekViewCache{client: client, ttl: ttl}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Pinger adapts a redis client to the health check.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

func weekKey(generation int64, weekStart string) string {
	return fmt.Sprintf("%sg%d:%s", weekViewPrefix, generation, weekStart)
}

func (c *WeekViewCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, weekViewGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *WeekViewCache) Get(ctx context.Context, weekStart string) ([]*entity.ScheduleView, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := c.client.Get(ctx, weekKey(gen, weekStart)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}

	var rows []*entity.ScheduleView
	if err := json.Unmarshal(data, &rows); err != nil {
		// treat a corrupt entry as a miss; the caller overwrites it
		return nil, gen, false, nil
	}
	return rows, gen, true, nil
}

func (c *WeekViewCache) Set(ctx context.Context, weekStart string, generation int64, rows []*entity.ScheduleView) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, weekKey(generation, weekStart), data, c.ttl).Err()
}

func (c *WeekViewCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, weekViewGeneration).Err()
}
