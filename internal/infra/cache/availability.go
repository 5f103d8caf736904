package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "availability"

type entry struct {
	Available   bool     `json:"available"`
	Unavailable []string `json:"unavailable"`
}

// RedisAvailabilityCache keys entries by a per-property version. Invalidate
// bumps the version, which orphans every entry written under the old one;
// orphans expire with the TTL.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func versionKey(propertyID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:ver", keyPrefix, propertyID)
}

func entryKey(propertyID uuid.UUID, r calendar.DateRange, version int64) string {
	return fmt.Sprintf("%s:%s:v%d:%s", keyPrefix, propertyID, version, r)
}

func (c *RedisAvailabilityCache) Lookup(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange) (shared.CachedAvailability, error) {
	version, err := c.client.Get(ctx, versionKey(propertyID)).Int64()
	if err != nil && !errs.Is(err, redis.Nil) {
		return shared.CachedAvailability{}, errs.Wrap(err, "failed to get cache version")
	}

	raw, err := c.client.Get(ctx, entryKey(propertyID, r, version)).Bytes()
	if errs.Is(err, redis.Nil) {
		return shared.CachedAvailability{Version: version}, nil
	}
	if err != nil {
		return shared.CachedAvailability{Version: version}, errs.Wrap(err, "failed to get cache value")
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return shared.CachedAvailability{Version: version}, errs.Wrap(err, "failed to unmarshal cache value")
	}

	a := calendar.Availability{Available: e.Available}
	for _, s := range e.Unavailable {
		day, err := calendar.ParseDate(s)
		if err != nil {
			return shared.CachedAvailability{Version: version}, errs.Wrap(err, "failed to parse cached date")
		}
		a.Unavailable = append(a.Unavailable, day)
	}

	return shared.CachedAvailability{Found: true, Version: version, Availability: a}, nil
}

func (c *RedisAvailabilityCache) Store(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange, version int64, a calendar.Availability) error {
	e := entry{Available: a.Available, Unavailable: make([]string, 0, len(a.Unavailable))}
	for _, d := range a.Unavailable {
		e.Unavailable = append(e.Unavailable, d.Format(calendar.DateLayout))
	}

	data, err := json.Marshal(e)
	if err != nil {
		return errs.Wrap(err, "failed to marshal cache value")
	}

	if err := c.client.Set(ctx, entryKey(propertyID, r, version), data, c.ttl).Err(); err != nil {
		return errs.Wrap(err, "failed to set cache value")
	}
	return nil
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, propertyID uuid.UUID) error {
	if err := c.client.Incr(ctx, versionKey(propertyID)).Err(); err != nil {
		return errs.Wrap(err, "failed to bump cache version")
	}
	return nil
}

// NoopAvailabilityCache is used when Redis is disabled.
type NoopAvailabilityCache struct{}

func (NoopAvailabilityCache) Lookup(context.Context, uuid.UUID, calendar.DateRange) (shared.CachedAvailability, error) {
	return shared.CachedAvailability{}, nil
}

func (NoopAvailabilityCache) Store(context.Context, uuid.UUID, calendar.DateRange, int64, calendar.Availability) error {
	return nil
}

func (NoopAvailabilityCache) Invalidate(context.Context, uuid.UUID) error {
	return nil
}
