package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propslab/props"
)

const reportKey = "props:leaderboard:report"

// Redis is a ReportCache backed by a redis instance, so multiple web
// replicas can share the report produced by a single refresher.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a redis-backed cache. A zero ttl stores reports without
// expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the shared report or ErrCacheMiss when the key is absent or
// expired
func (r *Redis) Get(ctx context.Context) (props.Report, error) {
	payload, err := r.client.Get(ctx, reportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return props.Report{}, ErrCacheMiss
	}
	if err != nil {
		return props.Report{}, fmt.Errorf("report fetch failed: %w", err)
	}

	var report props.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return props.Report{}, fmt.Errorf("report decode failed: %w", err)
	}
	return report, nil
}

// Set stores the report with the configured TTL
func (r *Redis) Set(ctx context.Context, report props.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("report encode failed: %w", err)
	}

	if err := r.client.Set(ctx, reportKey, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("report store failed: %w", err)
	}
	return nil
}
