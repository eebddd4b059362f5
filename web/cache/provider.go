package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/propslab/props"
)

// CachedLeaderboard serves the cached report and falls back to a fresh scan
// only when the cache is empty. Its PublishReport method lets the refresher warm
// the cache on every cycle.
type CachedLeaderboard struct {
	cache  ReportCache
	source props.LeaderboardSource
}

// NewCachedLeaderboard wraps a leaderboard source with a cache
func NewCachedLeaderboard(cache ReportCache, source props.LeaderboardSource) *CachedLeaderboard {
	return &CachedLeaderboard{
		cache:  cache,
		source: source,
	}
}

// Leaderboard returns the cached report, scanning the chain on a miss and
// storing the result
func (c *CachedLeaderboard) Leaderboard(ctx context.Context) (props.Report, error) {
	report, err := c.cache.Get(ctx)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return props.Report{}, fmt.Errorf("cache read failed: %w", err)
	}

	report, err = c.source.Leaderboard(ctx)
	if err != nil {
		return props.Report{}, err
	}

	if err := c.cache.Set(ctx, report); err != nil {
		return props.Report{}, fmt.Errorf("cache write failed: %w", err)
	}
	return report, nil
}

// PublishReport stores a freshly generated report, satisfying the refresher sink
// contract
func (c *CachedLeaderboard) PublishReport(ctx context.Context, report props.Report) error {
	return c.cache.Set(ctx, report)
}
