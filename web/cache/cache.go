// Package cache holds the leaderboard report between refresh cycles so the
// HTTP layer never has to wait for a full chain scan.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/propslab/props"
)

// Sentinel errors
var (
	ErrCacheMiss = errors.New("no report cached")
)

// ReportCache stores the latest leaderboard report
type ReportCache interface {
	Get(ctx context.Context) (props.Report, error)
	Set(ctx context.Context, report props.Report) error
}

// Memory is an in-process ReportCache guarded by a mutex
type Memory struct {
	mu     sync.RWMutex
	report props.Report
	loaded bool
}

// NewMemory creates an empty in-process cache
func NewMemory() *Memory {
	return &Memory{}
}

// Get returns the cached report or ErrCacheMiss when nothing was stored yet
func (m *Memory) Get(_ context.Context) (props.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loaded {
		return props.Report{}, ErrCacheMiss
	}
	return m.report, nil
}

// Set replaces the cached report
func (m *Memory) Set(_ context.Context, report props.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.report = report
	m.loaded = true
	return nil
}
