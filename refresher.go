package props

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/propslab/props/pkg/clock"
)

// Sentinel errors for refresh failures
var (
	ErrRefreshFailed = errors.New("leaderboard refresh failed")
	ErrPublishFailed = errors.New("report publish failed")
)

// LeaderboardSource computes a fresh leaderboard report. *Aggregator
// satisfies this.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context) (Report, error)
}

// Sink receives each freshly computed report (e.g. a cache, an archive,
// or a fan-out over both)
type Sink interface {
	PublishReport(ctx context.Context, report Report) error
}

// SinkFunc is a function adapter for Sink
type SinkFunc func(ctx context.Context, report Report) error

func (f SinkFunc) PublishReport(ctx context.Context, report Report) error {
	return f(ctx, report)
}

// MultiSink fans a report out to several sinks, stopping at the first failure
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, report Report) error {
		for _, sink := range sinks {
			if err := sink.PublishReport(ctx, report); err != nil {
				return err
			}
		}
		return nil
	})
}

// Event represents a refresher lifecycle event
// --------------------------------------------
type Event any

type RefreshStarted struct {
	StartedAt time.Time
}

type RefreshCompleted struct {
	Players     int
	GeneratedAt time.Time
	Duration    time.Duration
}

type RefreshError struct {
	Err error
}

type RefreshShutdown struct {
	Reason error // why shutdown occurred (ctx.Err())
}

// RefresherOption configures the Refresher
type RefresherOption func(*Refresher)

// WithRefreshClock injects a custom Clock (e.g., for testing)
func WithRefreshClock(c Clock) RefresherOption {
	return func(r *Refresher) { r.clock = c }
}

// WithRefreshInterval sets the polling interval between refreshes
func WithRefreshInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) { r.interval = d }
}

// Refresher keeps a leaderboard report warm: one immediate refresh on start,
// then clock-driven refreshes at a fixed interval, publishing every
// successful report to the sink.
// -------------------------------------------------------------------------
type Refresher struct {
	source   LeaderboardSource
	sink     Sink
	clock    Clock
	interval time.Duration
	events   chan Event
}

// NewRefresher constructs a Refresher with required dependencies and options.
// By default it uses a real clock and a one-minute refresh interval.
func NewRefresher(source LeaderboardSource, sink Sink, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		source:   source,
		sink:     sink,
		clock:    clock.SystemClock{},
		interval: DefaultRefreshInterval,
		events:   make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the refresher and returns the events channel and done channel.
//
// Shutdown pattern:
//  1. Cancel the context to request shutdown
//  2. The refresher stops producing events and closes the events channel
//  3. Wait for <-done to confirm complete shutdown
func (r *Refresher) Start(ctx context.Context) (<-chan Event, <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		defer close(r.events)
		defer close(done)
		r.run(ctx)
	}()
	return r.events, done
}

// run performs the initial refresh, then polls. The initial refresh failing
// is terminal (nothing to serve yet); later failures are reported and polling
// continues with the previous report still published.
func (r *Refresher) run(ctx context.Context) {
	r.events <- RefreshStarted{StartedAt: r.clock.Now()}

	if err := r.refresh(ctx); err != nil {
		r.events <- RefreshError{Err: err}
		return
	}

	for {
		select {
		case <-ctx.Done():
			r.events <- RefreshShutdown{Reason: ctx.Err()}
			return
		case <-r.clock.After(r.interval):
			if err := r.refresh(ctx); err != nil {
				r.events <- RefreshError{Err: err}
				continue
			}
		}
	}
}

// refresh computes one report, publishes it, and emits a completion event
func (r *Refresher) refresh(ctx context.Context) error {
	start := r.clock.Now()

	report, err := r.source.Leaderboard(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := r.sink.PublishReport(ctx, report); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	r.events <- RefreshCompleted{
		Players:     len(report.Entries),
		GeneratedAt: report.GeneratedAt,
		Duration:    r.clock.Now().Sub(start),
	}
	return nil
}
