package props

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/propslab/props/pkg/clock"
)

// Option configures the Aggregator
// ------------------------------------------------
type Option func(*Aggregator)

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// WithLogger sets the logger used for skip/retry diagnostics
func WithLogger(log *slog.Logger) Option {
	return func(a *Aggregator) { a.log = log }
}

// WithRetries sets the per-lookup attempt budget
func WithRetries(n int) Option {
	return func(a *Aggregator) { a.retries = n }
}

// WithBaseDelay sets the base delay applied before every lookup attempt
func WithBaseDelay(d time.Duration) Option {
	return func(a *Aggregator) { a.baseDelay = d }
}

// WithLeaderboardWindow sets how many recent props the leaderboard scans
func WithLeaderboardWindow(n uint64) Option {
	return func(a *Aggregator) { a.leaderboardWindow = n }
}

// WithHistoryWindow sets how many recent props the given/all history views scan
func WithHistoryWindow(n uint64) Option {
	return func(a *Aggregator) { a.historyWindow = n }
}

// WithReceivedLimit sets how many entries the received history view returns
func WithReceivedLimit(n int) Option {
	return func(a *Aggregator) { a.receivedLimit = n }
}

// WithConcurrency opts in to a bounded worker pool for per-index and
// per-player lookups. The default of 1 keeps lookups strictly sequential;
// raising it trades higher instantaneous request rate for lower total
// latency, so size it to what the node tolerates.
func WithConcurrency(k int) Option {
	return func(a *Aggregator) {
		if k > 0 {
			a.concurrency = k
		}
	}
}

// Aggregator turns sequences of remote point-lookups into leaderboard and
// history reports. A single aggregation call owns all of its intermediate
// state; instances are safe for concurrent use.
// -----------------------------------------------------------------------
type Aggregator struct {
	reader Reader
	clock  Clock
	log    *slog.Logger

	retries           int
	baseDelay         time.Duration
	leaderboardWindow uint64
	historyWindow     uint64
	receivedLimit     int
	concurrency       int

	retryer Retryer
}

// New constructs an Aggregator with required dependencies and options.
// By default it uses a real clock, 3 attempts per lookup with a 500ms base
// delay, a 10-prop leaderboard window, a 50-prop history window, 20 received
// entries, and strictly sequential lookups.
func New(reader Reader, opts ...Option) *Aggregator {
	a := &Aggregator{
		reader:            reader,
		clock:             clock.SystemClock{},
		log:               slog.Default(),
		retries:           DefaultRetries,
		baseDelay:         DefaultBaseDelay,
		leaderboardWindow: DefaultLeaderboardWindow,
		historyWindow:     DefaultHistoryWindow,
		receivedLimit:     DefaultReceivedLimit,
		concurrency:       1,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.retryer = NewRetryer(a.retries, a.baseDelay, a.clock, a.log)
	return a
}

// Leaderboard scans the most recent props, dedupes the players they
// reference, fetches per-player stats, and ranks by received count
// descending. A zero total or an all-failed scan yields an empty report;
// only the initial count lookup is a hard failure.
func (a *Aggregator) Leaderboard(ctx context.Context) (Report, error) {
	total, err := a.propCount(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrCountLookupFailed, err)
	}

	report := Report{GeneratedAt: a.clock.Now()}
	if total == 0 {
		return report, nil
	}

	lo, hi := window(total, a.leaderboardWindow)
	records := a.scanWindow(ctx, lo, hi)

	players := dedupePlayers(records)
	if len(players) == 0 {
		return report, nil
	}

	report.Entries = a.collectStats(ctx, players)

	// Stable sort keeps first-seen order among equal received counts
	sort.SliceStable(report.Entries, func(i, j int) bool {
		return report.Entries[i].Received > report.Entries[j].Received
	})
	for i := range report.Entries {
		report.Entries[i].Rank = i + 1
	}

	return report, nil
}

// History produces the reverse-chronological list of props touching the
// subject, filtered by view.
func (a *Aggregator) History(ctx context.Context, subject string, view View) ([]HistoryEntry, error) {
	switch view {
	case ViewReceived:
		return a.receivedHistory(ctx, subject)
	case ViewGiven, ViewAll:
		return a.scannedHistory(ctx, subject, view)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
}

// receivedHistory resolves the subject's own received-index list and fetches
// the most recent entries. The contract promises the list only references
// props the subject received; each fetched record is still checked against
// the subject and mismatches are skipped rather than trusted.
func (a *Aggregator) receivedHistory(ctx context.Context, subject string) ([]HistoryEntry, error) {
	indexes, err := a.receivedIndexes(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryLookupFailed, err)
	}

	if len(indexes) > a.receivedLimit {
		indexes = indexes[len(indexes)-a.receivedLimit:]
	}

	// Most recent first
	entries := make([]HistoryEntry, 0, len(indexes))
	for i := len(indexes) - 1; i >= 0; i-- {
		index := indexes[i]

		record, err := a.prop(ctx, index)
		if err != nil {
			a.log.Warn("skipping received prop after failed lookup",
				slog.Uint64("index", index),
				slog.Any("error", err),
			)
			continue
		}

		if record.Receiver != subject {
			a.log.Warn("received index does not reference subject, skipping",
				slog.Uint64("index", index),
				slog.String("subject", subject),
				slog.String("receiver", record.Receiver),
			)
			continue
		}

		entries = append(entries, historyEntry(record, DirectionReceived))
	}

	return entries, nil
}

// scannedHistory scans the recent window descending and classifies each
// record against the subject.
func (a *Aggregator) scannedHistory(ctx context.Context, subject string, view View) ([]HistoryEntry, error) {
	total, err := a.propCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCountLookupFailed, err)
	}
	if total == 0 {
		return nil, nil
	}

	lo, hi := window(total, a.historyWindow)
	records := a.scanWindow(ctx, lo, hi)

	var entries []HistoryEntry
	for i := hi; i > lo; i-- {
		record := records[i-1-lo]
		if record == nil {
			continue
		}

		switch {
		case view == ViewAll && record.Receiver == subject:
			entries = append(entries, historyEntry(*record, DirectionReceived))
		case record.Giver == subject:
			entries = append(entries, historyEntry(*record, DirectionGiven))
		}
	}

	return entries, nil
}

// scanWindow fetches every record in [lo, hi), each through the retryer.
// Results land in index-addressed slots so the output order is deterministic
// even when lookups run concurrently; a nil slot marks a skipped index.
func (a *Aggregator) scanWindow(ctx context.Context, lo, hi uint64) []*Prop {
	slots := make([]*Prop, hi-lo)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for index := lo; index < hi; index++ {
		g.Go(func() error {
			record, err := a.prop(gctx, index)
			if err != nil {
				a.log.Warn("skipping prop after failed lookup",
					slog.Uint64("index", index),
					slog.Any("error", err),
				)
				return nil
			}
			slots[index-lo] = &record
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

// collectStats issues exactly one stats lookup per unique player, preserving
// the players' first-seen order. Failed lookups are skipped.
func (a *Aggregator) collectStats(ctx context.Context, players []string) []LeaderboardEntry {
	slots := make([]*PlayerStats, len(players))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, player := range players {
		g.Go(func() error {
			stats, err := a.playerStats(gctx, player)
			if err != nil {
				a.log.Warn("skipping player after failed stats lookup",
					slog.String("player", player),
					slog.Any("error", err),
				)
				return nil
			}
			slots[i] = &stats
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]LeaderboardEntry, 0, len(players))
	for _, stats := range slots {
		if stats == nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Player:   stats.Player,
			Received: stats.Received,
			Given:    stats.Given,
		})
	}
	return entries
}

// dedupePlayers extracts giver and receiver from each fetched record into a
// set that preserves first-seen order
func dedupePlayers(records []*Prop) []string {
	seen := make(map[string]struct{})
	var players []string

	add := func(player string) {
		if player == "" {
			return
		}
		if _, ok := seen[player]; ok {
			return
		}
		seen[player] = struct{}{}
		players = append(players, player)
	}

	for _, record := range records {
		if record == nil {
			continue
		}
		add(record.Giver)
		add(record.Receiver)
	}
	return players
}

func historyEntry(record Prop, direction Direction) HistoryEntry {
	return HistoryEntry{
		Index:     record.Index,
		Direction: direction,
		Giver:     record.Giver,
		Receiver:  record.Receiver,
		Memo:      record.Memo,
	}
}

// Retried single lookups

func (a *Aggregator) propCount(ctx context.Context) (uint64, error) {
	var total uint64
	err := a.retryer.Do(ctx, "get-prop-count", func(ctx context.Context) error {
		var err error
		total, err = a.reader.PropCount(ctx)
		return err
	})
	return total, err
}

func (a *Aggregator) prop(ctx context.Context, index uint64) (Prop, error) {
	var record Prop
	err := a.retryer.Do(ctx, "get-prop", func(ctx context.Context) error {
		var err error
		record, err = a.reader.Prop(ctx, index)
		return err
	})
	return record, err
}

func (a *Aggregator) playerStats(ctx context.Context, player string) (PlayerStats, error) {
	var stats PlayerStats
	err := a.retryer.Do(ctx, "get-player-stats", func(ctx context.Context) error {
		var err error
		stats, err = a.reader.PlayerStats(ctx, player)
		return err
	})
	return stats, err
}

func (a *Aggregator) receivedIndexes(ctx context.Context, player string) ([]uint64, error) {
	var indexes []uint64
	err := a.retryer.Do(ctx, "get-received-indexes", func(ctx context.Context) error {
		var err error
		indexes, err = a.reader.ReceivedIndexes(ctx, player)
		return err
	})
	return indexes, err
}
