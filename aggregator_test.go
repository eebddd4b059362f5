package props_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propslab/props"
)

// fakeReader scripts contract responses and records every lookup
type fakeReader struct {
	mu sync.Mutex

	total    uint64
	totalErr error

	records     map[uint64]props.Prop
	failRecords map[uint64]bool

	stats     map[string]props.PlayerStats
	failStats map[string]bool

	received    map[string][]uint64
	receivedErr error

	countCalls    int
	propCalls     []uint64
	statsCalls    []string
	receivedCalls []string
}

func newFakeReader(total uint64) *fakeReader {
	return &fakeReader{
		total:       total,
		records:     make(map[uint64]props.Prop),
		failRecords: make(map[uint64]bool),
		stats:       make(map[string]props.PlayerStats),
		failStats:   make(map[string]bool),
		received:    make(map[string][]uint64),
	}
}

func (f *fakeReader) PropCount(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.totalErr != nil {
		return 0, f.totalErr
	}
	return f.total, nil
}

func (f *fakeReader) Prop(_ context.Context, index uint64) (props.Prop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.propCalls = append(f.propCalls, index)
	if f.failRecords[index] {
		return props.Prop{}, fmt.Errorf("prop %d unavailable", index)
	}
	record, ok := f.records[index]
	if !ok {
		return props.Prop{}, fmt.Errorf("no prop at index %d", index)
	}
	return record, nil
}

func (f *fakeReader) PlayerStats(_ context.Context, player string) (props.PlayerStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls = append(f.statsCalls, player)
	if f.failStats[player] {
		return props.PlayerStats{}, fmt.Errorf("stats for %s unavailable", player)
	}
	stats, ok := f.stats[player]
	if !ok {
		return props.PlayerStats{Player: player}, nil
	}
	return stats, nil
}

func (f *fakeReader) ReceivedIndexes(_ context.Context, player string) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receivedCalls = append(f.receivedCalls, player)
	if f.receivedErr != nil {
		return nil, f.receivedErr
	}
	return f.received[player], nil
}

func (f *fakeReader) propLookups(t *testing.T) []uint64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.propCalls...)
}

// addProp scripts a record at the given index
func (f *fakeReader) addProp(index uint64, giver, receiver, memo string) {
	f.records[index] = props.Prop{Index: index, Giver: giver, Receiver: receiver, Memo: memo}
}

// addStats scripts per-player counters
func (f *fakeReader) addStats(player string, receivedCount, givenCount uint64) {
	f.stats[player] = props.PlayerStats{Player: player, Received: receivedCount, Given: givenCount}
}

// instantClock fires every wait immediately with a fixed Now
type instantClock struct {
	now time.Time
}

func (c instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c instantClock) Now() time.Time { return c.now }

// fastAggregator builds an aggregator with no real delays
func fastAggregator(reader props.Reader, opts ...props.Option) *props.Aggregator {
	base := []props.Option{
		props.WithClock(instantClock{now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}),
		props.WithBaseDelay(0),
	}
	return props.New(reader, append(base, opts...)...)
}

func TestAggregatorLeaderboard(t *testing.T) {
	t.Parallel()

	t.Run("it scans exactly the bounded window of recent props", func(t *testing.T) {
		t.Parallel()

		// Arrange - T=12, limit=10 => window [2,12)
		reader := newFakeReader(12)
		for i := uint64(2); i < 12; i++ {
			reader.addProp(i, "SPA", "SPB", "gg")
		}
		agg := fastAggregator(reader, props.WithLeaderboardWindow(10))

		// Act
		_, err := agg.Leaderboard(context.Background())

		// Assert
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]uint64{2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
			reader.propLookups(t),
		)
	})

	t.Run("it returns an empty report without per-index lookups when the count is zero", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(0)
		agg := fastAggregator(reader)

		// Act
		report, err := agg.Leaderboard(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Empty(t, report.Entries)
		assert.Empty(t, reader.propCalls)
		assert.Empty(t, reader.statsCalls)
	})

	t.Run("it issues exactly one stats lookup per unique player", func(t *testing.T) {
		t.Parallel()

		// Arrange - three props between the same two players
		reader := newFakeReader(3)
		reader.addProp(0, "SPA", "SPB", "")
		reader.addProp(1, "SPB", "SPA", "")
		reader.addProp(2, "SPA", "SPB", "")
		agg := fastAggregator(reader)

		// Act
		_, err := agg.Leaderboard(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"SPA", "SPB"}, reader.statsCalls)
	})

	t.Run("it ranks by received count descending with stable ties", func(t *testing.T) {
		t.Parallel()

		// Arrange - T=12, window [2,12); six players A..F, A seen before B
		reader := newFakeReader(12)
		reader.addProp(2, "SPA", "SPB", "")
		reader.addProp(3, "SPC", "SPD", "")
		reader.addProp(4, "SPE", "SPF", "")
		for i := uint64(5); i < 12; i++ {
			reader.addProp(i, "SPA", "SPB", "")
		}
		reader.addStats("SPA", 5, 1)
		reader.addStats("SPB", 5, 2)
		reader.addStats("SPC", 3, 0)
		reader.addStats("SPD", 1, 4)
		reader.addStats("SPE", 0, 0)
		reader.addStats("SPF", 0, 9)
		agg := fastAggregator(reader, props.WithLeaderboardWindow(10))

		// Act
		report, err := agg.Leaderboard(context.Background())

		// Assert - A keeps its place before B despite the tie
		require.NoError(t, err)
		require.Len(t, report.Entries, 6)

		wantOrder := []string{"SPA", "SPB", "SPC", "SPD", "SPE", "SPF"}
		for i, entry := range report.Entries {
			assert.Equal(t, wantOrder[i], entry.Player, "position %d", i)
			assert.Equal(t, i+1, entry.Rank)
		}
	})

	t.Run("it skips a prop whose lookup exhausts retries without affecting the rest", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(3)
		reader.addProp(0, "SPA", "SPB", "")
		reader.failRecords[1] = true
		reader.addProp(2, "SPC", "SPD", "")
		agg := fastAggregator(reader, props.WithRetries(2))

		// Act
		report, err := agg.Leaderboard(context.Background())

		// Assert - the failed index contributes nothing, nothing else is lost
		require.NoError(t, err)
		assert.Equal(t, []string{"SPA", "SPB", "SPC", "SPD"}, reader.statsCalls)
		assert.Len(t, report.Entries, 4)
	})

	t.Run("it skips a player whose stats lookup exhausts retries", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(1)
		reader.addProp(0, "SPA", "SPB", "")
		reader.failStats["SPA"] = true
		agg := fastAggregator(reader, props.WithRetries(2))

		// Act
		report, err := agg.Leaderboard(context.Background())

		// Assert
		require.NoError(t, err)
		require.Len(t, report.Entries, 1)
		assert.Equal(t, "SPB", report.Entries[0].Player)
	})

	t.Run("it produces identical reports for identical response sequences", func(t *testing.T) {
		t.Parallel()

		// Arrange
		setup := func() *props.Aggregator {
			reader := newFakeReader(5)
			for i := uint64(0); i < 5; i++ {
				reader.addProp(i, "SPA", "SPB", "")
			}
			reader.addStats("SPA", 2, 3)
			reader.addStats("SPB", 3, 2)
			return fastAggregator(reader)
		}

		// Act
		first, err := setup().Leaderboard(context.Background())
		require.NoError(t, err)
		second, err := setup().Leaderboard(context.Background())
		require.NoError(t, err)

		// Assert
		assert.Equal(t, first, second)
	})

	t.Run("it propagates a count lookup failure as a whole-operation failure", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(0)
		reader.totalErr = errors.New("node down")
		agg := fastAggregator(reader, props.WithRetries(2))

		// Act
		_, err := agg.Leaderboard(context.Background())

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, props.ErrCountLookupFailed)
		assert.ErrorIs(t, err, props.ErrRetriesExhausted)
	})

	t.Run("it yields the same report with bounded concurrency enabled", func(t *testing.T) {
		t.Parallel()

		// Arrange
		build := func(opts ...props.Option) (*fakeReader, *props.Aggregator) {
			reader := newFakeReader(12)
			reader.addProp(2, "SPA", "SPB", "")
			reader.addProp(3, "SPC", "SPD", "")
			for i := uint64(4); i < 12; i++ {
				reader.addProp(i, "SPA", "SPC", "")
			}
			reader.addStats("SPA", 4, 1)
			reader.addStats("SPB", 4, 0)
			reader.addStats("SPC", 2, 2)
			reader.addStats("SPD", 0, 1)
			return reader, fastAggregator(reader, opts...)
		}

		_, sequential := build()
		_, concurrent := build(props.WithConcurrency(4))

		// Act
		sequentialReport, err := sequential.Leaderboard(context.Background())
		require.NoError(t, err)
		concurrentReport, err := concurrent.Leaderboard(context.Background())
		require.NoError(t, err)

		// Assert
		assert.Equal(t, sequentialReport, concurrentReport)
	})
}

func TestAggregatorHistory(t *testing.T) {
	t.Parallel()

	t.Run("it keeps only given props in descending index order for the given view", func(t *testing.T) {
		t.Parallel()

		// Arrange - subject S, T=5, window [0,5)
		reader := newFakeReader(5)
		reader.addProp(0, "SPS", "SPA", "first")
		reader.addProp(1, "SPA", "SPS", "")
		reader.addProp(2, "SPS", "SPB", "second")
		reader.addProp(3, "SPB", "SPC", "")
		reader.addProp(4, "SPS", "SPC", "third")
		agg := fastAggregator(reader)

		// Act
		entries, err := agg.History(context.Background(), "SPS", props.ViewGiven)

		// Assert
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, uint64(4), entries[0].Index)
		assert.Equal(t, uint64(2), entries[1].Index)
		assert.Equal(t, uint64(0), entries[2].Index)
		for _, entry := range entries {
			assert.Equal(t, props.DirectionGiven, entry.Direction)
		}
	})

	t.Run("it tags rows by the subject's role in the all view", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(3)
		reader.addProp(0, "SPS", "SPA", "")
		reader.addProp(1, "SPA", "SPS", "")
		reader.addProp(2, "SPA", "SPB", "") // does not touch the subject
		agg := fastAggregator(reader)

		// Act
		entries, err := agg.History(context.Background(), "SPS", props.ViewAll)

		// Assert
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, props.DirectionReceived, entries[0].Direction)
		assert.Equal(t, uint64(1), entries[0].Index)
		assert.Equal(t, props.DirectionGiven, entries[1].Direction)
		assert.Equal(t, uint64(0), entries[1].Index)
	})

	t.Run("it scans no further back than the history window", func(t *testing.T) {
		t.Parallel()

		// Arrange - T=5, window limit 2 => only indexes 3 and 4
		reader := newFakeReader(5)
		reader.addProp(3, "SPS", "SPA", "")
		reader.addProp(4, "SPA", "SPS", "")
		agg := fastAggregator(reader, props.WithHistoryWindow(2))

		// Act
		entries, err := agg.History(context.Background(), "SPS", props.ViewAll)

		// Assert
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint64{3, 4}, reader.propLookups(t))
		require.Len(t, entries, 2)
	})

	t.Run("it serves the received view from the subject's own index list most recent first", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(10)
		reader.received["SPS"] = []uint64{1, 4, 7}
		reader.addProp(1, "SPA", "SPS", "older")
		reader.addProp(4, "SPB", "SPS", "")
		reader.addProp(7, "SPC", "SPS", "newest")
		agg := fastAggregator(reader)

		// Act
		entries, err := agg.History(context.Background(), "SPS", props.ViewReceived)

		// Assert - no count lookup, list order reversed
		require.NoError(t, err)
		assert.Zero(t, reader.countCalls)
		require.Len(t, entries, 3)
		assert.Equal(t, uint64(7), entries[0].Index)
		assert.Equal(t, uint64(4), entries[1].Index)
		assert.Equal(t, uint64(1), entries[2].Index)
	})

	t.Run("it caps the received view at the configured limit", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(10)
		reader.received["SPS"] = []uint64{0, 1, 2, 3}
		for i := uint64(0); i < 4; i++ {
			reader.addProp(i, "SPA", "SPS", "")
		}
		agg := fastAggregator(reader, props.WithReceivedLimit(2))

		// Act
		entries, err := agg.History(context.Background(), "SPS", props.ViewReceived)

		// Assert - only the two most recent entries
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, uint64(3), entries[0].Index)
		assert.Equal(t, uint64(2), entries[1].Index)
	})

	t.Run("it drops received entries that do not actually reference the subject", func(t *testing.T) {
		t.Parallel()

		// Arrange - the index list claims index 4, but that prop went elsewhere
		reader := newFakeReader(10)
		reader.received["SPS"] = []uint64{1, 4}
		reader.addProp(1, "SPA", "SPS", "")
		reader.addProp(4, "SPA", "SPB", "")
		agg := fastAggregator(reader)

		// Act
		entries, err := agg.History(context.Background(), "SPS", props.ViewReceived)

		// Assert
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, uint64(1), entries[0].Index)
	})

	t.Run("it skips unfetchable indexes without aborting the scan", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(3)
		reader.addProp(0, "SPS", "SPA", "")
		reader.failRecords[1] = true
		reader.addProp(2, "SPS", "SPB", "")
		agg := fastAggregator(reader, props.WithRetries(2))

		// Act
		entries, err := agg.History(context.Background(), "SPS", props.ViewGiven)

		// Assert
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, uint64(2), entries[0].Index)
		assert.Equal(t, uint64(0), entries[1].Index)
	})

	t.Run("it propagates a received-list lookup failure as a whole-operation failure", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := newFakeReader(3)
		reader.receivedErr = errors.New("node down")
		agg := fastAggregator(reader, props.WithRetries(2))

		// Act
		_, err := agg.History(context.Background(), "SPS", props.ViewReceived)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, props.ErrHistoryLookupFailed)
	})

	t.Run("it rejects an unknown view", func(t *testing.T) {
		t.Parallel()

		agg := fastAggregator(newFakeReader(0))

		_, err := agg.History(context.Background(), "SPS", props.View("sideways"))

		assert.ErrorIs(t, err, props.ErrUnknownView)
	})
}

func TestParseView(t *testing.T) {
	t.Parallel()

	t.Run("it accepts the three view keywords", func(t *testing.T) {
		t.Parallel()

		for _, keyword := range []string{"received", "given", "all"} {
			view, err := props.ParseView(keyword)
			require.NoError(t, err)
			assert.Equal(t, props.View(keyword), view)
		}
	})

	t.Run("it defaults an empty keyword to all", func(t *testing.T) {
		t.Parallel()

		view, err := props.ParseView("")
		require.NoError(t, err)
		assert.Equal(t, props.ViewAll, view)
	})

	t.Run("it rejects anything else", func(t *testing.T) {
		t.Parallel()

		_, err := props.ParseView("everything")
		assert.ErrorIs(t, err, props.ErrUnknownView)
	})
}
