// Package props aggregates read-only contract lookups from a blockchain
// "props" application into leaderboard and per-player history reports.
//
// All remote lookups go through a retrying caller with exponential backoff
// and a delay before every attempt, so a scan never exceeds the request rate
// the shared node tolerates. Individual lookup failures are absorbed: a
// record or player that cannot be fetched is skipped, never fatal.
package props

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for failure cases
var (
	ErrCountLookupFailed   = errors.New("prop count lookup failed")
	ErrHistoryLookupFailed = errors.New("received history lookup failed")
	ErrRetriesExhausted    = errors.New("retries exhausted")
	ErrUnknownView         = errors.New("unknown history view")
)

// Default configuration values
const (
	DefaultRetries           = 3
	DefaultBaseDelay         = 500 * time.Millisecond
	DefaultLeaderboardWindow = uint64(10)
	DefaultHistoryWindow     = uint64(50)
	DefaultReceivedLimit     = 20
	DefaultRefreshInterval   = time.Minute
)

// Prop is a single on-chain props transaction, identified by its index
// in the contract's append-only record list.
type Prop struct {
	Index    uint64
	Giver    string
	Receiver string
	Memo     string
}

// PlayerStats holds the per-player counters reported by the contract
type PlayerStats struct {
	Player   string
	Received uint64
	Given    uint64
}

// LeaderboardEntry is a ranked player in a leaderboard report.
// Rank is 1-based; ties keep the order in which players first appeared
// in the scan window.
type LeaderboardEntry struct {
	Rank     int
	Player   string
	Received uint64
	Given    uint64
}

// Report is a completed leaderboard aggregation
type Report struct {
	GeneratedAt time.Time
	Entries     []LeaderboardEntry
}

// Direction classifies a history row relative to its subject
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionGiven    Direction = "given"
)

// HistoryEntry is one row of a per-player history report,
// ordered most-recent-first by record index.
type HistoryEntry struct {
	Index     uint64
	Direction Direction
	Giver     string
	Receiver  string
	Memo      string
}

// View selects which history rows to include for a subject
type View string

const (
	ViewReceived View = "received"
	ViewGiven    View = "given"
	ViewAll      View = "all"
)

// ParseView validates a view keyword. An empty string defaults to ViewAll.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "":
		return ViewAll, nil
	case ViewReceived, ViewGiven, ViewAll:
		return View(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
}

// Reader provides the typed read-only contract lookups the aggregator
// consumes. Implementations are expected to be idempotent and side-effect
// free beyond the remote call itself.
// -----------------------------------------------------------------------
type Reader interface {
	// PropCount returns the authoritative total number of props recorded
	PropCount(ctx context.Context) (uint64, error)
	// Prop returns the record at the given index
	Prop(ctx context.Context, index uint64) (Prop, error)
	// PlayerStats returns the counters for a player, using the player as
	// the call's sender context
	PlayerStats(ctx context.Context, player string) (PlayerStats, error)
	// ReceivedIndexes returns the ordered (oldest first) record indexes
	// of props the player received
	ReceivedIndexes(ctx context.Context, player string) ([]uint64, error)
}

// Clock abstracts time for production and testing
// ------------------------------------------------
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// window computes the bounded scan interval [lo, hi) over a collection of
// total records: at most limit indexes, never past the authoritative total.
func window(total, limit uint64) (lo, hi uint64) {
	lo = 0
	if total > limit {
		lo = total - limit
	}
	return lo, total
}
