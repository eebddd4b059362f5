package pgxstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propslab/props"
	"github.com/propslab/props/web/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrSaveFailed  = errors.New("snapshot insert failed")
	ErrQueryFailed = errors.New("snapshot query failed")
)

// SQL queries
const (
	insertSnapshotQuery = "INSERT INTO leaderboard_snapshots (generated_at, entries) VALUES ($1, $2)"
	recentSnapshotsQuery = "SELECT id, generated_at, entries FROM leaderboard_snapshots" +
		" ORDER BY generated_at DESC, id DESC LIMIT $1"
)

// Snapshot is an archived leaderboard run restored from the database
type Snapshot struct {
	ID          int64
	GeneratedAt time.Time
	Entries     []props.LeaderboardEntry
}

// SnapshotArchive persists leaderboard reports using pgx
type SnapshotArchive struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL snapshot archive with an existing connection pool
// Returns the archive and a closer function
func New(pool *pgxpool.Pool) (*SnapshotArchive, func()) {
	archive := &SnapshotArchive{pool: pool}
	closer := func() {
		pool.Close()
	}
	return archive, closer
}

// PublishReport appends a leaderboard report to the archive. It satisfies the
// refresher's sink contract, so every refresh cycle lands here.
func (a *SnapshotArchive) PublishReport(ctx context.Context, report props.Report) error {
	entries, err := json.Marshal(report.Entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if _, err := a.pool.Exec(ctx, insertSnapshotQuery, report.GeneratedAt, entries); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// RecentSnapshots returns up to limit archived runs, most recent first
func (a *SnapshotArchive) RecentSnapshots(ctx context.Context, limit uint64) ([]Snapshot, error) {
	rows, err := a.pool.Query(ctx, recentSnapshotsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var dbRow dbrow.Snapshot
		if err := rows.Scan(&dbRow.ID, &dbRow.GeneratedAt, &dbRow.Entries); err != nil {
			return nil, fmt.Errorf("%w: scan failed: %w", ErrQueryFailed, err)
		}

		var entries []props.LeaderboardEntry
		if err := json.Unmarshal(dbRow.Entries, &entries); err != nil {
			return nil, fmt.Errorf("%w: entries decode failed: %w", ErrQueryFailed, err)
		}

		snapshots = append(snapshots, Snapshot{
			ID:          dbRow.ID,
			GeneratedAt: dbRow.GeneratedAt,
			Entries:     entries,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return snapshots, nil
}
