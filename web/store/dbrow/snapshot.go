package dbrow

import (
	"time"
)

// Snapshot represents an archived leaderboard run as queried from the database.
// Entries holds the ranked players as a raw jsonb payload.
type Snapshot struct {
	ID          int64     `db:"id"`
	GeneratedAt time.Time `db:"generated_at"`
	Entries     []byte    `db:"entries"`
}
