package api

// HistoryRequest represents the query parameters for GET /v1/players/{player}/history
type HistoryRequest struct {
	Player string // Path parameter, a principal address
	View   string `query:"view"`  // received, given or all (default: all)
	Limit  uint64 `query:"limit"` // Maximum rows to return (default: 50, max: 100)
}

// LeaderboardEntry represents a single ranked player in the API response
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Player   string `json:"player"`
	Received uint64 `json:"received"`
	Given    uint64 `json:"given"`
}

// LeaderboardResponse represents the API response for GET /v1/leaderboard
type LeaderboardResponse struct {
	GeneratedAt string             `json:"generated_at"`
	Data        []LeaderboardEntry `json:"data"`
}

// HistoryEntry represents a single record in a player's history
type HistoryEntry struct {
	Index     uint64 `json:"index"`
	Direction string `json:"direction"`
	Giver     string `json:"giver"`
	Receiver  string `json:"receiver"`
	Memo      string `json:"memo,omitempty"`
}

// HistoryResponse represents the API response for GET /v1/players/{player}/history
type HistoryResponse struct {
	Player string         `json:"player"`
	View   string         `json:"view"`
	Data   []HistoryEntry `json:"data"`
}

// Snapshot represents an archived leaderboard run
type Snapshot struct {
	ID          int64              `json:"id"`
	GeneratedAt string             `json:"generated_at"`
	Data        []LeaderboardEntry `json:"data"`
}

// SnapshotsResponse represents the API response for GET /v1/leaderboard/snapshots
type SnapshotsResponse struct {
	Data []Snapshot `json:"data"`
}
