package bind

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/propslab/props"
	"github.com/propslab/props/web/api"
	"github.com/propslab/props/web/store/pgxstore"
)

// Pagination bounds
const (
	DefaultHistoryLimit   = 50
	MaxHistoryLimit       = 100
	DefaultSnapshotsLimit = 10
	MaxSnapshotsLimit     = 100
)

// Principal length bounds. Mainnet and testnet addresses are c32-encoded
// and fall well inside this range.
const (
	minPrincipalLen = 3
	maxPrincipalLen = 128
)

// Sentinel errors for request binding
var (
	ErrInvalidPlayer = errors.New("invalid player parameter")
	ErrInvalidView   = errors.New("invalid view parameter")
	ErrInvalidLimit  = errors.New("invalid limit parameter")

	// Specific player validation errors
	ErrPlayerEmpty     = errors.New("player must not be empty")
	ErrPlayerBadPrefix = errors.New("player must be a principal starting with SP or ST")
	ErrPlayerBadLength = errors.New("player has an implausible length for a principal")

	// Specific view validation errors
	ErrViewUnknown = errors.New("view must be one of received, given, all")

	// Specific limit validation errors
	ErrLimitNotNumeric  = errors.New("limit must be numeric")
	ErrLimitNotPositive = errors.New("limit must be positive")
	ErrLimitTooLarge    = errors.New("limit must be between 1 and 100")
)

// GetHistoryRequest binds the history request path and query parameters with
// defaults
func GetHistoryRequest(r *http.Request) (api.HistoryRequest, error) {
	req := api.HistoryRequest{
		View:  "", // Empty means the all view
		Limit: DefaultHistoryLimit,
	}

	player, err := parsePrincipal(r.PathValue("player"))
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidPlayer, err)
	}
	req.Player = player

	if viewParam := r.URL.Query().Get("view"); viewParam != "" {
		if _, err := props.ParseView(viewParam); err != nil {
			return req, fmt.Errorf("%w: %w", ErrInvalidView, ErrViewUnknown)
		}
		req.View = viewParam
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := parseLimit(limitParam, MaxHistoryLimit)
		if err != nil {
			return req, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
		}
		req.Limit = limit
	}

	return req, nil
}

// GetSnapshotsLimit binds the snapshots limit query parameter with defaults
func GetSnapshotsLimit(r *http.Request) (uint64, error) {
	limitParam := r.URL.Query().Get("limit")
	if limitParam == "" {
		return DefaultSnapshotsLimit, nil
	}

	limit, err := parseLimit(limitParam, MaxSnapshotsLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
	}
	return limit, nil
}

// parsePrincipal validates the player path segment looks like a principal
// address. Full c32check validation stays on the node; this only rejects
// obvious garbage before a chain round-trip.
func parsePrincipal(player string) (string, error) {
	if player == "" {
		return "", ErrPlayerEmpty
	}

	if len(player) < minPrincipalLen || len(player) > maxPrincipalLen {
		return "", ErrPlayerBadLength
	}

	if player[:2] != "SP" && player[:2] != "ST" {
		return "", ErrPlayerBadPrefix
	}

	return player, nil
}

// parseLimit validates that the limit parameter is within acceptable bounds
func parseLimit(limitParam string, max uint64) (uint64, error) {
	limit, err := strconv.ParseUint(limitParam, 10, 64)
	if err != nil {
		return 0, ErrLimitNotNumeric
	}

	if limit == 0 {
		return 0, ErrLimitNotPositive
	}

	if limit > max {
		return 0, ErrLimitTooLarge
	}

	return limit, nil
}

// GetLeaderboardResponse binds a domain report to the API response format
func GetLeaderboardResponse(report props.Report) api.LeaderboardResponse {
	entries := make([]api.LeaderboardEntry, len(report.Entries))
	for i, entry := range report.Entries {
		entries[i] = api.LeaderboardEntry{
			Rank:     entry.Rank,
			Player:   entry.Player,
			Received: entry.Received,
			Given:    entry.Given,
		}
	}

	return api.LeaderboardResponse{
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Data:        entries,
	}
}

// GetHistoryResponse binds domain history entries to the API response format
func GetHistoryResponse(player string, view props.View, history []props.HistoryEntry) api.HistoryResponse {
	entries := make([]api.HistoryEntry, len(history))
	for i, entry := range history {
		entries[i] = api.HistoryEntry{
			Index:     entry.Index,
			Direction: string(entry.Direction),
			Giver:     entry.Giver,
			Receiver:  entry.Receiver,
			Memo:      entry.Memo,
		}
	}

	return api.HistoryResponse{
		Player: player,
		View:   string(view),
		Data:   entries,
	}
}

// GetSnapshotsResponse binds archived snapshots to the API response format
func GetSnapshotsResponse(snapshots []pgxstore.Snapshot) api.SnapshotsResponse {
	data := make([]api.Snapshot, len(snapshots))
	for i, snapshot := range snapshots {
		entries := make([]api.LeaderboardEntry, len(snapshot.Entries))
		for j, entry := range snapshot.Entries {
			entries[j] = api.LeaderboardEntry{
				Rank:     entry.Rank,
				Player:   entry.Player,
				Received: entry.Received,
				Given:    entry.Given,
			}
		}

		data[i] = api.Snapshot{
			ID:          snapshot.ID,
			GeneratedAt: snapshot.GeneratedAt.Format(time.RFC3339),
			Data:        entries,
		}
	}

	return api.SnapshotsResponse{
		Data: data,
	}
}
