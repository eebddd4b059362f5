package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/propslab/props/pkg/httpkit"
	"github.com/propslab/props/web/api"
	"github.com/propslab/props/web/handler/bind"
	"github.com/propslab/props/web/store/pgxstore"
)

const GetSnapshotsRoute = http.MethodGet + " " + "/v1/leaderboard/snapshots"

// Sentinel errors
var (
	ErrSnapshotsFailed = errors.New("failed to list snapshots")
)

// SnapshotLister returns archived leaderboard runs, most recent first
type SnapshotLister interface {
	RecentSnapshots(ctx context.Context, limit uint64) ([]pgxstore.Snapshot, error)
}

type PropsGetSnapshots struct {
	archive SnapshotLister
}

func NewPropsGetSnapshots(archive SnapshotLister) *PropsGetSnapshots {
	return &PropsGetSnapshots{
		archive: archive,
	}
}

func (h *PropsGetSnapshots) AddRoutes(m *http.ServeMux) {
	m.Handle(GetSnapshotsRoute, httpkit.HandlerFunc(h.GetSnapshots))
}

func (h *PropsGetSnapshots) GetSnapshots(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	limit, err := bind.GetSnapshotsLimit(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	snapshots, err := h.archive.RecentSnapshots(r.Context(), limit)
	if err != nil {
		return httpkit.JSONError(api.InternalServerError(fmt.Errorf("%w: %w", ErrSnapshotsFailed, err)))
	}

	return httpkit.JSON(bind.GetSnapshotsResponse(snapshots))
}
