package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/propslab/props"
	"github.com/propslab/props/pkg/httpkit"
	"github.com/propslab/props/web/api"
	"github.com/propslab/props/web/handler/bind"
)

const GetLeaderboardRoute = http.MethodGet + " " + "/v1/leaderboard"

// Sentinel errors
var (
	ErrLeaderboardFailed = errors.New("failed to build leaderboard")
)

type PropsGetLeaderboard struct {
	source props.LeaderboardSource
}

func NewPropsGetLeaderboard(source props.LeaderboardSource) *PropsGetLeaderboard {
	return &PropsGetLeaderboard{
		source: source,
	}
}

func (h *PropsGetLeaderboard) AddRoutes(m *http.ServeMux) {
	m.Handle(GetLeaderboardRoute, httpkit.HandlerFunc(h.GetLeaderboard))
}

func (h *PropsGetLeaderboard) GetLeaderboard(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	report, err := h.source.Leaderboard(r.Context())
	if err != nil {
		return httpkit.JSONError(classifyChainError(fmt.Errorf("%w: %w", ErrLeaderboardFailed, err)))
	}

	return httpkit.JSON(bind.GetLeaderboardResponse(report))
}

// classifyChainError maps failed chain lookups to 502, everything else to 500
func classifyChainError(err error) *api.Error {
	if errors.Is(err, props.ErrCountLookupFailed) ||
		errors.Is(err, props.ErrHistoryLookupFailed) ||
		errors.Is(err, props.ErrRetriesExhausted) {
		return api.BadGateway(err)
	}
	return api.InternalServerError(err)
}
