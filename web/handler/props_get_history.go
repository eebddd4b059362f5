package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/propslab/props"
	"github.com/propslab/props/pkg/httpkit"
	"github.com/propslab/props/web/api"
	"github.com/propslab/props/web/handler/bind"
)

const GetHistoryRoute = http.MethodGet + " " + "/v1/players/{player}/history"

// Sentinel errors
var (
	ErrHistoryFailed = errors.New("failed to build history")
)

// HistorySource produces a player's filtered history
type HistorySource interface {
	History(ctx context.Context, subject string, view props.View) ([]props.HistoryEntry, error)
}

type PropsGetHistory struct {
	source HistorySource
}

func NewPropsGetHistory(source HistorySource) *PropsGetHistory {
	return &PropsGetHistory{
		source: source,
	}
}

func (h *PropsGetHistory) AddRoutes(m *http.ServeMux) {
	m.Handle(GetHistoryRoute, httpkit.HandlerFunc(h.GetHistory))
}

func (h *PropsGetHistory) GetHistory(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	// Parse path and query parameters using bind layer
	req, err := bind.GetHistoryRequest(r)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	// Bind already rejected unknown views
	view, err := props.ParseView(req.View)
	if err != nil {
		return httpkit.JSONError(api.BadRequest(err))
	}

	history, err := h.source.History(r.Context(), req.Player, view)
	if err != nil {
		return httpkit.JSONError(classifyChainError(fmt.Errorf("%w: %w", ErrHistoryFailed, err)))
	}

	// Rows are most recent first, so a cap keeps the newest ones
	if uint64(len(history)) > req.Limit {
		history = history[:req.Limit]
	}

	return httpkit.JSON(bind.GetHistoryResponse(req.Player, view, history))
}
