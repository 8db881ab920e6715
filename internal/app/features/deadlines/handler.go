// internal/app/features/deadlines/handler.go
package deadlines

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/edusync/internal/app/features/shared"
	appsync "github.com/dalemusser/edusync/internal/app/sync"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"

	"go.uber.org/zap"
)

type Handler struct {
	Engines *appsync.Manager
	Log     *zap.Logger
}

func NewHandler(engines *appsync.Manager, logger *zap.Logger) *Handler {
	return &Handler{Engines: engines, Log: logger}
}

type deadlinesResponse struct {
	appsync.Buckets
	Degraded bool `json:"degraded,omitempty"`
}

// HandleGet returns the caller's records across all groups, bucketed
// into due / upcoming / completed as of request time. Degraded is set
// when at least one group's subscription has failed and its records
// are missing from the response.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "deadlines.HandleGet"

	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	eng, err := h.Engines.Engine(ctx, u.UID)
	if err != nil {
		shared.Error(w, h.Log, op, err)
		return
	}

	resp := deadlinesResponse{
		Buckets:  eng.Buckets(time.Now()),
		Degraded: eng.Err() != nil,
	}
	shared.JSON(w, http.StatusOK, resp)
}
