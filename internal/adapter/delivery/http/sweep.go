package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/linkdrop/internal/usecase"
)

type sweeper interface {
	Sweep(ctx context.Context) (*usecase.SweepReport, error)
}

type sweepHandler struct {
	sweeper sweeper
}

// sweep runs one reconciliation pass on demand.
func (h *sweepHandler) sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		if report != nil {
			httplog.LogEntrySetField(r.Context(), "run_id", slog.StringValue(report.ID))
		}

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toSweepResponse(report))
}
