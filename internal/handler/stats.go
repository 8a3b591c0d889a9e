package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-entry-service/internal/store"
)

// StatsHandler serves the revenue dashboard from the ledger.
type StatsHandler struct {
	Ledger store.Ledger
}

func NewStatsHandler(l store.Ledger) *StatsHandler { return &StatsHandler{Ledger: l} }

// Get handles GET /v1/stats.
func (h *StatsHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	totals, err := h.Ledger.Totals(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_participants": totals.Entries,
		"total_revenue_inr":  totals.TotalINR,
	})
}
