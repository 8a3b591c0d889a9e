package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/scheduler"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

// SessionHandler exposes operator control over entry windows: start,
// early end and the live dashboard list.
type SessionHandler struct {
	Sched *scheduler.Scheduler
	Store store.SessionStore
}

func NewSessionHandler(s *scheduler.Scheduler, st store.SessionStore) *SessionHandler {
	return &SessionHandler{Sched: s, Store: st}
}

type sessionResp struct {
	TicketID  string     `json:"ticket_id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	State     string     `json:"state"`
	Duration  int        `json:"duration"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Remaining int        `json:"remaining_seconds"`
}

func toSessionResp(s model.Session, now time.Time) sessionResp {
	r := sessionResp{
		TicketID:  s.TicketID,
		Name:      s.Name,
		Phone:     s.Phone,
		State:     string(s.State),
		Duration:  int(s.Duration.Minutes()),
		StartedAt: s.StartedAt,
		Remaining: int(s.Remaining(now).Seconds()),
	}
	if s.StartedAt != nil {
		e := s.EndsAt()
		r.EndsAt = &e
	}
	return r
}

// Start handles POST /v1/sessions/:id/start. A second click on "start
// timer" is a conflict, not a clock reset.
func (h *SessionHandler) Start(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sched.Start(ctx, c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session already started"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start failed"})
	}
	return c.JSON(http.StatusOK, toSessionResp(sess, time.Now()))
}

// End handles POST /v1/sessions/:id/end, the manual early end.
func (h *SessionHandler) End(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sched.EndNow(ctx, c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, store.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is not running"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "end failed"})
	}
	return c.JSON(http.StatusOK, toSessionResp(sess, time.Now()))
}

// List handles GET /v1/sessions: every live entry window with its
// remaining seconds, for the operator dashboard.
func (h *SessionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	active, err := h.Store.ListActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	now := time.Now()
	out := make([]sessionResp, 0, len(active))
	for _, s := range active {
		out = append(out, toSessionResp(s, now))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Store.Get(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, toSessionResp(sess, time.Now()))
}
