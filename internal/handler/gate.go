package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/service"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

// GateHandler is the entry gate: it verifies scanned tokens and, on
// admission, creates the participant's scheduled session for the
// operator to start.
type GateHandler struct {
	Verifier *service.Verifier
	Sessions store.SessionStore
}

func NewGateHandler(v *service.Verifier, s store.SessionStore) *GateHandler {
	return &GateHandler{Verifier: v, Sessions: s}
}

// Verify handles GET /verify?token=... Each rejection reason keeps its
// own message: the operator at the gate reacts differently to a replay
// than to a tampered code.
func (h *GateHandler) Verify(c echo.Context) error {
	tok := c.QueryParam("token")
	if tok == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "missing token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Verifier.Verify(ctx, tok)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "verification processing failed"})
	}

	if out.Admitted {
		cred := out.Credential
		if _, err := h.Sessions.Create(ctx, cred.TransactionID, cred.Name, cred.Phone,
			time.Duration(cred.DurationMin)*time.Minute); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "session setup failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"status":         "admitted",
			"name":           cred.Name,
			"phone":          cred.Phone,
			"transaction_id": cred.TransactionID,
			"plan":           cred.Plan,
			"duration":       cred.DurationMin,
			"time":           time.Now().Format("2006-01-02 15:04:05"),
		})
	}

	switch out.Reason {
	case service.ReasonDuplicateEntry:
		// A participant reopening the scan page re-presents a consumed
		// token. If their session is still alive, hand back its state
		// instead of a flat rejection.
		if sess, err := h.Sessions.Get(ctx, out.Credential.TransactionID); err == nil && sess.State != model.StateEnded {
			resp := echo.Map{
				"status":         "active_session",
				"transaction_id": sess.TicketID,
				"name":           sess.Name,
				"state":          sess.State,
				"duration":       int(sess.Duration.Minutes()),
			}
			if sess.StartedAt != nil {
				resp["started_at"] = sess.StartedAt
				resp["ends_at"] = sess.EndsAt()
			}
			return c.JSON(http.StatusOK, resp)
		}
		return c.JSON(http.StatusConflict, echo.Map{"status": "error", "message": "entry already processed/used"})
	case service.ReasonUnknownTransaction:
		return c.JSON(http.StatusNotFound, echo.Map{"status": "error", "message": "invalid QR code: transaction not found"})
	case service.ReasonExpiredFormat:
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "QR code format not recognized; please reissue the ticket"})
	default: // tampered or malformed
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid or tampered QR code"})
	}
}
