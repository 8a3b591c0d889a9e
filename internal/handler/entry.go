package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-entry-service/internal/model"
	"github.com/iliyamo/venue-entry-service/internal/service"
	"github.com/iliyamo/venue-entry-service/internal/store"
)

// EntryHandler accepts paid entry submissions and runs the issuance
// pipeline for them.
type EntryHandler struct {
	Issuer *service.Issuer
}

func NewEntryHandler(i *service.Issuer) *EntryHandler { return &EntryHandler{Issuer: i} }

type entryReq struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	TransactionID string `json:"transaction_id"`
	Plan          string `json:"plan_selection"`
	PaymentMode   string `json:"payment_mode"` // online | cash
}

type entryResp struct {
	TransactionID string `json:"transaction_id"`
	Token         string `json:"token"`
	VerifyURL     string `json:"verify_url"`
	QRPath        string `json:"qr_path"`
	Plan          string `json:"plan"`
	DurationMin   int    `json:"duration"`
	AmountINR     int    `json:"amount"`
}

// Submit handles POST /v1/entries. Online payments must carry the
// payment gateway's transaction id and duplicates are rejected; cash
// payments get a generated id.
func (h *EntryHandler) Submit(c echo.Context) error {
	var req entryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/phone required"})
	}
	mode := strings.ToLower(strings.TrimSpace(req.PaymentMode))
	if mode != "online" && mode != "cash" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_mode must be online or cash"})
	}
	if mode == "online" && strings.TrimSpace(req.TransactionID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction id is required for online payments"})
	}
	plan, err := model.ParsePlan(req.Plan)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan selection"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Issuer.Issue(ctx, service.IssueRequest{
		Name:          req.Name,
		Phone:         req.Phone,
		TransactionID: strings.TrimSpace(req.TransactionID),
		Plan:          plan,
		PaymentMode:   mode,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "transaction id already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issuance failed"})
	}

	return c.JSON(http.StatusCreated, entryResp{
		TransactionID: res.Credential.TransactionID,
		Token:         res.Token,
		VerifyURL:     res.VerifyURL,
		QRPath:        res.QRPath,
		Plan:          res.Credential.Plan,
		DurationMin:   res.Credential.DurationMin,
		AmountINR:     res.Credential.AmountINR,
	})
}
