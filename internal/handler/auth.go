package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-entry-service/internal/config"
	"github.com/iliyamo/venue-entry-service/internal/utils"
)

// AuthHandler logs the venue operator into the dashboard. There is a
// single configured operator account; the password from the
// environment is bcrypt-hashed once at construction so requests only
// ever compare against the hash.
type AuthHandler struct {
	cfg          config.Config
	passwordHash string
}

func NewAuthHandler(cfg config.Config) (*AuthHandler, error) {
	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{cfg: cfg, passwordHash: hash}, nil
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Login handles POST /v1/auth/login and returns a short-lived access
// token for the session control and stats endpoints.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Username) != h.cfg.AdminUser ||
		!utils.VerifyPassword(h.passwordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.cfg.JWTSecret, h.cfg.AdminUser, h.cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusOK, loginResp{Token: tok.Token, Expires: tok.Exp})
}
