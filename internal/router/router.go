package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-entry-service/internal/config"
	"github.com/iliyamo/venue-entry-service/internal/handler"
	"github.com/iliyamo/venue-entry-service/internal/middleware"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Entry   *handler.EntryHandler
	Gate    *handler.GateHandler
	Session *handler.SessionHandler
	Stats   *handler.StatsHandler
}

// Register wires all application routes onto the Echo instance.
//
// Public surface: the health check, the entry submission form target
// and the gate verify endpoint (the URL embedded in every QR code —
// it must work from a phone browser without credentials; the token
// itself is the credential). The verify endpoint carries the Redis
// rate limiter so token-guessing floods die at the edge.
//
// Operator surface: login is open, session control and stats sit
// behind JWT auth.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	e.POST("/v1/entries", h.Entry.Submit)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	e.GET("/verify", h.Gate.Verify, limiter)

	e.POST("/v1/auth/login", h.Auth.Login)

	ops := e.Group("/v1")
	ops.Use(middleware.JWTAuth(cfg.JWTSecret))
	ops.GET("/sessions", h.Session.List)
	ops.GET("/sessions/:id", h.Session.Get)
	ops.POST("/sessions/:id/start", h.Session.Start)
	ops.POST("/sessions/:id/end", h.Session.End)
	ops.GET("/stats", h.Stats.Get)
}
