package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a simple liveness endpoint used by load balancers and the
// operator dashboard to verify that the gate service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
