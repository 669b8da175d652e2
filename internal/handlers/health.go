package handlers

import (
	"net/http"

	"github.com/anonto42/buddyfeed/internal/auth"
	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/session"
	"github.com/labstack/echo/v4"
)

func HealthCheck(e echo.Context) error {
	return e.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "buddyfeed",
	})
}

// RootRedirect sends signed-in users to the feed and everyone else to the login page.
func RootRedirect(verifier auth.Verifier, guard session.Guard) echo.HandlerFunc {
	return func(c echo.Context) error {
		decision, redirect := guard.Evaluate(middleware.SessionState(c, verifier))
		if decision == session.Authorized {
			return c.Redirect(http.StatusFound, "/feed")
		}
		return c.Redirect(http.StatusFound, redirect)
	}
}
