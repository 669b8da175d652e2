package handlers

import (
	"net/http"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"github.com/labstack/echo/v4"
)

// httpError converts a service error into an echo HTTP error carrying only the
// user-facing message. The cause of server-side failures is logged.
func httpError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		status = http.StatusBadRequest
	case models.CodeNotFound:
		status = http.StatusNotFound
	case models.CodeUnauthorized, models.CodeAuth:
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		observability.GlobalLogger.ErrorContext(c.Request().Context(), "request failed",
			"path", c.Path(),
			"error", err.Error(),
		)
	}
	return echo.NewHTTPError(status, models.PublicMessage(err))
}
