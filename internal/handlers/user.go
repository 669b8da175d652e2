package handlers

import (
	"net/http"

	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	accounts *services.AccountService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.GET("/users/:id", h.GetUser)
}

// GetUser returns another user's profile
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.accounts.Profile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetProfile returns the signed-in user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	identity := middleware.CurrentIdentity(c)
	user, err := h.accounts.Profile(c.Request().Context(), identity.UID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"identity": identity, "profile": user})
}
