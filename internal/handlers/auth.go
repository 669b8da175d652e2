package handlers

import (
	"net/http"

	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	accounts *services.AccountService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// RegisterAuthRoutes registers the public authentication routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/federated", h.FederatedLogin)
}

// RegisterSessionRoutes registers routes that need a signed-in user
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/auth/logout", h.Logout)
}

// Register creates an account and its profile. The client signs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	user, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": user, "redirect": "/login"})
}

// Login signs in with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	creds, err := h.accounts.Login(c.Request().Context(), req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, creds)
}

// FederatedLogin signs in with an ID token from the federated identity provider
func (h *AuthHandler) FederatedLogin(c echo.Context) error {
	var req models.FederatedLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	creds, err := h.accounts.LoginWithIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, creds)
}

// Logout ends every session of the current user
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.accounts.Logout(c.Request().Context(), middleware.CurrentIdentity(c)); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
