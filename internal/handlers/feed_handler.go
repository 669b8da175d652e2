package handlers

import (
	"net/http"

	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feed *services.FeedService
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/feed/stream", h.StreamFeed)
}

// GetFeed returns the current feed, newest first
func (h *FeedHandler) GetFeed(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	posts, err := h.feed.Snapshot(c.Request().Context(), viewer)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, feedView(posts, viewer.UID))
}

// StreamFeed pushes the feed over a WebSocket every time it changes
func (h *FeedHandler) StreamFeed(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	sub, err := h.feed.Watch(c.Request().Context(), viewer)
	if err != nil {
		return httpError(c, err)
	}
	return streamSubscription(c, sub, func(posts []models.Post) interface{} {
		return feedView(posts, viewer.UID)
	})
}
