package handlers

import (
	"net/http"

	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler serves the list of users who like a post
type LikeHandler struct {
	posts *services.PostService
	likes *services.LikesService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(posts *services.PostService, likes *services.LikesService) *LikeHandler {
	return &LikeHandler{posts: posts, likes: likes}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.GET("/posts/:id/likes", h.GetLikers)
}

// GetLikers resolves the likers of a post to their profiles
func (h *LikeHandler) GetLikers(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	post, err := h.posts.Get(c.Request().Context(), c.Param("id"), viewer.UID)
	if err != nil {
		return httpError(c, err)
	}
	users := h.likes.Resolve(c.Request().Context(), post.Likes)
	return c.JSON(http.StatusOK, users)
}
