package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/buddyfeed/internal/media"
	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	composer *services.Composer
	posts    *services.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(composer *services.Composer, posts *services.PostService) *PostHandler {
	return &PostHandler{composer: composer, posts: posts}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.POST("/posts/:id/like", h.ToggleLike)
}

// CreatePost creates a post from a multipart form with optional image
func (h *PostHandler) CreatePost(c echo.Context) error {
	identity := middleware.CurrentIdentity(c)

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return httpError(c, err)
	}

	var image *media.Upload
	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		image, err = media.FromFileHeader(fh)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Could not read image")
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	post, err := h.composer.Submit(c.Request().Context(), identity, services.SubmitPostInput{
		Content:    req.Content,
		Image:      image,
		Visibility: req.Visibility,
	})
	if err != nil {
		return httpError(c, err)
	}
	if post == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, post.ViewFor(identity.UID))
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	post, err := h.posts.Get(c.Request().Context(), c.Param("id"), viewer.UID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, post.ViewFor(viewer.UID))
}

// ToggleLike likes the post, or unlikes it when already liked
func (h *PostHandler) ToggleLike(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	liked, err := h.posts.ToggleLike(c.Request().Context(), c.Param("id"), viewer.UID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}
