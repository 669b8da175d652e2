package handlers

import (
	"net/http"

	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	threads *services.ThreadService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(threads *services.ThreadService) *CommentHandler {
	return &CommentHandler{threads: threads}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.GetThread)
	g.GET("/posts/:id/comments/stream", h.StreamThread)
	g.POST("/posts/:id/comments", h.CreateComment)
	g.POST("/posts/:id/comments/:commentId/like", h.ToggleLike)
}

// GetThread returns the comment thread of a post
func (h *CommentHandler) GetThread(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	thread, err := h.threads.Snapshot(c.Request().Context(), c.Param("id"), viewer.UID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, threadView(thread, viewer.UID))
}

// StreamThread pushes the comment thread over a WebSocket every time it changes
func (h *CommentHandler) StreamThread(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	sub, err := h.threads.Watch(c.Request().Context(), c.Param("id"), viewer.UID)
	if err != nil {
		return httpError(c, err)
	}
	return streamSubscription(c, sub, func(threads []models.Thread) interface{} {
		if len(threads) == 0 {
			return threadView(models.PartitionThread(nil), viewer.UID)
		}
		return threadView(threads[0], viewer.UID)
	})
}

// CreateComment adds a comment or a reply
func (h *CommentHandler) CreateComment(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return httpError(c, err)
	}

	comment, err := h.threads.Submit(c.Request().Context(), viewer, c.Param("id"), services.SubmitCommentInput{
		Text:     req.Text,
		ParentID: req.ParentID,
	})
	if err != nil {
		return httpError(c, err)
	}
	if comment == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, commentView(*comment, viewer.UID))
}

// ToggleLike likes the comment, or unlikes it when already liked
func (h *CommentHandler) ToggleLike(c echo.Context) error {
	viewer := middleware.CurrentIdentity(c)
	liked, err := h.threads.ToggleLike(c.Request().Context(), c.Param("id"), c.Param("commentId"), viewer.UID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}
