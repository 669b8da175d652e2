// Package repositories holds the document store contracts and their Firestore,
// MongoDB/PostgreSQL and in-memory implementations.
package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/anonto42/buddyfeed/internal/models"
)

// ErrNotFound is returned when a point read or update targets a missing record.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a create collides with a unique key.
var ErrDuplicate = errors.New("duplicate record")

// Stream names used in logs and metrics.
const (
	StreamPosts    = "posts"
	StreamComments = "comments"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	// CreatePost assigns ID and the server timestamp.
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	// WatchPosts is a live query over every post, newest first.
	WatchPosts(ctx context.Context) *livequery.Subscription[models.Post]
	AddLiker(ctx context.Context, postID, uid string) error
	RemoveLiker(ctx context.Context, postID, uid string) error
	// IncrementCommentsCount is an atomic server-side increment.
	IncrementCommentsCount(ctx context.Context, postID string, delta int64) error
	// SetCommentsCount overwrites the counter. Only used to repair drifted counts.
	SetCommentsCount(ctx context.Context, postID string, count int64) error
}

// CommentRepository defines the interface for the comments of a post
type CommentRepository interface {
	// CreateComment assigns ID, PostID and the server timestamp.
	CreateComment(ctx context.Context, postID string, comment *models.Comment) error
	GetComment(ctx context.Context, postID, commentID string) (*models.Comment, error)
	// WatchComments is a live query over a post's comments, oldest first.
	WatchComments(ctx context.Context, postID string) *livequery.Subscription[models.Comment]
	CountComments(ctx context.Context, postID string) (int64, error)
	AddLiker(ctx context.Context, postID, commentID, uid string) error
	RemoveLiker(ctx context.Context, postID, commentID, uid string) error
}

// UserRepository defines the interface for user profile records
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
}
