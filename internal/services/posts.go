package services

import (
	"context"
	"errors"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/repositories"
)

// PostService reads single posts and toggles their likes.
type PostService struct {
	posts repositories.PostRepository
}

func NewPostService(posts repositories.PostRepository) *PostService {
	return &PostService{posts: posts}
}

// Get returns a post if viewerUID may see it. A private post of another user is
// reported as not found.
func (s *PostService) Get(ctx context.Context, postID, viewerUID string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, models.NewInternalError(err)
	}
	if !post.VisibleTo(viewerUID) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// ToggleLike adds uid to the post's likes or removes it when already present.
// It reports whether uid likes the post afterwards.
func (s *PostService) ToggleLike(ctx context.Context, postID, uid string) (bool, error) {
	post, err := s.Get(ctx, postID, uid)
	if err != nil {
		return false, err
	}

	if post.LikedBy(uid) {
		err = s.posts.RemoveLiker(ctx, postID, uid)
	} else {
		err = s.posts.AddLiker(ctx, postID, uid)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, models.NewNotFoundError("Post", postID)
		}
		return false, models.NewInternalError(err)
	}
	return !post.LikedBy(uid), nil
}
