package services

import (
	"context"

	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/repositories"
)

// FeedService serves the visibility-filtered live feed.
type FeedService struct {
	posts repositories.PostRepository
}

func NewFeedService(posts repositories.PostRepository) *FeedService {
	return &FeedService{posts: posts}
}

// Visible keeps the posts viewerUID may see, preserving order.
func Visible(posts []models.Post, viewerUID string) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for i := range posts {
		if posts[i].VisibleTo(viewerUID) {
			out = append(out, posts[i])
		}
	}
	return out
}

// Watch streams every post visible to viewer, newest first. Cancel the returned
// subscription, or ctx, to release it.
func (s *FeedService) Watch(ctx context.Context, viewer *models.Identity) (*livequery.Subscription[models.Post], error) {
	if viewer == nil {
		return nil, models.NewUnauthorizedError("Please sign in to view the feed")
	}
	uid := viewer.UID
	return livequery.Map(s.posts.WatchPosts(ctx), func(posts []models.Post) []models.Post {
		return Visible(posts, uid)
	}), nil
}

// Snapshot returns the first result of the live feed.
func (s *FeedService) Snapshot(ctx context.Context, viewer *models.Identity) ([]models.Post, error) {
	sub, err := s.Watch(ctx, viewer)
	if err != nil {
		return nil, err
	}
	defer sub.Cancel()

	posts, err := sub.Next(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
