// Package services implements the feed's use cases on top of the repositories,
// the auth provider and the image store.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/buddyfeed/internal/media"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"github.com/anonto42/buddyfeed/internal/repositories"
)

// AnonymousAuthor is the author name used when the identity has no display name.
const AnonymousAuthor = "Anonymous"

type SubmitPostInput struct {
	Content    string
	Image      *media.Upload
	Visibility string
}

// Composer creates posts.
type Composer struct {
	posts  repositories.PostRepository
	images media.ImageStore
}

func NewComposer(posts repositories.PostRepository, images media.ImageStore) *Composer {
	return &Composer{posts: posts, images: images}
}

// Submit creates a post. Blank content without an image is a no-op and returns nil, nil.
// An image that was stored before the post write failed is left in place.
func (c *Composer) Submit(ctx context.Context, author *models.Identity, in SubmitPostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Content) == "" && in.Image == nil {
		return nil, nil
	}
	if author == nil {
		return nil, models.NewUnauthorizedError("Please sign in to post")
	}

	visibility := models.Visibility(in.Visibility)
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, models.NewValidationError("Visibility must be public or private")
	}

	imageURL := ""
	if in.Image != nil {
		if c.images == nil {
			return nil, models.NewValidationError("Image uploads are disabled")
		}
		url, err := c.images.Store(ctx, author.UID, in.Image)
		if err != nil {
			observability.ImageUploads.WithLabelValues(c.images.Strategy(), "error").Inc()
			if errors.Is(err, media.ErrTooLarge) {
				return nil, models.NewValidationError("File is too big! Please use an image under 800KB.")
			}
			observability.LogServiceError(ctx, "composer", "Submit", err, map[string]interface{}{"author_id": author.UID})
			return nil, models.NewOperationError("Failed to upload image.", err)
		}
		observability.ImageUploads.WithLabelValues(c.images.Strategy(), "ok").Inc()
		imageURL = url
	}

	post := &models.Post{
		AuthorID:    author.UID,
		AuthorName:  authorName(author),
		AuthorPhoto: author.PhotoURL,
		Content:     in.Content,
		ImageURL:    imageURL,
		Visibility:  visibility,
		Likes:       []string{},
	}
	if err := c.posts.CreatePost(ctx, post); err != nil {
		fields := map[string]interface{}{"author_id": author.UID}
		if imageURL != "" && c.images.Strategy() != media.StrategyInline {
			fields["orphaned_image"] = imageURL
		}
		observability.LogServiceError(ctx, "composer", "Submit", err, fields)
		return nil, models.NewOperationError("Failed to post.", err)
	}
	return post, nil
}

func authorName(identity *models.Identity) string {
	if name := strings.TrimSpace(identity.DisplayName); name != "" {
		return name
	}
	return AnonymousAuthor
}
