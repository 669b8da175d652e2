package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"github.com/anonto42/buddyfeed/internal/repositories"
)

type SubmitCommentInput struct {
	Text     string
	ParentID string
}

// ThreadService manages the comment thread of a post.
type ThreadService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
}

func NewThreadService(posts repositories.PostRepository, comments repositories.CommentRepository) *ThreadService {
	return &ThreadService{posts: posts, comments: comments}
}

// Watch streams the thread of a post. Every snapshot holds exactly one Thread.
func (s *ThreadService) Watch(ctx context.Context, postID, viewerUID string) (*livequery.Subscription[models.Thread], error) {
	if _, err := s.visiblePost(ctx, postID, viewerUID); err != nil {
		return nil, err
	}
	return livequery.Transform(s.comments.WatchComments(ctx, postID), models.PartitionThread), nil
}

// Snapshot returns the current thread of a post.
func (s *ThreadService) Snapshot(ctx context.Context, postID, viewerUID string) (models.Thread, error) {
	sub, err := s.Watch(ctx, postID, viewerUID)
	if err != nil {
		return models.Thread{}, err
	}
	defer sub.Cancel()

	threads, err := sub.Next(ctx)
	if err != nil {
		return models.Thread{}, models.NewInternalError(err)
	}
	if len(threads) == 0 {
		return models.PartitionThread(nil), nil
	}
	return threads[0], nil
}

// Submit adds a comment. A reply to a reply is stored under the root comment so the
// thread stays two levels deep. The post's comment counter is incremented atomically.
// Blank text is a no-op and returns nil, nil, like an empty post.
func (s *ThreadService) Submit(ctx context.Context, author *models.Identity, postID string, in SubmitCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, nil
	}
	if author == nil {
		return nil, models.NewUnauthorizedError("Please sign in to comment")
	}
	if _, err := s.visiblePost(ctx, postID, author.UID); err != nil {
		return nil, err
	}

	parentID := ""
	if in.ParentID != "" {
		parent, err := s.comments.GetComment(ctx, postID, in.ParentID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, models.NewNotFoundError("Comment", in.ParentID)
			}
			return nil, models.NewInternalError(err)
		}
		parentID = parent.RootID()
	}

	comment := &models.Comment{
		AuthorID:    author.UID,
		AuthorName:  authorName(author),
		AuthorPhoto: author.PhotoURL,
		Text:        text,
		ParentID:    parentID,
		Likes:       []string{},
	}
	if err := s.comments.CreateComment(ctx, postID, comment); err != nil {
		observability.LogServiceError(ctx, "thread", "Submit", err, map[string]interface{}{"post_id": postID})
		return nil, models.NewOperationError("Failed to post comment.", err)
	}

	// The comment exists at this point; a failed increment only leaves the counter behind.
	if err := s.posts.IncrementCommentsCount(ctx, postID, 1); err != nil {
		observability.LogServiceError(ctx, "thread", "Submit", err, map[string]interface{}{
			"post_id":    postID,
			"comment_id": comment.ID,
		})
	}
	return comment, nil
}

// ToggleLike flips uid's like on a comment and reports whether uid likes it afterwards.
func (s *ThreadService) ToggleLike(ctx context.Context, postID, commentID, uid string) (bool, error) {
	if _, err := s.visiblePost(ctx, postID, uid); err != nil {
		return false, err
	}
	comment, err := s.comments.GetComment(ctx, postID, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, models.NewNotFoundError("Comment", commentID)
		}
		return false, models.NewInternalError(err)
	}

	liked := comment.LikedBy(uid)
	if liked {
		err = s.comments.RemoveLiker(ctx, postID, commentID, uid)
	} else {
		err = s.comments.AddLiker(ctx, postID, commentID, uid)
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return !liked, nil
}

// Recount rewrites a post's comment counter from the stored comments. Counters written
// by older clients with read-modify-write increments can lag behind.
func (s *ThreadService) Recount(ctx context.Context, postID string) (int64, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, models.NewNotFoundError("Post", postID)
		}
		return 0, models.NewInternalError(err)
	}
	n, err := s.comments.CountComments(ctx, postID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if err := s.posts.SetCommentsCount(ctx, postID, n); err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (s *ThreadService) visiblePost(ctx context.Context, postID, viewerUID string) (*models.Post, error) {
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
