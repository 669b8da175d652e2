package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreCommentRepository stores comments under posts/{postId}/comments.
type FirestoreCommentRepository struct {
	client *firestore.Client
	log    *observability.RepoLogger
}

// NewFirestoreCommentRepository creates a new FirestoreCommentRepository
func NewFirestoreCommentRepository(client *firestore.Client) *FirestoreCommentRepository {
	return &FirestoreCommentRepository{
		client: client,
		log:    observability.NewRepoLogger("firestore", "comments"),
	}
}

func (r *FirestoreCommentRepository) comments(postID string) *firestore.CollectionRef {
	return r.client.Collection("posts").Doc(postID).Collection("comments")
}

// CreateComment adds a comment document to the post's sub-collection
func (r *FirestoreCommentRepository) CreateComment(ctx context.Context, postID string, comment *models.Comment) error {
	if comment.Likes == nil {
		comment.Likes = []string{}
	}
	ref, wr, err := r.comments(postID).Add(ctx, comment)
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	comment.ID = ref.ID
	comment.PostID = postID
	comment.CreatedAt = wr.UpdateTime
	r.log.LogWrite(ctx, "create", map[string]interface{}{"post_id": postID, "comment_id": comment.ID})
	return nil
}

// GetComment reads one comment document
func (r *FirestoreCommentRepository) GetComment(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	snap, err := r.comments(postID).Doc(commentID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c, err := decodeComment(snap)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// WatchComments listens to the sub-collection ordered by createdAt ascending.
func (r *FirestoreCommentRepository) WatchComments(ctx context.Context, postID string) *livequery.Subscription[models.Comment] {
	q := r.comments(postID).OrderBy("createdAt", firestore.Asc)
	return livequery.Start(ctx, StreamComments, func(ctx context.Context, emit func([]models.Comment) bool) error {
		return watchQuery(ctx, q, decodeComment, emit)
	})
}

// CountComments counts the comment documents without fetching their fields
func (r *FirestoreCommentRepository) CountComments(ctx context.Context, postID string) (int64, error) {
	refs, err := r.comments(postID).Select().Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	return int64(len(refs)), nil
}

// AddLiker adds uid to the comment's likes array
func (r *FirestoreCommentRepository) AddLiker(ctx context.Context, postID, commentID, uid string) error {
	return r.update(ctx, postID, commentID, "like", firestore.Update{Path: "likes", Value: firestore.ArrayUnion(uid)})
}

// RemoveLiker removes uid from the comment's likes array
func (r *FirestoreCommentRepository) RemoveLiker(ctx context.Context, postID, commentID, uid string) error {
	return r.update(ctx, postID, commentID, "unlike", firestore.Update{Path: "likes", Value: firestore.ArrayRemove(uid)})
}

func (r *FirestoreCommentRepository) update(ctx context.Context, postID, commentID, operation string, updates ...firestore.Update) error {
	_, err := r.comments(postID).Doc(commentID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		r.log.LogError(ctx, err, operation)
		return fmt.Errorf("%s comment %s: %w", operation, commentID, err)
	}
	r.log.LogWrite(ctx, operation, map[string]interface{}{"post_id": postID, "comment_id": commentID})
	return nil
}

func decodeComment(snap *firestore.DocumentSnapshot) (models.Comment, error) {
	var c models.Comment
	if err := snap.DataTo(&c); err != nil {
		return c, fmt.Errorf("decode comment %s: %w", snap.Ref.ID, err)
	}
	c.ID = snap.Ref.ID
	if parent := snap.Ref.Parent.Parent; parent != nil {
		c.PostID = parent.ID
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	return c, nil
}
