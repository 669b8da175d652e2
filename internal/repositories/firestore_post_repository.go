package repositories

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestorePostRepository implements PostRepository on the "posts" collection.
type FirestorePostRepository struct {
	client *firestore.Client
	log    *observability.RepoLogger
}

// NewFirestorePostRepository creates a new FirestorePostRepository
func NewFirestorePostRepository(client *firestore.Client) *FirestorePostRepository {
	return &FirestorePostRepository{
		client: client,
		log:    observability.NewRepoLogger("firestore", "posts"),
	}
}

func (r *FirestorePostRepository) posts() *firestore.CollectionRef {
	return r.client.Collection("posts")
}

// CreatePost adds a post document. createdAt is filled in by the server.
func (r *FirestorePostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.Likes == nil {
		post.Likes = []string{}
	}
	post.CommentsCount = 0
	ref, wr, err := r.posts().Add(ctx, post)
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	post.ID = ref.ID
	post.CreatedAt = wr.UpdateTime
	r.log.LogWrite(ctx, "create", map[string]interface{}{"post_id": post.ID})
	return nil
}

// GetPostByID reads one post document
func (r *FirestorePostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	snap, err := r.posts().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post, err := decodePost(snap)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// WatchPosts listens to the whole collection ordered by createdAt descending.
func (r *FirestorePostRepository) WatchPosts(ctx context.Context) *livequery.Subscription[models.Post] {
	q := r.posts().OrderBy("createdAt", firestore.Desc)
	return livequery.Start(ctx, StreamPosts, func(ctx context.Context, emit func([]models.Post) bool) error {
		return watchQuery(ctx, q, decodePost, emit)
	})
}

// AddLiker adds uid to the likes array with arrayUnion
func (r *FirestorePostRepository) AddLiker(ctx context.Context, postID, uid string) error {
	return r.update(ctx, postID, "like", firestore.Update{Path: "likes", Value: firestore.ArrayUnion(uid)})
}

// RemoveLiker removes uid from the likes array with arrayRemove
func (r *FirestorePostRepository) RemoveLiker(ctx context.Context, postID, uid string) error {
	return r.update(ctx, postID, "unlike", firestore.Update{Path: "likes", Value: firestore.ArrayRemove(uid)})
}

// IncrementCommentsCount applies a server-side increment
func (r *FirestorePostRepository) IncrementCommentsCount(ctx context.Context, postID string, delta int64) error {
	return r.update(ctx, postID, "increment_comments", firestore.Update{Path: "commentsCount", Value: firestore.Increment(delta)})
}

// SetCommentsCount overwrites commentsCount
func (r *FirestorePostRepository) SetCommentsCount(ctx context.Context, postID string, count int64) error {
	return r.update(ctx, postID, "set_comments", firestore.Update{Path: "commentsCount", Value: count})
}

func (r *FirestorePostRepository) update(ctx context.Context, postID, operation string, updates ...firestore.Update) error {
	_, err := r.posts().Doc(postID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		r.log.LogError(ctx, err, operation)
		return fmt.Errorf("%s post %s: %w", operation, postID, err)
	}
	r.log.LogWrite(ctx, operation, map[string]interface{}{"post_id": postID})
	return nil
}

func decodePost(snap *firestore.DocumentSnapshot) (models.Post, error) {
	var p models.Post
	if err := snap.DataTo(&p); err != nil {
		return p, fmt.Errorf("decode post %s: %w", snap.Ref.ID, err)
	}
	p.ID = snap.Ref.ID
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Visibility == "" {
		p.Visibility = models.VisibilityPublic
	}
	return p, nil
}

// watchQuery pushes the full result of q every time the listener reports a change.
func watchQuery[T any](
	ctx context.Context,
	q firestore.Query,
	decode func(*firestore.DocumentSnapshot) (T, error),
	emit func([]T) bool,
) error {
	it := q.Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled || ctx.Err() != nil {
				return nil
			}
			return err
		}
		docs, err := qs.Documents.GetAll()
		if err != nil {
			return err
		}
		items := make([]T, 0, len(docs))
		for _, d := range docs {
			item, err := decode(d)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		if !emit(items) {
			return nil
		}
	}
}
