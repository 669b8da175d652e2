package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoPost is the BSON shape of a post document.
type mongoPost struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	AuthorID      string             `bson:"author_id"`
	AuthorName    string             `bson:"author_name"`
	AuthorPhoto   *string            `bson:"author_photo,omitempty"`
	Content       string             `bson:"content"`
	ImageURL      string             `bson:"image_url,omitempty"`
	Visibility    string             `bson:"visibility"`
	Likes         []string           `bson:"likes"`
	CommentsCount int64              `bson:"comments_count"`
	CreatedAt     time.Time          `bson:"created_at"`
}

func (d *mongoPost) toModel() models.Post {
	likes := d.Likes
	if likes == nil {
		likes = []string{}
	}
	return models.Post{
		ID:            d.ID.Hex(),
		AuthorID:      d.AuthorID,
		AuthorName:    d.AuthorName,
		AuthorPhoto:   d.AuthorPhoto,
		Content:       d.Content,
		ImageURL:      d.ImageURL,
		Visibility:    models.Visibility(d.Visibility),
		Likes:         likes,
		CommentsCount: d.CommentsCount,
		CreatedAt:     d.CreatedAt,
	}
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
	log        *observability.RepoLogger
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		collection: db.Collection("posts"),
		log:        observability.NewRepoLogger("mongo", "posts"),
	}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	doc := mongoPost{
		ID:          primitive.NewObjectID(),
		AuthorID:    post.AuthorID,
		AuthorName:  post.AuthorName,
		AuthorPhoto: post.AuthorPhoto,
		Content:     post.Content,
		ImageURL:    post.ImageURL,
		Visibility:  string(post.Visibility),
		Likes:       []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	post.ID = doc.ID.Hex()
	post.Likes = doc.Likes
	post.CommentsCount = 0
	post.CreatedAt = doc.CreatedAt
	r.log.LogWrite(ctx, "create", map[string]interface{}{"post_id": post.ID})
	return nil
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc mongoPost
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post := doc.toModel()
	return &post, nil
}

func (r *MongoPostRepository) listPosts(ctx context.Context) ([]models.Post, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mongoPost
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	posts := make([]models.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toModel())
	}
	return posts, nil
}

// WatchPosts re-runs the feed query on every change stream event.
func (r *MongoPostRepository) WatchPosts(ctx context.Context) *livequery.Subscription[models.Post] {
	return livequery.Start(ctx, StreamPosts, func(ctx context.Context, emit func([]models.Post) bool) error {
		return watchChangeStream(ctx, r.collection, mongo.Pipeline{}, r.listPosts, emit)
	})
}

// AddLiker adds uid to the post's likes set
func (r *MongoPostRepository) AddLiker(ctx context.Context, postID, uid string) error {
	return r.update(ctx, postID, "like", bson.M{"$addToSet": bson.M{"likes": uid}})
}

// RemoveLiker removes uid from the post's likes set
func (r *MongoPostRepository) RemoveLiker(ctx context.Context, postID, uid string) error {
	return r.update(ctx, postID, "unlike", bson.M{"$pull": bson.M{"likes": uid}})
}

// IncrementCommentsCount increments the comments count of a post
func (r *MongoPostRepository) IncrementCommentsCount(ctx context.Context, postID string, delta int64) error {
	return r.update(ctx, postID, "increment_comments", bson.M{"$inc": bson.M{"comments_count": delta}})
}

// SetCommentsCount overwrites the comments count of a post
func (r *MongoPostRepository) SetCommentsCount(ctx context.Context, postID string, count int64) error {
	return r.update(ctx, postID, "set_comments", bson.M{"$set": bson.M{"comments_count": count}})
}

func (r *MongoPostRepository) update(ctx context.Context, postID, operation string, update bson.M) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		r.log.LogError(ctx, err, operation)
		return fmt.Errorf("%s post %s: %w", operation, postID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	r.log.LogWrite(ctx, operation, map[string]interface{}{"post_id": postID})
	return nil
}

// watchChangeStream opens a change stream before the first query so no write
// between the two is missed, then re-queries after every event.
func watchChangeStream[T any](
	ctx context.Context,
	coll *mongo.Collection,
	pipeline mongo.Pipeline,
	query func(context.Context) ([]T, error),
	emit func([]T) bool,
) error {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer stream.Close(context.WithoutCancel(ctx))

	for {
		items, err := query(ctx)
		if err != nil {
			return err
		}
		if !emit(items) {
			return nil
		}
		if !stream.Next(ctx) {
			if ctx.Err() != nil {
				return nil
			}
			return stream.Err()
		}
		// Collapse a burst of events into one re-query.
		for stream.RemainingBatchLength() > 0 && stream.Next(ctx) {
		}
	}
}
