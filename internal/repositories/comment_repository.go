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

type mongoComment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	PostID      string             `bson:"post_id"`
	AuthorID    string             `bson:"author_id"`
	AuthorName  string             `bson:"author_name"`
	AuthorPhoto *string            `bson:"author_photo,omitempty"`
	Text        string             `bson:"text"`
	ParentID    string             `bson:"parent_id,omitempty"`
	Likes       []string           `bson:"likes"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d *mongoComment) toModel() models.Comment {
	likes := d.Likes
	if likes == nil {
		likes = []string{}
	}
	return models.Comment{
		ID:          d.ID.Hex(),
		PostID:      d.PostID,
		AuthorID:    d.AuthorID,
		AuthorName:  d.AuthorName,
		AuthorPhoto: d.AuthorPhoto,
		Text:        d.Text,
		ParentID:    d.ParentID,
		Likes:       likes,
		CreatedAt:   d.CreatedAt,
	}
}

// MongoCommentRepository implements CommentRepository for MongoDB. Comments of all
// posts share one collection keyed by post_id.
type MongoCommentRepository struct {
	collection *mongo.Collection
	log        *observability.RepoLogger
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{
		collection: db.Collection("comments"),
		log:        observability.NewRepoLogger("mongo", "comments"),
	}
}

// CreateComment creates a new comment in MongoDB
func (r *MongoCommentRepository) CreateComment(ctx context.Context, postID string, comment *models.Comment) error {
	doc := mongoComment{
		ID:          primitive.NewObjectID(),
		PostID:      postID,
		AuthorID:    comment.AuthorID,
		AuthorName:  comment.AuthorName,
		AuthorPhoto: comment.AuthorPhoto,
		Text:        comment.Text,
		ParentID:    comment.ParentID,
		Likes:       []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	comment.ID = doc.ID.Hex()
	comment.PostID = postID
	comment.Likes = doc.Likes
	comment.CreatedAt = doc.CreatedAt
	r.log.LogWrite(ctx, "create", map[string]interface{}{"post_id": postID, "comment_id": comment.ID})
	return nil
}

// GetComment retrieves one comment of a post
func (r *MongoCommentRepository) GetComment(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc mongoComment
	err = r.collection.FindOne(ctx, bson.M{"_id": objID, "post_id": postID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c := doc.toModel()
	return &c, nil
}

func (r *MongoCommentRepository) listComments(postID string) func(context.Context) ([]models.Comment, error) {
	return func(ctx context.Context) ([]models.Comment, error) {
		findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
		cursor, err := r.collection.Find(ctx, bson.M{"post_id": postID}, findOptions)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var docs []mongoComment
		if err = cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		comments := make([]models.Comment, 0, len(docs))
		for i := range docs {
			comments = append(comments, docs[i].toModel())
		}
		return comments, nil
	}
}

// WatchComments streams the comments of one post, oldest first.
func (r *MongoCommentRepository) WatchComments(ctx context.Context, postID string) *livequery.Subscription[models.Comment] {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"fullDocument.post_id": postID}}},
	}
	return livequery.Start(ctx, StreamComments, func(ctx context.Context, emit func([]models.Comment) bool) error {
		return watchChangeStream(ctx, r.collection, pipeline, r.listComments(postID), emit)
	})
}

// CountComments counts the comment records of a post
func (r *MongoCommentRepository) CountComments(ctx context.Context, postID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"post_id": postID})
}

// AddLiker adds uid to the comment's likes set
func (r *MongoCommentRepository) AddLiker(ctx context.Context, postID, commentID, uid string) error {
	return r.update(ctx, postID, commentID, "like", bson.M{"$addToSet": bson.M{"likes": uid}})
}

// RemoveLiker removes uid from the comment's likes set
func (r *MongoCommentRepository) RemoveLiker(ctx context.Context, postID, commentID, uid string) error {
	return r.update(ctx, postID, commentID, "unlike", bson.M{"$pull": bson.M{"likes": uid}})
}

func (r *MongoCommentRepository) update(ctx context.Context, postID, commentID, operation string, update bson.M) error {
	objID, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID, "post_id": postID}, update)
	if err != nil {
		r.log.LogError(ctx, err, operation)
		return fmt.Errorf("%s comment %s: %w", operation, commentID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	r.log.LogWrite(ctx, operation, map[string]interface{}{"post_id": postID, "comment_id": commentID})
	return nil
}
