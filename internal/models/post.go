package models

import (
	"slices"
	"time"
)

// Visibility scopes who can see a post in the feed
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the known visibilities
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Post is a feed entry. Author fields are a snapshot taken when the post was created.
type Post struct {
	ID            string     `json:"id" firestore:"-"`
	AuthorID      string     `json:"author_id" firestore:"authorId"`
	AuthorName    string     `json:"author_name" firestore:"authorName"`
	AuthorPhoto   *string    `json:"author_photo" firestore:"authorPhoto"`
	Content       string     `json:"content" firestore:"content"`
	ImageURL      string     `json:"image_url,omitempty" firestore:"imageURL"`
	Visibility    Visibility `json:"visibility" firestore:"visibility"`
	Likes         []string   `json:"likes" firestore:"likes"`
	CommentsCount int64      `json:"comments_count" firestore:"commentsCount"`
	CreatedAt     time.Time  `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// NumLikes is derived from the liker set; there is no stored like counter.
func (p *Post) NumLikes() int {
	return len(p.Likes)
}

// LikedBy reports whether uid is in the liker set
func (p *Post) LikedBy(uid string) bool {
	return uid != "" && slices.Contains(p.Likes, uid)
}

// VisibleTo reports whether the viewer may see the post.
// Public posts are visible to everyone, private posts only to their author.
func (p *Post) VisibleTo(viewerUID string) bool {
	switch p.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityPrivate:
		return viewerUID != "" && viewerUID == p.AuthorID
	}
	return false
}

// PostView is a post as rendered for one viewer
type PostView struct {
	Post
	LikesCount int  `json:"likes_count"`
	IsLiked    bool `json:"is_liked"`
}

// ViewFor decorates the post with viewer specific flags
func (p *Post) ViewFor(viewerUID string) PostView {
	return PostView{
		Post:       *p,
		LikesCount: p.NumLikes(),
		IsLiked:    p.LikedBy(viewerUID),
	}
}

// CreatePostRequest defines the multipart form fields for creating a post.
// The image part is read separately.
type CreatePostRequest struct {
	Content    string `form:"content" validate:"max=5000" message:"Post is too long"`
	Visibility string `form:"visibility" validate:"omitempty,oneof=public private" message:"Visibility must be public or private"`
}
