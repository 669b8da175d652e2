package models

import (
	"fmt"
	"slices"
	"time"
)

// Comment lives under posts/{postID}/comments. ParentID is empty for root comments;
// replies always point at the root, never at another reply.
type Comment struct {
	ID          string    `json:"id" firestore:"-"`
	PostID      string    `json:"post_id" firestore:"-"`
	AuthorID    string    `json:"author_id" firestore:"authorId"`
	AuthorName  string    `json:"author_name" firestore:"authorName"`
	AuthorPhoto *string   `json:"author_photo" firestore:"authorPhoto"`
	Text        string    `json:"text" firestore:"text"`
	ParentID    string    `json:"parent_id,omitempty" firestore:"parentId"`
	Likes       []string  `json:"likes" firestore:"likes"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// IsRoot reports whether the comment starts a thread
func (c *Comment) IsRoot() bool {
	return c.ParentID == ""
}

// RootID is the id a reply to this comment must reference
func (c *Comment) RootID() string {
	if c.ParentID != "" {
		return c.ParentID
	}
	return c.ID
}

// LikedBy reports whether uid is in the liker set
func (c *Comment) LikedBy(uid string) bool {
	return uid != "" && slices.Contains(c.Likes, uid)
}

// Thread is the two-level shape comments are rendered in: roots, then a flat list of
// replies per root.
type Thread struct {
	Roots   []Comment            `json:"roots"`
	Replies map[string][]Comment `json:"replies"`
}

// RepliesTo returns the replies attached to a root comment
func (t Thread) RepliesTo(rootID string) []Comment {
	return t.Replies[rootID]
}

// Len counts every comment in the thread
func (t Thread) Len() int {
	n := len(t.Roots)
	for _, r := range t.Replies {
		n += len(r)
	}
	return n
}

// PartitionThread splits comments into roots and replies keyed by root id.
// Input order is kept inside each partition. Replies whose root is not present are dropped.
func PartitionThread(comments []Comment) Thread {
	t := Thread{
		Roots:   make([]Comment, 0, len(comments)),
		Replies: make(map[string][]Comment),
	}
	roots := make(map[string]struct{}, len(comments))
	for _, c := range comments {
		if c.IsRoot() {
			t.Roots = append(t.Roots, c)
			roots[c.ID] = struct{}{}
		}
	}
	for _, c := range comments {
		if c.IsRoot() {
			continue
		}
		if _, ok := roots[c.ParentID]; !ok {
			continue
		}
		t.Replies[c.ParentID] = append(t.Replies[c.ParentID], c)
	}
	return t
}

// LikeSummary is the short caption shown under a liked comment
func LikeSummary(likes []string, viewerUID string) string {
	n := len(likes)
	liked := viewerUID != "" && slices.Contains(likes, viewerUID)
	switch {
	case n == 0:
		return ""
	case n == 1 && liked:
		return "You liked this"
	case n == 1:
		return "1 person liked this"
	case liked:
		return fmt.Sprintf("You and %d others", n-1)
	}
	return fmt.Sprintf("%d people liked this", n)
}

// CreateCommentRequest defines the request body for creating a comment or reply
type CreateCommentRequest struct {
	Text     string `json:"text" validate:"max=2000" message:"Comment is too long"`
	ParentID string `json:"parent_id,omitempty"`
}
