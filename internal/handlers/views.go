package handlers

import "github.com/anonto42/buddyfeed/internal/models"

// CommentView is a comment as shown to one viewer.
type CommentView struct {
	models.Comment
	LikesCount  int    `json:"likes_count"`
	IsLiked     bool   `json:"is_liked"`
	LikeSummary string `json:"like_summary,omitempty"`
}

// ThreadView is a two-level comment thread as shown to one viewer.
type ThreadView struct {
	Roots   []CommentView            `json:"roots"`
	Replies map[string][]CommentView `json:"replies"`
	Total   int                      `json:"total"`
}

func commentView(c models.Comment, viewerUID string) CommentView {
	return CommentView{
		Comment:     c,
		LikesCount:  len(c.Likes),
		IsLiked:     c.LikedBy(viewerUID),
		LikeSummary: models.LikeSummary(c.Likes, viewerUID),
	}
}

func threadView(t models.Thread, viewerUID string) ThreadView {
	view := ThreadView{
		Roots:   make([]CommentView, 0, len(t.Roots)),
		Replies: make(map[string][]CommentView, len(t.Replies)),
		Total:   t.Len(),
	}
	for _, root := range t.Roots {
		view.Roots = append(view.Roots, commentView(root, viewerUID))
	}
	for rootID, replies := range t.Replies {
		out := make([]CommentView, 0, len(replies))
		for _, r := range replies {
			out = append(out, commentView(r, viewerUID))
		}
		view.Replies[rootID] = out
	}
	return view
}

func feedView(posts []models.Post, viewerUID string) []models.PostView {
	out := make([]models.PostView, 0, len(posts))
	for i := range posts {
		out = append(out, posts[i].ViewFor(viewerUID))
	}
	return out
}
