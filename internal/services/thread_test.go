package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadService_RepliesFlattenUnderRoot(t *testing.T) {
	t.Parallel()
	store := repositories.NewMemoryStore()
	post := seedPost(t, store.Posts(), "alice", "hi", models.VisibilityPublic)
	svc := NewThreadService(store.Posts(), store.Comments())
	ctx := context.Background()
	bob := identity("bob", "Bob")

	root, err := svc.Submit(ctx, bob, post.ID, SubmitCommentInput{Text: "  first  "})
	require.NoError(t, err)
	assert.Equal(t, "first", root.Text)
	assert.True(t, root.IsRoot())

	reply, err := svc.Submit(ctx, identity("carol", "Carol"), post.ID, SubmitCommentInput{Text: "reply", ParentID: root.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, reply.ParentID)

	nested, err := svc.Submit(ctx, bob, post.ID, SubmitCommentInput{Text: "reply to reply", ParentID: reply.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, nested.ParentID)

	other, err := svc.Submit(ctx, bob, post.ID, SubmitCommentInput{Text: "second root"})
	require.NoError(t, err)

	thread, err := svc.Snapshot(ctx, post.ID, "bob")
	require.NoError(t, err)
	require.Len(t, thread.Roots, 2)
	assert.Equal(t, root.ID, thread.Roots[0].ID)
	assert.Equal(t, other.ID, thread.Roots[1].ID)

	replies := thread.RepliesTo(root.ID)
	require.Len(t, replies, 2)
	assert.Equal(t, reply.ID, replies[0].ID)
	assert.Equal(t, nested.ID, replies[1].ID)
	assert.Empty(t, thread.RepliesTo(other.ID))

	got, err := store.Posts().GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.CommentsCount)
}

func TestThreadService_SubmitValidation(t *testing.T) {
	t.Parallel()
	store := repositories.NewMemoryStore()
	post := seedPost(t, store.Posts(), "alice", "hi", models.VisibilityPublic)
	private := seedPost(t, store.Posts(), "alice", "mine", models.VisibilityPrivate)
	svc := NewThreadService(store.Posts(), store.Comments())
	ctx := context.Background()

	blank, err := svc.Submit(ctx, identity("bob", "Bob"), post.ID, SubmitCommentInput{Text: "   "})
	require.NoError(t, err)
	assert.Nil(t, blank)

	_, err = svc.Submit(ctx, identity("bob", "Bob"), post.ID, SubmitCommentInput{Text: "hi", ParentID: "nope"})
	assertAppError(t, err, models.CodeNotFound, "")

	_, err = svc.Submit(ctx, identity("bob", "Bob"), private.ID, SubmitCommentInput{Text: "hi"})
	assertAppError(t, err, models.CodeNotFound, "")

	got, err := store.Posts().GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CommentsCount)
}

func TestThreadService_WatchDeliversNewComments(t *testing.T) {
	t.Parallel()
	store := repositories.NewMemoryStore()
	post := seedPost(t, store.Posts(), "alice", "hi", models.VisibilityPublic)
	svc := NewThreadService(store.Posts(), store.Comments())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := svc.Watch(ctx, post.ID, "alice")
	require.NoError(t, err)
	defer sub.Cancel()

	initial, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Len(t, initial, 1)
	assert.Zero(t, initial[0].Len())

	_, err = svc.Submit(ctx, identity("bob", "Bob"), post.ID, SubmitCommentInput{Text: "hello"})
	require.NoError(t, err)

	next, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Len(t, next[0].Roots, 1)
	assert.Equal(t, "hello", next[0].Roots[0].Text)
}

func TestThreadService_ToggleCommentLike(t *testing.T) {
	t.Parallel()
	store := repositories.NewMemoryStore()
	post := seedPost(t, store.Posts(), "alice", "hi", models.VisibilityPublic)
	svc := NewThreadService(store.Posts(), store.Comments())
	ctx := context.Background()

	c, err := svc.Submit(ctx, identity("bob", "Bob"), post.ID, SubmitCommentInput{Text: "hello"})
	require.NoError(t, err)

	liked, err := svc.ToggleLike(ctx, post.ID, c.ID, "alice")
	require.NoError(t, err)
	assert.True(t, liked)

	stored, err := store.Comments().GetComment(ctx, post.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "You liked this", models.LikeSummary(stored.Likes, "alice"))

	liked, err = svc.ToggleLike(ctx, post.ID, c.ID, "alice")
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = svc.ToggleLike(ctx, post.ID, "missing", "alice")
	assertAppError(t, err, models.CodeNotFound, "")
}

func TestThreadService_RecountRepairsDrift(t *testing.T) {
	t.Parallel()
	store := repositories.NewMemoryStore()
	post := seedPost(t, store.Posts(), "alice", "hi", models.VisibilityPublic)
	svc := NewThreadService(store.Posts(), store.Comments())
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.Submit(ctx, identity("bob", "Bob"), post.ID, SubmitCommentInput{Text: text})
		require.NoError(t, err)
	}
	require.NoError(t, store.Posts().SetCommentsCount(ctx, post.ID, 1))

	n, err := svc.Recount(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := store.Posts().GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.CommentsCount)
}
