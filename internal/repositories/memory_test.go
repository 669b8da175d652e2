package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPost(author, content string) *models.Post {
	return &models.Post{
		AuthorID:   author,
		AuthorName: "Ada Lovelace",
		Content:    content,
		Visibility: models.VisibilityPublic,
	}
}

func TestMemoryPostRepository_CreateAssignsIdentity(t *testing.T) {
	posts := NewMemoryStore().Posts()
	ctx := context.Background()

	p := newPost("u1", "hello")
	require.NoError(t, posts.CreatePost(ctx, p))

	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, []string{}, p.Likes)
	assert.Zero(t, p.CommentsCount)

	got, err := posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestMemoryPostRepository_NotFound(t *testing.T) {
	posts := NewMemoryStore().Posts()
	ctx := context.Background()

	_, err := posts.GetPostByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, posts.AddLiker(ctx, "missing", "u1"), ErrNotFound)
	assert.ErrorIs(t, posts.IncrementCommentsCount(ctx, "missing", 1), ErrNotFound)
}

func TestMemoryPostRepository_LikesAreASet(t *testing.T) {
	posts := NewMemoryStore().Posts()
	ctx := context.Background()
	p := newPost("u1", "x")
	require.NoError(t, posts.CreatePost(ctx, p))

	require.NoError(t, posts.AddLiker(ctx, p.ID, "u2"))
	require.NoError(t, posts.AddLiker(ctx, p.ID, "u2"))
	require.NoError(t, posts.AddLiker(ctx, p.ID, "u3"))

	got, err := posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, got.Likes)

	require.NoError(t, posts.RemoveLiker(ctx, p.ID, "u2"))
	require.NoError(t, posts.RemoveLiker(ctx, p.ID, "u2"))
	got, err = posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, got.Likes)
}

func TestMemoryPostRepository_ReturnsCopies(t *testing.T) {
	posts := NewMemoryStore().Posts()
	ctx := context.Background()
	p := newPost("u1", "x")
	require.NoError(t, posts.CreatePost(ctx, p))

	got, err := posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	got.Likes = append(got.Likes, "intruder")

	again, err := posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Likes)
}

// Two clients that each read the counter and write back read+1 lose one of the
// increments. The atomic increment keeps both.
func TestCommentsCount_ReadModifyWriteLosesUpdate(t *testing.T) {
	posts := NewMemoryStore().Posts()
	ctx := context.Background()
	p := newPost("u1", "x")
	require.NoError(t, posts.CreatePost(ctx, p))

	first, err := posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, posts.SetCommentsCount(ctx, p.ID, first.CommentsCount+1))
	require.NoError(t, posts.SetCommentsCount(ctx, p.ID, second.CommentsCount+1))

	got, err := posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.CommentsCount)

	require.NoError(t, posts.SetCommentsCount(ctx, p.ID, 0))
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, posts.IncrementCommentsCount(ctx, p.ID, 1))
		}()
	}
	wg.Wait()

	got, err = posts.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.CommentsCount)
}

func TestMemoryPostRepository_WatchPostsNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	posts := store.Posts()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }

	sub := posts.WatchPosts(ctx)
	defer sub.Cancel()

	initial, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, initial)

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, posts.CreatePost(ctx, newPost("u1", content)))
	}

	var latest []models.Post
	for len(latest) < 3 {
		latest, err = sub.Next(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, "third", latest[0].Content)
	assert.Equal(t, "second", latest[1].Content)
	assert.Equal(t, "first", latest[2].Content)
}

func TestMemoryPostRepository_WatchSeesLikes(t *testing.T) {
	posts := NewMemoryStore().Posts()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := newPost("u1", "x")
	require.NoError(t, posts.CreatePost(ctx, p))

	sub := posts.WatchPosts(ctx)
	defer sub.Cancel()
	_, err := sub.Next(ctx)
	require.NoError(t, err)

	require.NoError(t, posts.AddLiker(ctx, p.ID, "u2"))
	got, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"u2"}, got[0].Likes)
}

func TestMemoryCommentRepository_WatchOldestFirstPerPost(t *testing.T) {
	store := NewMemoryStore()
	comments := store.Comments()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, comments.CreateComment(ctx, "p1", &models.Comment{AuthorID: "u1", Text: "a"}))
	require.NoError(t, comments.CreateComment(ctx, "p2", &models.Comment{AuthorID: "u1", Text: "other post"}))
	require.NoError(t, comments.CreateComment(ctx, "p1", &models.Comment{AuthorID: "u2", Text: "b"}))

	sub := comments.WatchComments(ctx, "p1")
	defer sub.Cancel()

	got, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
	assert.Equal(t, "p1", got[0].PostID)

	n, err := comments.CountComments(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestMemoryCommentRepository_Likes(t *testing.T) {
	comments := NewMemoryStore().Comments()
	ctx := context.Background()
	c := &models.Comment{AuthorID: "u1", Text: "a"}
	require.NoError(t, comments.CreateComment(ctx, "p1", c))

	require.NoError(t, comments.AddLiker(ctx, "p1", c.ID, "u2"))
	got, err := comments.GetComment(ctx, "p1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, got.Likes)

	require.NoError(t, comments.RemoveLiker(ctx, "p1", c.ID, "u2"))
	got, err = comments.GetComment(ctx, "p1", c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)

	assert.ErrorIs(t, comments.AddLiker(ctx, "p2", c.ID, "u2"), ErrNotFound)
}

func TestMemoryUserRepository(t *testing.T) {
	users := NewMemoryStore().Users()
	ctx := context.Background()

	_, err := users.GetUserByUID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, users.CreateUser(ctx, &models.User{UID: "u1", FirstName: "Ada", LastName: "Lovelace"}))
	got, err := users.GetUserByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.FullName())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestMemoryCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	creds := NewMemoryStore().Credentials()

	require.NoError(t, creds.CreateCredential(ctx, &models.Credential{UID: "u1", Email: "a@b.co"}))
	assert.ErrorIs(t, creds.CreateCredential(ctx, &models.Credential{UID: "u2", Email: "a@b.co"}), ErrDuplicate)

	got, err := creds.GetCredentialByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)

	require.NoError(t, creds.UpdateDisplayName(ctx, "u1", "Ada Lovelace"))
	at := time.Now()
	require.NoError(t, creds.RevokeTokens(ctx, "u1", at))
	got, err = creds.GetCredentialByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.DisplayName)
	assert.True(t, got.TokensValidAfter.Equal(at))

	assert.ErrorIs(t, creds.RevokeTokens(ctx, "missing", at), ErrNotFound)
	_, err = creds.GetCredentialByUID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
