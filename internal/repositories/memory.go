package repositories

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/buddyfeed/internal/livequery"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is a process-local document store. It backs local development and
// tests and pushes live query updates on every write.
type MemoryStore struct {
	mu       sync.RWMutex
	posts    map[string]*models.Post
	comments map[string][]*models.Comment
	users    map[string]*models.User
	creds    map[string]*models.Credential

	watchers    map[int]chan struct{}
	nextWatcher int

	now  func() time.Time
	last time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[string]*models.Post),
		comments: make(map[string][]*models.Comment),
		users:    make(map[string]*models.User),
		creds:    make(map[string]*models.Credential),
		watchers: make(map[int]chan struct{}),
		now:      time.Now,
	}
}

// Posts returns the store's PostRepository view.
func (s *MemoryStore) Posts() *MemoryPostRepository { return &MemoryPostRepository{s: s} }

// Comments returns the store's CommentRepository view.
func (s *MemoryStore) Comments() *MemoryCommentRepository { return &MemoryCommentRepository{s: s} }

// Users returns the store's UserRepository view.
func (s *MemoryStore) Users() *MemoryUserRepository { return &MemoryUserRepository{s: s} }

// Credentials returns the store's local account view.
func (s *MemoryStore) Credentials() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{s: s}
}

// timestamp is strictly increasing so creation order is total. Caller holds mu.
func (s *MemoryStore) timestamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// notify wakes every watcher. Pending wake-ups coalesce. Caller holds mu.
func (s *MemoryStore) notify() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *MemoryStore) subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextWatcher
	s.nextWatcher++
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch
	return ch, func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func watchMemory[T any](ctx context.Context, s *MemoryStore, stream string, query func() []T) *livequery.Subscription[T] {
	return livequery.Start(ctx, stream, func(ctx context.Context, emit func([]T) bool) error {
		wake, unsubscribe := s.subscribe()
		defer unsubscribe()
		for {
			if !emit(query()) {
				return nil
			}
			select {
			case <-wake:
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func clonePost(p *models.Post) models.Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	return c
}

func cloneComment(cm *models.Comment) models.Comment {
	c := *cm
	c.Likes = slices.Clone(cm.Likes)
	return c
}

func addToSet(set []string, v string) []string {
	if slices.Contains(set, v) {
		return set
	}
	return append(set, v)
}

func removeFromSet(set []string, v string) []string {
	return slices.DeleteFunc(set, func(s string) bool { return s == v })
}

// MemoryPostRepository implements PostRepository over a MemoryStore.
type MemoryPostRepository struct{ s *MemoryStore }

func (r *MemoryPostRepository) CreatePost(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post.ID = uuid.NewString()
	post.CreatedAt = r.s.timestamp()
	post.CommentsCount = 0
	if post.Likes == nil {
		post.Likes = []string{}
	}
	stored := clonePost(post)
	r.s.posts[post.ID] = &stored
	r.s.notify()
	return nil
}

func (r *MemoryPostRepository) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clonePost(p)
	return &c, nil
}

func (r *MemoryPostRepository) list() []models.Post {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MemoryPostRepository) WatchPosts(ctx context.Context) *livequery.Subscription[models.Post] {
	return watchMemory(ctx, r.s, StreamPosts, r.list)
}

func (r *MemoryPostRepository) mutate(id string, fn func(*models.Post)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return ErrNotFound
	}
	fn(p)
	r.s.notify()
	return nil
}

func (r *MemoryPostRepository) AddLiker(_ context.Context, postID, uid string) error {
	return r.mutate(postID, func(p *models.Post) { p.Likes = addToSet(p.Likes, uid) })
}

func (r *MemoryPostRepository) RemoveLiker(_ context.Context, postID, uid string) error {
	return r.mutate(postID, func(p *models.Post) { p.Likes = removeFromSet(p.Likes, uid) })
}

func (r *MemoryPostRepository) IncrementCommentsCount(_ context.Context, postID string, delta int64) error {
	return r.mutate(postID, func(p *models.Post) { p.CommentsCount += delta })
}

func (r *MemoryPostRepository) SetCommentsCount(_ context.Context, postID string, count int64) error {
	return r.mutate(postID, func(p *models.Post) { p.CommentsCount = count })
}

// MemoryCommentRepository implements CommentRepository over a MemoryStore.
type MemoryCommentRepository struct{ s *MemoryStore }

func (r *MemoryCommentRepository) CreateComment(_ context.Context, postID string, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.PostID = postID
	comment.CreatedAt = r.s.timestamp()
	if comment.Likes == nil {
		comment.Likes = []string{}
	}
	stored := cloneComment(comment)
	r.s.comments[postID] = append(r.s.comments[postID], &stored)
	r.s.notify()
	return nil
}

func (r *MemoryCommentRepository) find(postID, commentID string) *models.Comment {
	for _, c := range r.s.comments[postID] {
		if c.ID == commentID {
			return c
		}
	}
	return nil
}

func (r *MemoryCommentRepository) GetComment(_ context.Context, postID, commentID string) (*models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c := r.find(postID, commentID)
	if c == nil {
		return nil, ErrNotFound
	}
	out := cloneComment(c)
	return &out, nil
}

func (r *MemoryCommentRepository) WatchComments(ctx context.Context, postID string) *livequery.Subscription[models.Comment] {
	return watchMemory(ctx, r.s, StreamComments, func() []models.Comment {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
		stored := r.s.comments[postID]
		out := make([]models.Comment, 0, len(stored))
		for _, c := range stored {
			out = append(out, cloneComment(c))
		}
		return out
	})
}

func (r *MemoryCommentRepository) CountComments(_ context.Context, postID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.comments[postID])), nil
}

func (r *MemoryCommentRepository) mutate(postID, commentID string, fn func(*models.Comment)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.find(postID, commentID)
	if c == nil {
		return ErrNotFound
	}
	fn(c)
	r.s.notify()
	return nil
}

func (r *MemoryCommentRepository) AddLiker(_ context.Context, postID, commentID, uid string) error {
	return r.mutate(postID, commentID, func(c *models.Comment) { c.Likes = addToSet(c.Likes, uid) })
}

func (r *MemoryCommentRepository) RemoveLiker(_ context.Context, postID, commentID, uid string) error {
	return r.mutate(postID, commentID, func(c *models.Comment) { c.Likes = removeFromSet(c.Likes, uid) })
}

// MemoryUserRepository implements UserRepository over a MemoryStore.
type MemoryUserRepository struct{ s *MemoryStore }

func (r *MemoryUserRepository) CreateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.s.timestamp()
	}
	u := *user
	r.s.users[user.UID] = &u
	return nil
}

func (r *MemoryUserRepository) GetUserByUID(_ context.Context, uid string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// MemoryCredentialRepository stores local accounts in a MemoryStore.
type MemoryCredentialRepository struct{ s *MemoryStore }

func (r *MemoryCredentialRepository) CreateCredential(_ context.Context, cred *models.Credential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.creds {
		if c.Email == cred.Email {
			return ErrDuplicate
		}
	}
	now := r.s.timestamp()
	cred.CreatedAt, cred.UpdatedAt = now, now
	c := *cred
	r.s.creds[cred.UID] = &c
	return nil
}

func (r *MemoryCredentialRepository) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.creds {
		if c.Email == email {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryCredentialRepository) GetCredentialByUID(_ context.Context, uid string) (*models.Credential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.creds[uid]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *MemoryCredentialRepository) update(uid string, fn func(*models.Credential)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.creds[uid]
	if !ok {
		return ErrNotFound
	}
	fn(c)
	c.UpdatedAt = r.s.timestamp()
	return nil
}

func (r *MemoryCredentialRepository) UpdateDisplayName(_ context.Context, uid, name string) error {
	return r.update(uid, func(c *models.Credential) { c.DisplayName = name })
}

func (r *MemoryCredentialRepository) RevokeTokens(_ context.Context, uid string, at time.Time) error {
	return r.update(uid, func(c *models.Credential) { c.TokensValidAfter = at })
}

var (
	_ PostRepository    = (*MemoryPostRepository)(nil)
	_ CommentRepository = (*MemoryCommentRepository)(nil)
	_ UserRepository    = (*MemoryUserRepository)(nil)
	_ PostRepository    = (*MongoPostRepository)(nil)
	_ CommentRepository = (*MongoCommentRepository)(nil)
	_ UserRepository    = (*PostgresUserRepository)(nil)
	_ PostRepository    = (*FirestorePostRepository)(nil)
	_ CommentRepository = (*FirestoreCommentRepository)(nil)
	_ UserRepository    = (*FirestoreUserRepository)(nil)
)
