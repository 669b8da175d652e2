package services

import (
	"context"
	"sync"
	"testing"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/repositories"
	"github.com/stretchr/testify/require"
)

func identity(uid, name string) *models.Identity {
	return &models.Identity{UID: uid, DisplayName: name, Email: uid + "@example.com"}
}

func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, models.ErrorCode(err))
	if message != "" {
		require.Equal(t, message, models.PublicMessage(err))
	}
}

// fakeProvider records every call made to it.
type fakeProvider struct {
	mu    sync.Mutex
	calls []string

	createErr    error
	signInErr    error
	verifyErr    error
	displayNames map[string]string
	federated    *models.Identity
}

func (p *fakeProvider) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakeProvider) VerifySession(_ context.Context, token string) (*models.Identity, error) {
	p.record("VerifySession")
	return identity(token, ""), nil
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, _ string) (*models.Credentials, error) {
	p.record("SignInWithPassword")
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return &models.Credentials{Token: "tok", Identity: &models.Identity{UID: "u1", Email: email}}, nil
}

func (p *fakeProvider) CreateUser(_ context.Context, email, _ string) (*models.Identity, error) {
	p.record("CreateUser")
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &models.Identity{UID: "new-uid", Email: email}, nil
}

func (p *fakeProvider) VerifyIDToken(_ context.Context, idToken string) (*models.Credentials, error) {
	p.record("VerifyIDToken")
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return &models.Credentials{Token: idToken, Identity: p.federated}, nil
}

func (p *fakeProvider) SignOut(_ context.Context, _ string) error {
	p.record("SignOut")
	return nil
}

func (p *fakeProvider) UpdateDisplayName(_ context.Context, uid, name string) error {
	p.record("UpdateDisplayName")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.displayNames == nil {
		p.displayNames = make(map[string]string)
	}
	p.displayNames[uid] = name
	return nil
}

// userRepoStub is a stub for repositories.UserRepository.
type userRepoStub struct {
	getFn    func(context.Context, string) (*models.User, error)
	createFn func(context.Context, *models.User) error
}

func (s *userRepoStub) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	return s.getFn(ctx, uid)
}

func (s *userRepoStub) CreateUser(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}

// postRepoStub wraps a working repository and overrides single operations.
type postRepoStub struct {
	repositories.PostRepository
	createFn func(context.Context, *models.Post) error
}

func (s *postRepoStub) CreatePost(ctx context.Context, p *models.Post) error {
	if s.createFn != nil {
		return s.createFn(ctx, p)
	}
	return s.PostRepository.CreatePost(ctx, p)
}
