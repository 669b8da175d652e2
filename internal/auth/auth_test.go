package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentialStore struct {
	mu    sync.Mutex
	byUID map[string]*models.Credential
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{byUID: make(map[string]*models.Credential)}
}

func (s *fakeCredentialStore) CreateCredential(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.byUID[cred.UID] = &c
	return nil
}

func (s *fakeCredentialStore) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byUID {
		if c.Email == email {
			out := *c
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *fakeCredentialStore) GetCredentialByUID(_ context.Context, uid string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byUID[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *fakeCredentialStore) UpdateDisplayName(_ context.Context, uid, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byUID[uid]
	if !ok {
		return repositories.ErrNotFound
	}
	c.DisplayName = name
	return nil
}

func (s *fakeCredentialStore) RevokeTokens(_ context.Context, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byUID[uid]
	if !ok {
		return repositories.ErrNotFound
	}
	c.TokensValidAfter = at
	return nil
}

func TestLocalProvider_RegisterAndSignIn(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(newFakeCredentialStore(), "test-secret")

	identity, err := p.CreateUser(ctx, "Ada@Example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, p.UpdateDisplayName(ctx, identity.UID, "Ada Lovelace"))

	creds, err := p.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, creds.Token)
	assert.Equal(t, "Ada Lovelace", creds.Identity.DisplayName)

	got, err := p.VerifySession(ctx, creds.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.UID, got.UID)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestLocalProvider_ErrorCodes(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(newFakeCredentialStore(), "test-secret")
	_, err := p.CreateUser(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = p.CreateUser(ctx, "ada@example.com", "another")
	assert.Equal(t, CodeEmailAlreadyInUse, CodeOf(err))

	_, err = p.SignInWithPassword(ctx, "ada@example.com", "wrong")
	assert.Equal(t, CodeWrongPassword, CodeOf(err))

	_, err = p.SignInWithPassword(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, CodeUserNotFound, CodeOf(err))

	_, err = p.VerifySession(ctx, "not-a-token")
	assert.Equal(t, CodeInvalidToken, CodeOf(err))

	_, err = p.VerifyIDToken(ctx, "google-token")
	assert.Equal(t, CodeUnsupported, CodeOf(err))
}

func TestLocalProvider_TokenFromOtherSecretRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeCredentialStore()
	issuer := NewLocalProvider(store, "one")
	verifier := NewLocalProvider(store, "two")

	_, err := issuer.CreateUser(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	creds, err := issuer.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = verifier.VerifySession(ctx, creds.Token)
	assert.Equal(t, CodeInvalidToken, CodeOf(err))
}

func TestLocalProvider_SignOutRevokesSession(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(newFakeCredentialStore(), "test-secret")
	identity, err := p.CreateUser(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	creds, err := p.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, identity.UID))

	_, err = p.VerifySession(ctx, creds.Token)
	assert.Equal(t, CodeInvalidToken, CodeOf(err))
}

func TestLocalProvider_SignInRightAfterSignOut(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(newFakeCredentialStore(), "test-secret")
	identity, err := p.CreateUser(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	// Everything happens inside one wall-clock second.
	base := time.Now().Add(-time.Minute).Truncate(time.Second)
	p.now = func() time.Time { return base.Add(100 * time.Millisecond) }
	stale, err := p.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	p.now = func() time.Time { return base.Add(200 * time.Millisecond) }
	require.NoError(t, p.SignOut(ctx, identity.UID))

	p.now = func() time.Time { return base.Add(300 * time.Millisecond) }
	fresh, err := p.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = p.VerifySession(ctx, stale.Token)
	assert.Equal(t, CodeInvalidToken, CodeOf(err))

	got, err := p.VerifySession(ctx, fresh.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.UID, got.UID)
}

func TestIssuedAfter(t *testing.T) {
	revoked := time.Date(2024, 5, 1, 10, 0, 0, 500e6, time.UTC)
	tests := []struct {
		name   string
		claims *models.SessionClaims
		want   bool
	}{
		{"nanos after", &models.SessionClaims{IssuedAtNano: revoked.Add(time.Millisecond).UnixNano()}, true},
		{"nanos before", &models.SessionClaims{IssuedAtNano: revoked.Add(-time.Millisecond).UnixNano()}, false},
		{"nanos equal", &models.SessionClaims{IssuedAtNano: revoked.UnixNano()}, false},
		{"seconds, same second", &models.SessionClaims{RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(revoked)}}, false},
		{"seconds, next second", &models.SessionClaims{RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(revoked.Add(time.Second))}}, true},
		{"no iat", &models.SessionClaims{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, issuedAfter(tt.claims, revoked))
		})
	}
}

func TestServerProvidersHaveNoAuthState(t *testing.T) {
	var local Provider = NewLocalProvider(newFakeCredentialStore(), "test-secret")
	_, ok := local.(StateNotifier)
	assert.False(t, ok)

	var firebase Provider = &FirebaseProvider{}
	_, ok = firebase.(StateNotifier)
	assert.False(t, ok)
}

func TestRegisterMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{newError(CodeEmailAlreadyInUse, nil), "This email is already registered."},
		{newError(CodeWrongPassword, nil), "Invalid password."},
		{newError(CodeUserNotFound, nil), "User not found."},
		{newError(CodeInternal, nil), "Failed to register. Please try again."},
		{assert.AnError, "An unexpected error occurred."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RegisterMessage(tt.err))
	}
}

func TestFirebaseProvider_SignInWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		assert.Equal(t, "web-key", r.URL.Query().Get("key"))

		var req signInRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.ReturnSecureToken)

		w.Header().Set("Content-Type", "application/json")
		switch req.Password {
		case "secret1":
			_ = json.NewEncoder(w).Encode(signInResponse{
				LocalID: "u1", Email: req.Email, DisplayName: "Ada Lovelace", IDToken: "id-token",
			})
		case "wrong":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled"}}`))
		}
	}))
	defer srv.Close()

	p := NewFirebaseProvider(nil, "web-key")
	p.baseURL = srv.URL

	creds, err := p.SignInWithPassword(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "id-token", creds.Token)
	assert.Equal(t, "u1", creds.Identity.UID)
	assert.Equal(t, "Ada Lovelace", creds.Identity.DisplayName)

	_, err = p.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
	assert.Equal(t, CodeWrongPassword, CodeOf(err))

	_, err = p.SignInWithPassword(context.Background(), "ada@example.com", "other")
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestToolkitCodeError(t *testing.T) {
	tests := map[string]string{
		"EMAIL_NOT_FOUND":           CodeUserNotFound,
		"INVALID_PASSWORD":          CodeWrongPassword,
		"INVALID_LOGIN_CREDENTIALS": CodeInvalidCredential,
		"USER_DISABLED":             CodeInvalidCredential,
		"EMAIL_EXISTS":              CodeEmailAlreadyInUse,
		"OPERATION_NOT_ALLOWED":     CodeInternal,
	}
	for msg, code := range tests {
		assert.Equal(t, code, toolkitCodeError(msg).Code, msg)
	}
}
