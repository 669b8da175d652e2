package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore persists local accounts.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *models.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	GetCredentialByUID(ctx context.Context, uid string) (*models.Credential, error)
	UpdateDisplayName(ctx context.Context, uid, name string) error
	RevokeTokens(ctx context.Context, uid string, at time.Time) error
}

// DefaultSessionTTL is the lifetime of a locally issued session token.
const DefaultSessionTTL = 72 * time.Hour

// LocalProvider implements Provider with bcrypt password hashes and HS256 session tokens.
type LocalProvider struct {
	store  CredentialStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLocalProvider creates a LocalProvider signing tokens with secret.
func NewLocalProvider(store CredentialStore, secret string) *LocalProvider {
	return &LocalProvider{
		store:  store,
		secret: []byte(secret),
		ttl:    DefaultSessionTTL,
		now:    time.Now,
	}
}

// CreateUser creates a local account.
func (p *LocalProvider) CreateUser(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := p.store.GetCredentialByEmail(ctx, email); err == nil {
		return nil, newError(CodeEmailAlreadyInUse, fmt.Errorf("email %s already registered", email))
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(CodeInternal, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, newError(CodeInternal, fmt.Errorf("hash password: %w", err))
	}

	cred := &models.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := p.store.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeEmailAlreadyInUse, err)
		}
		return nil, newError(CodeInternal, err)
	}
	return cred.Identity(), nil
}

// SignInWithPassword checks the password and issues a session token.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Credentials, error) {
	cred, err := p.store.GetCredentialByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(CodeUserNotFound, err)
		}
		return nil, newError(CodeInternal, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, newError(CodeWrongPassword, err)
	}

	token, err := p.issueToken(cred)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	identity := cred.Identity()
	return &models.Credentials{Token: token, Identity: identity}, nil
}

// VerifyIDToken always fails: the self-hosted backend has no federated identity provider.
func (p *LocalProvider) VerifyIDToken(_ context.Context, _ string) (*models.Credentials, error) {
	return nil, newError(CodeUnsupported, errors.New("federated sign-in requires the firebase backend"))
}

// VerifySession parses a session token and checks it was not revoked.
func (p *LocalProvider) VerifySession(ctx context.Context, token string) (*models.Identity, error) {
	claims := &models.SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, newError(CodeInvalidToken, err)
	}

	cred, err := p.store.GetCredentialByUID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(CodeUserNotFound, err)
		}
		return nil, newError(CodeInternal, err)
	}
	if !issuedAfter(claims, cred.TokensValidAfter) {
		return nil, newError(CodeInvalidToken, errors.New("session revoked"))
	}
	return cred.Identity(), nil
}

// SignOut revokes every session token issued so far.
func (p *LocalProvider) SignOut(ctx context.Context, uid string) error {
	if err := p.store.RevokeTokens(ctx, uid, p.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return newError(CodeUserNotFound, err)
		}
		return newError(CodeInternal, err)
	}
	return nil
}

// UpdateDisplayName sets the display name of a local account.
func (p *LocalProvider) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	if err := p.store.UpdateDisplayName(ctx, uid, displayName); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return newError(CodeUserNotFound, err)
		}
		return newError(CodeInternal, err)
	}
	return nil
}

func (p *LocalProvider) issueToken(cred *models.Credential) (string, error) {
	now := p.now()
	claims := &models.SessionClaims{
		UID:   cred.UID,
		Email: cred.Email,
		Name:  cred.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		IssuedAtNano: now.UnixNano(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// issuedAfter reports whether the token was issued strictly after the revocation
// instant. Tokens without iat_ns fall back to iat, where the whole second of a
// sign-out counts as revoked.
func issuedAfter(claims *models.SessionClaims, validAfter time.Time) bool {
	if claims.IssuedAtNano != 0 {
		return time.Unix(0, claims.IssuedAtNano).After(validAfter)
	}
	return claims.IssuedAt != nil && claims.IssuedAt.Time.After(validAfter.Truncate(time.Second))
}

var (
	_ Provider = (*FirebaseProvider)(nil)
	_ Provider = (*LocalProvider)(nil)
)
