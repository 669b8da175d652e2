// Package auth abstracts the identity provider: email/password accounts, federated
// sign-in, session token verification, and the client-side auth state contract.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/buddyfeed/internal/models"
)

// Provider error codes.
const (
	CodeEmailAlreadyInUse = "auth/email-already-in-use"
	CodeWrongPassword     = "auth/wrong-password"
	CodeUserNotFound      = "auth/user-not-found"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeInvalidToken      = "auth/invalid-id-token"
	CodeUnsupported       = "auth/operation-not-allowed"
	CodeInternal          = "auth/internal-error"
)

// Error is a provider failure tagged with a stable code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the provider code carried by err, or "" when err is not a provider error.
func CodeOf(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}

// StateNotifier reports the signed-in identity of a single client, or nil when signed
// out. The callback fires once with the current state right after registration.
// Server providers serve many users at once and do not implement it.
type StateNotifier interface {
	OnAuthStateChanged(fn func(*models.Identity)) (unsubscribe func())
}

// Verifier resolves a bearer session token to an identity.
type Verifier interface {
	VerifySession(ctx context.Context, token string) (*models.Identity, error)
}

// Provider is the identity provider used by the account flows.
type Provider interface {
	Verifier
	SignInWithPassword(ctx context.Context, email, password string) (*models.Credentials, error)
	CreateUser(ctx context.Context, email, password string) (*models.Identity, error)
	// VerifyIDToken completes a federated sign-in with a token issued by the IdP.
	VerifyIDToken(ctx context.Context, idToken string) (*models.Credentials, error)
	SignOut(ctx context.Context, uid string) error
	UpdateDisplayName(ctx context.Context, uid, displayName string) error
}
