package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anonto42/buddyfeed/internal/auth"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"github.com/anonto42/buddyfeed/internal/repositories"
	"github.com/anonto42/buddyfeed/validators"
)

// AccountService runs registration, sign-in and sign-out against the auth provider
// and keeps the profile records in step.
type AccountService struct {
	provider  auth.Provider
	users     repositories.UserRepository
	validator *validators.CustomValidator
	now       func() time.Time
}

func NewAccountService(provider auth.Provider, users repositories.UserRepository) *AccountService {
	return &AccountService{
		provider:  provider,
		users:     users,
		validator: validators.NewValidator(),
		now:       time.Now,
	}
}

// Register validates the form, creates the account, sets its display name and writes
// the profile. The user signs in separately afterwards.
func (s *AccountService) Register(ctx context.Context, in models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Validate(&in); err != nil {
		return nil, err
	}

	identity, err := s.provider.CreateUser(ctx, in.Email, in.Password)
	if err != nil {
		observability.LogServiceError(ctx, "accounts", "Register", err, nil)
		return nil, models.NewAuthError(auth.RegisterMessage(err), err)
	}

	user := &models.User{
		UID:       identity.UID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.provider.UpdateDisplayName(ctx, identity.UID, user.FullName()); err != nil {
		observability.LogServiceError(ctx, "accounts", "Register", err, map[string]interface{}{"uid": identity.UID})
		return nil, models.NewAuthError(auth.RegisterMessage(err), err)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		observability.LogServiceError(ctx, "accounts", "Register", err, map[string]interface{}{"uid": identity.UID})
		return nil, models.NewAuthError(auth.MsgRegisterFailed, err)
	}
	return user, nil
}

// Login signs in with email and password.
func (s *AccountService) Login(ctx context.Context, in models.LoginRequest) (*models.Credentials, error) {
	if err := s.validator.Validate(&in); err != nil {
		return nil, err
	}
	creds, err := s.provider.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		observability.LogServiceError(ctx, "accounts", "Login", err, nil)
		return nil, models.NewAuthError(auth.MsgLoginFailed, err)
	}
	return creds, nil
}

// LoginWithIDToken completes a federated sign-in and creates the profile on first login.
func (s *AccountService) LoginWithIDToken(ctx context.Context, idToken string) (*models.Credentials, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, models.NewValidationError("ID token is required")
	}
	creds, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		observability.LogServiceError(ctx, "accounts", "LoginWithIDToken", err, nil)
		return nil, models.NewAuthError(auth.MsgFederatedFailed, err)
	}

	identity := creds.Identity
	_, err = s.users.GetUserByUID(ctx, identity.UID)
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		observability.LogServiceError(ctx, "accounts", "LoginWithIDToken", err, map[string]interface{}{"uid": identity.UID})
		return nil, models.NewAuthError(auth.MsgFederatedFailed, err)
	}

	first, last := SplitDisplayName(identity.DisplayName)
	profile := &models.User{
		UID:       identity.UID,
		FirstName: first,
		LastName:  last,
		Email:     identity.Email,
		PhotoURL:  identity.PhotoURL,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, profile); err != nil {
		observability.LogServiceError(ctx, "accounts", "LoginWithIDToken", err, map[string]interface{}{"uid": identity.UID})
		return nil, models.NewAuthError(auth.MsgFederatedFailed, err)
	}
	return creds, nil
}

// Logout ends every session of identity.
func (s *AccountService) Logout(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	if err := s.provider.SignOut(ctx, identity.UID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Profile returns the profile of uid.
func (s *AccountService) Profile(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewNotFoundError("User", uid)
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// SplitDisplayName splits "Ada King Lovelace" into "Ada" and "King Lovelace".
// An empty name becomes "User".
func SplitDisplayName(displayName string) (first, last string) {
	parts := strings.Fields(displayName)
	if len(parts) == 0 {
		return "User", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
