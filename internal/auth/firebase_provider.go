package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/anonto42/buddyfeed/internal/models"
)

// DefaultIdentityToolkitURL is the REST endpoint used for password sign-in. The Admin
// SDK verifies tokens but cannot sign a user in.
const DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com"

// FirebaseProvider implements Provider on Firebase Authentication.
type FirebaseProvider struct {
	client     *fbauth.Client
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFirebaseProvider creates a FirebaseProvider. apiKey is the web API key of the project.
func NewFirebaseProvider(client *fbauth.Client, apiKey string) *FirebaseProvider {
	return &FirebaseProvider{
		client:     client,
		apiKey:     apiKey,
		baseURL:    DefaultIdentityToolkitURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword exchanges email and password for an ID token.
func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Credentials, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, newError(CodeInternal, err)
	}

	endpoint := fmt.Sprintf("%s/v1/accounts:signInWithPassword?key=%s", p.baseURL, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newError(CodeInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, newError(CodeInternal, fmt.Errorf("sign-in request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(CodeInternal, fmt.Errorf("read sign-in response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var te toolkitError
		if err := json.Unmarshal(raw, &te); err != nil {
			return nil, newError(CodeInternal, fmt.Errorf("sign-in failed: status %d", resp.StatusCode))
		}
		return nil, toolkitCodeError(te.Error.Message)
	}

	var out signInResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, newError(CodeInternal, fmt.Errorf("decode sign-in response: %w", err))
	}

	identity := &models.Identity{UID: out.LocalID, DisplayName: out.DisplayName, Email: out.Email}
	return &models.Credentials{Token: out.IDToken, Identity: identity}, nil
}

// toolkitCodeError maps an Identity Toolkit message such as
// "TOO_MANY_ATTEMPTS_TRY_LATER : ..." to a provider error.
func toolkitCodeError(message string) *Error {
	code, _, _ := strings.Cut(message, " ")
	err := errors.New(message)
	switch code {
	case "EMAIL_NOT_FOUND":
		return newError(CodeUserNotFound, err)
	case "INVALID_PASSWORD":
		return newError(CodeWrongPassword, err)
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED":
		return newError(CodeInvalidCredential, err)
	case "EMAIL_EXISTS":
		return newError(CodeEmailAlreadyInUse, err)
	default:
		return newError(CodeInternal, err)
	}
}

// CreateUser creates an email/password account.
func (p *FirebaseProvider) CreateUser(ctx context.Context, email, password string) (*models.Identity, error) {
	params := (&fbauth.UserToCreate{}).Email(email).Password(password)
	rec, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return nil, newError(CodeEmailAlreadyInUse, err)
		}
		return nil, newError(CodeInternal, err)
	}
	return userRecordIdentity(rec), nil
}

// VerifyIDToken completes a federated sign-in. The token is also the session token.
func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (*models.Credentials, error) {
	tok, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, newError(CodeInvalidToken, err)
	}
	identity := tokenIdentity(tok)
	return &models.Credentials{Token: idToken, Identity: identity}, nil
}

// VerifySession checks the token signature, expiry and revocation.
func (p *FirebaseProvider) VerifySession(ctx context.Context, token string) (*models.Identity, error) {
	tok, err := p.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, newError(CodeInvalidToken, err)
	}
	return tokenIdentity(tok), nil
}

// SignOut revokes every refresh token of uid so outstanding sessions stop verifying.
func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		if fbauth.IsUserNotFound(err) {
			return newError(CodeUserNotFound, err)
		}
		return newError(CodeInternal, err)
	}
	return nil
}

// UpdateDisplayName sets the display name on the auth record.
func (p *FirebaseProvider) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	_, err := p.client.UpdateUser(ctx, uid, (&fbauth.UserToUpdate{}).DisplayName(displayName))
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return newError(CodeUserNotFound, err)
		}
		return newError(CodeInternal, err)
	}
	return nil
}

func userRecordIdentity(rec *fbauth.UserRecord) *models.Identity {
	identity := &models.Identity{
		UID:         rec.UID,
		DisplayName: rec.DisplayName,
		Email:       rec.Email,
	}
	if rec.PhotoURL != "" {
		photo := rec.PhotoURL
		identity.PhotoURL = &photo
	}
	return identity
}

func tokenIdentity(tok *fbauth.Token) *models.Identity {
	identity := &models.Identity{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	if picture, ok := tok.Claims["picture"].(string); ok && picture != "" {
		identity.PhotoURL = &picture
	}
	return identity
}
