package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the profile record stored under users/{uid}
type User struct {
	UID       string    `json:"uid" firestore:"uid" gorm:"primaryKey;size:128"`
	FirstName string    `json:"first_name" firestore:"firstName" gorm:"size:100"`
	LastName  string    `json:"last_name" firestore:"lastName" gorm:"size:100"`
	Email     string    `json:"email" firestore:"email" gorm:"uniqueIndex"`
	PhotoURL  *string   `json:"photo_url" firestore:"photoURL"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// FullName joins first and last name the way the display name is built at registration
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Identity is what the auth provider knows about a signed-in user
type Identity struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	PhotoURL    *string `json:"photo_url"`
}

// Credentials is returned by sign-in operations
type Credentials struct {
	Token    string    `json:"token"`
	Identity *Identity `json:"user"`
}

// Credential is a locally stored email/password account (self-hosted backend only)
type Credential struct {
	UID          string    `json:"uid" gorm:"primaryKey;size:128"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	PhotoURL     *string   `json:"photo_url"`
	// Session tokens issued before this instant are rejected. Set on sign-out.
	TokensValidAfter time.Time `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Identity converts a stored credential to the identity handed out to callers
func (c *Credential) Identity() *Identity {
	return &Identity{
		UID:         c.UID,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		PhotoURL:    c.PhotoURL,
	}
}

// RegisterRequest defines the request body for email/password registration
type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required,min=2" message:"First name is required"`
	LastName        string `json:"last_name" validate:"required,min=2" message:"Last name is required"`
	Email           string `json:"email" validate:"required,email" message:"Invalid email address"`
	Password        string `json:"password" validate:"required,min=6" message:"Password must be at least 6 characters"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password" message:"Passwords don't match"`
}

// LoginRequest defines the request body for email/password sign-in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" message:"Invalid email address"`
	Password string `json:"password" validate:"required,min=1" message:"Password is required"`
}

// FederatedLoginRequest carries an ID token obtained from the provider's OAuth popup
type FederatedLoginRequest struct {
	IDToken string `json:"id_token" validate:"required" message:"ID token is required"`
}

// SessionClaims are the claims of a locally issued session token
type SessionClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	// IssuedAtNano is iat in nanoseconds. Revocation compares against it because iat
	// only has second precision.
	IssuedAtNano int64 `json:"iat_ns,omitempty"`
	jwt.RegisteredClaims
}
