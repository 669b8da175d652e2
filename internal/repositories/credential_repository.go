package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/buddyfeed/internal/models"
	"gorm.io/gorm"
)

// PostgresCredentialRepository stores local email/password accounts
type PostgresCredentialRepository struct {
	db *gorm.DB
}

// NewPostgresCredentialRepository creates a new PostgresCredentialRepository
func NewPostgresCredentialRepository(db *gorm.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

// CreateCredential inserts a new account
func (r *PostgresCredentialRepository) CreateCredential(ctx context.Context, cred *models.Credential) error {
	err := r.db.WithContext(ctx).Create(cred).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// GetCredentialByEmail retrieves an account by email
func (r *PostgresCredentialRepository) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return r.first(ctx, "email = ?", email)
}

// GetCredentialByUID retrieves an account by UID
func (r *PostgresCredentialRepository) GetCredentialByUID(ctx context.Context, uid string) (*models.Credential, error) {
	return r.first(ctx, "uid = ?", uid)
}

// UpdateDisplayName sets the display name of an account
func (r *PostgresCredentialRepository) UpdateDisplayName(ctx context.Context, uid, name string) error {
	return r.updateColumn(ctx, uid, "display_name", name)
}

// RevokeTokens invalidates every session token issued before at. timestamptz keeps
// microseconds, so at is rounded up to never land before the sign-out.
func (r *PostgresCredentialRepository) RevokeTokens(ctx context.Context, uid string, at time.Time) error {
	return r.updateColumn(ctx, uid, "tokens_valid_after", at.Truncate(time.Microsecond).Add(time.Microsecond))
}

func (r *PostgresCredentialRepository) first(ctx context.Context, query string, arg string) (*models.Credential, error) {
	var cred models.Credential
	if err := r.db.WithContext(ctx).Where(query, arg).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

func (r *PostgresCredentialRepository) updateColumn(ctx context.Context, uid, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Credential{}).Where("uid = ?", uid).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
