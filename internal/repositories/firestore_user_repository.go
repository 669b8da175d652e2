package repositories

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/buddyfeed/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isoMillis is the layout JavaScript's Date.toISOString produces
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// firestoreUser is the stored shape of users/{uid}. Profiles written by the web
// client carry createdAt as an ISO string, so the field is decoded by hand.
type firestoreUser struct {
	UID       string      `firestore:"uid"`
	FirstName string      `firestore:"firstName"`
	LastName  string      `firestore:"lastName"`
	Email     string      `firestore:"email"`
	PhotoURL  *string     `firestore:"photoURL"`
	CreatedAt interface{} `firestore:"createdAt"`
}

// FirestoreUserRepository stores profiles at users/{uid}.
type FirestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new FirestoreUserRepository
func NewFirestoreUserRepository(client *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{client: client}
}

// CreateUser writes the profile document keyed by UID
func (r *FirestoreUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	doc := firestoreUser{
		UID:       user.UID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		PhotoURL:  user.PhotoURL,
		CreatedAt: user.CreatedAt.UTC().Format(isoMillis),
	}
	_, err := r.client.Collection("users").Doc(user.UID).Set(ctx, doc)
	return err
}

// GetUserByUID reads a profile document
func (r *FirestoreUserRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	snap, err := r.client.Collection("users").Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeUser(snap)
}

func decodeUser(snap *firestore.DocumentSnapshot) (*models.User, error) {
	var doc firestoreUser
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
	}
	createdAt, err := parseCreatedAt(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
	}
	user := &models.User{
		UID:       doc.UID,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		Email:     doc.Email,
		PhotoURL:  doc.PhotoURL,
		CreatedAt: createdAt,
	}
	if user.UID == "" {
		user.UID = snap.Ref.ID
	}
	return user, nil
}

// parseCreatedAt accepts a Firestore timestamp or an RFC 3339 string. A missing
// value decodes to the zero time.
func parseCreatedAt(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("createdAt %q: %w", t, err)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("createdAt has unsupported type %T", v)
}
