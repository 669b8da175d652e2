// Package bootstrap connects the configured backend and builds the collaborators
// the HTTP layer and the terminal client run on.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/anonto42/buddyfeed/internal/auth"
	"github.com/anonto42/buddyfeed/internal/media"
	"github.com/anonto42/buddyfeed/internal/repositories"
	"github.com/anonto42/buddyfeed/pkg/config"
	"github.com/anonto42/buddyfeed/pkg/firebase"
)

// Runtime holds one backend's collaborators.
type Runtime struct {
	Provider auth.Provider
	Posts    repositories.PostRepository
	Comments repositories.CommentRepository
	Users    repositories.UserRepository
	Images   media.ImageStore

	closers []func()
}

// InitRuntime connects to the backend named by cfg.Backend.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	var (
		rt  *Runtime
		app *firebase.App
		err error
	)
	switch cfg.Backend {
	case config.BackendFirebase:
		rt, app, err = initFirebase(ctx, cfg)
	case config.BackendSelfHosted:
		rt, err = initSelfHosted(cfg)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	images, err := NewImageStore(cfg, app)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Images = images
	log.Printf("Runtime ready: backend=%s image_strategy=%s", cfg.Backend, images.Strategy())
	return rt, nil
}

// NewMemoryRuntime builds a runtime on a fresh MemoryStore with local accounts.
func NewMemoryRuntime(jwtSecret string) *Runtime {
	store := repositories.NewMemoryStore()
	return &Runtime{
		Provider: auth.NewLocalProvider(store.Credentials(), jwtSecret),
		Posts:    store.Posts(),
		Comments: store.Comments(),
		Users:    store.Users(),
		Images:   media.NewInlineStore(0),
	}
}

func initFirebase(ctx context.Context, cfg *config.Config) (*Runtime, *firebase.App, error) {
	app, err := firebase.InitFirebase(ctx, firebase.Config{
		CredentialsPath: cfg.FirebaseCredentialsPath,
		ProjectID:       cfg.FirebaseProjectID,
		StorageBucket:   cfg.FirebaseStorageBucket,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	rt := &Runtime{
		Provider: auth.NewFirebaseProvider(app.AuthClient, cfg.FirebaseAPIKey),
		Posts:    repositories.NewFirestorePostRepository(app.FirestoreClient),
		Comments: repositories.NewFirestoreCommentRepository(app.FirestoreClient),
		Users:    repositories.NewFirestoreUserRepository(app.FirestoreClient),
		closers:  []func(){app.Close},
	}
	return rt, app, nil
}

func initSelfHosted(cfg *config.Config) (*Runtime, error) {
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	return &Runtime{
		Provider: auth.NewLocalProvider(repositories.NewPostgresCredentialRepository(db.Postgres), cfg.JWTSecret),
		Posts:    repositories.NewMongoPostRepository(db.MongoDB),
		Comments: repositories.NewMongoCommentRepository(db.MongoDB),
		Users:    repositories.NewPostgresUserRepository(db.Postgres),
		closers:  []func(){db.CloseDB},
	}, nil
}

// NewImageStore builds the single image strategy the deployment is configured for.
// app is only needed for the blob strategy.
func NewImageStore(cfg *config.Config, app *firebase.App) (media.ImageStore, error) {
	switch cfg.ImageStrategy {
	case config.ImageBlob:
		if app == nil || app.StorageClient == nil {
			return nil, fmt.Errorf("image strategy %q needs Firebase Storage", cfg.ImageStrategy)
		}
		bucket, err := app.StorageClient.Bucket(cfg.FirebaseStorageBucket)
		if err != nil {
			return nil, fmt.Errorf("error opening storage bucket: %w", err)
		}
		return media.NewBlobStore(bucket, cfg.FirebaseStorageBucket), nil
	case config.ImageInline:
		return media.NewInlineStore(0), nil
	case config.ImageImgBB:
		return media.NewImgBBStore(cfg.ImgBBAPIKey), nil
	}
	return nil, fmt.Errorf("unknown image strategy %q", cfg.ImageStrategy)
}

// Close releases backend connections in reverse order of creation.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
