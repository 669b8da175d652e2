package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// Config selects the Firebase project and the default storage bucket
type Config struct {
	CredentialsPath string
	ProjectID       string
	StorageBucket   string
}

// App holds the initialized Firebase app and its service clients
type App struct {
	FirebaseApp     *firebase.App
	AuthClient      *auth.Client
	FirestoreClient *firestore.Client
	StorageClient   *storage.Client
}

// InitFirebase initializes the Firebase application and the Auth, Firestore and Storage clients
func InitFirebase(ctx context.Context, cfg Config) (*App, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(cfg.CredentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("Firebase credentials file not found at %s", cfg.CredentialsPath)
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)

	var appConfig *firebase.Config
	if cfg.ProjectID != "" || cfg.StorageBucket != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID, StorageBucket: cfg.StorageBucket}
	}

	firebaseApp, err := firebase.NewApp(ctx, appConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	firestoreClient, err := firebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	storageClient, err := firebaseApp.Storage(ctx)
	if err != nil {
		_ = firestoreClient.Close()
		return nil, fmt.Errorf("error getting storage client: %w", err)
	}

	log.Println("Firebase app, auth, firestore and storage clients initialized successfully!")
	return &App{
		FirebaseApp:     firebaseApp,
		AuthClient:      authClient,
		FirestoreClient: firestoreClient,
		StorageClient:   storageClient,
	}, nil
}

// Close releases the Firestore connection
func (a *App) Close() {
	if a.FirestoreClient == nil {
		return
	}
	if err := a.FirestoreClient.Close(); err != nil {
		log.Printf("Error closing Firestore client: %v\n", err)
	}
}
