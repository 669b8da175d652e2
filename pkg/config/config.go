package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backends
const (
	BackendFirebase   = "firebase"
	BackendSelfHosted = "selfhosted"
)

// Image strategies
const (
	ImageBlob   = "blob"
	ImageInline = "inline"
	ImageImgBB  = "imgbb"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port                    string `mapstructure:"PORT"`
	Env                     string `mapstructure:"ENV"`
	MetricsPort             string `mapstructure:"METRICS_PORT"`
	Backend                 string `mapstructure:"BACKEND"`
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseStorageBucket   string `mapstructure:"FIREBASE_STORAGE_BUCKET"`
	FirebaseAPIKey          string `mapstructure:"FIREBASE_API_KEY"`
	PostgresConnStr         string `mapstructure:"POSTGRES_CONN_STR"`
	MongoURI                string `mapstructure:"MONGO_URI"`
	MongoDatabase           string `mapstructure:"MONGO_DATABASE"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	ImageStrategy           string `mapstructure:"IMAGE_STRATEGY"`
	ImgBBAPIKey             string `mapstructure:"IMGBB_API_KEY"`
	LoginPath               string `mapstructure:"LOGIN_PATH"`
	LogLevel                string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	// Every key needs a default so Unmarshal picks it up from the environment.
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("BACKEND", BackendFirebase)
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_STORAGE_BUCKET", "")
	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("POSTGRES_CONN_STR", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "socialmedia")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("IMAGE_STRATEGY", ImageBlob)
	v.SetDefault("IMGBB_API_KEY", "")
	v.SetDefault("LOGIN_PATH", "/login")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.ImageStrategy = strings.ToLower(strings.TrimSpace(cfg.ImageStrategy))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the selected backend and image strategy have what they need.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.Backend {
	case BackendFirebase:
		if c.FirebaseCredentialsPath == "" {
			return errors.New("FIREBASE_CREDENTIALS_PATH is required for the firebase backend")
		}
		if c.FirebaseAPIKey == "" {
			return errors.New("FIREBASE_API_KEY is required for the firebase backend")
		}
	case BackendSelfHosted:
		if c.PostgresConnStr == "" {
			return errors.New("POSTGRES_CONN_STR is required for the selfhosted backend")
		}
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the selfhosted backend")
		}
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for the selfhosted backend")
		}
		if c.IsProduction() && (c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32) {
			return errors.New("JWT_SECRET must be changed and at least 32 characters in production")
		}
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendFirebase, BackendSelfHosted, c.Backend)
	}

	switch c.ImageStrategy {
	case ImageBlob:
		if c.Backend != BackendFirebase {
			return errors.New("IMAGE_STRATEGY blob needs the firebase backend")
		}
		if c.FirebaseStorageBucket == "" {
			return errors.New("FIREBASE_STORAGE_BUCKET is required for the blob image strategy")
		}
	case ImageInline:
	case ImageImgBB:
		if c.ImgBBAPIKey == "" {
			return errors.New("IMGBB_API_KEY is required for the imgbb image strategy")
		}
	default:
		return fmt.Errorf("IMAGE_STRATEGY must be one of blob, inline, imgbb, got %q", c.ImageStrategy)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
