package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"

	AuthLocal    = "local"
	AuthFirebase = "firebase"
)

type Config struct {
	Port       string
	AppEnv     string
	AppURL     string
	CORSOrigin string
	LogLevel   string

	StoreBackend string
	DBURL        string

	AuthProvider string
	JWTSecret    string

	FirebaseProjectID         string
	GoogleCredentialsFile     string
	FirebaseServiceAccountB64 string

	StripeSecretKey       string
	StripeWebhookSecret   string
	StripePriceIndividual string
	StripePriceTeam       string

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleRedirectURL      string
	GoogleFrontendRedirect string

	FreeNoteLimit int
	NotesPageSize int
}

// Load reads the process environment, after merging a .env file if one is
// present, and validates the keys required by the selected backends.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		AppEnv:     getEnv("APP_ENV", "development"),
		AppURL:     strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		DBURL:        getEnv("DB_URL", ""),

		AuthProvider: strings.ToLower(getEnv("AUTH_PROVIDER", AuthLocal)),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		FirebaseProjectID:         getEnv("FIREBASE_PROJECT_ID", ""),
		GoogleCredentialsFile:     getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		FirebaseServiceAccountB64: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", ""),

		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIndividual: getEnv("STRIPE_PRICE_INDIVIDUAL", ""),
		StripePriceTeam:       getEnv("STRIPE_PRICE_TEAM", ""),

		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleFrontendRedirect: getEnv("GOOGLE_FRONTEND_REDIRECT", ""),
	}

	var err error
	if cfg.FreeNoteLimit, err = getEnvInt("FREE_NOTE_LIMIT", 15); err != nil {
		return nil, err
	}
	if cfg.NotesPageSize, err = getEnvInt("NOTES_PAGE_SIZE", 10); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DBURL == "" {
			return missing("DB_URL")
		}
	case BackendFirestore, BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.AuthProvider {
	case AuthLocal:
		if c.JWTSecret == "" {
			return missing("JWT_SECRET")
		}
	case AuthFirebase:
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.StripeSecretKey == "" {
		return missing("STRIPE_SECRET_KEY")
	}
	if c.StripeWebhookSecret == "" {
		return missing("STRIPE_WEBHOOK_SECRET")
	}
	if c.FreeNoteLimit <= 0 {
		return fmt.Errorf("FREE_NOTE_LIMIT must be positive, got %d", c.FreeNoteLimit)
	}
	if c.NotesPageSize <= 0 {
		return fmt.Errorf("NOTES_PAGE_SIZE must be positive, got %d", c.NotesPageSize)
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *Config) UsesFirebase() bool {
	return c.StoreBackend == BackendFirestore || c.AuthProvider == AuthFirebase
}

// GoogleSignInEnabled reports whether the OAuth routes should be mounted.
func (c *Config) GoogleSignInEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func missing(key string) error {
	return fmt.Errorf("missing required environment variable: %s", key)
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
