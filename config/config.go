package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Environment string
	Port        string

	// Primary store (system of record).
	MongoURI string
	MongoDB  string

	// Secondary store (search/analytics projection). Also hosts the
	// invitation and subscription tables with their unique constraints
	// and counter triggers.
	PostgresURL string

	// Base URL used to build tracking pixel and click-through links.
	PublicBaseURL string

	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration

	Mailer MailerConfig
}

// MailerConfig holds outbound email settings.
type MailerConfig struct {
	Provider           string // "ses" or "noop"
	FromAddress        string
	FromName           string
	SESRegion          string
	SESAccessKeyID     string
	SESSecretAccessKey string
	SESInsecureTLS     bool
}

// Load loads configuration from environment variables.
// It attempts to load a .env file first when not running in production;
// in production we rely on the system environment only.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found or couldn't be loaded: %v", err)
		}
	}

	cfg := &Config{
		Environment:   env,
		Port:          os.Getenv("PORT"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       os.Getenv("MONGO_DB"),
		PostgresURL:   os.Getenv("DATABASE_URL"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Mailer: MailerConfig{
			Provider:           os.Getenv("MAILER_PROVIDER"),
			FromAddress:        os.Getenv("MAILER_FROM_ADDRESS"),
			FromName:           os.Getenv("MAILER_FROM_NAME"),
			SESRegion:          os.Getenv("SES_REGION"),
			SESAccessKeyID:     os.Getenv("SES_ACCESS_KEY_ID"),
			SESSecretAccessKey: os.Getenv("SES_SECRET_ACCESS_KEY"),
		},
	}

	if v := os.Getenv("SES_INSECURE_SKIP_VERIFY"); v != "" {
		cfg.Mailer.SESInsecureTLS, _ = strconv.ParseBool(v)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	cfg.RequestTimeout = 10 * time.Second
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RequestTimeout = time.Duration(secs) * time.Second
		}
	}

	// Defaults for local development. MONGO_URI may be left empty: the
	// repository layer treats an unconfigured primary as unavailable and
	// degrades per its read-fallback chain instead of failing at startup.
	// DATABASE_URL is required by the server; it hosts the invitation and
	// subscription tables.
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "gatherly"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.Mailer.Provider == "" {
		cfg.Mailer.Provider = "noop"
	}

	return cfg, nil
}
