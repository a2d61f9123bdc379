// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first when present; values
// already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable with STORAGE.
const (
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
)

const minSecretLength = 32

// Config holds every setting the server reads at startup.
type Config struct {
	Env  string
	Port string

	Storage   string
	DBPath    string
	MongoURI  string
	MongoDB   string
	JWTSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CORSOrigin       string
	GeminiAPIKey     string
	GeminiModel      string
	ReminderSchedule string
	DefaultCurrency  string
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env (if any) and the environment into a Config.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		Storage:          strings.ToLower(getEnv("STORAGE", StorageSQLite)),
		DBPath:           getEnv("DB_PATH", "./data/finwise.db"),
		MongoURI:         getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:          getEnv("MONGODB_DB", "finwise"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigin:       getEnv("CORS_ORIGIN", "*"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 9 * * *"),
		DefaultCurrency:  strings.ToUpper(getEnv("DEFAULT_CURRENCY", "INR")),
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storage != StorageSQLite && c.Storage != StorageMongo {
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageSQLite, StorageMongo, c.Storage)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required")
		}
		c.JWTSecret = "dev-secret-change-in-production-min-32-chars"
	}
	if !c.IsDevelopment() && len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", c.DefaultCurrency)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
