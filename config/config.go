package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverPebble   = "pebble"

	AuthSession = "session"
	AuthGoogle  = "google"
)

// Config is read once at startup and passed down; nothing here is global.
type Config struct {
	Port string

	StoreDriver  string
	DatabaseURL  string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	SQLitePath   string
	PebbleDir    string
	StoreTimeout time.Duration

	AuthMode        string
	JWTSecret       string
	JWTIssuer       string
	TokenTTL        time.Duration
	GoogleClientID  string
	IdentityTimeout time.Duration

	AllowedOrigins []string
	LogLevel       slog.Level
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults for unset variables.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			// bare numbers are seconds
			secs, nerr := strconv.Atoi(raw)
			if nerr != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return def
			}
			d = time.Duration(secs) * time.Second
		}
		return d
	}

	cfg := Config{
		Port:            get("PORT", "8080"),
		StoreDriver:     strings.ToLower(get("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:     get("DATABASE_URL", ""),
		DBHost:          get("DB_HOST", ""),
		DBPort:          get("DB_PORT", "5432"),
		DBUser:          get("DB_USER", ""),
		DBPassword:      get("DB_PASSWORD", ""),
		DBName:          get("DB_NAME", ""),
		DBSSLMode:       get("DB_SSLMODE", "disable"),
		SQLitePath:      get("SQLITE_PATH", "vocasync.db"),
		PebbleDir:       get("PEBBLE_DIR", "data/pebble"),
		StoreTimeout:    duration("STORE_TIMEOUT", 10*time.Second),
		AuthMode:        strings.ToLower(get("AUTH_MODE", AuthSession)),
		JWTSecret:       get("JWT_SECRET", ""),
		JWTIssuer:       get("JWT_ISSUER", "vocasync"),
		TokenTTL:        duration("TOKEN_TTL", 7*24*time.Hour),
		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		IdentityTimeout: duration("IDENTITY_TIMEOUT", 15*time.Second),
		AllowedOrigins:  splitList(get("ALLOWED_ORIGINS", "")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports every missing or contradictory setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" && (c.DBHost == "" || c.DBName == "") {
			errs = append(errs, errors.New("postgres needs DATABASE_URL or DB_HOST and DB_NAME"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite needs SQLITE_PATH"))
		}
	case DriverPebble:
		if c.PebbleDir == "" {
			errs = append(errs, errors.New("pebble needs PEBBLE_DIR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q (postgres|sqlite|pebble)", c.StoreDriver))
	}

	switch c.AuthMode {
	case AuthSession:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("AUTH_MODE=session needs JWT_SECRET"))
		}
		if c.TokenTTL <= 0 {
			errs = append(errs, errors.New("TOKEN_TTL must be positive"))
		}
	case AuthGoogle:
		if c.GoogleClientID == "" {
			errs = append(errs, errors.New("AUTH_MODE=google needs GOOGLE_CLIENT_ID"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q (session|google)", c.AuthMode))
	}

	if c.IdentityTimeout <= 0 {
		errs = append(errs, errors.New("IDENTITY_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// PostgresDSN prefers DATABASE_URL and falls back to the DB_* variables.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
