package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/logger"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
// It is built once by Load and never mutated afterwards.
type Config struct {
	Port           string
	StoreDriver    string
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	BcryptCost     int
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	LogLevel       slog.Level
	GraphiQL       bool
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:          fallback(getenv("PORT"), "8080"),
		StoreDriver:   strings.ToLower(fallback(getenv("STORE_DRIVER"), DriverMongo)),
		MongoURI:      strings.TrimSpace(getenv("MONGO_URI")),
		MongoDatabase: fallback(getenv("MONGO_DATABASE"), "taskql"),
		DatabaseURL:   strings.TrimSpace(getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(getenv("JWT_SECRET")),
		JWTIssuer:     fallback(getenv("JWT_ISSUER"), "taskql"),
		CORSOrigins:   parseCSV(fallback(getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}

	var errs []error

	ttlMinutes, err := positiveInt(getenv, "JWT_TTL_MINUTES", 60)
	errs = append(errs, err)
	cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute

	cfg.BcryptCost, err = positiveInt(getenv, "BCRYPT_COST", 10)
	errs = append(errs, err)

	rps := fallback(getenv("RATE_LIMIT_RPS"), "10")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil || cfg.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be a non-negative number, got %q", rps))
	}
	burst := fallback(getenv("RATE_LIMIT_BURST"), "20")
	if cfg.RateLimitBurst, err = strconv.Atoi(burst); err != nil || cfg.RateLimitBurst < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be a non-negative integer, got %q", burst))
	}

	if cfg.LogLevel, err = logger.ParseLevel(getenv("LOG_LEVEL")); err != nil {
		errs = append(errs, err)
	}

	graphiql := fallback(getenv("GRAPHIQL"), "true")
	if cfg.GraphiQL, err = strconv.ParseBool(graphiql); err != nil {
		errs = append(errs, fmt.Errorf("GRAPHIQL must be a boolean, got %q", graphiql))
	}

	switch cfg.StoreDriver {
	case DriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER=mongo"))
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}

	switch {
	case cfg.JWTSecret == "":
		errs = append(errs, errors.New("JWT_SECRET is required"))
	case len(cfg.JWTSecret) < auth.MinSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", auth.MinSecretLength))
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
