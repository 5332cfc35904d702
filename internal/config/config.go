package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvStaging    = "stg"
	EnvProduction = "prod"

	DefaultPort         = "8080"
	DefaultDriver       = "postgres"
	DefaultDatabaseName = "GRUBTECH_MASTER_DATA_STG_V2"
	DefaultWorkers      = 4
	DefaultPrecision    = 5
)

// Config is the process configuration shared by the API server and the CLI.
type Config struct {
	AppEnv        string
	Port          string
	LogLevel      string
	LogFormat     string
	DBDriver      string
	DatabaseURL   string
	DatabaseName  string
	JWTSecret     string
	Precision     int
	Workers       int
	ToleranceFile string
}

// LoadEnvFiles loads .env and configs/.env if present. Variables already in
// the environment win.
func LoadEnvFiles() {
	for _, f := range []string{".env", "configs/.env"} {
		_ = godotenv.Load(f)
	}
}

// Load reads the configuration from the environment. env selects the
// database environment (staging, production, stg, prod); empty uses APP_ENV.
func Load(env string) (Config, error) {
	if env == "" {
		env = getenv("APP_ENV", EnvStaging)
	}
	appEnv, err := NormalizeEnv(env)
	if err != nil {
		return Config{}, err
	}

	precision, err := getint("TAX_PRECISION", DefaultPrecision)
	if err != nil {
		return Config{}, err
	}
	workers, err := getint("VERIFY_WORKERS", DefaultWorkers)
	if err != nil {
		return Config{}, err
	}
	if workers < 1 {
		workers = 1
	}

	cfg := Config{
		AppEnv:        appEnv,
		Port:          getenv("PORT", DefaultPort),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "json"),
		DBDriver:      strings.ToLower(getenv("DB_DRIVER", DefaultDriver)),
		DatabaseURL:   ResolveDatabaseURL(appEnv, os.Getenv("DATABASE_URL"), os.LookupEnv),
		DatabaseName:  ResolveDatabaseName(appEnv, os.LookupEnv),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Precision:     precision,
		Workers:       workers,
		ToleranceFile: os.Getenv("TOLERANCE_FILE"),
	}
	return cfg, nil
}

// NormalizeEnv maps the accepted environment spellings to stg or prod.
func NormalizeEnv(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "staging", EnvStaging:
		return EnvStaging, nil
	case "production", EnvProduction:
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q (expected staging, production, stg or prod)", env)
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ResolveDatabaseURL picks the first non-empty connection url: the explicit
// one, the environment-specific key, the standardized keys, the legacy keys
// and finally DB_CONNECTION_URL.
func ResolveDatabaseURL(env, explicit string, lookup LookupFunc) string {
	if explicit != "" {
		return explicit
	}
	keys := []string{envSpecificURLKey(env), "PROD_DB_CONNECTION_URL", "STG_DB_CONNECTION_URL", "DB_CONNECTION_URL_PROD", "DB_CONNECTION_URL_STG", "DB_CONNECTION_URL"}
	return firstSet(lookup, keys...)
}

// ResolveDatabaseName prefers the environment-specific name over DB_NAME.
func ResolveDatabaseName(env string, lookup LookupFunc) string {
	key := "DB_NAME_STG"
	if env == EnvProduction {
		key = "DB_NAME_PROD"
	}
	if name := firstSet(lookup, key, "DB_NAME"); name != "" {
		return name
	}
	return DefaultDatabaseName
}

func envSpecificURLKey(env string) string {
	if env == EnvProduction {
		return "DB_CONNECTION_URL_PROD"
	}
	return "DB_CONNECTION_URL_STG"
}

func firstSet(lookup LookupFunc, keys ...string) string {
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
