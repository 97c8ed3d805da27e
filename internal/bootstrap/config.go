package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
)

// How a cleared grid reaches the store.
const (
	ClearModeGoroutine = "goroutine"
	ClearModeAsynq     = "asynq"
)

// Config holds everything the server reads from the environment.
type Config struct {
	ServerPort string
	LogLevel   string
	AppEnv     string

	StoreBackend string
	SQLitePath   string
	DBUser       string
	DBPassword   string
	DBHost       string
	DBPort       string
	DBName       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret         string
	RateLimitMax      int
	RateLimitWindow   time.Duration
	PersistTimeout    time.Duration
	ClearMode         string
	ClearMaxRetry     int
	CORSAllowedOrigin string
}

// LoadConfig reads .env (if present) and then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AppEnv:            getEnv("APP_ENV", "development"),
		StoreBackend:      getEnv("STORE_BACKEND", BackendSQLite),
		SQLitePath:        getEnv("SQLITE_PATH", "grid.db"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         getEnv("REDIS_KEY_PREFIX", "grid:"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ClearMode:         getEnv("CLEAR_MODE", ClearModeGoroutine),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = getEnvInt("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.ClearMaxRetry, err = getEnvInt("CLEAR_MAX_RETRY", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Second); err != nil {
		return nil, err
	}
	if cfg.PersistTimeout, err = getEnvDuration("PERSIST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations the individual parsers cannot.
func (cfg *Config) Validate() error {
	switch cfg.StoreBackend {
	case BackendSQLite:
	case BackendMySQL:
		if cfg.DBUser == "" || cfg.DBHost == "" {
			return fmt.Errorf("STORE_BACKEND=mysql requires DB_USER and DB_HOST")
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want sqlite, mysql or redis)", cfg.StoreBackend)
	}

	switch cfg.ClearMode {
	case ClearModeGoroutine:
	case ClearModeAsynq:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("CLEAR_MODE=asynq requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown CLEAR_MODE %q (want goroutine or asynq)", cfg.ClearMode)
	}

	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.PersistTimeout <= 0 {
		return fmt.Errorf("PERSIST_TIMEOUT must be positive")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %q is not an integer", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %q is not a duration", key, v)
	}
	return d, nil
}
