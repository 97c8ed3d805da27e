package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the terminal client settings.
type Config struct {
	API APIConfig
	Log LogConfig
}

// APIConfig addresses the grid API.
type APIConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// LogConfig sends logs to a file so they do not tear the screen.
type LogConfig struct {
	File  string
	Level string
}

// LoadConfig reads an optional TOML file and the environment. Env overrides use the
// GRID_ prefix, e.g. GRID_API_URL or GRID_LOG_FILE.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("api.url", "http://localhost:8080/api/grid")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("log.file", "gridtui.log")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("GRID_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "gridtui"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("GRID")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing default file is fine; an explicit or broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if os.Getenv("GRID_CONFIG") != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.API.URL == "" {
		return Config{}, fmt.Errorf("api.url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return Config{}, fmt.Errorf("api.timeout must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		c.Log.Level = "info"
	}
	return c, nil
}

// OpenLog points the standard logrus logger at the configured file.
// The returned func closes it.
func OpenLog(cfg LogConfig) (func() error, error) {
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetOutput(f)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return f.Close, nil
}
