package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the postdesk CLI.
//
// Fields:
//   - BaseURL: API root including the version prefix, e.g. http://host/api/v1.
//   - RequestTimeout: per-request HTTP timeout.
//   - SplashMinDelay: minimum duration of the startup session restore.
//   - SearchDebounce: quiet period after the last search keystroke.
//   - PageSize: posts per page as served by the API (used for range text).
//   - DatabasePath, KeyFilePath: local SQLite file and device secret file.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	SplashMinDelay time.Duration
	SearchDebounce time.Duration
	PageSize       int
	DatabasePath   string
	KeyFilePath    string
	LogLevel       string
}

const dataDir = ".postdesk"

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8000/api/v1"
	c.RequestTimeout = 10 * time.Second
	c.SplashMinDelay = 3 * time.Second
	c.SearchDebounce = 500 * time.Millisecond
	c.PageSize = 10
	c.DatabasePath = filepath.Join(dataDir, "postdesk.db")
	c.KeyFilePath = filepath.Join(dataDir, "device.key")
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (and .env), a config file (if given) and command-line
// flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
