package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "POSTDESK_"

// dotEnvFile is loaded before the environment is read. Variables already
// set in the process environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays Config with POSTDESK_* environment variables:
//
//	POSTDESK_BASE_URL, POSTDESK_REQUEST_TIMEOUT, POSTDESK_SPLASH_DELAY,
//	POSTDESK_SEARCH_DEBOUNCE, POSTDESK_PAGE_SIZE, POSTDESK_DB_PATH,
//	POSTDESK_KEY_FILE, POSTDESK_LOG_LEVEL
//
// Durations use Go syntax ("3s"). Panics on malformed values.
func parseEnv(cfg *Config) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	envString("BASE_URL", &cfg.BaseURL)
	envDuration("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	envDuration("SPLASH_DELAY", &cfg.SplashMinDelay)
	envDuration("SEARCH_DEBOUNCE", &cfg.SearchDebounce)
	envString("DB_PATH", &cfg.DatabasePath)
	envString("KEY_FILE", &cfg.KeyFilePath)
	envString("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := os.LookupEnv(envPrefix + "PAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		cfg.PageSize = n
	}
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envDuration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
