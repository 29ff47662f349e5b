package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8000/api/v1", c.BaseURL)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, 3*time.Second, c.SplashMinDelay)
	assert.Equal(t, 500*time.Millisecond, c.SearchDebounce)
	assert.Equal(t, 10, c.PageSize)
	assert.Equal(t, filepath.Join(".postdesk", "postdesk.db"), c.DatabasePath)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	isolate(t, []string{"testbin"})

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8000/api/v1", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	isolate(t, nil)
	t.Setenv("POSTDESK_BASE_URL", "http://env/api/v1")
	t.Setenv("POSTDESK_LOG_LEVEL", "warn")
	t.Setenv("POSTDESK_SEARCH_DEBOUNCE", "250ms")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file/api/v1\npage_size: 20\n"), 0o600))
	os.Args = []string{"testbin", "-c", path, "-a", "http://flag/api/v1"}

	cfg := LoadConfig()

	assert.Equal(t, "http://flag/api/v1", cfg.BaseURL, "flags win over file and env")
	assert.Equal(t, 20, cfg.PageSize, "file wins over defaults")
	assert.Equal(t, "warn", cfg.LogLevel, "env applies where nothing later overrides")
	assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce)
}

// isolate points .env loading at a missing file, clears POSTDESK_* variables
// and restores os.Args after the test.
func isolate(t *testing.T, args []string) {
	t.Helper()
	origArgs, origDotEnv := os.Args, dotEnvFile
	t.Cleanup(func() {
		os.Args = origArgs
		dotEnvFile = origDotEnv
	})
	dotEnvFile = filepath.Join(t.TempDir(), "missing.env")
	for _, name := range []string{"BASE_URL", "REQUEST_TIMEOUT", "SPLASH_DELAY", "SEARCH_DEBOUNCE",
		"PAGE_SIZE", "DB_PATH", "KEY_FILE", "LOG_LEVEL"} {
		t.Setenv(envPrefix+name, "")
	}
	if args != nil {
		os.Args = args
	}
}
