package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/postdesk/internal/flagx"
	"github.com/dmitrijs2005/postdesk/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for config file decoding. Intervals
// use timex.Duration so they can be written as "3s" or as nanoseconds.
type FileConfig struct {
	BaseURL        string         `json:"base_url" yaml:"base_url"`
	RequestTimeout timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	SplashMinDelay timex.Duration `json:"splash_min_delay" yaml:"splash_min_delay"`
	SearchDebounce timex.Duration `json:"search_debounce" yaml:"search_debounce"`
	PageSize       int            `json:"page_size" yaml:"page_size"`
	DatabasePath   string         `json:"database_path" yaml:"database_path"`
	KeyFilePath    string         `json:"key_file_path" yaml:"key_file_path"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays Config with values from the file named by -c/-config.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
// Only fields present (non-zero) in the file are applied. Panics on read or
// decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.SplashMinDelay.Duration != 0 {
		cfg.SplashMinDelay = fc.SplashMinDelay.Duration
	}
	if fc.SearchDebounce.Duration != 0 {
		cfg.SearchDebounce = fc.SearchDebounce.Duration
	}
	if fc.PageSize != 0 {
		cfg.PageSize = fc.PageSize
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.KeyFilePath != "" {
		cfg.KeyFilePath = fc.KeyFilePath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}
