// Package config loads runtime configuration for the postdesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. POSTDESK_* environment variables, after loading a .env file if present.
//  3. Optional config file (JSON, or YAML by .yaml/.yml extension) selected
//     via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   API base URL
//	-t int      request timeout (seconds)
//	-d string   local database path
//	-l string   log level
//
// # File schema
//
//	base_url: http://127.0.0.1:8000/api/v1
//	request_timeout: 10s
//	splash_min_delay: 3s
//	search_debounce: 500ms
//	page_size: 10
//	database_path: .postdesk/postdesk.db
//	key_file_path: .postdesk/device.key
//	log_level: info
package config
