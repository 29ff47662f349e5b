// Package common contains small shared helpers and constants used across
// client layers.
package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"
	// RequestIDHeaderName tags every outbound request for log correlation.
	RequestIDHeaderName = "X-Request-ID"

	// TokenKey is the secure-storage key holding the raw session token.
	TokenKey = "token"
	// DarkModeKey is the general-storage key holding the theme preference.
	DarkModeKey = "darkMode"
)
