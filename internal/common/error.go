package common

import "errors"

var (
	// ErrorNotFound is returned by local repositories when a key is absent.
	ErrorNotFound = errors.New("not found")

	// ErrInvalidSecret reports a corrupted or truncated device secret file.
	ErrInvalidSecret = errors.New("invalid device secret")
)
