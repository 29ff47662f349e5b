// Package filex holds file-system helpers for client-side state files.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/postdesk/internal/common"
)

// EnsureParentDir creates the directory that will contain path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// ReadOrCreateSecret returns the size-byte secret stored at path, generating
// and writing a fresh one (mode 0600) when the file does not exist yet.
func ReadOrCreateSecret(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != size {
			return nil, fmt.Errorf("%s: %w", path, common.ErrInvalidSecret)
		}
		return data, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read secret: %w", err)
	}

	if err := EnsureParentDir(path); err != nil {
		return nil, err
	}
	secret := common.GenerateRandByteArray(size)
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("write secret: %w", err)
	}
	return secret, nil
}
