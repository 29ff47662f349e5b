// Package securestore is the client's secure key/value capability. Values are
// sealed with AES-GCM before they reach SQLite; the key is derived from a
// per-device secret file and a salt kept in the database, so a copied database
// alone does not reveal the session token.
package securestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postdesk/internal/client/repositories/keyvalue"
	"github.com/dmitrijs2005/postdesk/internal/common"
	"github.com/dmitrijs2005/postdesk/internal/cryptox"
	"github.com/dmitrijs2005/postdesk/internal/dbx"
	"github.com/dmitrijs2005/postdesk/internal/filex"
)

const (
	secretSize = 32
	saltSize   = 16
	saltKey    = "salt"
)

type Store struct {
	repo keyvalue.Repository
	key  []byte
}

// New builds a store over repo using an already derived AES key.
func New(repo keyvalue.Repository, key []byte) *Store {
	return &Store{repo: repo, key: key}
}

// Open loads (or creates) the device secret at secretPath and the device salt
// in db, derives the sealing key and returns a ready store.
func Open(ctx context.Context, db *sql.DB, secretPath string) (*Store, error) {
	secret, err := filex.ReadOrCreateSecret(secretPath, secretSize)
	if err != nil {
		return nil, fmt.Errorf("device secret: %w", err)
	}
	defer common.WipeByteArray(secret)

	var salt []byte
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := keyvalue.NewSQLiteRepository(tx)
		v, err := repo.Get(ctx, keyvalue.ScopeDevice, saltKey)
		if err == nil {
			salt = v
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		salt = common.GenerateRandByteArray(saltSize)
		return repo.Set(ctx, keyvalue.ScopeDevice, saltKey, salt)
	})
	if err != nil {
		return nil, fmt.Errorf("device salt: %w", err)
	}

	return New(keyvalue.NewSQLiteRepository(db), cryptox.DeriveKey(secret, salt)), nil
}

// Get returns the plaintext for name, or common.ErrorNotFound.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	sealed, err := s.repo.Get(ctx, keyvalue.ScopeSecure, name)
	if err != nil {
		return "", err
	}
	plain, err := cryptox.Open(sealed, s.key)
	if err != nil {
		return "", fmt.Errorf("unseal %s: %w", name, err)
	}
	return string(plain), nil
}

func (s *Store) Set(ctx context.Context, name, value string) error {
	sealed, err := cryptox.Seal([]byte(value), s.key)
	if err != nil {
		return fmt.Errorf("seal %s: %w", name, err)
	}
	return s.repo.Set(ctx, keyvalue.ScopeSecure, name, sealed)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	return s.repo.Delete(ctx, keyvalue.ScopeSecure, name)
}
