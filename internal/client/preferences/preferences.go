// Package preferences stores UI preferences in general (unencrypted) storage.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/postdesk/internal/client/repositories/keyvalue"
	"github.com/dmitrijs2005/postdesk/internal/common"
)

type Store struct {
	repo keyvalue.Repository
}

func New(repo keyvalue.Repository) *Store {
	return &Store{repo: repo}
}

// DarkMode reports the saved theme preference; false when never set.
func (s *Store) DarkMode(ctx context.Context) (bool, error) {
	raw, err := s.repo.Get(ctx, keyvalue.ScopePrefs, common.DarkModeKey)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(string(raw))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", common.DarkModeKey, err)
	}
	return v, nil
}

func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	return s.repo.Set(ctx, keyvalue.ScopePrefs, common.DarkModeKey, []byte(strconv.FormatBool(on)))
}

// ToggleDarkMode flips the preference and returns the new value.
func (s *Store) ToggleDarkMode(ctx context.Context) (bool, error) {
	cur, err := s.DarkMode(ctx)
	if err != nil {
		return false, err
	}
	if err := s.SetDarkMode(ctx, !cur); err != nil {
		return cur, err
	}
	return !cur, nil
}
