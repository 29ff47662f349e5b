package preferences

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/postdesk/internal/client/repositories/keyvalue"
	"github.com/dmitrijs2005/postdesk/internal/client/storage"
	"github.com/dmitrijs2005/postdesk/internal/common"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, keyvalue.Repository) {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "postdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := keyvalue.NewSQLiteRepository(db)
	return New(repo), repo
}

func TestDarkMode_DefaultsToFalse(t *testing.T) {
	s, _ := newStore(t)

	on, err := s.DarkMode(context.Background())
	require.NoError(t, err)
	require.False(t, on)
}

func TestToggleDarkMode_Persists(t *testing.T) {
	ctx := context.Background()
	s, repo := newStore(t)

	on, err := s.ToggleDarkMode(ctx)
	require.NoError(t, err)
	require.True(t, on)

	raw, err := repo.Get(ctx, keyvalue.ScopePrefs, common.DarkModeKey)
	require.NoError(t, err)
	require.Equal(t, "true", string(raw))

	on, err = s.ToggleDarkMode(ctx)
	require.NoError(t, err)
	require.False(t, on)
}

func TestDarkMode_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s, repo := newStore(t)
	require.NoError(t, repo.Set(ctx, keyvalue.ScopePrefs, common.DarkModeKey, []byte("maybe")))

	_, err := s.DarkMode(ctx)
	require.ErrorContains(t, err, "parse darkMode")
}
