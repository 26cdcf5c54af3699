package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chatlog-bot/internal/config"
)

// newTestStore opens a per-test in-memory SQLite database. The shared-cache
// DSN keeps the database alive for the lifetime of the pooled connection.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := NewDB(config.Config{DatabaseURL: dsn})
	require.NoError(t, err)

	store := NewStore(db)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}
