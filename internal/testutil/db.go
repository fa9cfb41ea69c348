// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/linkgate/urlshortener/internal/config"
	"github.com/linkgate/urlshortener/internal/storage"
)

// NewDB opens a migrated SQLite database in a temporary directory that is
// closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = filepath.Join(t.TempDir(), "test.db")

	db, err := storage.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))

	t.Cleanup(func() { storage.Close(db, zap.NewNop()) })
	return db
}
