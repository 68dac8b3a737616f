package persistence

import (
	"path/filepath"
	"testing"

	"github.com/erp/cheques/internal/infrastructure/config"
	"github.com/erp/cheques/internal/infrastructure/migration"
	"github.com/erp/cheques/migrations"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupSQLite migrates a fresh file-backed SQLite database with the
// embedded scripts and opens it through NewDatabase.
func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cheques.db")

	m, err := migration.New(migrations.FS, "sqlite3://"+path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}
