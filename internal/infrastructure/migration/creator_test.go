package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/erp/cheques/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add cheque pictures", "add_cheque_pictures"},
		{"Add-Rate--Index", "add_rate_index"},
		{"  leading and trailing  ", "leading_and_trailing"},
		{"rates_v2!", "rates_v2"},
		{"???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")

	first, err := CreateMigration(dir, "create cheque entries", "initial schema")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.FileExists(t, first.UpPath)
	assert.FileExists(t, first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- initial schema")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- create cheque entries (rollback)")
	assert.NotContains(t, string(down), "initial schema")

	second, err := CreateMigration(dir, "add rate index", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_rate_index.up.sql"), second.UpPath)

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_late.up.sql":    {},
		"000010_late.down.sql":  {},
		"000002_early.up.sql":   {},
		"000002_early.down.sql": {},
		"README.md":             {},
		"nested/000003.up.sql":  {},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_early", "000010_late"}, names)
}

func TestListMigrations_Embedded(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_cheque_entries",
		"000002_create_currency_exchanges",
	}, names)
}
