package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add inventory table", "add_inventory_table"},
		{"Add-Reservations-Table", "add_reservations_table"},
		{"ADD_AUDIT_INDEX", "add_audit_index"},
		{"add__audit__index", "add_audit_index"},
		{"Add Movements 123", "add_movements_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("writes a matching up/down pair", func(t *testing.T) {
		tmpDir := t.TempDir()

		mf, err := CreateMigration(tmpDir, "add reservations table", "Reservations with release audit fields")
		require.NoError(t, err)

		// Version is a sortable YYYYMMDDHHMMSS timestamp
		assert.Len(t, mf.Version, 14)
		assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
		assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))

		upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
		downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
		assert.Equal(t, upBase, downBase)

		upContent, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(upContent), "add reservations table")
		assert.Contains(t, string(upContent), "Reservations with release audit fields")
		assert.Contains(t, string(upContent), "Write your UP migration SQL here")

		downContent, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(downContent), "Rollback")
		assert.Contains(t, string(downContent), "Write your DOWN migration SQL here")
	})

	t.Run("creates the migrations directory when missing", func(t *testing.T) {
		nestedPath := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(nestedPath, "init", "initial schema")
		require.NoError(t, err)

		info, err := os.Stat(nestedPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestListMigrations(t *testing.T) {
	writeFiles := func(t *testing.T, dir string, names []string) {
		t.Helper()
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0644))
		}
	}

	t.Run("lists each pair once", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, []string{
			"000001_create_products.up.sql",
			"000001_create_products.down.sql",
			"000002_create_warehouses.up.sql",
			"000002_create_warehouses.down.sql",
			"000003_create_inventory_items.up.sql",
			"000003_create_inventory_items.down.sql",
		})

		migrations, err := ListMigrations(tmpDir)
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{
			"000001_create_products",
			"000002_create_warehouses",
			"000003_create_inventory_items",
		}, migrations)
	})

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := ListMigrations(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("nonexistent directory lists as empty", func(t *testing.T) {
		migrations, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("ignores non-migration files and directories", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, []string{
			"000001_init.up.sql",
			"000001_init.down.sql",
			"README.md",
			".gitkeep",
		})
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "archive.up.sql"), 0755))

		migrations, err := ListMigrations(tmpDir)
		require.NoError(t, err)

		assert.Equal(t, []string{"000001_init"}, migrations)
	})
}
