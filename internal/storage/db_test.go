package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(DefaultConfig(MemoryPath))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())

	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM analysis_results`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpen_WithoutMigrate(t *testing.T) {
	cfg := DefaultConfig(MemoryPath)
	cfg.Migrate = false

	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn().Exec(`SELECT 1 FROM catalog_cards`)
	assert.Error(t, err)
}

func TestOpen_NilConfig(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "strategist.db")

	db, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, path)

	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM catalog_cards`).Scan(&n))
}

func TestDSN(t *testing.T) {
	cfg := DefaultConfig("x.db")
	assert.Equal(t,
		"x.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		dsn(cfg.Path, cfg.BusyTimeout, false))
	assert.NotContains(t, dsn(MemoryPath, cfg.BusyTimeout, true), "journal_mode")
}
