package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/passflow/internal/pipeline"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "history.db")

	db, err := NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}

func TestNewDB_CreatesDatabaseFile(t *testing.T) {
	db := openTestDB(t)

	info, err := os.Stat(db.Path())
	require.NoError(t, err)
	require.False(t, info.IsDir())
}

func TestNewDB_RunsMigrations(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"runs", "run_steps"} {
		var name string
		err := db.conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	var transformed int
	_, err := db.conn.Exec(
		"INSERT INTO runs (run_id, backend, flow, state, plan, started_at, finished_at) VALUES ('r', 'b', 'f', 'completed', '[]', 1, 2)",
	)
	require.NoError(t, err)
	require.NoError(t, db.conn.QueryRow("SELECT transformed FROM runs WHERE run_id='r'").Scan(&transformed))
	require.Equal(t, 0, transformed, "second migration adds transformed with default 0")

	version, err := db.Version()
	require.NoError(t, err)
	require.Equal(t, uint(2), version)
}

func TestNewDB_PreMigrationBackup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	db1, err := NewDB(dbPath)
	require.NoError(t, err)
	_, err = os.Stat(dbPath + ".bak")
	require.True(t, os.IsNotExist(err), "no backup on first open")
	require.NoError(t, db1.Close())

	db2, err := NewDB(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	info, err := os.Stat(dbPath + ".bak")
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestNewDB_Pragmas(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	require.NoError(t, db.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, db.conn.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	require.Equal(t, 1, foreignKeys)

	var busyTimeout int
	require.NoError(t, db.conn.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	require.Equal(t, 5000, busyTimeout)
}

func TestNewDB_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 3; i++ {
		db, err := NewDB(dbPath)
		require.NoError(t, err, "open #%d", i)
		version, err := db.Version()
		require.NoError(t, err)
		require.Equal(t, uint(2), version)
		require.NoError(t, db.Close())
	}
}

func TestDB_Close(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.Error(t, db.conn.Ping(), "ping should fail after Close")
}

func TestDB_Connection(t *testing.T) {
	db := openTestDB(t)

	conn := db.Connection()
	require.IsType(t, (*sql.DB)(nil), conn)
	require.NoError(t, conn.Ping())
}

func TestDB_Reports(t *testing.T) {
	db := openTestDB(t)

	var repo pipeline.ReportRepository = db.Reports()
	require.NotNil(t, repo)
}

func TestMigrationDriver_Lock(t *testing.T) {
	db := openTestDB(t)
	drv, err := newMigrationDriver(db.conn)
	require.NoError(t, err)

	require.NoError(t, drv.Lock())
	require.Error(t, drv.Lock())
	require.NoError(t, drv.Unlock())
	require.Error(t, drv.Unlock())
}

func TestMigrationDriver_Drop(t *testing.T) {
	db := openTestDB(t)
	drv, err := newMigrationDriver(db.conn)
	require.NoError(t, err)

	require.NoError(t, drv.Drop())

	var n int
	require.NoError(t, db.conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'",
	).Scan(&n))
	require.Zero(t, n)
}
