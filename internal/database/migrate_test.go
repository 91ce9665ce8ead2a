package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMigrateNewDB(t *testing.T) {
	db := openTestDB(t)

	version, err := getSchemaVersion(db.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)
}

func TestMigrateFromVersionOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")

	// A database that only ran the first migration has no course view yet.
	raw, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	tx, err := raw.Begin()
	require.NoError(t, err)
	require.NoError(t, migrations[0].Up(tx))
	require.NoError(t, tx.Commit())
	_, err = raw.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	raw.Close()

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.conn.QueryRow("SELECT COUNT(*) FROM curriculums_x_module_details").Scan(&count)
	require.NoError(t, err, "course view missing after upgrade")
}

func TestMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db1, err := Open(dbPath)
	require.NoError(t, err)
	db1.Close()

	db2, err := Open(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	version, err := getSchemaVersion(db2.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)
}

func TestGetSchemaVersionNewDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	conn, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer conn.Close()

	version, err := getSchemaVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}
