package db

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T, name string) *sqlx.DB {
	t.Helper()
	d, err := Open(DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpen_AppliesAllMigrations(t *testing.T) {
	d := openMemory(t, "dbopen")

	versions, err := AppliedVersions(d)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, versions)

	for _, table := range []string{"users", "addresses", "credit_cards"} {
		var n int
		err := d.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	d := openMemory(t, "dbreopen")
	// Second open on the same shared cache must not re-run migrations.
	d2, err := Open(DriverSQLite, "file:dbreopen?mode=memory&cache=shared")
	require.NoError(t, err)
	defer d2.Close()

	versions, err := AppliedVersions(d)
	require.NoError(t, err)
	assert.Len(t, versions, 3)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestRollbackLast(t *testing.T) {
	d := openMemory(t, "dbrollback")

	require.NoError(t, RollbackLast(d))
	versions, err := AppliedVersions(d)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	var n int
	require.NoError(t, d.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'credit_cards'`))
	assert.Zero(t, n)
}

func TestIsIntegrityViolation(t *testing.T) {
	d := openMemory(t, "dbintegrity")
	now := time.Now().UTC()

	_, err := d.Exec(`INSERT INTO users (external_id, name, username, email, created_at, updated_at) VALUES (1, 'a', 'a', 'a@x', ?, ?)`, now, now)
	require.NoError(t, err)

	_, err = d.Exec(`INSERT INTO users (external_id, name, username, email, created_at, updated_at) VALUES (1, 'b', 'b', 'b@x', ?, ?)`, now, now)
	require.Error(t, err)
	assert.True(t, IsIntegrityViolation(err), "duplicate external_id: %v", err)

	_, err = d.Exec(`INSERT INTO addresses (user_id, created_at, updated_at) VALUES (999, ?, ?)`, now, now)
	require.Error(t, err)
	assert.True(t, IsIntegrityViolation(err), "missing user: %v", err)

	assert.False(t, IsIntegrityViolation(nil))
	_, err = d.Exec(`SELECT * FROM no_such_table`)
	assert.False(t, IsIntegrityViolation(err))
}
