package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE TABLE b (y INT) ;\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, got)
	assert.Empty(t, splitStatements(" ; ;\n"))
}

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "newsroom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, repository.DialectSQLite))
	require.NoError(t, Migrate(ctx, db, repository.DialectSQLite))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_version").Scan(&n))
	assert.Equal(t, 1, n)

	for _, table := range []string{"users", "refresh_tokens", "shows", "show_instances", "rundowns", "rundown_items", "stories"} {
		var found int
		require.NoError(t, db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&found))
		assert.Equal(t, 1, found, table)
	}
}

func TestMigrateRejectsOtherVersion(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "newsroom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, repository.DialectSQLite))
	_, err = db.ExecContext(ctx, "UPDATE schema_version SET version = 99")
	require.NoError(t, err)

	err = Migrate(ctx, db, repository.DialectSQLite)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestMigrateUnknownDialect(t *testing.T) {
	err := Migrate(context.Background(), nil, repository.Dialect("oracle"))
	assert.Error(t, err)
}
