package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/blogdraft/internal/adapters/storage/storagetest"
	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "blog.db") + "?_busy_timeout=5000"

	store, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: dsn, MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStore_SQLiteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) ports.PostRepository {
		return openSQLite(t)
	})
}

func TestStore_HealthCheck(t *testing.T) {
	store := openSQLite(t)

	assert.Equal(t, "sqlite3", store.Name())
	require.NoError(t, store.Check(context.Background()))

	require.NoError(t, store.Close())
	assert.Error(t, store.Check(context.Background()))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "blog.db")
	ctx := context.Background()

	first, err := Open(ctx, Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)

	post := storagetest.NewPost("Persisted", domain.StatusPublished, 0, "keep")
	require.NoError(t, first.Create(ctx, post))
	require.NoError(t, first.Close())

	second, err := Open(ctx, Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, got.Tags)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mongo", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestDialect_Rebind(t *testing.T) {
	lite, err := dialectFor(DriverSQLite)
	require.NoError(t, err)

	pg, err := dialectFor(DriverPostgres)
	require.NoError(t, err)

	query := "SELECT * FROM posts WHERE status = ? AND (tags LIKE ? OR tags LIKE ?) LIMIT ? OFFSET ?"

	assert.Equal(t, query, lite.rebind(query))
	assert.Equal(t,
		"SELECT * FROM posts WHERE status = $1 AND (tags LIKE $2 OR tags LIKE $3) LIMIT $4 OFFSET $5",
		pg.rebind(query))
	assert.Contains(t, pg.schema()[0], "TIMESTAMPTZ")
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause(ports.PostFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = whereClause(ports.PostFilter{Status: domain.StatusDraft, Tags: []string{"go", "100%_sure"}})
	assert.Equal(t, ` WHERE status = ? AND (tags LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`, where)
	assert.Equal(t, []any{"draft", `%"go"%`, `%"100\%\_sure"%`}, args)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
