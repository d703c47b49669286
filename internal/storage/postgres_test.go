package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS engine_documents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresGet(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery("SELECT doc FROM engine_documents WHERE key").
		WithArgs("lead:a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"name":"a","count":1}`)))

	var got doc
	require.NoError(t, store.Get(context.Background(), "lead:a@x.com", &got))
	assert.Equal(t, doc{Name: "a", Count: 1}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery("SELECT doc FROM engine_documents WHERE key").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	var got doc
	assert.ErrorIs(t, store.Get(context.Background(), "missing", &got), ErrNotFound)
}

func TestPostgresSetUpserts(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec("INSERT INTO engine_documents").
		WithArgs("lead:a@x.com", []byte(`{"name":"a","count":1}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Set(context.Background(), "lead:a@x.com", doc{Name: "a", Count: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec("DELETE FROM engine_documents WHERE key").
		WithArgs("lead:a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Delete(context.Background(), "lead:a@x.com"))
}

func TestPostgresKeys(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery("SELECT key FROM engine_documents WHERE key LIKE").
		WithArgs("lead:").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("lead:a@x.com").
			AddRow("lead:b@x.com"))

	keys, err := store.Keys(context.Background(), "lead:")
	require.NoError(t, err)
	assert.Equal(t, []string{"lead:a@x.com", "lead:b@x.com"}, keys)
}
