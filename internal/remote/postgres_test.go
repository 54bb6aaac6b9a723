package remote

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertObjectQuery = `(?s)^\s*INSERT\s+INTO\s+remote_objects\s*\(name,\s*payload\).*ON\s+CONFLICT\s*\(name\).*RETURNING\s+id\s*$`

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresStore(db), mock, db
}

func TestPostgresStore_CreateObject(t *testing.T) {
	st, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertObjectQuery).
		WithArgs("100_a.dat", []byte("payload")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := st.CreateObject(context.Background(), "100_a.dat", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateObjectError(t *testing.T) {
	st, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertObjectQuery).
		WithArgs("100_a.dat", []byte("payload")).
		WillReturnError(errors.New("connection reset"))

	_, err := st.CreateObject(context.Background(), "100_a.dat", []byte("payload"))
	require.ErrorIs(t, err, ErrIO)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InvalidName(t *testing.T) {
	st, mock, db := newStoreWithMock(t)
	defer db.Close()

	_, err := st.CreateObject(context.Background(), "", []byte("payload"))
	require.ErrorIs(t, err, ErrInvalidName)
	require.NoError(t, mock.ExpectationsWereMet())
}
