package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func mysqlErr(n uint16) error {
	return &mysql.MySQLError{Number: n, Message: fmt.Sprintf("error %d", n)}
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{sql.ErrNoRows, ErrNotFound},
		{mysqlErr(1062), ErrDuplicate},
		{mysqlErr(1452), ErrForeignKey},
		{mysqlErr(1216), ErrForeignKey},
		{mysqlErr(1451), ErrConflict},
		{mysqlErr(3819), ErrInvalid},
		{mysqlErr(1264), ErrInvalid},
		{fmt.Errorf("fill movie_genres: %w", mysqlErr(1452)), ErrForeignKey},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, translate(tc.in), tc.want, "input %v", tc.in)
	}

	assert.NoError(t, translate(nil))
	other := errors.New("connection reset")
	assert.Same(t, other, translate(other))
	unknown := mysqlErr(1205)
	assert.Equal(t, unknown, translate(unknown))
}

func TestMustAffect(t *testing.T) {
	assert.NoError(t, mustAffect(sqlmock.NewResult(0, 1), "movie", 1))
	err := mustAffect(sqlmock.NewResult(0, 0), "movie", 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "movie 9: not found")
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []uint64{1, 3, 7}, uniqueIDs([]uint64{7, 3, 7, 1, 3}))
	assert.Equal(t, []uint64{}, uniqueIDs(nil))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
