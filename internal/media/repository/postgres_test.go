package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresRepository(sqlx.NewDb(db, "postgres"), time.Second), mock
}

func TestPostgresRepository_DeleteByIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`DELETE FROM media WHERE id IN \(\$1,\$2\) RETURNING id, public_id`).
		WithArgs("m1", "m2").
		WillReturnRows(sqlmock.NewRows(mediaColumns).
			AddRow("m1", "pub/m1", "cat.png", "image/png", "https://cdn/m1", "u1", now))

	got, err := repo.DeleteByIDs(context.Background(), []string{"m1", "m2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "pub/m1", got[0].PublicID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteByIDsEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	got, err := repo.DeleteByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteByIDsError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`DELETE FROM media`).WillReturnError(errors.New("connection reset"))

	_, err := repo.DeleteByIDs(context.Background(), []string{"m1"})
	assert.ErrorContains(t, err, "failed to delete media")
}
