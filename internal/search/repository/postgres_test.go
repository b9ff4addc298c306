package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umanagarjuna/go-social-feed/internal/search/domain"
)

var createdAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresRepository(mock, time.Second), mock
}

func TestPostgresRepository_Insert(t *testing.T) {
	post := &domain.SearchPost{PostID: "p1", UserID: "u1", Content: "hello gophers", CreatedAt: createdAt}

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
		anyErr    bool
	}{
		{
			name: "inserted",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO search_posts`).
					WithArgs("p1", "u1", "hello gophers", createdAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "already projected",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`ON CONFLICT \(post_id\) DO NOTHING`).
					WithArgs("p1", "u1", "hello gophers", createdAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
				mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM search_tombstones WHERE post_id = \$1\)`).
					WithArgs("p1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: domain.ErrProjectionExists,
		},
		{
			name: "deleted before it was created",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`WHERE NOT EXISTS \(SELECT 1 FROM search_tombstones WHERE post_id = \$1\)`).
					WithArgs("p1", "u1", "hello gophers", createdAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
				mock.ExpectQuery(`FROM search_tombstones`).
					WithArgs("p1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr: domain.ErrProjectionDeleted,
		},
		{
			name: "tombstone check fails",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO search_posts`).
					WithArgs("p1", "u1", "hello gophers", createdAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
				mock.ExpectQuery(`FROM search_tombstones`).
					WithArgs("p1").
					WillReturnError(errors.New("connection reset"))
			},
			anyErr: true,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO search_posts`).
					WithArgs("p1", "u1", "hello gophers", createdAt).
					WillReturnError(errors.New("connection reset"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.mockSetup(mock)

			err := repo.Insert(context.Background(), post)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrProjectionExists)
				assert.NotErrorIs(t, err, domain.ErrProjectionDeleted)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_DeleteByPostID(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "missing", affected: 0, wantErr: domain.ErrProjectionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(`(?s)INSERT INTO search_tombstones \(post_id\) VALUES \(\$1\).*DELETE FROM search_posts WHERE post_id = \$1`).
				WithArgs("p1").
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err := repo.DeleteByPostID(context.Background(), "p1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_Search(t *testing.T) {
	repo, mock := newMockRepo(t)
	columns := []string{"post_id", "user_id", "content", "created_at", "score"}

	mock.ExpectQuery(`ORDER BY score DESC\s+LIMIT \$2`).
		WithArgs("gophers", 10).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("p2", "u2", "gophers gophers", createdAt, 0.9).
			AddRow("p1", "u1", "hello gophers", createdAt, 0.4))

	got, err := repo.Search(context.Background(), "gophers", 10)
	require.NoError(t, err)

	want := []domain.SearchPost{
		{PostID: "p2", UserID: "u2", Content: "gophers gophers", CreatedAt: createdAt, Score: 0.9},
		{PostID: "p1", UserID: "u1", Content: "hello gophers", CreatedAt: createdAt, Score: 0.4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SearchNoMatches(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM search_posts`).
		WithArgs("nothing", domain.DefaultResultLimit).
		WillReturnRows(pgxmock.NewRows([]string{"post_id", "user_id", "content", "created_at", "score"}))

	got, err := repo.Search(context.Background(), "nothing", 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SearchError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM search_posts`).WillReturnError(errors.New("timeout"))

	_, err := repo.Search(context.Background(), "x", 10)
	assert.ErrorContains(t, err, "failed to search posts")
}
