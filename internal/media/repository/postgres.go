package repository

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/umanagarjuna/go-social-feed/internal/media/domain"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

const defaultQueryTimeout = 5 * time.Second

var mediaColumns = []string{"id", "public_id", "original_name", "mime_type", "url", "user_id", "created_at"}

type Repository interface {
	DeleteByIDs(ctx context.Context, ids []string) ([]domain.Media, error)
}

type PostgresRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
	psql         sq.StatementBuilderType
}

func NewPostgresRepository(db *sqlx.DB, queryTimeout time.Duration) *PostgresRepository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PostgresRepository{
		db:           db,
		queryTimeout: queryTimeout,
		psql:         sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// DeleteByIDs removes the listed media and returns the rows that existed.
// Unknown ids are ignored.
func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []string) ([]domain.Media, error) {
	deleted := []domain.Media{}
	if len(ids) == 0 {
		return deleted, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query, args, err := r.psql.
		Delete("media").
		Where(sq.Eq{"id": ids}).
		Suffix("RETURNING " + strings.Join(mediaColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete query: %w", err)
	}

	if err := r.db.SelectContext(ctx, &deleted, query, args...); err != nil {
		return nil, fmt.Errorf("failed to delete media: %w", err)
	}

	return deleted, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
