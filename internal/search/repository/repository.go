package repository

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/umanagarjuna/go-social-feed/internal/search/domain"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// PoolInterface is the part of *pgxpool.Pool the repository uses.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type Repository interface {
	Insert(ctx context.Context, post *domain.SearchPost) error
	DeleteByPostID(ctx context.Context, postID string) error
	Search(ctx context.Context, query string, limit int) ([]domain.SearchPost, error)
}
