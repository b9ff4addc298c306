package repository

import (
	"context"
	"embed"

	"github.com/umanagarjuna/go-social-feed/internal/post/domain"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

type Repository interface {
	Create(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, id string) (*domain.Post, error)
	DeleteByOwner(ctx context.Context, id, userID string) (*domain.Post, error)
	FindPage(ctx context.Context, offset, limit int) ([]domain.Post, error)
	Count(ctx context.Context) (int, error)
}
