package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/umanagarjuna/go-social-feed/internal/post/domain"
)

const defaultQueryTimeout = 5 * time.Second

const postColumns = `id, user_id, content, media_ids, created_at, updated_at`

type PostgresRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

func NewPostgresRepository(db *sqlx.DB, queryTimeout time.Duration) *PostgresRepository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PostgresRepository{db: db, queryTimeout: queryTimeout}
}

func (r *PostgresRepository) Create(ctx context.Context, post *domain.Post) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	if post.MediaIDs == nil {
		post.MediaIDs = pq.StringArray{}
	}

	query := `
        INSERT INTO posts (id, user_id, content, media_ids)
        VALUES (:id, :user_id, :content, :media_ids)
        RETURNING created_at, updated_at`

	rows, err := r.db.NamedQueryContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
		return fmt.Errorf("failed to insert post: no row returned")
	}
	if err := rows.Scan(&post.CreatedAt, &post.UpdatedAt); err != nil {
		return fmt.Errorf("failed to scan returning values: %w", err)
	}

	return rows.Err()
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var post domain.Post
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &post, nil
}

// DeleteByOwner removes the post only if userID wrote it, and returns the
// deleted row. A post owned by someone else is reported as not found.
func (r *PostgresRepository) DeleteByOwner(ctx context.Context, id, userID string) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var post domain.Post
	query := `
        DELETE FROM posts
        WHERE id = $1 AND user_id = $2
        RETURNING ` + postColumns

	if err := r.db.GetContext(ctx, &post, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}

	return &post, nil
}

func (r *PostgresRepository) FindPage(ctx context.Context, offset, limit int) ([]domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	posts := []domain.Post{}
	query := `
        SELECT ` + postColumns + `
        FROM posts
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	if err := r.db.SelectContext(ctx, &posts, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return total, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
