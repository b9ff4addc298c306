package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/umanagarjuna/go-social-feed/internal/search/domain"
)

const defaultQueryTimeout = 5 * time.Second

type PostgresRepository struct {
	pool         PoolInterface
	queryTimeout time.Duration
}

func NewPostgresRepository(pool PoolInterface, queryTimeout time.Duration) *PostgresRepository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PostgresRepository{pool: pool, queryTimeout: queryTimeout}
}

// Connect opens a pgx pool and checks that the server answers.
func Connect(ctx context.Context, databaseURL string, maxConns int) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = int32(maxConns)
	}
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Insert adds a projection. Inserting a post that is already projected
// leaves the row alone and returns ErrProjectionExists. A post whose delete
// was already seen is not projected and ErrProjectionDeleted is returned.
func (r *PostgresRepository) Insert(ctx context.Context, post *domain.SearchPost) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
        INSERT INTO search_posts (post_id, user_id, content, created_at)
        SELECT $1, $2, $3, $4
        WHERE NOT EXISTS (SELECT 1 FROM search_tombstones WHERE post_id = $1)
        ON CONFLICT (post_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, post.PostID, post.UserID, post.Content, post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert search projection: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var deleted bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM search_tombstones WHERE post_id = $1)`,
		post.PostID).Scan(&deleted)
	if err != nil {
		return fmt.Errorf("failed to check search tombstone: %w", err)
	}
	if deleted {
		return domain.ErrProjectionDeleted
	}

	return domain.ErrProjectionExists
}

// DeleteByPostID removes the projection and leaves a tombstone so a
// post.created delivered after the delete cannot bring it back.
func (r *PostgresRepository) DeleteByPostID(ctx context.Context, postID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `
        WITH tombstone AS (
            INSERT INTO search_tombstones (post_id) VALUES ($1)
            ON CONFLICT (post_id) DO NOTHING
        )
        DELETE FROM search_posts WHERE post_id = $1`

	tag, err := r.pool.Exec(ctx, query, postID)
	if err != nil {
		return fmt.Errorf("failed to delete search projection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectionNotFound
	}

	return nil
}

// Search returns up to limit projections matching query, best match first.
func (r *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]domain.SearchPost, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = domain.DefaultResultLimit
	}

	sql := `
        SELECT post_id, user_id, content, created_at,
               ts_rank(search_vector, websearch_to_tsquery('english', $1))::float8 AS score
        FROM search_posts
        WHERE search_vector @@ websearch_to_tsquery('english', $1)
        ORDER BY score DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	defer rows.Close()

	results := []domain.SearchPost{}
	for rows.Next() {
		var p domain.SearchPost
		if err := rows.Scan(&p.PostID, &p.UserID, &p.Content, &p.CreatedAt, &p.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	return results, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
