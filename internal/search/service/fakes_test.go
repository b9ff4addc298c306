package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/umanagarjuna/go-social-feed/internal/search/domain"
)

// memoryRepo matches a query word by word against content. The score is
// the number of query words found.
type memoryRepo struct {
	mu         sync.Mutex
	posts      map[string]domain.SearchPost
	tombstones map[string]bool
	failErr    error

	inserts     int
	searchCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		posts:      make(map[string]domain.SearchPost),
		tombstones: make(map[string]bool),
	}
}

func (r *memoryRepo) Insert(_ context.Context, post *domain.SearchPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if r.tombstones[post.PostID] {
		return domain.ErrProjectionDeleted
	}
	if _, ok := r.posts[post.PostID]; ok {
		return domain.ErrProjectionExists
	}
	r.posts[post.PostID] = *post
	r.inserts++
	return nil
}

func (r *memoryRepo) DeleteByPostID(_ context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.tombstones[postID] = true
	if _, ok := r.posts[postID]; !ok {
		return domain.ErrProjectionNotFound
	}
	delete(r.posts, postID)
	return nil
}

func (r *memoryRepo) Search(_ context.Context, query string, limit int) ([]domain.SearchPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchCalls++
	if r.failErr != nil {
		return nil, r.failErr
	}

	words := strings.Fields(strings.ToLower(query))
	results := []domain.SearchPost{}
	for _, p := range r.posts {
		content := strings.ToLower(p.Content)
		score := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				score++
			}
		}
		if score > 0 {
			p.Score = float64(score)
			results = append(results, p)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PostID < results[j].PostID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}
