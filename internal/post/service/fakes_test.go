package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/umanagarjuna/go-social-feed/internal/post/domain"
	"github.com/umanagarjuna/go-social-feed/pkg/cache"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
)

// callLog records cross-component call order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type memoryRepo struct {
	mu      sync.Mutex
	posts   map[string]domain.Post
	clock   time.Time
	log     *callLog
	failErr error

	findByIDCalls int
	findPageCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		posts: make(map[string]domain.Post),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) Create(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}

	r.clock = r.clock.Add(time.Second)
	post.CreatedAt = r.clock
	post.UpdatedAt = r.clock
	if post.MediaIDs == nil {
		post.MediaIDs = []string{}
	}
	r.posts[post.ID] = *post
	r.log.add("commit")
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByIDCalls++
	if r.failErr != nil {
		return nil, r.failErr
	}

	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return &p, nil
}

func (r *memoryRepo) DeleteByOwner(_ context.Context, id, userID string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}

	p, ok := r.posts[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrPostNotFound
	}
	delete(r.posts, id)
	r.log.add("commit")
	return &p, nil
}

func (r *memoryRepo) FindPage(_ context.Context, offset, limit int) ([]domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findPageCalls++
	if r.failErr != nil {
		return nil, r.failErr
	}

	all := make([]domain.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []domain.Post{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return 0, r.failErr
	}
	return len(r.posts), nil
}

type publishedEvent struct {
	eventType events.EventType
	key       string
	payload   interface{}
	ctxErr    error
}

type recordingPublisher struct {
	mu      sync.Mutex
	events  []publishedEvent
	failErr error
	log     *callLog
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType events.EventType, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log.add("publish")
	if p.failErr != nil {
		return p.failErr
	}
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, payload: payload, ctxErr: ctx.Err()})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// loggingCache notes when invalidation reaches the cache.
type loggingCache struct {
	cache.Client
	log *callLog
}

func (c *loggingCache) ListKeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	c.log.add("invalidate")
	return c.Client.ListKeysByPrefix(ctx, prefix)
}

var errDatabaseDown = errors.New("database down")
