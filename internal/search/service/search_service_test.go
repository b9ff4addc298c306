package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/umanagarjuna/go-social-feed/pkg/cache/cachetest"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
	"github.com/umanagarjuna/go-social-feed/pkg/validator"
)

type fixture struct {
	search    *SearchService
	projector *Projector
	repo      *memoryRepo
	cache     *cachetest.Memory
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	mem := cachetest.NewMemory()
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	return &fixture{
		search:    NewSearchService(repo, mem, validator.NewDefaultValidator(), logger, nil, time.Hour),
		projector: NewProjector(repo, mem, logger, nil),
		repo:      repo,
		cache:     mem,
		logs:      logs,
	}
}

func envelope(t *testing.T, eventType events.EventType, payload interface{}) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(eventType, "post-service", payload)
	require.NoError(t, err)
	return env
}

func created(t *testing.T, id, content string) events.Envelope {
	return envelope(t, events.PostCreated, events.PostCreatedPayload{
		PostID:    id,
		UserID:    "u1",
		Content:   content,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func deleted(t *testing.T, id string) events.Envelope {
	return envelope(t, events.PostDeleted, events.PostDeletedPayload{PostID: id, UserID: "u1"})
}

func TestProjection_CreateSearchDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	results, err := f.search.Search(ctx, "gophers")
	require.NoError(t, err)
	assert.Empty(t, results)
	require.True(t, f.cache.Has("search:gophers"))

	require.NoError(t, f.projector.HandlePostCreated(ctx, created(t, "p1", "hello gophers")))
	assert.False(t, f.cache.Has("search:gophers"))

	results, err = f.search.Search(ctx, "gophers")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].PostID)

	require.NoError(t, f.projector.HandlePostDeleted(ctx, deleted(t, "p1")))
	assert.Empty(t, f.cache.Keys())

	results, err = f.search.Search(ctx, "gophers")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProjector_DuplicateCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	env := created(t, "p1", "hello gophers")

	require.NoError(t, f.projector.HandlePostCreated(ctx, env))

	// A stale entry written between the first insert and the redelivery.
	f.cache.Put("search:gophers", []byte(`[]`))

	require.NoError(t, f.projector.HandlePostCreated(ctx, env))

	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, 1, f.repo.inserts)
	assert.False(t, f.cache.Has("search:gophers"))
	assert.Equal(t, 1, f.logs.FilterMessage("Search projection already exists").Len())
}

func TestProjector_DeleteMissingIsNoop(t *testing.T) {
	f := newFixture(t)
	f.cache.Put("search:other", []byte(`[]`))

	require.NoError(t, f.projector.HandlePostDeleted(context.Background(), deleted(t, "ghost")))

	assert.True(t, f.cache.Has("search:other"))
	assert.Equal(t, 1, f.logs.FilterMessage("Search projection not found for deleted post").Len())
}

func TestProjector_CreateAfterDeleteStaysDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.projector.HandlePostDeleted(ctx, deleted(t, "p1")))
	require.NoError(t, f.projector.HandlePostCreated(ctx, created(t, "p1", "hello gophers")))

	assert.Equal(t, 0, f.repo.count())
	assert.Equal(t, 1, f.logs.FilterMessage("Skipping projection for deleted post").Len())

	results, err := f.search.Search(ctx, "gophers")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProjector_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failErr = errors.New("database down")
	f.cache.Put("search:gophers", []byte(`[]`))

	assert.Error(t, f.projector.HandlePostCreated(context.Background(), created(t, "p1", "hello")))
	assert.Error(t, f.projector.HandlePostDeleted(context.Background(), deleted(t, "p1")))
	assert.True(t, f.cache.Has("search:gophers"))
}

func TestProjector_BadPayload(t *testing.T) {
	f := newFixture(t)

	env := events.Envelope{EventID: "e1", EventType: events.PostCreated, Data: []byte(`{"post_id": 42}`)}
	assert.Error(t, f.projector.HandlePostCreated(context.Background(), env))

	env = envelope(t, events.PostDeleted, events.PostDeletedPayload{})
	assert.Error(t, f.projector.HandlePostDeleted(context.Background(), env))
	assert.Equal(t, 0, f.repo.count())
}

func TestProjector_CacheOutageDoesNotFailHandler(t *testing.T) {
	f := newFixture(t)
	f.cache.Fail(errors.New("connection refused"))

	require.NoError(t, f.projector.HandlePostCreated(context.Background(), created(t, "p1", "hello")))
	require.NoError(t, f.projector.HandlePostDeleted(context.Background(), deleted(t, "p1")))
	assert.Equal(t, 0, f.repo.count())
}

func TestProjector_Handlers(t *testing.T) {
	f := newFixture(t)
	handlers := f.projector.Handlers()

	assert.Len(t, handlers, 2)
	assert.Contains(t, handlers, events.PostCreated)
	assert.Contains(t, handlers, events.PostDeleted)
}

func TestSearch_CachesResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.projector.HandlePostCreated(ctx, created(t, "p1", "hello gophers")))

	for i := 0; i < 3; i++ {
		_, err := f.search.Search(ctx, "  gophers ")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.repo.searchCalls)
	assert.InDelta(t, time.Hour.Seconds(), f.cache.TTL("search:gophers").Seconds(), 1)
}

func TestSearch_LimitsResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		require.NoError(t, f.projector.HandlePostCreated(ctx, created(t, fmt.Sprintf("p%02d", i), "gophers everywhere")))
	}

	results, err := f.search.Search(ctx, "gophers")
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestSearch_RejectsEmptyQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.search.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, validator.ErrValidation)
	assert.Equal(t, 0, f.repo.searchCalls)
}

func TestSearch_CacheOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.projector.HandlePostCreated(ctx, created(t, "p1", "hello gophers")))
	f.cache.Fail(errors.New("connection refused"))

	results, err := f.search.Search(ctx, "gophers")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
