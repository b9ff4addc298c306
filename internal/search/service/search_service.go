package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/search/domain"
	"github.com/umanagarjuna/go-social-feed/internal/search/repository"
	"github.com/umanagarjuna/go-social-feed/pkg/cache"
	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
	"github.com/umanagarjuna/go-social-feed/pkg/validator"
)

// Namespace holds cached search results. There is no per-entity key: any
// projection change can alter any query's result.
var Namespace = cache.Namespace{
	Name:             "search",
	CollectionPrefix: "search:",
}

type SearchService struct {
	repo      repository.Repository
	reads     *cache.ReadThrough
	validator validator.PostValidator
	queryTTL  time.Duration
}

func NewSearchService(
	repo repository.Repository,
	cacheClient cache.Client,
	validator validator.PostValidator,
	logger *zap.Logger,
	recorder metrics.Recorder,
	queryTTL time.Duration,
) *SearchService {
	return &SearchService{
		repo:      repo,
		reads:     cache.NewReadThrough(cacheClient, Namespace, logger, recorder),
		validator: validator,
		queryTTL:  queryTTL,
	}
}

// Search returns the best matches for query, at most DefaultResultLimit.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.SearchPost, error) {
	if err := s.validator.ValidateQuery(query); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)

	return cache.Fetch(ctx, s.reads, Namespace.CollectionKey(query), s.queryTTL,
		func(ctx context.Context) ([]domain.SearchPost, error) {
			return s.repo.Search(ctx, query, domain.DefaultResultLimit)
		})
}
