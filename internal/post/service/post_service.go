package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/post/domain"
	"github.com/umanagarjuna/go-social-feed/internal/post/repository"
	"github.com/umanagarjuna/go-social-feed/pkg/cache"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
	"github.com/umanagarjuna/go-social-feed/pkg/validator"
)

// Namespace is the post service's slice of the shared cache.
var Namespace = cache.Namespace{
	Name:             "posts",
	EntityPrefix:     "post:",
	CollectionPrefix: "posts:",
}

type Config struct {
	EntityTTL     time.Duration
	CollectionTTL time.Duration
}

type PostService struct {
	repo          repository.Repository
	reads         *cache.ReadThrough
	policy        *cache.Policy
	validator     validator.PostValidator
	publisher     events.Publisher
	logger        *zap.Logger
	entityTTL     time.Duration
	collectionTTL time.Duration
}

func NewPostService(
	repo repository.Repository,
	cacheClient cache.Client,
	validator validator.PostValidator,
	publisher events.Publisher,
	logger *zap.Logger,
	recorder metrics.Recorder,
	config Config,
) *PostService {
	return &PostService{
		repo:          repo,
		reads:         cache.NewReadThrough(cacheClient, Namespace, logger, recorder),
		policy:        cache.NewPolicy(cacheClient, Namespace, logger, recorder),
		validator:     validator,
		publisher:     publisher,
		logger:        logger,
		entityTTL:     config.EntityTTL,
		collectionTTL: config.CollectionTTL,
	}
}

// CreatePost stores the post, announces it and purges the views it makes
// stale, in that order. Once the row is committed the call succeeds even if
// the bus or the cache is down.
func (s *PostService) CreatePost(ctx context.Context, req *domain.CreatePostRequest) (*domain.Post, error) {
	if err := s.validator.ValidateContent(req.Content); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateMediaIDs(req.MediaIDs); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", validator.ErrValidation)
	}

	post := &domain.Post{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		Content:  strings.TrimSpace(req.Content),
		MediaIDs: pq.StringArray(req.MediaIDs),
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	// The row is committed; finish the follow-up work even if the client
	// goes away.
	ctx = context.WithoutCancel(ctx)

	payload := events.PostCreatedPayload{
		PostID:    post.ID,
		UserID:    post.UserID,
		Content:   post.Content,
		MediaIDs:  []string(post.MediaIDs),
		CreatedAt: post.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.PostCreated, post.ID, payload); err != nil {
		s.logger.Error("Failed to publish post created event",
			zap.Error(err), zap.String("post_id", post.ID))
	}

	s.policy.Invalidate(ctx, post.ID)

	s.logger.Info("Post created",
		zap.String("post_id", post.ID), zap.String("user_id", post.UserID))

	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrPostNotFound
	}

	post, err := cache.Fetch(ctx, s.reads, Namespace.EntityKey(id), s.entityTTL,
		func(ctx context.Context) (*domain.Post, error) {
			return s.repo.FindByID(ctx, id)
		})
	if err != nil {
		return nil, err
	}

	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, page, limit int) (*domain.PostPage, error) {
	page, limit = domain.NormalizePaging(page, limit)
	key := Namespace.CollectionKey(strconv.Itoa(page), strconv.Itoa(limit))

	return cache.Fetch(ctx, s.reads, key, s.collectionTTL,
		func(ctx context.Context) (*domain.PostPage, error) {
			posts, err := s.repo.FindPage(ctx, (page-1)*limit, limit)
			if err != nil {
				return nil, err
			}

			total, err := s.repo.Count(ctx)
			if err != nil {
				return nil, err
			}

			return &domain.PostPage{
				Posts:       posts,
				CurrentPage: page,
				TotalPages:  domain.TotalPages(total, limit),
				TotalPosts:  total,
			}, nil
		})
}

// DeletePost removes a post owned by userID. Posts that do not exist and
// posts owned by someone else both report ErrPostNotFound.
func (s *PostService) DeletePost(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrPostNotFound
	}

	post, err := s.repo.DeleteByOwner(ctx, id, userID)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)

	payload := events.PostDeletedPayload{
		PostID:    post.ID,
		UserID:    post.UserID,
		MediaIDs:  []string(post.MediaIDs),
		DeletedAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, events.PostDeleted, post.ID, payload); err != nil {
		s.logger.Error("Failed to publish post deleted event",
			zap.Error(err), zap.String("post_id", post.ID))
	}

	s.policy.Invalidate(ctx, post.ID)

	s.logger.Info("Post deleted",
		zap.String("post_id", post.ID), zap.String("user_id", post.UserID))

	return nil
}
