package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/search/domain"
	"github.com/umanagarjuna/go-social-feed/internal/search/repository"
	"github.com/umanagarjuna/go-social-feed/pkg/cache"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
)

// Projector keeps search_posts in step with post events and purges cached
// search results after every change. Handlers are safe to run again for the
// same event.
type Projector struct {
	repo   repository.Repository
	policy *cache.Policy
	logger *zap.Logger
}

func NewProjector(repo repository.Repository, cacheClient cache.Client, logger *zap.Logger, recorder metrics.Recorder) *Projector {
	return &Projector{
		repo:   repo,
		policy: cache.NewPolicy(cacheClient, Namespace, logger, recorder),
		logger: logger,
	}
}

// Handlers maps each consumed event type to its handler.
func (p *Projector) Handlers() map[events.EventType]events.Handler {
	return map[events.EventType]events.Handler{
		events.PostCreated: p.HandlePostCreated,
		events.PostDeleted: p.HandlePostDeleted,
	}
}

func (p *Projector) HandlePostCreated(ctx context.Context, env events.Envelope) error {
	var payload events.PostCreatedPayload
	if err := env.Bind(&payload); err != nil {
		return err
	}
	if payload.PostID == "" {
		return fmt.Errorf("post created event %s has no post_id", env.EventID)
	}

	err := p.repo.Insert(ctx, &domain.SearchPost{
		PostID:    payload.PostID,
		UserID:    payload.UserID,
		Content:   payload.Content,
		CreatedAt: payload.CreatedAt,
	})
	switch {
	case errors.Is(err, domain.ErrProjectionDeleted):
		p.logger.Info("Skipping projection for deleted post",
			zap.String("post_id", payload.PostID), zap.String("event_id", env.EventID))
		return nil
	case errors.Is(err, domain.ErrProjectionExists):
		// Redelivery. Still purge: the earlier attempt may have stopped
		// before invalidating.
		p.logger.Info("Search projection already exists",
			zap.String("post_id", payload.PostID), zap.String("event_id", env.EventID))
	case err != nil:
		return fmt.Errorf("failed to project post %s: %w", payload.PostID, err)
	}

	p.policy.Invalidate(ctx, payload.PostID)
	return nil
}

func (p *Projector) HandlePostDeleted(ctx context.Context, env events.Envelope) error {
	var payload events.PostDeletedPayload
	if err := env.Bind(&payload); err != nil {
		return err
	}
	if payload.PostID == "" {
		return fmt.Errorf("post deleted event %s has no post_id", env.EventID)
	}

	err := p.repo.DeleteByPostID(ctx, payload.PostID)
	switch {
	case errors.Is(err, domain.ErrProjectionNotFound):
		p.logger.Warn("Search projection not found for deleted post",
			zap.String("post_id", payload.PostID), zap.String("event_id", env.EventID))
		return nil
	case err != nil:
		return fmt.Errorf("failed to remove projection for post %s: %w", payload.PostID, err)
	}

	p.policy.Invalidate(ctx, payload.PostID)
	return nil
}
