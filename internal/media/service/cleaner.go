package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/media/repository"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
)

// Cleaner removes the media records a deleted post referenced.
type Cleaner struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewCleaner(repo repository.Repository, logger *zap.Logger) *Cleaner {
	return &Cleaner{repo: repo, logger: logger}
}

func (c *Cleaner) HandlePostDeleted(ctx context.Context, env events.Envelope) error {
	var payload events.PostDeletedPayload
	if err := env.Bind(&payload); err != nil {
		return err
	}

	if len(payload.MediaIDs) == 0 {
		c.logger.Debug("Deleted post had no media", zap.String("post_id", payload.PostID))
		return nil
	}

	deleted, err := c.repo.DeleteByIDs(ctx, payload.MediaIDs)
	if err != nil {
		return fmt.Errorf("failed to delete media for post %s: %w", payload.PostID, err)
	}

	if len(deleted) < len(payload.MediaIDs) {
		// Already removed by an earlier delivery, or never uploaded.
		c.logger.Warn("Some media for deleted post were not found",
			zap.String("post_id", payload.PostID),
			zap.Int("requested", len(payload.MediaIDs)),
			zap.Int("deleted", len(deleted)))
	}

	for _, m := range deleted {
		c.logger.Info("Media deleted",
			zap.String("media_id", m.ID),
			zap.String("public_id", m.PublicID),
			zap.String("post_id", payload.PostID))
	}

	return nil
}
