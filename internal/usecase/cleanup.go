package usecase

import (
	"context"
	"log/slog"
	"time"

	"MediaTrends/internal/config"
	"MediaTrends/internal/ports"
)

// Cleanup enforces the retention windows: old articles and old delivery
// markers are dropped on a daily cadence.
type Cleanup struct {
	articles   ports.ArticleRepository
	deliveries ports.DeliveryRepository
	logger     *slog.Logger

	articleRetention  time.Duration
	deliveryRetention time.Duration
}

// NewCleanup builds the retention stage from the configured day counts.
func NewCleanup(
	articles ports.ArticleRepository,
	deliveries ports.DeliveryRepository,
	cfg config.PipelineConfig,
	logger *slog.Logger,
) *Cleanup {
	articleDays := cfg.ArticleRetentionDays
	if articleDays <= 0 {
		articleDays = 365
	}
	deliveryDays := cfg.DeliveryRetentionDays
	if deliveryDays <= 0 {
		deliveryDays = 90
	}
	return &Cleanup{
		articles:          articles,
		deliveries:        deliveries,
		logger:            logger,
		articleRetention:  time.Duration(articleDays) * 24 * time.Hour,
		deliveryRetention: time.Duration(deliveryDays) * 24 * time.Hour,
	}
}

// Run deletes expired rows. Delivery markers are removed first so article
// deletion never races their foreign keys.
func (c *Cleanup) Run(ctx context.Context, now time.Time) error {
	deliveries, err := c.deliveries.DeleteOlderThan(ctx, now.Add(-c.deliveryRetention))
	if err != nil {
		return err
	}
	articles, err := c.articles.DeleteOlderThan(ctx, now.Add(-c.articleRetention))
	if err != nil {
		return err
	}
	c.logger.Info("retention cleanup", "articles", articles, "deliveries", deliveries)
	return nil
}
