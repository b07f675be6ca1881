package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"MediaTrends/internal/domain"
	"MediaTrends/internal/ports"
)

// ErrEmptyKeyword rejects blank subscription requests before they reach
// storage.
var ErrEmptyKeyword = errors.New("keyword must not be empty")

// Subscriptions handles the user-facing keyword lifecycle: tracking,
// untracking, and listing. Alias expansion runs asynchronously on its own
// cadence; a fresh subscription starts with an empty alias set.
type Subscriptions struct {
	repo     ports.SubscriptionRepository
	notifier *Notifier
	logger   *slog.Logger
}

// NewSubscriptions builds the subscription service.
func NewSubscriptions(repo ports.SubscriptionRepository, notifier *Notifier, logger *slog.Logger) *Subscriptions {
	return &Subscriptions{repo: repo, notifier: notifier, logger: logger}
}

// Track creates a subscription and immediately matches the bare keyword
// against the recent backlog, so the subscriber sees results before the
// alias set is generated. Duplicate keywords surface as
// ports.ErrDuplicateSubscription.
func (s *Subscriptions) Track(ctx context.Context, ownerID int64, keyword string) (domain.KeywordSubscription, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return domain.KeywordSubscription{}, ErrEmptyKeyword
	}

	sub, err := s.repo.Create(ctx, ownerID, keyword)
	if err != nil {
		return domain.KeywordSubscription{}, err
	}
	s.logger.Info("keyword tracked", "owner", ownerID, "keyword", keyword)

	if s.notifier != nil {
		if err := s.notifier.MatchSubscription(ctx, sub); err != nil {
			s.logger.Warn("initial backlog match failed", "keyword", keyword, "error", err)
		}
	}
	return sub, nil
}

// Untrack removes a subscription by its natural key.
func (s *Subscriptions) Untrack(ctx context.Context, ownerID int64, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ErrEmptyKeyword
	}
	if err := s.repo.Delete(ctx, ownerID, keyword); err != nil {
		return fmt.Errorf("untrack %q: %w", keyword, err)
	}
	s.logger.Info("keyword untracked", "owner", ownerID, "keyword", keyword)
	return nil
}

// List returns the owner's subscriptions.
func (s *Subscriptions) List(ctx context.Context, ownerID int64) ([]domain.KeywordSubscription, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	var out []domain.KeywordSubscription
	for _, sub := range all {
		if sub.OwnerID == ownerID {
			out = append(out, sub)
		}
	}
	return out, nil
}
