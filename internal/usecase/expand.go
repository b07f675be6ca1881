package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"MediaTrends/internal/alias"
	"MediaTrends/internal/ports"
)

// AliasExpansion fills in missing alias sets for subscriptions whose
// expansion has not run yet, then matches each completed subscription
// against the recent backlog.
type AliasExpansion struct {
	subscriptions ports.SubscriptionRepository
	expander      *alias.Expander
	notifier      *Notifier
	logger        *slog.Logger
}

// NewAliasExpansion builds the alias-expansion stage.
func NewAliasExpansion(
	subscriptions ports.SubscriptionRepository,
	expander *alias.Expander,
	notifier *Notifier,
	logger *slog.Logger,
) *AliasExpansion {
	return &AliasExpansion{
		subscriptions: subscriptions,
		expander:      expander,
		notifier:      notifier,
		logger:        logger,
	}
}

// Run expands every pending subscription. A failure on one subscription is
// logged and does not stop the rest.
func (a *AliasExpansion) Run(ctx context.Context) error {
	pending, err := a.subscriptions.ListWithoutAliases(ctx)
	if err != nil {
		return fmt.Errorf("list pending subscriptions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	for _, sub := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		aliases := a.expander.Expand(ctx, sub.Keyword)
		if err := a.subscriptions.ReplaceAliases(ctx, sub.ID, aliases); err != nil {
			a.logger.Error("cannot store aliases", "subscription", sub.ID, "keyword", sub.Keyword, "error", err)
			continue
		}
		a.logger.Info("aliases expanded", "keyword", sub.Keyword, "aliases", len(aliases))

		sub.Aliases = aliases
		if a.notifier != nil {
			if err := a.notifier.MatchSubscription(ctx, sub); err != nil {
				a.logger.Warn("backlog match failed", "keyword", sub.Keyword, "error", err)
			}
		}
	}
	return nil
}
