package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"MediaTrends/internal/config"
	"MediaTrends/internal/domain"
	"MediaTrends/internal/match"
	"MediaTrends/internal/metrics"
	"MediaTrends/internal/ports"
)

// newSubscriptionLookback bounds the catch-up window when a fresh keyword
// is matched against the backlog of already-admitted articles.
const newSubscriptionLookback = 7 * 24 * time.Hour

// Notifier matches recent articles against subscriptions and delivers the
// results at most once per (owner, article) pair.
type Notifier struct {
	subscriptions ports.SubscriptionRepository
	articles      ports.ArticleRepository
	deliveries    ports.DeliveryRepository
	engine        *match.Engine
	messenger     ports.Messenger
	logger        *slog.Logger

	sendAttempts int
	lookback     time.Duration
	stats        *metrics.Metrics
}

// NewNotifier builds the match-and-notify stage.
func NewNotifier(
	subscriptions ports.SubscriptionRepository,
	articles ports.ArticleRepository,
	deliveries ports.DeliveryRepository,
	engine *match.Engine,
	messenger ports.Messenger,
	cfg config.PipelineConfig,
	logger *slog.Logger,
) *Notifier {
	attempts := cfg.SendAttempts
	if attempts <= 0 {
		attempts = 3
	}
	lookback := cfg.MatchLookback.Std()
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Notifier{
		subscriptions: subscriptions,
		articles:      articles,
		deliveries:    deliveries,
		engine:        engine,
		messenger:     messenger,
		logger:        logger,
		sendAttempts:  attempts,
		lookback:      lookback,
	}
}

// Instrument attaches pipeline counters.
func (n *Notifier) Instrument(m *metrics.Metrics) {
	n.stats = m
}

// Run matches every article admitted within the lookback window against
// every subscription. Already-delivered pairs short-circuit before any
// matching work.
func (n *Notifier) Run(ctx context.Context, now time.Time) error {
	subs, err := n.subscriptions.List(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	articles, err := n.articles.ListSince(ctx, now.Add(-n.lookback))
	if err != nil {
		return fmt.Errorf("list recent articles: %w", err)
	}

	var sent, duplicates, failures int
	for _, article := range articles {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, res := range n.engine.Match(article, subs) {
			outcome := n.Deliver(ctx, article, res)
			switch outcome.Status {
			case domain.DeliverySent:
				sent++
			case domain.DeliveryDuplicate:
				duplicates++
			case domain.DeliveryFailed:
				failures++
				n.logger.Warn("delivery failed", "owner", res.OwnerID, "article", article.ID, "error", outcome.Err)
			}
		}
	}

	n.logger.Info("match pass complete", "articles", len(articles), "subscriptions", len(subs),
		"sent", sent, "duplicates", duplicates, "failures", failures)
	return nil
}

// MatchArticle evaluates a single freshly admitted article against all
// subscriptions. Used by the ingestion hook for immediate notification.
func (n *Notifier) MatchArticle(ctx context.Context, article domain.Article) {
	subs, err := n.subscriptions.List(ctx)
	if err != nil {
		n.logger.Error("cannot list subscriptions for immediate match", "error", err)
		return
	}
	for _, res := range n.engine.Match(article, subs) {
		outcome := n.Deliver(ctx, article, res)
		if outcome.Status == domain.DeliveryFailed {
			n.logger.Warn("immediate delivery failed", "owner", res.OwnerID, "article", article.ID, "error", outcome.Err)
		}
	}
}

// MatchSubscription evaluates one subscription against the recent article
// backlog. Used when a keyword is created or its aliases change, so the
// subscriber does not wait for fresh articles to see results.
func (n *Notifier) MatchSubscription(ctx context.Context, sub domain.KeywordSubscription) error {
	articles, err := n.articles.ListSince(ctx, time.Now().Add(-newSubscriptionLookback))
	if err != nil {
		return fmt.Errorf("list backlog articles: %w", err)
	}

	subs := []domain.KeywordSubscription{sub}
	for _, article := range articles {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, res := range n.engine.Match(article, subs) {
			n.Deliver(ctx, article, res)
		}
	}
	return nil
}

// Deliver sends one match result and records the delivery marker. The
// Exists check is an optimization; the storage unique constraint is the
// real at-most-once guarantee, so a concurrent Record conflict also comes
// back as a duplicate. A transport failure after retries leaves no marker,
// so the pair is retried on the next pass.
func (n *Notifier) Deliver(ctx context.Context, article domain.Article, res domain.MatchResult) domain.DeliveryOutcome {
	outcome := n.deliver(ctx, article, res)
	if n.stats != nil {
		switch outcome.Status {
		case domain.DeliverySent:
			n.stats.IncSent()
		case domain.DeliveryDuplicate:
			n.stats.IncDuplicate()
		case domain.DeliveryFailed:
			n.stats.IncSendFailure()
		}
	}
	return outcome
}

func (n *Notifier) deliver(ctx context.Context, article domain.Article, res domain.MatchResult) domain.DeliveryOutcome {
	exists, err := n.deliveries.Exists(ctx, res.OwnerID, article.ID)
	if err != nil {
		return domain.DeliveryOutcome{Status: domain.DeliveryFailed, Err: fmt.Errorf("check delivery: %w", err)}
	}
	if exists {
		return domain.DeliveryOutcome{Status: domain.DeliveryDuplicate}
	}

	text := formatNotification(article, res)
	err = retry.Do(
		func() error {
			return n.messenger.SendMessage(ctx, res.OwnerID, text)
		},
		retry.Attempts(uint(n.sendAttempts)),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			n.logger.Warn("send retry", "owner", res.OwnerID, "attempt", attempt+1, "error", err)
		}),
	)
	if err != nil {
		return domain.DeliveryOutcome{Status: domain.DeliveryFailed, Err: err}
	}

	record := domain.DeliveryRecord{
		OwnerID:   res.OwnerID,
		ArticleID: article.ID,
		Keyword:   res.Keyword,
		Score:     res.Tier.Confidence(),
		SentAt:    time.Now().UTC(),
	}
	if err := n.deliveries.Record(ctx, record); err != nil {
		if errors.Is(err, ports.ErrDuplicateDelivery) {
			return domain.DeliveryOutcome{Status: domain.DeliveryDuplicate}
		}
		return domain.DeliveryOutcome{Status: domain.DeliveryFailed, Err: fmt.Errorf("record delivery: %w", err)}
	}

	n.logger.Info("notification sent", "owner", res.OwnerID, "article", article.ID,
		"keyword", res.Keyword, "tier", string(res.Tier))
	return domain.DeliveryOutcome{Status: domain.DeliverySent}
}

// formatNotification renders the HTML message sent to the subscriber.
func formatNotification(article domain.Article, res domain.MatchResult) string {
	title := html.EscapeString(article.Title)
	keyword := html.EscapeString(res.Keyword)
	evidence := html.EscapeString(res.Evidence)

	msg := fmt.Sprintf("🔔 <b>%s</b>\n\n<b>%s</b>\n\n%s\n\n📊 Similarity: <b>%.0f%%</b>\n\n%s",
		keyword, title, evidence, res.Tier.Confidence()*100, article.ArticleLink)
	if article.Category != "" {
		msg += "\n#" + html.EscapeString(article.Category)
	}
	return msg
}
