package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"MediaTrends/internal/config"
	"MediaTrends/internal/domain"
	"MediaTrends/internal/logging"
	"MediaTrends/internal/match"
	"MediaTrends/internal/ports"
)

type fakeSubscriptionRepo struct {
	subs []domain.KeywordSubscription
}

func (f *fakeSubscriptionRepo) Create(_ context.Context, ownerID int64, keyword string) (domain.KeywordSubscription, error) {
	sub := domain.KeywordSubscription{ID: int64(len(f.subs) + 1), OwnerID: ownerID, Keyword: keyword}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSubscriptionRepo) Delete(context.Context, int64, string) error { return nil }

func (f *fakeSubscriptionRepo) List(context.Context) ([]domain.KeywordSubscription, error) {
	return f.subs, nil
}

func (f *fakeSubscriptionRepo) ListWithoutAliases(context.Context) ([]domain.KeywordSubscription, error) {
	var out []domain.KeywordSubscription
	for _, s := range f.subs {
		if len(s.Aliases) == 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) ReplaceAliases(_ context.Context, id int64, aliases []string) error {
	for i := range f.subs {
		if f.subs[i].ID == id {
			f.subs[i].Aliases = aliases
		}
	}
	return nil
}

type fakeArticleRepo struct {
	articles []domain.Article
	nextID   int64
}

func (f *fakeArticleRepo) Admit(_ context.Context, article *domain.Article) (bool, error) {
	for _, a := range f.articles {
		if a.CanonicalURL == article.CanonicalURL {
			return false, nil
		}
	}
	f.nextID++
	article.ID = f.nextID
	article.CreatedAt = time.Now()
	f.articles = append(f.articles, *article)
	return true, nil
}

func (f *fakeArticleRepo) ListSince(_ context.Context, cutoff time.Time) ([]domain.Article, error) {
	var out []domain.Article
	for _, a := range f.articles {
		if !a.CreatedAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeArticleRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type fakeDeliveryRepo struct {
	records   map[[2]int64]domain.DeliveryRecord
	recordErr error
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{records: make(map[[2]int64]domain.DeliveryRecord)}
}

func (f *fakeDeliveryRepo) Exists(_ context.Context, ownerID, articleID int64) (bool, error) {
	_, ok := f.records[[2]int64{ownerID, articleID}]
	return ok, nil
}

func (f *fakeDeliveryRepo) Record(_ context.Context, rec domain.DeliveryRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	key := [2]int64{rec.OwnerID, rec.ArticleID}
	if _, ok := f.records[key]; ok {
		return ports.ErrDuplicateDelivery
	}
	f.records[key] = rec
	return nil
}

func (f *fakeDeliveryRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeMessenger struct {
	sent []string
	errs int
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ int64, text string) error {
	if f.errs > 0 {
		f.errs--
		return errors.New("transport error")
	}
	f.sent = append(f.sent, text)
	return nil
}

func matchableArticle(id int64, keyword string) domain.Article {
	body := "Bu gün " + keyword + " şəhərində keçirilən tədbirdə yüzlərlə sakin iştirak edib və tədbir axşama qədər davam edib."
	return domain.Article{
		ID:           id,
		SourceID:     1,
		Title:        keyword + " tədbiri barədə reportaj",
		Content:      body + "\n" + body,
		CanonicalURL: "https://example.az/nation/" + keyword,
		ArticleLink:  "https://example.az/nation/" + keyword,
		CreatedAt:    time.Now(),
	}
}

func newTestNotifier(subs *fakeSubscriptionRepo, articles *fakeArticleRepo, deliveries *fakeDeliveryRepo, messenger *fakeMessenger) *Notifier {
	cfg := config.PipelineConfig{SendAttempts: 3, MatchLookback: config.Duration(24 * time.Hour)}
	logger := logging.New("error")
	return NewNotifier(subs, articles, deliveries, match.NewEngine(nil), messenger, cfg, logger)
}

func TestNotifierDeliversOnce(t *testing.T) {
	t.Parallel()

	subs := &fakeSubscriptionRepo{subs: []domain.KeywordSubscription{{ID: 1, OwnerID: 100, Keyword: "Şəki"}}}
	articles := &fakeArticleRepo{articles: []domain.Article{matchableArticle(1, "Şəki")}, nextID: 1}
	deliveries := newFakeDeliveryRepo()
	messenger := &fakeMessenger{}
	n := newTestNotifier(subs, articles, deliveries, messenger)

	if err := n.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messenger.sent))
	}

	// Second pass over the same window must not resend.
	if err := n.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("duplicate delivery: got %d messages", len(messenger.sent))
	}
}

func TestNotifierRetriesTransientSendFailures(t *testing.T) {
	t.Parallel()

	subs := &fakeSubscriptionRepo{subs: []domain.KeywordSubscription{{ID: 1, OwnerID: 100, Keyword: "Şəki"}}}
	articles := &fakeArticleRepo{articles: []domain.Article{matchableArticle(1, "Şəki")}, nextID: 1}
	deliveries := newFakeDeliveryRepo()
	messenger := &fakeMessenger{errs: 2}
	n := newTestNotifier(subs, articles, deliveries, messenger)

	outcome := n.Deliver(context.Background(), articles.articles[0], domain.MatchResult{
		OwnerID: 100, Keyword: "Şəki", Tier: domain.TierHeading, Evidence: "Şəki tədbiri",
	})
	if outcome.Status != domain.DeliverySent {
		t.Fatalf("expected sent after retries, got %s (%v)", outcome.Status, outcome.Err)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(messenger.sent))
	}
}

func TestNotifierFailedSendLeavesNoRecord(t *testing.T) {
	t.Parallel()

	subs := &fakeSubscriptionRepo{subs: []domain.KeywordSubscription{{ID: 1, OwnerID: 100, Keyword: "Şəki"}}}
	articles := &fakeArticleRepo{articles: []domain.Article{matchableArticle(1, "Şəki")}, nextID: 1}
	deliveries := newFakeDeliveryRepo()
	messenger := &fakeMessenger{errs: 10}
	n := newTestNotifier(subs, articles, deliveries, messenger)

	outcome := n.Deliver(context.Background(), articles.articles[0], domain.MatchResult{
		OwnerID: 100, Keyword: "Şəki", Tier: domain.TierHeading,
	})
	if outcome.Status != domain.DeliveryFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}
	if len(deliveries.records) != 0 {
		t.Fatalf("failed delivery must leave no marker")
	}
}

func TestNotifierRecordRaceIsDuplicate(t *testing.T) {
	t.Parallel()

	subs := &fakeSubscriptionRepo{subs: []domain.KeywordSubscription{{ID: 1, OwnerID: 100, Keyword: "Şəki"}}}
	articles := &fakeArticleRepo{articles: []domain.Article{matchableArticle(1, "Şəki")}, nextID: 1}
	deliveries := newFakeDeliveryRepo()
	deliveries.recordErr = ports.ErrDuplicateDelivery
	messenger := &fakeMessenger{}
	n := newTestNotifier(subs, articles, deliveries, messenger)

	outcome := n.Deliver(context.Background(), articles.articles[0], domain.MatchResult{
		OwnerID: 100, Keyword: "Şəki", Tier: domain.TierHeading,
	})
	if outcome.Status != domain.DeliveryDuplicate {
		t.Fatalf("expected duplicate outcome on record conflict, got %s", outcome.Status)
	}
}

func TestNotificationCarriesConfidence(t *testing.T) {
	t.Parallel()

	article := matchableArticle(1, "Şəki")

	heading := formatNotification(article, domain.MatchResult{
		OwnerID: 100, Keyword: "Şəki", Tier: domain.TierHeading, Evidence: "Şəki tədbiri",
	})
	if !strings.Contains(heading, "Similarity: <b>100%</b>") {
		t.Fatalf("heading notification must carry the confidence: %q", heading)
	}

	body := formatNotification(article, domain.MatchResult{
		OwnerID: 100, Keyword: "Şəki", Tier: domain.TierBody, Evidence: "Şəki tədbiri",
	})
	if !strings.Contains(body, "Similarity: <b>95%</b>") {
		t.Fatalf("body notification must carry the confidence: %q", body)
	}
}

func TestNotifierMatchSubscriptionCoversBacklog(t *testing.T) {
	t.Parallel()

	subs := &fakeSubscriptionRepo{}
	articles := &fakeArticleRepo{articles: []domain.Article{matchableArticle(1, "Şəki")}, nextID: 1}
	deliveries := newFakeDeliveryRepo()
	messenger := &fakeMessenger{}
	n := newTestNotifier(subs, articles, deliveries, messenger)

	sub := domain.KeywordSubscription{ID: 5, OwnerID: 700, Keyword: "Şəki"}
	if err := n.MatchSubscription(context.Background(), sub); err != nil {
		t.Fatalf("MatchSubscription error: %v", err)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("expected backlog delivery, got %d messages", len(messenger.sent))
	}
}
