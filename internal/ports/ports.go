package ports

import (
	"context"
	"errors"
	"time"

	"MediaTrends/internal/domain"
)

// ExtractMode selects between the provider's structured response and the
// raw-text fallback.
type ExtractMode string

const (
	ModeStructured ExtractMode = "structured"
	ModeRaw        ExtractMode = "raw"
)

// Extractor is the content-extraction collaborator. Callers own the
// fallback from structured to raw mode when structured output is unusable.
type Extractor interface {
	Extract(ctx context.Context, url string, mode ExtractMode) (domain.RawDocument, error)
}

// Translator converts text into a target language. A per-call failure must
// not abort the surrounding batch.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Messenger delivers a formatted notification to a recipient chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// SourceRepository persists fetch sources and their scheduling state.
type SourceRepository interface {
	ListActive(ctx context.Context) ([]domain.Source, error)
	MarkFetched(ctx context.Context, id int64, at time.Time, newArticles int64) error
	MarkFailed(ctx context.Context, id int64, at time.Time, errMsg string) error
}

// ArticleRepository admits and queries normalized articles. Admit relies on
// the storage unique constraint on canonical URL; re-submitting a known URL
// reports created=false without error.
type ArticleRepository interface {
	Admit(ctx context.Context, article *domain.Article) (created bool, err error)
	ListSince(ctx context.Context, cutoff time.Time) ([]domain.Article, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubscriptionRepository persists keyword subscriptions and their alias sets.
type SubscriptionRepository interface {
	Create(ctx context.Context, ownerID int64, keyword string) (domain.KeywordSubscription, error)
	Delete(ctx context.Context, ownerID int64, keyword string) error
	List(ctx context.Context) ([]domain.KeywordSubscription, error)
	ListWithoutAliases(ctx context.Context) ([]domain.KeywordSubscription, error)
	ReplaceAliases(ctx context.Context, id int64, aliases []string) error
}

// DeliveryRepository enforces the at-most-once (owner, article) guarantee.
// Record returns ErrDuplicateDelivery when the pair already exists.
type DeliveryRepository interface {
	Exists(ctx context.Context, ownerID, articleID int64) (bool, error)
	Record(ctx context.Context, rec domain.DeliveryRecord) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrDuplicateSubscription reports a (owner, keyword) uniqueness conflict.
var ErrDuplicateSubscription = errors.New("subscription already exists")

// ErrDuplicateDelivery reports a (owner, article) uniqueness conflict; it is
// the storage-level safety net against double sends.
var ErrDuplicateDelivery = errors.New("delivery already recorded")

// Scheduler drives recurring jobs on cron expressions.
type Scheduler interface {
	Schedule(spec string, job func(time.Time)) error
	Start()
	Stop(ctx context.Context) error
}
