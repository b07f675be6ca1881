package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"MediaTrends/internal/domain"
	"MediaTrends/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// SourceRepo persists fetch sources.
type SourceRepo struct {
	db *sql.DB
}

var _ ports.SourceRepository = (*SourceRepo)(nil)

// NewSourceRepo wraps the database handle.
func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// ListActive returns every active source with its scheduling state.
func (r *SourceRepo) ListActive(ctx context.Context) ([]domain.Source, error) {
	query, args, err := psql.
		Select("id", "name", "url", "active", "fetch_interval", "last_fetched", "last_status", "last_error", "article_count", "created_at").
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			src             domain.Source
			intervalSeconds int64
			lastFetched     sql.NullTime
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Active, &intervalSeconds, &lastFetched, &src.LastStatus, &src.LastError, &src.ArticleCount, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.FetchInterval = time.Duration(intervalSeconds) * time.Second
		if lastFetched.Valid {
			src.LastFetched = lastFetched.Time
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// MarkFetched records a successful fetch and bumps the article counter.
func (r *SourceRepo) MarkFetched(ctx context.Context, id int64, at time.Time, newArticles int64) error {
	query, args, err := psql.
		Update("sources").
		Set("last_fetched", at).
		Set("last_status", string(domain.FetchSuccess)).
		Set("last_error", "").
		Set("article_count", sq.Expr("article_count + ?", newArticles)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark source %d fetched: %w", id, err)
	}
	return nil
}

// MarkFailed records a failed fetch attempt. last_fetched still advances so
// a permanently broken source does not retry on every tick.
func (r *SourceRepo) MarkFailed(ctx context.Context, id int64, at time.Time, errMsg string) error {
	query, args, err := psql.
		Update("sources").
		Set("last_fetched", at).
		Set("last_status", string(domain.FetchFailed)).
		Set("last_error", errMsg).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark source %d failed: %w", id, err)
	}
	return nil
}

// ArticleRepo persists normalized articles keyed by canonical URL.
type ArticleRepo struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*ArticleRepo)(nil)

// NewArticleRepo wraps the database handle.
func NewArticleRepo(db *sql.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

// Admit inserts the article unless its canonical URL is already known. The
// unique constraint is the single deduplication authority; a conflicting
// insert simply reports created=false.
func (r *ArticleRepo) Admit(ctx context.Context, article *domain.Article) (bool, error) {
	query, args, err := psql.
		Insert("articles").
		Columns("source_id", "title", "content", "description", "canonical_url", "article_link", "category", "publish_date", "author").
		Values(article.SourceID, article.Title, article.Content, article.Description, article.CanonicalURL, article.ArticleLink, article.Category, article.PublishDate, article.Author).
		Suffix("ON CONFLICT (canonical_url) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&article.ID, &article.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("admit article %s: %w", article.CanonicalURL, err)
	}
	return true, nil
}

// ListSince returns articles admitted at or after the cutoff, oldest first.
func (r *ArticleRepo) ListSince(ctx context.Context, cutoff time.Time) ([]domain.Article, error) {
	query, args, err := psql.
		Select("id", "source_id", "title", "content", "description", "canonical_url", "article_link", "category", "publish_date", "author", "created_at").
		From("articles").
		Where(sq.GtOrEq{"created_at": cutoff}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			a           domain.Article
			publishDate sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.SourceID, &a.Title, &a.Content, &a.Description, &a.CanonicalURL, &a.ArticleLink, &a.Category, &publishDate, &a.Author, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if publishDate.Valid {
			t := publishDate.Time
			a.PublishDate = &t
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// DeleteOlderThan removes articles admitted before the cutoff and returns
// the number deleted. Dependent delivery records cascade.
func (r *ArticleRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.
		Delete("articles").
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	return res.RowsAffected()
}

// SubscriptionRepo persists keyword subscriptions and alias sets.
type SubscriptionRepo struct {
	db *sql.DB
}

var _ ports.SubscriptionRepository = (*SubscriptionRepo)(nil)

// NewSubscriptionRepo wraps the database handle.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Create inserts a subscription with an empty alias set. A duplicate
// (owner, keyword) pair maps to ports.ErrDuplicateSubscription.
func (r *SubscriptionRepo) Create(ctx context.Context, ownerID int64, keyword string) (domain.KeywordSubscription, error) {
	query, args, err := psql.
		Insert("subscriptions").
		Columns("owner_id", "keyword").
		Values(ownerID, keyword).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return domain.KeywordSubscription{}, fmt.Errorf("build query: %w", err)
	}

	sub := domain.KeywordSubscription{OwnerID: ownerID, Keyword: keyword}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sub.ID, &sub.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.KeywordSubscription{}, ports.ErrDuplicateSubscription
		}
		return domain.KeywordSubscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// Delete removes a subscription by its natural key.
func (r *SubscriptionRepo) Delete(ctx context.Context, ownerID int64, keyword string) error {
	query, args, err := psql.
		Delete("subscriptions").
		Where(sq.Eq{"owner_id": ownerID, "keyword": keyword}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// List returns every subscription with its alias set.
func (r *SubscriptionRepo) List(ctx context.Context) ([]domain.KeywordSubscription, error) {
	return r.list(ctx, nil)
}

// ListWithoutAliases returns subscriptions whose alias sets have not been
// generated yet.
func (r *SubscriptionRepo) ListWithoutAliases(ctx context.Context) ([]domain.KeywordSubscription, error) {
	return r.list(ctx, sq.Expr("cardinality(aliases) = 0"))
}

func (r *SubscriptionRepo) list(ctx context.Context, cond sq.Sqlizer) ([]domain.KeywordSubscription, error) {
	builder := psql.
		Select("id", "owner_id", "keyword", "aliases", "created_at").
		From("subscriptions").
		OrderBy("id")
	if cond != nil {
		builder = builder.Where(cond)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.KeywordSubscription
	for rows.Next() {
		var sub domain.KeywordSubscription
		if err := rows.Scan(&sub.ID, &sub.OwnerID, &sub.Keyword, pq.Array(&sub.Aliases), &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ReplaceAliases overwrites the stored alias set atomically.
func (r *SubscriptionRepo) ReplaceAliases(ctx context.Context, id int64, aliases []string) error {
	query, args, err := psql.
		Update("subscriptions").
		Set("aliases", pq.Array(aliases)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("replace aliases for subscription %d: %w", id, err)
	}
	return nil
}

// DeliveryRepo persists the at-most-once delivery markers.
type DeliveryRepo struct {
	db *sql.DB
}

var _ ports.DeliveryRepository = (*DeliveryRepo)(nil)

// NewDeliveryRepo wraps the database handle.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// Exists reports whether the (owner, article) pair is already recorded.
func (r *DeliveryRepo) Exists(ctx context.Context, ownerID, articleID int64) (bool, error) {
	query, args, err := psql.
		Select("1").
		From("deliveries").
		Where(sq.Eq{"owner_id": ownerID, "article_id": articleID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check delivery: %w", err)
	}
	return true, nil
}

// Record inserts the delivery marker. A primary-key conflict maps to
// ports.ErrDuplicateDelivery so callers can treat the race as a duplicate
// rather than a failure.
func (r *DeliveryRepo) Record(ctx context.Context, rec domain.DeliveryRecord) error {
	query, args, err := psql.
		Insert("deliveries").
		Columns("owner_id", "article_id", "keyword", "score", "sent_at").
		Values(rec.OwnerID, rec.ArticleID, rec.Keyword, rec.Score, rec.SentAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateDelivery
		}
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// DeleteOlderThan removes delivery markers sent before the cutoff.
func (r *DeliveryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.
		Delete("deliveries").
		Where(sq.Lt{"sent_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old deliveries: %w", err)
	}
	return res.RowsAffected()
}
