// Package usecase wires the pipeline stages: source ingestion, alias
// expansion, match-and-notify, and retention cleanup. Stages are
// independent; each runs on its own cadence and shares only the database.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/codeGROOVE-dev/retry"

	"MediaTrends/internal/config"
	"MediaTrends/internal/domain"
	"MediaTrends/internal/metrics"
	"MediaTrends/internal/normalize"
	"MediaTrends/internal/ports"
	"MediaTrends/internal/worker"
)

// Ingestor fetches due sources, discovers article links on their
// homepages, extracts and normalizes each article, and admits the result.
type Ingestor struct {
	sources    ports.SourceRepository
	articles   ports.ArticleRepository
	extractor  ports.Extractor
	normalizer *normalize.Normalizer
	pool       *worker.Pool
	logger     *slog.Logger

	maxPerFetch   int
	fetchAttempts int
	fetchTimeout  time.Duration
	stats         *metrics.Metrics

	// onAdmitted fires for every newly admitted article, letting the
	// notifier match it immediately instead of waiting for the next
	// match tick.
	onAdmitted func(ctx context.Context, article domain.Article)
}

// NewIngestor builds the ingestion stage.
func NewIngestor(
	sources ports.SourceRepository,
	articles ports.ArticleRepository,
	extractor ports.Extractor,
	normalizer *normalize.Normalizer,
	pool *worker.Pool,
	extractorCfg config.ExtractorConfig,
	pipelineCfg config.PipelineConfig,
	logger *slog.Logger,
) *Ingestor {
	maxPerFetch := extractorCfg.MaxArticlesPerFetch
	if maxPerFetch <= 0 {
		maxPerFetch = 20
	}
	attempts := pipelineCfg.FetchAttempts
	if attempts <= 0 {
		attempts = 3
	}
	timeout := pipelineCfg.FetchTimeout.Std()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Ingestor{
		sources:       sources,
		articles:      articles,
		extractor:     extractor,
		normalizer:    normalizer,
		pool:          pool,
		logger:        logger,
		maxPerFetch:   maxPerFetch,
		fetchAttempts: attempts,
		fetchTimeout:  timeout,
	}
}

// OnAdmitted registers the immediate-match hook. Must be called before the
// scheduler starts.
func (in *Ingestor) OnAdmitted(fn func(ctx context.Context, article domain.Article)) {
	in.onAdmitted = fn
}

// Instrument attaches pipeline counters.
func (in *Ingestor) Instrument(m *metrics.Metrics) {
	in.stats = m
}

// DispatchDue enqueues a fetch task for every source whose interval has
// elapsed. Each source runs as its own pool task so one slow or broken
// site never delays the rest.
func (in *Ingestor) DispatchDue(ctx context.Context, now time.Time) error {
	sources, err := in.sources.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sources: %w", err)
	}

	dispatched := 0
	for _, src := range sources {
		if !src.Due(now) {
			continue
		}
		src := src
		if in.pool.Submit(func(taskCtx context.Context) {
			if err := in.FetchSource(taskCtx, src); err != nil {
				in.logger.Error("source fetch failed", "source", src.Name, "error", err)
			}
		}) {
			dispatched++
		}
	}
	in.logger.Info("fetch dispatch", "sources", len(sources), "due", dispatched)
	return nil
}

// markTimeout bounds the scheduling-state writes that run after the fetch
// deadline is already spent.
const markTimeout = 10 * time.Second

// bookkeepingContext derives a short-lived context that survives the fetch
// deadline. A fetch that timed out still has to write its failure marker,
// or the source comes due again on every tick.
func bookkeepingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
}

// FetchSource runs one full fetch cycle for a source: homepage discovery,
// per-article extraction and admission, and scheduling-state bookkeeping.
// Individual article failures are logged and skipped; only a homepage-level
// failure marks the source failed.
func (in *Ingestor) FetchSource(ctx context.Context, src domain.Source) error {
	fetchCtx, cancel := context.WithTimeout(ctx, in.fetchTimeout)
	defer cancel()

	started := time.Now()

	links, err := in.discoverLinks(fetchCtx, src)
	if err != nil {
		if in.stats != nil {
			in.stats.IncFetchFailure(err.Error())
		}
		markCtx, cancelMark := bookkeepingContext(ctx)
		defer cancelMark()
		if markErr := in.sources.MarkFailed(markCtx, src.ID, started, err.Error()); markErr != nil {
			in.logger.Error("cannot mark source failed", "source", src.Name, "error", markErr)
		}
		return fmt.Errorf("discover links for %s: %w", src.Name, err)
	}

	var admitted int64
	for _, link := range links {
		if fetchCtx.Err() != nil {
			break
		}
		article, ok := in.processArticle(fetchCtx, src, link)
		if !ok {
			continue
		}
		admitted++
		if in.onAdmitted != nil {
			in.onAdmitted(fetchCtx, article)
		}
	}

	if in.stats != nil {
		in.stats.AddAdmitted(admitted)
		in.stats.AddSkipped(int64(len(links)) - admitted)
	}
	markCtx, cancelMark := bookkeepingContext(ctx)
	defer cancelMark()
	if err := in.sources.MarkFetched(markCtx, src.ID, started, admitted); err != nil {
		return fmt.Errorf("mark source %s fetched: %w", src.Name, err)
	}
	in.logger.Info("source fetched", "source", src.Name, "links", len(links), "admitted", admitted)
	return nil
}

// discoverLinks renders the source homepage as markdown and extracts
// candidate article links, retrying transient extraction failures.
func (in *Ingestor) discoverLinks(ctx context.Context, src domain.Source) ([]string, error) {
	var home domain.RawDocument
	err := retry.Do(
		func() error {
			var err error
			home, err = in.extractor.Extract(ctx, src.URL, ports.ModeRaw)
			return err
		},
		retry.Attempts(uint(in.fetchAttempts)),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			in.logger.Warn("homepage fetch retry", "source", src.Name, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return normalize.ArticleLinks(home.Body, src.URL, in.maxPerFetch), nil
}

// processArticle extracts, normalizes, and admits one article URL. The
// structured mode is tried first; an error or an unusably short body falls
// back to the raw markdown rendering.
func (in *Ingestor) processArticle(ctx context.Context, src domain.Source, link string) (domain.Article, bool) {
	doc, err := in.extractor.Extract(ctx, link, ports.ModeStructured)
	if err != nil || utf8.RuneCountInString(doc.Body) < normalize.MinContentRunes {
		if err != nil {
			in.logger.Debug("structured extraction failed, trying raw", "url", link, "error", err)
		}
		doc, err = in.extractor.Extract(ctx, link, ports.ModeRaw)
		if err != nil {
			in.logger.Warn("article extraction failed", "url", link, "error", err)
			return domain.Article{}, false
		}
	}

	result := in.normalizer.Normalize(doc, src.ID, link)
	if result.Skipped {
		in.logger.Debug("article skipped", "url", link, "reason", result.Reason)
		return domain.Article{}, false
	}

	article := result.Article
	created, err := in.articles.Admit(ctx, &article)
	if err != nil {
		in.logger.Warn("article admission failed", "url", link, "error", err)
		return domain.Article{}, false
	}
	if !created {
		in.logger.Debug("article already known", "url", article.CanonicalURL)
		return domain.Article{}, false
	}
	return article, true
}
