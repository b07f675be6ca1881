package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"MediaTrends/internal/config"
	"MediaTrends/internal/domain"
	"MediaTrends/internal/logging"
	"MediaTrends/internal/normalize"
	"MediaTrends/internal/ports"
	"MediaTrends/internal/worker"
)

type fakeSourceRepo struct {
	mu      sync.Mutex
	sources []domain.Source
	fetched map[int64]int64
	failed  map[int64]string
}

func newFakeSourceRepo(sources ...domain.Source) *fakeSourceRepo {
	return &fakeSourceRepo{
		sources: sources,
		fetched: make(map[int64]int64),
		failed:  make(map[int64]string),
	}
}

func (f *fakeSourceRepo) ListActive(context.Context) ([]domain.Source, error) {
	return f.sources, nil
}

func (f *fakeSourceRepo) MarkFetched(_ context.Context, id int64, _ time.Time, newArticles int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched[id] = newArticles
	return nil
}

func (f *fakeSourceRepo) MarkFailed(_ context.Context, id int64, _ time.Time, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = errMsg
	return nil
}

type scriptedExtractor struct {
	raw        map[string]domain.RawDocument
	structured map[string]domain.RawDocument
	err        error
}

func (s *scriptedExtractor) Extract(_ context.Context, url string, mode ports.ExtractMode) (domain.RawDocument, error) {
	if s.err != nil {
		return domain.RawDocument{}, s.err
	}
	docs := s.structured
	if mode == ports.ModeRaw {
		docs = s.raw
	}
	doc, ok := docs[url]
	if !ok {
		return domain.RawDocument{}, errors.New("no document scripted for " + url)
	}
	return doc, nil
}

const testArticleBody = `Bu gün Bakıda keçirilən beynəlxalq konfransda regionun enerji təhlükəsizliyi məsələləri geniş müzakirə olunub.
Konfransda çıxış edən nümayəndələr əməkdaşlığın genişləndirilməsinin vacibliyini xüsusi vurğulayıblar.`

func newTestIngestor(sources *fakeSourceRepo, articles *fakeArticleRepo, ext ports.Extractor) *Ingestor {
	logger := logging.New("error")
	return NewIngestor(
		sources, articles, ext, normalize.New(nil), nil,
		config.ExtractorConfig{MaxArticlesPerFetch: 20},
		config.PipelineConfig{FetchAttempts: 1, FetchTimeout: config.Duration(5 * time.Second)},
		logger,
	)
}

func TestFetchSourceAdmitsDiscoveredArticles(t *testing.T) {
	t.Parallel()

	homepage := strings.Join([]string{
		"[Konfrans keçirildi](https://example.az/nation/254198.html)",
		"[Siyasət](https://example.az/nation/)",
	}, "\n")

	ext := &scriptedExtractor{
		raw: map[string]domain.RawDocument{
			"https://example.az/": {Body: homepage},
		},
		structured: map[string]domain.RawDocument{
			"https://example.az/nation/254198.html": {
				Title:       "Konfrans keçirildi",
				Body:        testArticleBody,
				ResolvedURL: "https://example.az/nation/254198.html",
			},
		},
	}

	sources := newFakeSourceRepo()
	articles := &fakeArticleRepo{}
	in := newTestIngestor(sources, articles, ext)

	var admitted []domain.Article
	in.OnAdmitted(func(_ context.Context, a domain.Article) {
		admitted = append(admitted, a)
	})

	src := domain.Source{ID: 3, Name: "example", URL: "https://example.az/", Active: true}
	if err := in.FetchSource(context.Background(), src); err != nil {
		t.Fatalf("FetchSource error: %v", err)
	}

	if len(articles.articles) != 1 {
		t.Fatalf("expected 1 admitted article, got %d", len(articles.articles))
	}
	if articles.articles[0].Title != "Konfrans keçirildi" {
		t.Fatalf("unexpected title: %s", articles.articles[0].Title)
	}
	if got := sources.fetched[3]; got != 1 {
		t.Fatalf("expected MarkFetched with 1 article, got %d", got)
	}
	if len(admitted) != 1 {
		t.Fatalf("immediate-match hook not fired, got %d", len(admitted))
	}
}

func TestFetchSourceSkipsKnownArticles(t *testing.T) {
	t.Parallel()

	homepage := "[Konfrans keçirildi](https://example.az/nation/254198.html)"
	ext := &scriptedExtractor{
		raw: map[string]domain.RawDocument{
			"https://example.az/": {Body: homepage},
		},
		structured: map[string]domain.RawDocument{
			"https://example.az/nation/254198.html": {
				Title:       "Konfrans keçirildi",
				Body:        testArticleBody,
				ResolvedURL: "https://example.az/nation/254198.html",
			},
		},
	}

	sources := newFakeSourceRepo()
	articles := &fakeArticleRepo{}
	in := newTestIngestor(sources, articles, ext)
	src := domain.Source{ID: 3, Name: "example", URL: "https://example.az/", Active: true}

	if err := in.FetchSource(context.Background(), src); err != nil {
		t.Fatalf("first FetchSource error: %v", err)
	}
	if err := in.FetchSource(context.Background(), src); err != nil {
		t.Fatalf("second FetchSource error: %v", err)
	}

	if len(articles.articles) != 1 {
		t.Fatalf("rerun must not duplicate articles, got %d", len(articles.articles))
	}
	if got := sources.fetched[3]; got != 0 {
		t.Fatalf("second fetch should admit 0 new articles, got %d", got)
	}
}

func TestFetchSourceFallsBackToRawArticle(t *testing.T) {
	t.Parallel()

	homepage := "[Xəbər](https://example.az/nation/254198.html)"
	ext := &scriptedExtractor{
		raw: map[string]domain.RawDocument{
			"https://example.az/": {Body: homepage},
			"https://example.az/nation/254198.html": {
				Title:       "Xəbər başlığı",
				Body:        testArticleBody,
				ResolvedURL: "https://example.az/nation/254198.html",
			},
		},
		structured: map[string]domain.RawDocument{
			// Structured extraction came back empty for this page.
			"https://example.az/nation/254198.html": {Title: "Xəbər başlığı", Body: ""},
		},
	}

	sources := newFakeSourceRepo()
	articles := &fakeArticleRepo{}
	in := newTestIngestor(sources, articles, ext)
	src := domain.Source{ID: 1, Name: "example", URL: "https://example.az/", Active: true}

	if err := in.FetchSource(context.Background(), src); err != nil {
		t.Fatalf("FetchSource error: %v", err)
	}
	if len(articles.articles) != 1 {
		t.Fatalf("raw fallback should admit the article, got %d", len(articles.articles))
	}
}

// deadlineSourceRepo refuses writes on an expired context, the way a real
// database driver does.
type deadlineSourceRepo struct {
	mu      sync.Mutex
	fetched map[int64]int64
	failed  map[int64]string
}

func newDeadlineSourceRepo() *deadlineSourceRepo {
	return &deadlineSourceRepo{fetched: make(map[int64]int64), failed: make(map[int64]string)}
}

func (d *deadlineSourceRepo) ListActive(context.Context) ([]domain.Source, error) { return nil, nil }

func (d *deadlineSourceRepo) MarkFetched(ctx context.Context, id int64, _ time.Time, newArticles int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetched[id] = newArticles
	return nil
}

func (d *deadlineSourceRepo) MarkFailed(ctx context.Context, id int64, _ time.Time, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed[id] = errMsg
	return nil
}

// hangingExtractor blocks until the fetch deadline kills it.
type hangingExtractor struct{}

func (hangingExtractor) Extract(ctx context.Context, _ string, _ ports.ExtractMode) (domain.RawDocument, error) {
	<-ctx.Done()
	return domain.RawDocument{}, ctx.Err()
}

func TestFetchSourceRecordsTimeoutFailure(t *testing.T) {
	t.Parallel()

	sources := newDeadlineSourceRepo()
	logger := logging.New("error")
	in := NewIngestor(
		sources, &fakeArticleRepo{}, hangingExtractor{}, normalize.New(nil), nil,
		config.ExtractorConfig{MaxArticlesPerFetch: 20},
		config.PipelineConfig{FetchAttempts: 1, FetchTimeout: config.Duration(50 * time.Millisecond)},
		logger,
	)
	src := domain.Source{ID: 7, Name: "hung", URL: "https://hung.az/", Active: true}

	if err := in.FetchSource(context.Background(), src); err == nil {
		t.Fatalf("expected error for timed-out fetch")
	}
	// The failure marker must be written even though the fetch deadline has
	// passed, so the source waits out its interval instead of retrying on
	// every tick.
	sources.mu.Lock()
	defer sources.mu.Unlock()
	if _, ok := sources.failed[7]; !ok {
		t.Fatalf("timeout failure was not recorded")
	}
	if _, ok := sources.fetched[7]; ok {
		t.Fatalf("MarkFetched must not be called on failure")
	}
}

func TestFetchSourceMarksFailureOnHomepageError(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{err: errors.New("proxy unreachable")}
	sources := newFakeSourceRepo()
	articles := &fakeArticleRepo{}
	in := newTestIngestor(sources, articles, ext)
	src := domain.Source{ID: 9, Name: "broken", URL: "https://broken.az/", Active: true}

	if err := in.FetchSource(context.Background(), src); err == nil {
		t.Fatalf("expected error for homepage failure")
	}
	if _, ok := sources.failed[9]; !ok {
		t.Fatalf("MarkFailed not called")
	}
	if _, ok := sources.fetched[9]; ok {
		t.Fatalf("MarkFetched must not be called on failure")
	}
}

func TestDispatchDueGatesOnInterval(t *testing.T) {
	t.Parallel()

	now := time.Now()
	due := domain.Source{ID: 1, Name: "due", URL: "https://due.az/", Active: true, FetchInterval: time.Hour, LastFetched: now.Add(-2 * time.Hour)}
	fresh := domain.Source{ID: 2, Name: "fresh", URL: "https://fresh.az/", Active: true, FetchInterval: 2 * time.Hour, LastFetched: now.Add(-30 * time.Minute)}

	ext := &scriptedExtractor{
		raw: map[string]domain.RawDocument{
			"https://due.az/": {Body: "[x](https://due.az/n/1.html)"},
		},
		structured: map[string]domain.RawDocument{},
	}

	sources := newFakeSourceRepo(due, fresh)
	articles := &fakeArticleRepo{}

	pool := worker.NewPool(8, nil)
	pool.Start(context.Background(), 1)
	defer pool.Stop()

	logger := logging.New("error")
	in := NewIngestor(
		sources, articles, ext, normalize.New(nil), pool,
		config.ExtractorConfig{MaxArticlesPerFetch: 20},
		config.PipelineConfig{FetchAttempts: 1, FetchTimeout: config.Duration(5 * time.Second)},
		logger,
	)

	if err := in.DispatchDue(context.Background(), now); err != nil {
		t.Fatalf("DispatchDue error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		sources.mu.Lock()
		fetchedDue := len(sources.fetched) > 0 || len(sources.failed) > 0
		fetchedFresh := func() bool {
			_, a := sources.fetched[2]
			_, b := sources.failed[2]
			return a || b
		}()
		sources.mu.Unlock()
		if fetchedDue {
			if fetchedFresh {
				t.Fatalf("source inside its interval must not be fetched")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("due source was never fetched")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
