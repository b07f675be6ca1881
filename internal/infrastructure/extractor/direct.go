package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"MediaTrends/internal/domain"
	"MediaTrends/internal/ports"
)

// contentSelectors are tried in order; the first one yielding enough
// paragraphs wins. The trailing bare "p" is the catch-all for sites with
// no recognizable article container.
var contentSelectors = []string{
	"article p",
	".article p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	".text p",
	"p",
}

var titleSelectors = []string{
	"h1",
	".article-title",
	".headline",
	".entry-title",
	"title",
}

// HTMLExtractor fetches a page directly and scrapes text with generic CSS
// selectors. It is the degraded path used when the reader proxy fails; it
// yields plain paragraphs, never markdown.
type HTMLExtractor struct {
	client *http.Client
}

var _ ports.Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor builds a direct scraper with the given timeout.
func NewHTMLExtractor(timeout time.Duration) *HTMLExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTMLExtractor{client: &http.Client{Timeout: timeout}}
}

// Extract downloads the page and pulls title, paragraphs, and the meta
// description. The mode argument is ignored: direct scraping has only one
// representation.
func (e *HTMLExtractor) Extract(ctx context.Context, pageURL string, _ ports.ExtractMode) (domain.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; MediaTrends/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RawDocument{}, fmt.Errorf("direct fetch returned %s for %s", resp.Status, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("parse html: %w", err)
	}

	body := extractParagraphs(doc)
	if utf8.RuneCountInString(body) < 50 {
		return domain.RawDocument{}, fmt.Errorf("no usable content at %s", pageURL)
	}

	return domain.RawDocument{
		Title:       extractTitle(doc),
		Body:        body,
		Description: metaDescription(doc),
		ResolvedURL: pageURL,
	}, nil
}

func extractParagraphs(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if utf8.RuneCountInString(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func metaDescription(doc *goquery.Document) string {
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	return strings.TrimSpace(desc)
}
