// Package extractor implements the content-extraction collaborator: a
// reader-proxy client with structured and raw-markdown modes, plus a
// direct-HTML fallback for when the proxy is unreachable.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"MediaTrends/internal/config"
	"MediaTrends/internal/domain"
	"MediaTrends/internal/ports"
)

// ReaderClient talks to a Jina-style reader proxy that renders a page and
// returns either structured JSON or clean markdown, depending on the
// Accept header.
type ReaderClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ ports.Extractor = (*ReaderClient)(nil)

// NewReaderClient builds a client from configuration.
func NewReaderClient(cfg config.ExtractorConfig) *ReaderClient {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReaderClient{
		baseURL: strings.TrimSuffix(cfg.ReaderURL, "/") + "/",
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type readerResponse struct {
	Code int `json:"code"`
	Data struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"data"`
}

// Extract fetches the page through the reader proxy. Structured mode
// decodes the proxy's JSON envelope; raw mode returns the markdown
// rendering with the title lifted from the first heading.
func (c *ReaderClient) Extract(ctx context.Context, pageURL string, mode ports.ExtractMode) (domain.RawDocument, error) {
	accept := "application/json"
	if mode == ports.ModeRaw {
		accept = "text/markdown"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pageURL, nil)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "MediaTrends/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RawDocument{}, fmt.Errorf("reader returned %s for %s", resp.Status, pageURL)
	}

	if mode == ports.ModeRaw {
		return c.parseMarkdown(resp.Body, pageURL)
	}

	var decoded readerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.RawDocument{}, fmt.Errorf("decode reader response: %w", err)
	}

	resolved := strings.TrimSpace(decoded.Data.URL)
	if resolved == "" {
		resolved = pageURL
	}
	return domain.RawDocument{
		Title:       strings.TrimSpace(decoded.Data.Title),
		Body:        strings.TrimSpace(decoded.Data.Content),
		Description: strings.TrimSpace(decoded.Data.Description),
		ResolvedURL: resolved,
	}, nil
}

func (c *ReaderClient) parseMarkdown(r io.Reader, pageURL string) (domain.RawDocument, error) {
	raw, err := io.ReadAll(io.LimitReader(r, 4<<20))
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("read markdown body: %w", err)
	}

	markdown := strings.TrimSpace(string(raw))
	if utf8.RuneCountInString(markdown) < 50 {
		return domain.RawDocument{}, fmt.Errorf("reader returned unusable markdown for %s", pageURL)
	}

	return domain.RawDocument{
		Title:       markdownTitle(markdown),
		Body:        markdown,
		Description: markdownDescription(markdown),
		ResolvedURL: pageURL,
	}, nil
}

// markdownTitle returns the first H1 heading, or the first non-empty line
// when no heading exists.
func markdownTitle(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "# ") {
			return strings.TrimSpace(strings.TrimLeft(stripped, "# "))
		}
	}
	for _, line := range lines {
		if stripped := strings.TrimSpace(line); stripped != "" {
			return truncate(stripped, 200)
		}
	}
	return ""
}

// markdownDescription returns the first substantial non-heading paragraph.
func markdownDescription(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped != "" && !strings.HasPrefix(stripped, "#") && utf8.RuneCountInString(stripped) > 40 {
			return truncate(stripped, 500)
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
