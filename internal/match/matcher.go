// Package match evaluates articles against keyword subscriptions using
// whole-word, junk-aware text matching over the keyword's alias set.
package match

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"MediaTrends/internal/domain"
	"MediaTrends/internal/normalize"
)

const (
	// MinArticleRunes is the content-length floor below which an article
	// carries too little signal to match at all.
	MinArticleRunes = 100

	// MinSentenceRunes is the minimum length of a line or sentence for a
	// body-tier match; shorter fragments are nav-link residue.
	MinSentenceRunes = 50

	evidenceRunes = 200
)

// foldString applies Unicode case folding. A cases.Caser is stateful, so a
// fresh one is built per call rather than shared between worker goroutines.
func foldString(s string) string {
	return cases.Fold().String(s)
}

// WholeWord reports whether needle occurs as a whole word in text.
// Comparison is Unicode case-folded; boundaries require the adjacent runes
// to be neither letters nor digits, so "Şəki" does not match inside
// "şəkil" but does match in "Şəki şəhərində".
func WholeWord(text, needle string) bool {
	fn := foldString(needle)
	if fn == "" {
		return false
	}
	ft := foldString(text)

	for offset := 0; ; {
		i := strings.Index(ft[offset:], fn)
		if i < 0 {
			return false
		}
		i += offset
		if boundaryBefore(ft, i) && boundaryAfter(ft, i+len(fn)) {
			return true
		}
		offset = i + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Engine matches articles against subscriptions and produces tiered
// results with evidence spans.
type Engine struct {
	logger *slog.Logger

	minArticleRunes  int
	minSentenceRunes int
}

// Option tweaks engine thresholds.
type Option func(*Engine)

// WithMinArticleRunes overrides the article-length floor.
func WithMinArticleRunes(n int) Option {
	return func(e *Engine) { e.minArticleRunes = n }
}

// WithMinSentenceRunes overrides the body sentence-length floor.
func WithMinSentenceRunes(n int) Option {
	return func(e *Engine) { e.minSentenceRunes = n }
}

// NewEngine builds an Engine with the default thresholds; logger may be nil.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:           logger,
		minArticleRunes:  MinArticleRunes,
		minSentenceRunes: MinSentenceRunes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match evaluates every subscription against the article. Heading matches
// are checked before body matches; a subscription yields at most one
// result. Results come back sorted by descending confidence.
func (e *Engine) Match(article domain.Article, subs []domain.KeywordSubscription) []domain.MatchResult {
	content := strings.TrimSpace(article.Content)
	if utf8.RuneCountInString(content) < e.minArticleRunes {
		e.debug("article below matching floor", "article", article.ID, "runes", utf8.RuneCountInString(content))
		return nil
	}

	title := strings.TrimSpace(article.Title)
	description := strings.TrimSpace(article.Description)

	var results []domain.MatchResult
	for _, sub := range subs {
		candidates := sub.Candidates()

		if res, ok := e.matchHeading(sub, candidates, title, description); ok {
			results = append(results, res)
			continue
		}
		if res, ok := e.matchBody(sub, candidates, content); ok {
			results = append(results, res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Tier.Confidence() > results[j].Tier.Confidence()
	})
	return results
}

func (e *Engine) matchHeading(sub domain.KeywordSubscription, candidates []string, title, description string) (domain.MatchResult, bool) {
	for _, alias := range candidates {
		inTitle := WholeWord(title, alias)
		if !inTitle && !WholeWord(description, alias) {
			continue
		}
		evidence := title
		if !inTitle {
			evidence = description
		}
		e.debug("heading match", "owner", sub.OwnerID, "keyword", sub.Keyword, "alias", alias)
		return domain.MatchResult{
			OwnerID:  sub.OwnerID,
			Keyword:  sub.Keyword,
			Tier:     domain.TierHeading,
			Evidence: truncateRunes(evidence, evidenceRunes),
		}, true
	}
	return domain.MatchResult{}, false
}

func (e *Engine) matchBody(sub domain.KeywordSubscription, candidates []string, content string) (domain.MatchResult, bool) {
	for _, alias := range candidates {
		sentence := e.findRealSentence(content, alias)
		if sentence == "" {
			continue
		}
		e.debug("body match", "owner", sub.OwnerID, "keyword", sub.Keyword, "alias", alias)
		return domain.MatchResult{
			OwnerID:  sub.OwnerID,
			Keyword:  sub.Keyword,
			Tier:     domain.TierBody,
			Evidence: sentence,
		}, true
	}
	return domain.MatchResult{}, false
}

// findRealSentence locates a genuine body-text sentence containing the
// alias. Lines classified as junk by the shared normalizer rules never
// qualify, which keeps keywords inside related-article links from
// matching.
func (e *Engine) findRealSentence(content, alias string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < e.minSentenceRunes {
			continue
		}
		if normalize.IsJunkLine(line) {
			continue
		}
		if !WholeWord(line, alias) {
			continue
		}
		for _, sentence := range splitSentences(line) {
			if utf8.RuneCountInString(sentence) >= e.minSentenceRunes && WholeWord(sentence, alias) {
				return truncateRunes(sentence, evidenceRunes)
			}
		}
		return truncateRunes(line, evidenceRunes)
	}
	return ""
}

// splitSentences breaks a line on terminal punctuation followed by
// whitespace.
func splitSentences(line string) []string {
	var sentences []string
	start := 0
	runes := []rune(line)
	for i := 0; i < len(runes)-1; i++ {
		if (runes[i] == '.' || runes[i] == '!' || runes[i] == '?') && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, strings.TrimSpace(string(runes[start:i+1])))
			start = i + 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, strings.TrimSpace(string(runes[start:])))
	}
	return sentences
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
