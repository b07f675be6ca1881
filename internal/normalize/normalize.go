// Package normalize turns raw extracted documents into clean, structured
// article records: boilerplate stripping, description fallback, category
// inference, and best-effort date/author extraction.
package normalize

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"MediaTrends/internal/domain"
)

const (
	// MinContentRunes is the rejection floor: shorter extracted bodies are
	// skipped as unusable.
	MinContentRunes = 50

	maxTitleRunes       = 500
	maxDescriptionRunes = 1000
	descriptionExtract  = 500
	maxCategoryRunes    = 100
	maxAuthorRunes      = 200
)

// Generic site-wide meta descriptions that must not be stored as an
// article summary; substring match, lowercase.
var boilerplateDescriptions = []string{
	"azərbaycan və dünyada baş verən hadisələr haqqında operativ xəbərləri fasiləsiz çatdırır",
	"xəbərlə bitmir, foto, video, peşəkar reportyor araşdırması",
	"müəllif layihələri və əyləncə",
	"dünya və yerli xəbərlərin tək ünvanı",
}

var (
	mediaTitleExpr = regexp.MustCompile(`(?i)\.(webp|jpg|jpeg|png|gif|svg|avif|mp4|pdf)$`)
	hashTitleExpr  = regexp.MustCompile(`(?i)^[a-f0-9]{10,}(\.[a-z]{2,5})?$`)

	boldMarkExpr    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	linkMarkExpr    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	markdownGarbage = regexp.MustCompile(`[#*\[\]!]`)

	digitRunExpr = regexp.MustCompile(`\d{3,}`)
)

// Result is the explicit outcome of normalizing one document: either an
// article ready for admission or a skip with a reason. Skips are expected
// and non-fatal.
type Result struct {
	Article domain.Article
	Skipped bool
	Reason  string
}

func skipped(reason string) Result {
	return Result{Skipped: true, Reason: reason}
}

// Normalizer cleans raw documents into domain.Article records.
type Normalizer struct {
	logger *slog.Logger
}

// New builds a Normalizer; logger may be nil.
func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize cleans one raw document fetched from the given URL for the
// given source. Rejections (junk titles, too-short bodies) come back as
// skipped results, never errors.
func (n *Normalizer) Normalize(doc domain.RawDocument, sourceID int64, fetchedURL string) Result {
	title := strings.TrimSpace(doc.Title)
	if mediaTitleExpr.MatchString(title) {
		n.debug("skip media-filename title", "title", title)
		return skipped("title is a media filename")
	}
	if hashTitleExpr.MatchString(title) {
		n.debug("skip hash-like title", "title", title)
		return skipped("title is hash-like")
	}

	body := CleanBody(doc.Body)
	if utf8.RuneCountInString(body) < MinContentRunes {
		n.debug("skip short body", "url", fetchedURL, "runes", utf8.RuneCountInString(body))
		return skipped("body below minimum length")
	}

	canonical := strings.TrimSpace(doc.ResolvedURL)
	if canonical == "" {
		canonical = fetchedURL
	}

	description := strings.TrimSpace(doc.Description)
	if IsBoilerplateDescription(description) {
		description = DescriptionFromContent(body)
		n.debug("replaced boilerplate description", "url", canonical)
	}

	article := domain.Article{
		SourceID:     sourceID,
		Title:        truncateRunes(title, maxTitleRunes),
		Content:      body,
		Description:  truncateRunes(description, maxDescriptionRunes),
		CanonicalURL: canonical,
		ArticleLink:  canonical,
		Category:     truncateRunes(CategoryFromURL(canonical), maxCategoryRunes),
		PublishDate:  ExtractPublishDate(doc.Body),
		Author:       truncateRunes(ExtractAuthor(doc.Body), maxAuthorRunes),
	}
	return Result{Article: article}
}

func (n *Normalizer) debug(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Debug(msg, args...)
	}
}

// IsBoilerplateDescription detects generic site-wide meta descriptions that
// appear on every page of a site instead of an article summary.
func IsBoilerplateDescription(description string) bool {
	if description == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(description))
	for _, phrase := range boilerplateDescriptions {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// DescriptionFromContent extracts the first substantial paragraph of cleaned
// content as a description, stripped of markdown, capped at 500 runes.
func DescriptionFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !isBodyCandidate(line) {
			continue
		}
		line = boldMarkExpr.ReplaceAllString(line, "$1")
		line = linkMarkExpr.ReplaceAllString(line, "$1")
		return truncateRunes(line, descriptionExtract)
	}
	fallback := strings.TrimSpace(markdownGarbage.ReplaceAllString(content, ""))
	return truncateRunes(fallback, descriptionExtract)
}

// CategoryFromURL derives a category from the first meaningful path segment
// of an article URL, e.g. https://azernews.az/nation/254198.html -> "Nation".
// Numeric segments, two-letter language codes, and filename-like segments
// yield no category.
func CategoryFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	var parts []string
	for _, p := range strings.Split(parsed.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	candidate := parts[0]
	if isAllDigits(candidate) || utf8.RuneCountInString(candidate) <= 2 {
		if len(parts) < 2 {
			return ""
		}
		candidate = parts[1]
	}
	if digitRunExpr.MatchString(candidate) {
		return ""
	}

	candidate = strings.ReplaceAll(candidate, "-", " ")
	candidate = strings.ReplaceAll(candidate, "_", " ")
	// cases.Caser is stateful; build one per call so CategoryFromURL stays
	// safe under concurrent normalization workers.
	return cases.Title(language.Und).String(candidate)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var datePatterns = []struct {
	expr    *regexp.Regexp
	layouts []string
}{
	{
		expr:    regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`),
		layouts: []string{"2006-01-02", "2006-1-2", "2006/01/02", "2006/1/2"},
	},
	{
		expr:    regexp.MustCompile(`(?i)\d{1,2}\s+(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{4}`),
		layouts: []string{"2 January 2006", "2 Jan 2006"},
	},
	{
		expr:    regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`),
		layouts: []string{"January 2, 2006", "January 2 2006"},
	},
	{
		expr:    regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}`),
		layouts: []string{"2.1.2006", "02.01.2006"},
	},
}

// ExtractPublishDate scans raw text for common date formats. Absence is not
// an error; nil means no parseable date was found.
func ExtractPublishDate(text string) *time.Time {
	for _, p := range datePatterns {
		match := p.expr.FindString(text)
		if match == "" {
			continue
		}
		for _, layout := range p.layouts {
			if t, err := time.Parse(layout, match); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

var authorExprs = []*regexp.Regexp{
	regexp.MustCompile(`(?:By|Author|Written by|Reporter)[:\s]+([A-Z][a-zA-ZÇçĞğİıÖöŞşÜüƏə \-\.]{2,40})`),
	regexp.MustCompile(`(?:Müəllif|Jurnalist)[:\s]+([A-ZÇĞİÖŞÜƏ][a-zA-ZçğıöşüÇĞİÖŞÜƏə \-\.]{2,40})`),
}

// ExtractAuthor scans text for "By Name" / "Müəllif: Name" style author
// prefixes; empty string when none is found.
func ExtractAuthor(text string) string {
	for _, expr := range authorExprs {
		if m := expr.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
