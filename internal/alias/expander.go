// Package alias expands keywords into multilingual variant sets via the
// translation collaborator.
package alias

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"MediaTrends/internal/ports"
)

// DefaultLanguages are the translation targets used when none are
// configured.
var DefaultLanguages = []string{"en", "az", "tr", "ru", "ar", "fr", "de"}

// Expander generates alias sets. Per-language translation failures are
// logged and skipped; the original keyword always survives.
type Expander struct {
	translator ports.Translator
	languages  []string
	logger     *slog.Logger
}

// New builds an Expander; an empty language list falls back to
// DefaultLanguages.
func New(translator ports.Translator, languages []string, logger *slog.Logger) *Expander {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Expander{translator: translator, languages: languages, logger: logger}
}

// Expand translates the keyword into every target language and returns the
// deduplicated variant set, original keyword first. Deduplication is
// case-insensitive and keeps the casing of the first-seen form. The result
// is never empty: even if every translation call fails, the original
// keyword is returned alone.
func (e *Expander) Expand(ctx context.Context, keyword string) []string {
	keyword = strings.TrimSpace(keyword)

	aliases := []string{keyword}
	seen := map[string]struct{}{foldKey(keyword): {}}

	for _, lang := range e.languages {
		translated, err := e.translator.Translate(ctx, keyword, lang)
		if err != nil {
			e.debug("translation failed, skipping language", "keyword", keyword, "lang", lang, "error", err)
			continue
		}
		translated = strings.TrimSpace(translated)
		if translated == "" {
			continue
		}
		key := foldKey(translated)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		aliases = append(aliases, translated)
		e.debug("translated keyword", "keyword", keyword, "lang", lang, "alias", translated)
	}

	return aliases
}

func foldKey(s string) string {
	return cases.Fold().String(s)
}

func (e *Expander) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
