package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinBodyLineRunes is the length a line must exceed to count as real
	// body text when locating the start of an article or a description.
	MinBodyLineRunes = 60

	// linkDominance marks a line as navigation when a single hyperlink
	// occupies more than this share of it.
	linkDominance = 0.7

	// navListMaxRunes and standaloneLinkMaxRunes guard the cleaning path:
	// list items and standalone link lines below these lengths are nav
	// residue, longer ones are kept as legitimate body content.
	navListMaxRunes        = 80
	standaloneLinkMaxRunes = 200
)

var (
	headingLinkExpr    = regexp.MustCompile(`^#{1,6}\s*\[.+\]\(https?://.+\)`)
	inlineLinkExpr     = regexp.MustCompile(`\[([^\]]+)\]\(https?://[^)]+\)`)
	standaloneLinkExpr = regexp.MustCompile(`^\[.+\]\(https?://.+\)\s*$`)
	sidebarStampExpr   = regexp.MustCompile(`^[A-ZÇĞİÖŞÜА-Я][a-zA-ZçğıöşüÇĞİÖŞÜа-яА-Я\-]+\s+\d{1,2}:\d{2}$`)
	footerLineExprs    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*ünvan\s*:`),
		regexp.MustCompile(`(?i)^\s*(tel|fax|telefon|e-?mail|əlaqə)\s*:`),
		regexp.MustCompile(`(?i)(?:©|\(c\)|copyright)`),
		regexp.MustCompile(`(?i)all\s+rights\s+reserved|bütün\s+hüquqlar`),
		regexp.MustCompile(`(?i)saytdakı\s+materiallardan`),
		regexp.MustCompile(`(?i)xəbərlərdən\s+istifadə\s+edərkən`),
		regexp.MustCompile(`(?i)istinad\s+mütləqdir`),
		regexp.MustCompile(`(?i)məlumat\s+üçün.*redaksiya`),
		regexp.MustCompile(`(?i)(powered|developed|designed)\s+by`),
		regexp.MustCompile(`(?i)bizi\s+(izləyin|sosial)`),
	}
)

// IsJunkLine reports whether a line is navigation, sidebar, or footer
// boilerplate rather than article body text. This is the strict classifier
// used for body-tier matching, so a keyword buried in a related-article
// link never produces a match; body cleaning uses the length-guarded
// isJunkBodyLine instead.
func IsJunkLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "[") || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "*") {
		return true
	}
	if headingLinkExpr.MatchString(line) {
		return true
	}
	if m := inlineLinkExpr.FindString(line); m != "" {
		if float64(len(m)) > linkDominance*float64(len(line)) {
			return true
		}
	}
	if sidebarStampExpr.MatchString(line) {
		return true
	}
	for _, expr := range footerLineExprs {
		if expr.MatchString(line) {
			return true
		}
	}
	return false
}

// isJunkBodyLine classifies lines for body cleaning. Unlike the matcher's
// IsJunkLine it keeps long list items and long standalone link lines, so
// legitimate list content survives into the stored body; only short nav
// residue is dropped.
func isJunkBodyLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "![") {
		return true
	}
	if strings.HasPrefix(line, "*") && strings.Contains(line, "[") && strings.Contains(line, "](") &&
		utf8.RuneCountInString(line) < navListMaxRunes {
		return true
	}
	if headingLinkExpr.MatchString(line) {
		return true
	}
	if standaloneLinkExpr.MatchString(line) && utf8.RuneCountInString(line) < standaloneLinkMaxRunes {
		return true
	}
	if sidebarStampExpr.MatchString(line) {
		return true
	}
	for _, expr := range footerLineExprs {
		if expr.MatchString(line) {
			return true
		}
	}
	return false
}

// isBodyCandidate reports whether a line qualifies as the start of real
// article text: non-heading, non-link, non-list, and longer than
// MinBodyLineRunes.
func isBodyCandidate(line string) bool {
	if line == "" {
		return false
	}
	for _, prefix := range []string{"#", "*", "[", "!", "---"} {
		if strings.HasPrefix(line, prefix) {
			return false
		}
	}
	if strings.Contains(line, "======") || strings.Contains(line, "------") {
		return false
	}
	return utf8.RuneCountInString(line) > MinBodyLineRunes
}

var blankRunsExpr = regexp.MustCompile(`\n{3,}`)

// CleanBody strips leading navigation and interior junk lines from extracted
// body text. The body proper begins at the first substantial paragraph; the
// navigation menus, login links, and category lists above it are dropped
// wholesale.
func CleanBody(body string) string {
	lines := strings.Split(body, "\n")

	start := -1
	for i, line := range lines {
		if isBodyCandidate(strings.TrimSpace(line)) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	kept := make([]string, 0, len(lines)-start)
	for _, line := range lines[start:] {
		if isJunkBodyLine(line) {
			continue
		}
		kept = append(kept, line)
	}

	cleaned := strings.Join(kept, "\n")
	cleaned = blankRunsExpr.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
