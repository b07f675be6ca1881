package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

var markdownLinkExpr = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

var mediaLinkTextExpr = regexp.MustCompile(`(?i)\.(webp|jpg|jpeg|png|gif|svg|avif|mp4|pdf)\b`)

var skipExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".avif", ".ico",
	".css", ".js", ".pdf", ".mp3", ".mp4", ".avi", ".mov", ".wmv",
	".zip", ".rar", ".exe", ".woff", ".woff2", ".ttf", ".eot",
}

var digitExpr = regexp.MustCompile(`\d`)

// ArticleLinks extracts candidate article URLs from a homepage's markdown
// rendering. Links are resolved against the base URL, restricted to the
// same domain (www-insensitive), and filtered through the article
// heuristic: real article paths contain digits while category index pages
// do not. The result is deduplicated and capped at limit.
func ArticleLinks(markdown, baseURL string, limit int) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	baseDomain := strings.TrimPrefix(base.Host, "www.")

	seen := make(map[string]struct{})
	var urls []string

	for _, m := range markdownLinkExpr.FindAllStringSubmatch(markdown, -1) {
		text, href := m[1], m[2]
		lower := strings.ToLower(href)

		if hasSkippedExtension(lower) {
			continue
		}
		if strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") {
			continue
		}
		if mediaLinkTextExpr.MatchString(text) {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)

		if strings.TrimPrefix(resolved.Host, "www.") != baseDomain {
			continue
		}

		path := resolved.Path
		if path == "" || path == "/" {
			continue
		}
		// Article URLs contain digits (/nation/254198.html); category
		// index pages (/nation/) do not.
		if !digitExpr.MatchString(path) {
			continue
		}
		if len(path) < 5 {
			continue
		}

		absolute := resolved.String()
		if _, ok := seen[absolute]; ok {
			continue
		}
		seen[absolute] = struct{}{}
		urls = append(urls, absolute)

		if limit > 0 && len(urls) >= limit {
			break
		}
	}

	return urls
}

func hasSkippedExtension(href string) bool {
	for _, ext := range skipExtensions {
		if strings.HasSuffix(href, ext) {
			return true
		}
	}
	return false
}
