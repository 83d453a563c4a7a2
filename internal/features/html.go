package features

import (
	"regexp"
	"strings"
)

var (
	anchorPattern = regexp.MustCompile(`(?i)<a\s+href=["']([^"']+)["']`)
	imagePattern  = regexp.MustCompile(`(?i)<img[^>]+>`)
)

// htmlStats is the HTML structure scanner output
type htmlStats struct {
	hasHTML      bool
	hrefs        []string
	hasForm      bool
	imageCount   int
	linkMismatch int
}

// scanHTML inspects the raw body for structural HTML cues. combined is the
// lower-cased subject+body text used for the link mismatch check.
func scanHTML(body, combined string) htmlStats {
	lowerBody := strings.ToLower(body)

	stats := htmlStats{
		hasHTML:    strings.Contains(lowerBody, "<html") || strings.Contains(lowerBody, "<body"),
		hasForm:    containsAny(lowerBody, formIndicators[:]),
		imageCount: len(imagePattern.FindAllStringIndex(body, -1)),
	}

	for _, m := range anchorPattern.FindAllStringSubmatch(body, -1) {
		stats.hrefs = append(stats.hrefs, m[1])
	}
	if len(stats.hrefs) > 0 && body != "" {
		stats.linkMismatch = countLinkMismatches(stats.hrefs, visibleText(combined))
	}
	return stats
}

// visibleText drops the anchor href attributes so a link target does not count
// as appearing in the text merely because it is the link target.
func visibleText(combined string) string {
	return anchorPattern.ReplaceAllString(combined, " ")
}

func countLinkMismatches(hrefs []string, text string) int {
	mismatches := 0
	for _, href := range hrefs {
		host, ok := hrefHost(href)
		if !ok {
			continue
		}
		if !strings.Contains(text, strings.ToLower(host)) {
			mismatches++
		}
	}
	if mismatches > MaxLinkMismatch {
		return MaxLinkMismatch
	}
	return mismatches
}

// hrefHost returns the network location of an href: the text between "//"
// and the first "/", "?" or "#", with any userinfo and port kept. Nothing past
// the authority is validated, so a malformed path or query cannot hide a link.
// ok is false when there is no authority or its IPv6 brackets are unbalanced;
// such links are skipped, not mismatches.
func hrefHost(href string) (host string, ok bool) {
	rest := strings.TrimSpace(href)
	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) {
		rest = rest[i+1:]
	}
	if !strings.HasPrefix(rest, "//") {
		return "", false
	}
	rest = rest[2:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" || strings.Contains(rest, "[") != strings.Contains(rest, "]") {
		return "", false
	}
	return rest, true
}

// isScheme reports whether s is a URL scheme: a letter followed by letters,
// digits, "+", "-" or ".".
func isScheme(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
