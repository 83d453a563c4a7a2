package features

import (
	"regexp"
	"strings"
)

var (
	// urlPattern matches scheme://... followed by the allowed URL character set.
	// The $-_ range is intentional and covers most ASCII punctuation, digits and
	// upper-case letters.
	urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

	ipPattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
)

// urlStats is the URL analyzer output
type urlStats struct {
	count      int
	suspicious int
	avgLength  float64
	hasIP      bool
}

// analyzeURLs scans lower-cased text for URLs. Partial or malformed URLs that
// still match the grammar are counted.
func analyzeURLs(text string) urlStats {
	urls := urlPattern.FindAllString(text, -1)
	if len(urls) == 0 {
		return urlStats{}
	}

	var stats urlStats
	total := 0
	for _, u := range urls {
		total += len(u)
		if isShortenerURL(u) {
			stats.suspicious++
		}
		if !stats.hasIP && ipPattern.MatchString(u) {
			stats.hasIP = true
		}
	}
	stats.count = len(urls)
	stats.avgLength = float64(total) / float64(len(urls))
	return stats
}

// isShortenerURL uses substring containment on the whole URL, not host parsing
func isShortenerURL(u string) bool {
	for _, domain := range shortenerDomains {
		if strings.Contains(u, domain) {
			return true
		}
	}
	return false
}
