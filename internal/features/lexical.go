package features

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexicalStats is the lexical signal scanner output
type lexicalStats struct {
	keywordHits       int
	urgent            bool
	attachmentMention bool
	exclamations      int
	commonDomain      bool
}

func scanLexical(combined, subject, body, from string) lexicalStats {
	return lexicalStats{
		keywordHits:       len(matchedKeywords(combined)),
		urgent:            containsAny(combined, urgentWords[:]),
		attachmentMention: containsAny(combined, attachmentKeywords[:]),
		exclamations:      strings.Count(body, "!") + strings.Count(subject, "!"),
		commonDomain:      isCommonDomain(SenderDomain(from)),
	}
}

// matchedKeywords lists the lexicon phrases present in text, each at most once
func matchedKeywords(text string) []string {
	var matched []string
	for _, kw := range suspiciousKeywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// SenderDomain returns everything after the last "@" of an address, or "" when
// the address has no "@".
func SenderDomain(from string) string {
	i := strings.LastIndex(from, "@")
	if i < 0 {
		return ""
	}
	return from[i+1:]
}

// isCommonDomain is an exact, case-sensitive match against the webmail list
func isCommonDomain(domain string) bool {
	if domain == "" {
		return false
	}
	for _, d := range commonDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// uppercaseRatio is the share of upper-case characters among all characters
func uppercaseRatio(s string) float64 {
	total := utf8.RuneCountInString(s)
	if total == 0 {
		return 0
	}
	upper := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(total)
}
