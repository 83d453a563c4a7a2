// Package features turns raw email text into the fixed numeric feature vector
// used by the phishing classifiers.
//
// Extraction is a pure function of its input: it performs no I/O, keeps no
// state between calls and never fails. Empty or malformed input yields zero
// values. The package-level lexicons are never mutated, so Extract is safe to
// call from any number of goroutines.
package features

import "unicode/utf8"

// Input is the unit of extraction
type Input struct {
	Subject string
	Body    string
	From    string
	To      string
}

// Spam score weights
const (
	keywordWeight     = 2.0
	urlWeight         = 1.5
	shortenerWeight   = 3.0
	exclamationWeight = 0.5
	urgencyWeight     = 2.0
)

// Extract builds the feature vector for an email
func Extract(in Input) Vector {
	text := normalize(in.Subject, in.Body)

	urls := analyzeURLs(text.combined)
	html := scanHTML(text.body, text.combined)
	lex := scanLexical(text.combined, in.Subject, in.Body, in.From)

	v := Vector{
		SuspiciousKeywordsCount: lex.keywordHits,
		UrgentLanguage:          boolToInt(lex.urgent),
		URLCount:                urls.count,
		SuspiciousURLs:          urls.suspicious,
		HasHTML:                 boolToInt(html.hasHTML),
		LinkCount:               len(html.hrefs),
		AvgURLLength:            urls.avgLength,
		IPInURL:                 boolToInt(urls.hasIP),
		SubjectLength:           utf8.RuneCountInString(in.Subject),
		ContentLength:           utf8.RuneCountInString(in.Body),
		UppercaseRatio:          uppercaseRatio(text.body),
		AttachmentMention:       boolToInt(lex.attachmentMention),
		LinkMismatch:            html.linkMismatch,
		ExclamationCount:        lex.exclamations,
		IsCommonDomain:          boolToInt(lex.commonDomain),
		HasForm:                 boolToInt(html.hasForm),
		ImageCount:              html.imageCount,
	}
	v.SpamScore = spamScore(v)
	return v
}

// Matches lists the phrases and URLs behind the keyword and URL features
type Matches struct {
	Keywords      []string `json:"keywords"`
	URLs          []string `json:"urls"`
	ShortenerURLs []string `json:"shortener_urls"`
}

// Explain returns what Extract counts for the keyword and URL features of in.
// The slices are lower-cased, in the order found.
func Explain(in Input) Matches {
	text := normalize(in.Subject, in.Body)

	m := Matches{Keywords: matchedKeywords(text.combined)}
	for _, u := range urlPattern.FindAllString(text.combined, -1) {
		m.URLs = append(m.URLs, u)
		if isShortenerURL(u) {
			m.ShortenerURLs = append(m.ShortenerURLs, u)
		}
	}
	return m
}

// spamScore is the weighted composite, capped at MaxSpamScore. All terms are
// non-negative so no lower clamp is needed.
func spamScore(v Vector) float64 {
	score := keywordWeight*float64(v.SuspiciousKeywordsCount) +
		urlWeight*float64(v.URLCount) +
		shortenerWeight*float64(v.SuspiciousURLs) +
		exclamationWeight*float64(v.ExclamationCount) +
		urgencyWeight*float64(v.UrgentLanguage)
	if score > MaxSpamScore {
		return MaxSpamScore
	}
	return score
}
