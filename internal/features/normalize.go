package features

import "strings"

// normalizedText holds the two views of an email the scanners work on
type normalizedText struct {
	// combined is the lower-cased "subject body" text used for lexical and URL scans
	combined string
	// body is the body in its original case
	body string
}

func normalize(subject, body string) normalizedText {
	return normalizedText{
		combined: strings.ToLower(subject + " " + body),
		body:     body,
	}
}
