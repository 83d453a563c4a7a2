package utils

import (
	"fmt"
	"strings"

	"github.com/mikey/phishing-detector/internal/features"
)

// SystemPrompt is sent as the system role where the provider supports one
const SystemPrompt = "You are a phishing detection system. Respond only with JSON."

const phishingPromptFormat = `You are a phishing detection system. Analyze the following email and determine if it is a phishing attempt.
Respond with a JSON object containing:
- is_phishing: boolean (true if phishing, false if legitimate)
- phishing_probability: number between 0 and 1 (higher means more likely to be phishing)
- explanation: string (brief explanation of your verdict)

Email:
From: %s
To: %s
Subject: %s
Body:
%s

Extracted features:
%s
Respond only with the JSON object and nothing else.`

// FormatRecipients summarizes a recipient list for prompts
func FormatRecipients(to []string) string {
	if len(to) == 0 {
		return ""
	}
	if len(to) == 1 {
		return to[0]
	}
	return fmt.Sprintf("%s and %d others", to[0], len(to)-1)
}

// BuildPhishingPrompt renders the classification prompt. body is expected to
// be already processed by a TextProcessor.
func BuildPhishingPrompt(from string, to []string, subject, body string, vector features.Vector) string {
	var fb strings.Builder
	values := vector.Values()
	for i, name := range features.Names() {
		fmt.Fprintf(&fb, "- %s: %g\n", name, values[i])
	}
	return fmt.Sprintf(phishingPromptFormat, from, FormatRecipients(to), subject, body, fb.String())
}
