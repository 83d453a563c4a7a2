package filter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/features"
	"go.uber.org/zap"
)

const rule = "============================================================"

// CliFilter implements a command-line interface for phishing detection
type CliFilter struct {
	service *core.DetectionService
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCliFilter creates a new CLI filter writing its report to out
func NewCliFilter(service *core.DetectionService, logger *zap.Logger, out io.Writer, verbose bool) *CliFilter {
	return &CliFilter{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// ProcessEmail classifies an email and prints the report
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.DetectionResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	f.writeSummary(email)

	startTime := time.Now()
	result, err := f.service.Detect(ctx, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		fmt.Fprintf(f.out, "\n%s\nPHISHING EMAIL DETECTION RESULTS\n%s\n", rule, rule)
		fmt.Fprintf(f.out, "Error: %v\n", err)
		return nil, err
	}

	f.WriteResult(result)
	if f.verbose {
		fmt.Fprintf(f.out, "\nExplanation: %s\n", result.Explanation)
		fmt.Fprintf(f.out, "Model used: %s\n", result.ModelUsed)
		fmt.Fprintf(f.out, "Processing time: %v\n", time.Since(startTime))
		f.writeMatches(email)
	}
	return result, nil
}

// writeMatches lists the keywords and URLs behind the key features
func (f *CliFilter) writeMatches(email *core.Email) {
	m := features.Explain(email.FeatureInput())
	if len(m.Keywords) > 0 {
		fmt.Fprintf(f.out, "\nMatched keywords: %s\n", strings.Join(m.Keywords, ", "))
	}
	if len(m.URLs) == 0 {
		return
	}
	shorteners := make(map[string]bool, len(m.ShortenerURLs))
	for _, u := range m.ShortenerURLs {
		shorteners[u] = true
	}
	fmt.Fprintf(f.out, "\nURLs found:\n")
	for _, u := range m.URLs {
		if shorteners[u] {
			fmt.Fprintf(f.out, "  - %s (shortener)\n", u)
		} else {
			fmt.Fprintf(f.out, "  - %s\n", u)
		}
	}
}

// Prompt asks for subject, content and sender one line at a time. Empty
// content is rejected with core.ErrContentRequired.
func (f *CliFilter) Prompt(in io.Reader) (*core.Email, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	ask := func(prompt string) string {
		fmt.Fprint(f.out, prompt)
		if !scanner.Scan() {
			return ""
		}
		return strings.TrimSpace(scanner.Text())
	}

	fmt.Fprintf(f.out, "Interactive Phishing Email Detection\n%s\n", strings.Repeat("-", 40))
	email := &core.Email{
		Subject: ask("Enter email subject (or press Enter to skip): "),
		Body:    ask("Enter email content: "),
		From:    ask("Enter sender email (or press Enter to skip): "),
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if email.Body == "" {
		fmt.Fprintf(f.out, "Error: Email content is required\n")
		return nil, core.ErrContentRequired
	}
	return email, nil
}

// WriteFeatures prints the feature vector as indented JSON
func (f *CliFilter) WriteFeatures(email *core.Email) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(f.service.ExtractFeatures(email))
}

// WriteResult prints a verdict with its key features and recommendations
func (f *CliFilter) WriteResult(result *core.DetectionResult) {
	w := f.out
	phishing := f.service.ShouldAct(result)

	fmt.Fprintf(w, "\n%s\nPHISHING EMAIL DETECTION RESULTS\n%s\n", rule, rule)

	prediction := "✅ Legitimate Email"
	if phishing {
		prediction = "⚠️  PHISHING EMAIL DETECTED"
	}
	fmt.Fprintf(w, "\nPrediction: %s\n", prediction)
	fmt.Fprintf(w, "\nConfidence: %.2f%%\n", result.Confidence*100)
	fmt.Fprintf(w, "Phishing Probability: %.2f%%\n", result.PhishingProbability*100)
	fmt.Fprintf(w, "Legitimate Probability: %.2f%%\n", result.LegitimateProbability*100)

	v := result.Features
	fmt.Fprintf(w, "\nKey Features Detected:\n")
	fmt.Fprintf(w, "  - Suspicious Keywords: %d\n", v.SuspiciousKeywordsCount)
	fmt.Fprintf(w, "  - URLs Found: %d\n", v.URLCount)
	fmt.Fprintf(w, "  - Suspicious URLs: %d\n", v.SuspiciousURLs)
	fmt.Fprintf(w, "  - Urgent Language: %s\n", yesNo(v.UrgentLanguage))
	fmt.Fprintf(w, "  - IP in URL: %s\n", yesNo(v.IPInURL))
	fmt.Fprintf(w, "  - Spam Score: %.2f\n", v.SpamScore)

	fmt.Fprintf(w, "\n%s\n", rule)

	if phishing {
		fmt.Fprintf(w, "\n⚠️  WARNING: This email is likely a phishing attempt!\n")
		fmt.Fprintf(w, "Recommendations:\n")
		for _, r := range recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
		return
	}
	fmt.Fprintf(w, "\n✅ This email appears to be legitimate.\n")
	fmt.Fprintf(w, "However, always exercise caution with emails requesting sensitive information.\n")
}

var recommendations = []string{
	"Do not click any links",
	"Do not download attachments",
	"Do not provide personal information",
	"Delete the email",
	"Report to your IT security team",
}

func (f *CliFilter) writeSummary(email *core.Email) {
	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "Sender domain: %s\n", features.SenderDomain(email.From))
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	// Print body preview if verbose
	if f.verbose {
		preview := email.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}
}

func yesNo(flag int) string {
	if flag != 0 {
		return "Yes"
	}
	return "No"
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
