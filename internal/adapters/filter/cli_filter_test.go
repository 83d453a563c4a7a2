package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/features"
	"go.uber.org/zap/zaptest"
)

func TestCliFilterReport(t *testing.T) {
	tests := []struct {
		name  string
		email *core.Email
		want  []string
	}{
		{
			name: "phishing",
			email: &core.Email{
				From:    "security@paypal-verification.com",
				To:      []string{"victim@example.com"},
				Subject: "Account suspended",
				Body:    "URGENT! Verify your account now: http://bit.ly/paypal-fix",
			},
			want: []string{
				"PHISHING EMAIL DETECTED",
				"Sender domain: paypal-verification.com",
				"  - URLs Found: 1\n",
				"  - Suspicious URLs: 1\n",
				"  - Urgent Language: Yes\n",
				"  - Report to your IT security team\n",
			},
		},
		{
			name: "legitimate",
			email: &core.Email{
				From:    "alice@company.com",
				To:      []string{"bob@company.com"},
				Subject: "Lunch",
				Body:    "See you at noon.",
			},
			want: []string{
				"Prediction: ✅ Legitimate Email",
				"  - IP in URL: No\n",
				"This email appears to be legitimate.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			var out bytes.Buffer
			f := NewCliFilter(newTestService(t, logger), logger, &out, false)

			if _, err := f.ProcessEmail(context.Background(), tt.email); err != nil {
				t.Fatalf("ProcessEmail failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("report missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestCliFilterVerboseMatches(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var out bytes.Buffer
	f := NewCliFilter(newTestService(t, logger), logger, &out, true)

	email := &core.Email{
		From:    "security@paypal-verification.com",
		Subject: "Account suspended",
		Body:    "Verify now: http://bit.ly/paypal-fix or http://paypal.example/help",
	}
	if _, err := f.ProcessEmail(context.Background(), email); err != nil {
		t.Fatalf("ProcessEmail failed: %v", err)
	}
	for _, want := range []string{
		"Matched keywords: verify, account, suspended\n",
		"  - http://bit.ly/paypal-fix (shortener)\n",
		"  - http://paypal.example/help\n",
		"Model used: test-linear",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}

func TestCliFilterPrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *core.Email
		wantErr error
	}{
		{
			name:  "all fields",
			input: "Account suspended\n  Verify at http://bit.ly/x  \nsecurity@paypal-verification.com\n",
			want: &core.Email{
				Subject: "Account suspended",
				Body:    "Verify at http://bit.ly/x",
				From:    "security@paypal-verification.com",
			},
		},
		{
			name:  "optional fields skipped",
			input: "\nhello there\n",
			want:  &core.Email{Body: "hello there"},
		},
		{
			name:    "empty content",
			input:   "Subject\n\nsomeone@example.com\n",
			wantErr: core.ErrContentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			var out bytes.Buffer
			f := NewCliFilter(newTestService(t, logger), logger, &out, false)

			got, err := f.Prompt(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !strings.Contains(out.String(), "Error: Email content is required") {
					t.Errorf("expected error line, got:\n%s", out.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("Prompt failed: %v", err)
			}
			if got.Subject != tt.want.Subject || got.Body != tt.want.Body || got.From != tt.want.From {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
			if !strings.Contains(out.String(), "Enter email content: ") {
				t.Errorf("expected prompts in output:\n%s", out.String())
			}
		})
	}
}

func TestCliFilterNoModel(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var out bytes.Buffer
	service := core.NewDetectionService(nil, nil, nil, nil, logger, core.DetectionConfig{Threshold: 0.5})
	f := NewCliFilter(service, logger, &out, false)

	_, err := f.ProcessEmail(context.Background(), &core.Email{Body: "hello"})
	if !errors.Is(err, core.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if !strings.Contains(out.String(), "Error: model unavailable") {
		t.Errorf("expected error line in report:\n%s", out.String())
	}

	// Features are still available without a model
	out.Reset()
	if err := f.WriteFeatures(&core.Email{Body: "Click http://10.0.0.1/x"}); err != nil {
		t.Fatalf("WriteFeatures failed: %v", err)
	}
	var v features.Vector
	if err := json.Unmarshal(out.Bytes(), &v); err != nil {
		t.Fatalf("features output is not JSON: %v", err)
	}
	if v.IPInURL != 1 || v.URLCount != 1 {
		t.Errorf("unexpected features %+v", v)
	}
}
