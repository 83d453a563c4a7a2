package filter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishing-detector/internal/adapters/linear"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const phishingRaw = "From: PayPal Security <security@paypal-verification.com>\r\n" +
	"To: victim@example.com\r\n" +
	"Subject: Account suspended\r\n" +
	"DKIM-Signature: v=1; a=rsa-sha256; d=paypal-verification.com; b=abc\r\n" +
	"\r\n" +
	"URGENT! Verify your account now: http://bit.ly/paypal-fix\r\n"

const legitimateRaw = "From: alice@company.com\r\n" +
	"To: bob@company.com\r\n" +
	"Subject: Lunch\r\n" +
	"\r\n" +
	"See you at noon.\r\n"

// newTestClassifier builds a model that flags any shortened link as phishing
func newTestClassifier(t *testing.T, logger *zap.Logger) core.Classifier {
	t.Helper()
	clf, err := linear.New(linear.Model{
		Name:      "test-linear",
		Intercept: -2,
		Weights:   map[string]float64{"suspicious_urls": 5},
	}, logger)
	if err != nil {
		t.Fatalf("linear.New failed: %v", err)
	}
	return clf
}

func newTestService(t *testing.T, logger *zap.Logger) *core.DetectionService {
	t.Helper()
	return core.NewDetectionService(newTestClassifier(t, logger), nil, nil, nil, logger, core.DetectionConfig{Threshold: 0.5})
}

func testServerConfig() config.ServerConfig {
	return config.NewFromViper(config.NewEmptyViper()).GetServer()
}

func TestFilterMessageAnnotates(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testServerConfig()
	cfg.ModifySubject = true
	f := NewPostfixFilter(newTestService(t, logger), logger, cfg)

	out, err := f.filterMessage(context.Background(), "bounce@paypal-verification.com", []string{"victim@example.com"}, []byte(phishingRaw))
	if err != nil {
		t.Fatalf("filterMessage failed: %v", err)
	}
	got := string(out)

	if !strings.HasPrefix(got, "X-Phishing-Status: phishing\r\n") {
		t.Errorf("status header must come first, got:\n%s", got)
	}
	for _, want := range []string{
		"X-Phishing-Probability: 0.9",
		"X-Phishing-Reason: Top indicators: suspicious_urls",
		"Subject: [PHISHING] Account suspended",
		"DKIM-Signature: v=1; a=rsa-sha256; d=paypal-verification.com; b=abc\r\n",
		"\r\n\r\nURGENT! Verify your account now: http://bit.ly/paypal-fix\r\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("annotated message missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "Subject:") != 1 {
		t.Errorf("expected the subject to be replaced, got:\n%s", got)
	}
}

func TestFilterMessageLegitimate(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testServerConfig()
	cfg.ModifySubject = true
	f := NewPostfixFilter(newTestService(t, logger), logger, cfg)

	out, err := f.filterMessage(context.Background(), "alice@company.com", []string{"bob@company.com"}, []byte(legitimateRaw))
	if err != nil {
		t.Fatalf("filterMessage failed: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "X-Phishing-Status: legitimate\r\n") {
		t.Errorf("expected legitimate status:\n%s", got)
	}
	if !strings.Contains(got, "Subject: Lunch\r\n") {
		t.Errorf("legitimate subject must be untouched:\n%s", got)
	}
}

func TestFilterMessageUnparseable(t *testing.T) {
	logger := zaptest.NewLogger(t)
	f := NewPostfixFilter(newTestService(t, logger), logger, testServerConfig())

	out, err := f.filterMessage(context.Background(), "x@y.com", []string{"a@b.com"}, []byte("garbage without headers\r\n\r\nbody"))
	if err != nil {
		t.Fatalf("unparseable mail must still be delivered: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "X-Phishing-Status: unknown\r\n") {
		t.Errorf("expected unknown status:\n%s", got)
	}
	if strings.Contains(got, StatusLegitimate) {
		t.Errorf("unparseable mail must never be marked legitimate:\n%s", got)
	}
	if !strings.Contains(got, AnalysisErrorHeader+":") {
		t.Errorf("expected analysis error header:\n%s", got)
	}
}

func TestFilterMessageBlocks(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testServerConfig()
	cfg.BlockPhishing = true
	f := NewPostfixFilter(newTestService(t, logger), logger, cfg)

	_, err := f.filterMessage(context.Background(), "x@y.com", []string{"victim@example.com"}, []byte(phishingRaw))
	var smtpErr *smtp.SMTPError
	if !errors.As(err, &smtpErr) || smtpErr.Code != 550 {
		t.Fatalf("expected 550 rejection, got %v", err)
	}
}

func TestSessionDelivers(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testServerConfig()
	cfg.Postfix.Enabled = true
	f := NewPostfixFilter(newTestService(t, logger), logger, cfg)

	var delivered struct {
		sender     string
		recipients []string
		data       []byte
	}
	f.deliver = func(sender string, recipients []string, data []byte) error {
		delivered.sender, delivered.recipients, delivered.data = sender, recipients, data
		return nil
	}

	session, err := (&smtpBackend{filter: f}).NewSession(nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := session.Mail("alice@company.com", nil); err != nil {
		t.Fatal(err)
	}
	if err := session.Rcpt("bob@company.com", nil); err != nil {
		t.Fatal(err)
	}
	if err := session.Data(bytes.NewReader([]byte(legitimateRaw))); err != nil {
		t.Fatalf("Data failed: %v", err)
	}

	if delivered.sender != "alice@company.com" || len(delivered.recipients) != 1 {
		t.Errorf("unexpected envelope %q %v", delivered.sender, delivered.recipients)
	}
	if !bytes.Contains(delivered.data, []byte("X-Phishing-Status: legitimate")) {
		t.Errorf("delivered message not annotated:\n%s", delivered.data)
	}

	session.Reset()
	if s := session.(*smtpSession); s.sender != "" || len(s.recipients) != 0 {
		t.Error("Reset must clear the envelope")
	}
}
