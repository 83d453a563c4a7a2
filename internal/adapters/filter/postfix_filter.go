package filter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-smtp"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/mailparse"
	"go.uber.org/zap"
)

// Values written to the status header
const (
	StatusPhishing   = "phishing"
	StatusLegitimate = "legitimate"
	StatusUnknown    = "unknown"
)

// AnalysisErrorHeader carries the reason a message could not be classified
const AnalysisErrorHeader = "X-Phishing-Analysis-Error"

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	service *core.DetectionService
	logger  *zap.Logger
	cfg     config.ServerConfig
	server  *smtp.Server
	deliver func(sender string, recipients []string, data []byte) error
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(service *core.DetectionService, logger *zap.Logger, cfg config.ServerConfig) *PostfixFilter {
	// If subject prefix is not set but modify subject is enabled, use default prefix
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = "[PHISHING] "
	}

	f := &PostfixFilter{
		service: service,
		logger:  logger,
		cfg:     cfg,
	}
	f.deliver = f.sendToPostfix
	return f
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", f.cfg.ListenAddress))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies an already decoded email
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.DetectionResult, error) {
	return f.service.Detect(ctx, email)
}

// filterMessage classifies a raw message and returns the annotated message.
// A non-nil *smtp.SMTPError means the message must be rejected.
func (f *PostfixFilter) filterMessage(ctx context.Context, sender string, recipients []string, raw []byte) ([]byte, error) {
	var result *core.DetectionResult
	var analysisErr error

	msg, err := mailparse.ParseBytes(raw)
	if err != nil {
		analysisErr = err
	} else {
		email := msg.Email()
		if email.From == "" {
			email.From = sender
		}
		if len(recipients) > 0 {
			email.To = recipients
		}
		result, analysisErr = f.service.Detect(ctx, email)
	}

	if analysisErr != nil {
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", sender))
	}

	phishing := result != nil && f.service.ShouldAct(result)

	// Only reject if it's phishing AND there was no error in analysis
	if phishing && f.cfg.BlockPhishing {
		f.logger.Info("Rejecting phishing email",
			zap.String("from", sender),
			zap.Float64("probability", result.PhishingProbability),
			zap.String("reason", result.Explanation),
			zap.String("model", result.ModelUsed))
		return nil, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (probability: %.2f)", result.PhishingProbability),
		}
	}

	annotated, err := f.annotate(raw, result, analysisErr)
	if err != nil {
		return nil, err
	}

	if result != nil {
		f.logger.Info("Processed email",
			zap.String("from", sender),
			zap.Bool("is_phishing", phishing),
			zap.Float64("probability", result.PhishingProbability),
			zap.String("model", result.ModelUsed),
			zap.String("processing_id", result.ProcessingID))
	}
	return annotated, nil
}

// annotate prepends the verdict headers to the raw message. Original header
// fields and the body are copied byte for byte.
func (f *PostfixFilter) annotate(raw []byte, result *core.DetectionResult, analysisErr error) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	th, err := textproto.ReadHeader(br)
	if err != nil {
		// Header block is unusable; emit our headers in front of the raw bytes
		th = textproto.Header{}
		br = bufio.NewReader(bytes.NewReader(raw))
	}
	h := message.Header{Header: th}

	status := StatusUnknown
	probability := "n/a"
	reason := ""
	if result != nil {
		status = StatusLegitimate
		if f.service.ShouldAct(result) {
			status = StatusPhishing
		}
		probability = fmt.Sprintf("%.4f", result.PhishingProbability)
		reason = result.Explanation
	}

	if f.cfg.ModifySubject && status == StatusPhishing && f.cfg.SubjectPrefix != "" {
		subject, err := h.Text("Subject")
		if err != nil {
			subject = h.Get("Subject")
		}
		if !strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
			h.SetText("Subject", f.cfg.SubjectPrefix+subject)
		}
	}

	if analysisErr != nil {
		h.SetText(AnalysisErrorHeader, analysisErr.Error())
	}
	if reason != "" {
		h.SetText(f.cfg.Headers.Reason, reason)
	}
	h.Set(f.cfg.Headers.Probability, probability)
	h.Set(f.cfg.Headers.Phishing, status)

	var out bytes.Buffer
	if err := textproto.WriteHeader(&out, h.Header); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	if _, err := io.Copy(&out, br); err != nil {
		return nil, fmt.Errorf("failed to copy body: %w", err)
	}
	return out.Bytes(), nil
}

// sendToPostfix sends the processed email back to Postfix on the configured port
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.cfg.Postfix.Address, fmt.Sprint(f.cfg.Postfix.Port))

	// Get hostname for EHLO
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// The message is already accepted at this point
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message and forwards it
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	annotated, err := s.filter.filterMessage(ctx, s.sender, s.recipients, raw)
	if err != nil {
		return err
	}

	if !s.filter.cfg.Postfix.Enabled {
		s.filter.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
		return nil
	}

	if err := s.filter.deliver(s.sender, s.recipients, annotated); err != nil {
		s.filter.logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
