package filter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/mailparse"
	"go.uber.org/zap"
)

// mailbox is the subset of the IMAP client used by the scanner
type mailbox interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
}

// folderState remembers how far a folder has been scanned
type folderState struct {
	uidValidity uint32
	lastUID     uint32
}

// ScanReport summarizes one scan pass
type ScanReport struct {
	Scanned  int
	Phishing int
	Failed   int
}

// IMAPFilter periodically scans mailbox folders and logs verdicts
type IMAPFilter struct {
	service *core.DetectionService
	logger  *zap.Logger
	cfg     config.IMAPConfig
	dial    func() (mailbox, error)

	mu     sync.Mutex
	seen   map[string]folderState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewIMAPFilter creates a new IMAP scanner
func NewIMAPFilter(service *core.DetectionService, logger *zap.Logger, cfg config.IMAPConfig) *IMAPFilter {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 50
	}
	if len(cfg.Folders) == 0 {
		cfg.Folders = []string{"INBOX"}
	}
	f := &IMAPFilter{
		service: service,
		logger:  logger,
		cfg:     cfg,
		seen:    make(map[string]folderState),
	}
	f.dial = f.connect
	return f
}

// connect dials the server over TLS and logs in
func (f *IMAPFilter) connect() (mailbox, error) {
	c, err := client.DialTLS(f.cfg.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	if err := c.Login(f.cfg.Username, f.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	return c, nil
}

// Start runs a scan immediately and then every poll interval
func (f *IMAPFilter) Start() error {
	if f.cfg.PollInterval <= 0 {
		return fmt.Errorf("invalid IMAP poll interval: %v", f.cfg.PollInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})

	f.logger.Info("IMAP scanner starting",
		zap.String("address", f.cfg.Address),
		zap.Strings("folders", f.cfg.Folders),
		zap.Duration("poll_interval", f.cfg.PollInterval))

	go func() {
		defer close(f.done)
		ticker := time.NewTicker(f.cfg.PollInterval)
		defer ticker.Stop()

		for {
			if _, err := f.Scan(ctx); err != nil {
				f.logger.Error("IMAP scan failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// Stop cancels polling and waits for the running scan to finish
func (f *IMAPFilter) Stop() error {
	if f.cancel == nil {
		return nil
	}
	f.cancel()
	<-f.done
	return nil
}

// ProcessEmail classifies an already decoded email
func (f *IMAPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.DetectionResult, error) {
	return f.service.Detect(ctx, email)
}

// Scan connects once and classifies new messages in every configured folder
func (f *IMAPFilter) Scan(ctx context.Context) (ScanReport, error) {
	var report ScanReport

	mb, err := f.dial()
	if err != nil {
		return report, err
	}
	defer mb.Logout()

	for _, folder := range f.cfg.Folders {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err := f.scanFolder(ctx, mb, folder, &report); err != nil {
			f.logger.Warn("Could not scan folder", zap.String("folder", folder), zap.Error(err))
		}
	}

	f.logger.Info("IMAP scan complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("phishing", report.Phishing),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (f *IMAPFilter) scanFolder(ctx context.Context, mb mailbox, folder string, report *ScanReport) error {
	status, err := mb.Select(folder, true)
	if err != nil {
		return fmt.Errorf("failed to select folder: %w", err)
	}

	f.mu.Lock()
	state := f.seen[folder]
	f.mu.Unlock()
	if state.uidValidity != status.UidValidity {
		state = folderState{uidValidity: status.UidValidity}
	}
	if status.Messages == 0 {
		f.mu.Lock()
		f.seen[folder] = state
		f.mu.Unlock()
		return nil
	}

	// Only the newest MaxMessages are considered
	from := uint32(1)
	if status.Messages > uint32(f.cfg.MaxMessages) {
		from = status.Messages - uint32(f.cfg.MaxMessages) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, status.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope, imap.FetchUid}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- mb.Fetch(seqSet, items, messages)
	}()

	// lastUID only moves past a message once it is settled; after the first
	// retryable failure the rest of the batch is looked at again next scan.
	retry := false
	for msg := range messages {
		if msg.Uid != 0 && msg.Uid <= state.lastUID {
			continue
		}
		if ctx.Err() != nil {
			retry = true
			continue
		}
		settled := f.classify(ctx, folder, msg, section, report)
		if !settled {
			retry = true
		}
		if !retry && msg.Uid > state.lastUID {
			state.lastUID = msg.Uid
		}
	}

	f.mu.Lock()
	f.seen[folder] = state
	f.mu.Unlock()

	if err := <-done; err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}
	return nil
}

// classify reports whether the message is settled: classified, or failed in a
// way a rescan cannot fix. Detection errors such as a classifier timeout or a
// missing model leave it unsettled so the next scan retries it.
func (f *IMAPFilter) classify(ctx context.Context, folder string, msg *imap.Message, section *imap.BodySectionName, report *ScanReport) bool {
	report.Scanned++

	body := msg.GetBody(section)
	if body == nil {
		report.Failed++
		f.logger.Warn("Server returned no message body", zap.String("folder", folder), zap.Uint32("uid", msg.Uid))
		return true
	}

	parsed, err := mailparse.Parse(body)
	if err != nil {
		report.Failed++
		f.logger.Warn("Failed to parse message",
			zap.String("folder", folder),
			zap.Uint32("uid", msg.Uid),
			zap.Error(err))
		return true
	}

	email := parsed.Email()
	if email.From == "" && msg.Envelope != nil && len(msg.Envelope.From) > 0 {
		email.From = msg.Envelope.From[0].Address()
	}

	result, err := f.service.Detect(ctx, email)
	if err != nil {
		report.Failed++
		f.logger.Error("Failed to analyze email",
			zap.String("folder", folder),
			zap.Uint32("uid", msg.Uid),
			zap.Error(err))
		// An empty body will not change on a rescan
		return errors.Is(err, core.ErrContentRequired)
	}

	phishing := f.service.ShouldAct(result)
	if phishing {
		report.Phishing++
	}
	f.logger.Info("Scanned email",
		zap.String("folder", folder),
		zap.Uint32("uid", msg.Uid),
		zap.String("from", email.From),
		zap.String("subject", email.Subject),
		zap.Bool("is_phishing", phishing),
		zap.Float64("probability", result.PhishingProbability),
		zap.String("model", result.ModelUsed))
	return true
}
