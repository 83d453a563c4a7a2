package filter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/features"
	"go.uber.org/zap/zaptest"
)

// fakeMailbox serves a fixed set of messages per folder
type fakeMailbox struct {
	folders   map[string][]string
	validity  uint32
	selected  string
	onFetch   func()
	fetched   []*imap.SeqSet
	loggedOut bool
}

func (m *fakeMailbox) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	msgs, ok := m.folders[name]
	if !ok {
		return nil, errors.New("no such mailbox")
	}
	if !readOnly {
		return nil, errors.New("scanner must select read-only")
	}
	m.selected = name
	status := imap.NewMailboxStatus(name, nil)
	status.Messages = uint32(len(msgs))
	status.UidValidity = m.validity
	return status, nil
}

// Fetch serves the selected folder; UIDs equal sequence numbers
func (m *fakeMailbox) Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	m.fetched = append(m.fetched, seqset)
	if m.onFetch != nil {
		m.onFetch()
	}

	for i, raw := range m.folders[m.selected] {
		seq := uint32(i + 1)
		if !seqset.Contains(seq) {
			continue
		}
		msg := imap.NewMessage(seq, items)
		msg.Uid = seq
		msg.Body[&imap.BodySectionName{}] = strings.NewReader(raw)
		ch <- msg
	}
	return nil
}

func (m *fakeMailbox) Logout() error {
	m.loggedOut = true
	return nil
}

// failingClassifier fails its first n calls, then delegates
type failingClassifier struct {
	next  core.Classifier
	fails int
	calls int
}

func (c *failingClassifier) Predict(ctx context.Context, email *core.Email, vector features.Vector) (*core.Prediction, error) {
	c.calls++
	if c.calls <= c.fails {
		return nil, errors.New("classifier timeout")
	}
	return c.next.Predict(ctx, email, vector)
}

func newTestIMAPFilter(t *testing.T, mb *fakeMailbox, max int) *IMAPFilter {
	t.Helper()
	return newTestIMAPFilterWithService(t, mb, max, newTestService(t, zaptest.NewLogger(t)))
}

func newTestIMAPFilterWithService(t *testing.T, mb *fakeMailbox, max int, service *core.DetectionService) *IMAPFilter {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := NewIMAPFilter(service, logger, config.IMAPConfig{
		Folders:      []string{"INBOX"},
		MaxMessages:  max,
		PollInterval: time.Minute,
	})
	f.dial = func() (mailbox, error) { return mb, nil }
	return f
}

func TestIMAPScan(t *testing.T) {
	mb := &fakeMailbox{
		folders:  map[string][]string{"INBOX": {legitimateRaw, phishingRaw, "not a message\r\n\r\nx"}},
		validity: 1,
	}
	f := newTestIMAPFilter(t, mb, 50)

	report, err := f.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := ScanReport{Scanned: 3, Phishing: 1, Failed: 1}
	if report != want {
		t.Errorf("expected %+v, got %+v", want, report)
	}
	if !mb.loggedOut {
		t.Error("expected the connection to be closed")
	}

	// A second pass skips messages that were already scanned
	report, err = f.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if report.Scanned != 0 {
		t.Errorf("expected no rescans, got %+v", report)
	}

	// A new UIDVALIDITY invalidates the remembered position
	mb.validity = 2
	report, _ = f.Scan(context.Background())
	if report.Scanned != 3 {
		t.Errorf("expected full rescan after UIDVALIDITY change, got %+v", report)
	}
}

func TestIMAPScanNewestOnly(t *testing.T) {
	mb := &fakeMailbox{
		folders:  map[string][]string{"INBOX": {legitimateRaw, legitimateRaw, legitimateRaw, phishingRaw}},
		validity: 1,
	}
	f := newTestIMAPFilter(t, mb, 2)

	report, err := f.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if report.Scanned != 2 || report.Phishing != 1 {
		t.Errorf("expected the two newest messages, got %+v", report)
	}
	if got := mb.fetched[0].String(); got != "3:4" {
		t.Errorf("expected fetch range 3:4, got %s", got)
	}
}

func TestIMAPScanRetriesAfterDetectionError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	clf := &failingClassifier{next: newTestClassifier(t, logger), fails: 1}
	service := core.NewDetectionService(clf, nil, nil, nil, logger, core.DetectionConfig{Threshold: 0.5})

	mb := &fakeMailbox{
		folders:  map[string][]string{"INBOX": {phishingRaw, legitimateRaw}},
		validity: 1,
	}
	f := newTestIMAPFilterWithService(t, mb, 10, service)

	tests := []struct {
		name string
		want ScanReport
	}{
		// the first message fails, so neither is settled
		{"transient failure", ScanReport{Scanned: 2, Phishing: 0, Failed: 1}},
		{"retry", ScanReport{Scanned: 2, Phishing: 1, Failed: 0}},
		{"settled", ScanReport{}},
	}
	for _, tt := range tests {
		report, err := f.Scan(context.Background())
		if err != nil {
			t.Fatalf("%s: Scan failed: %v", tt.name, err)
		}
		if report != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.name, tt.want, report)
		}
	}
}

func TestIMAPScanCancelledLeavesMessagesUnseen(t *testing.T) {
	mb := &fakeMailbox{folders: map[string][]string{"INBOX": {phishingRaw}}, validity: 1}
	f := newTestIMAPFilter(t, mb, 10)

	ctx, cancel := context.WithCancel(context.Background())
	mb.onFetch = cancel
	report, err := f.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if report.Scanned != 0 {
		t.Errorf("expected nothing scanned after cancellation, got %+v", report)
	}

	mb.onFetch = nil
	report, err = f.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if report.Scanned != 1 || report.Phishing != 1 {
		t.Errorf("expected the message to be scanned on the next pass, got %+v", report)
	}
}

func TestIMAPScanEmptyFolderRecordsValidity(t *testing.T) {
	mb := &fakeMailbox{folders: map[string][]string{"INBOX": {}}, validity: 7}
	f := newTestIMAPFilter(t, mb, 10)

	if _, err := f.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := f.seen["INBOX"]; got.uidValidity != 7 || got.lastUID != 0 {
		t.Errorf("expected folder state {7 0}, got %+v", got)
	}
}

func TestIMAPScanMissingFolder(t *testing.T) {
	mb := &fakeMailbox{folders: map[string][]string{}}
	f := newTestIMAPFilter(t, mb, 10)

	report, err := f.Scan(context.Background())
	if err != nil {
		t.Fatalf("a missing folder must not fail the scan: %v", err)
	}
	if report.Scanned != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestIMAPDialError(t *testing.T) {
	f := newTestIMAPFilter(t, nil, 10)
	f.dial = func() (mailbox, error) { return nil, errors.New("connection refused") }

	if _, err := f.Scan(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestIMAPStartStop(t *testing.T) {
	mb := &fakeMailbox{folders: map[string][]string{"INBOX": {legitimateRaw}}, validity: 1}
	f := newTestIMAPFilter(t, mb, 10)

	if err := f.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
