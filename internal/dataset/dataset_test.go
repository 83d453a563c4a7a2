package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikey/phishing-detector/internal/features"
)

func TestSampleData(t *testing.T) {
	samples := SampleData()
	if len(samples) != 100 {
		t.Fatalf("expected 100 samples, got %d", len(samples))
	}
	phishing, legitimate := Counts(samples)
	if phishing != 50 || legitimate != 50 {
		t.Errorf("expected 50/50 split, got %d/%d", phishing, legitimate)
	}
	if samples[0].Label != 1 || samples[99].Label != 0 {
		t.Error("phishing samples must come first")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	want := SampleData()[:6]
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestReadColumnAliases(t *testing.T) {
	in := "Label,Text,Subject\n1,click http://bit.ly/x,hi\n0,\"hello, world\",\n"
	samples, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(samples) != 2 || samples[0].Content != "click http://bit.ly/x" || samples[1].Content != "hello, world" {
		t.Errorf("unexpected samples %+v", samples)
	}
	if samples[0].From != "" {
		t.Errorf("absent column must read as empty, got %q", samples[0].From)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no content column", "subject,label\nhi,1\n"},
		{"bad label", "content,label\nhello,phishy\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.in)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	_, err := Read(strings.NewReader("subject,label\nhi,1\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestExportFeatures(t *testing.T) {
	var buf bytes.Buffer
	samples := SampleData()
	if err := ExportFeatures(&buf, samples); err != nil {
		t.Fatalf("ExportFeatures failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV is invalid: %v", err)
	}
	if len(rows) != len(samples)+1 {
		t.Fatalf("expected %d rows, got %d", len(samples)+1, len(rows))
	}

	header := rows[0]
	names := features.Names()
	if len(header) != len(names)+1 || header[len(header)-1] != "label" {
		t.Fatalf("unexpected header %v", header)
	}
	for i, name := range names {
		if header[i] != name {
			t.Errorf("column %d: expected %s, got %s", i, name, header[i])
		}
	}

	// Third phishing sample links to a bare IP address
	ipCol := -1
	for i, h := range header {
		if h == "ip_in_url" {
			ipCol = i
		}
	}
	if rows[3][ipCol] != "1" || rows[1][ipCol] != "0" {
		t.Errorf("unexpected ip_in_url values %q %q", rows[3][ipCol], rows[1][ipCol])
	}
	if rows[1][len(header)-1] != "1" || rows[len(rows)-1][len(header)-1] != "0" {
		t.Error("labels not carried into the feature matrix")
	}
}
