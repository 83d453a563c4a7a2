// Package dataset reads and writes labelled email datasets and turns them into
// feature matrices for model training.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/features"
)

// ErrMissingColumn is returned when a dataset lacks a required column
var ErrMissingColumn = errors.New("missing column")

// Columns is the dataset header, in write order
var Columns = []string{"subject", "content", "from", "to", "label"}

// Sample is one labelled email
type Sample struct {
	Subject string
	Content string
	From    string
	To      string
	Label   int
}

// Email converts the sample into the domain model
func (s Sample) Email() *core.Email {
	var to []string
	if s.To != "" {
		to = []string{s.To}
	}
	return &core.Email{From: s.From, To: to, Subject: s.Subject, Body: s.Content}
}

// Read parses a dataset. Columns are matched by name, case-insensitively;
// "body" and "text" are accepted for content, "class" for label. Rows with an
// unreadable label are rejected.
func Read(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := map[string]int{"subject": -1, "content": -1, "from": -1, "to": -1, "label": -1}
	for i, h := range header {
		switch name := strings.ToLower(strings.TrimSpace(h)); name {
		case "body", "text":
			idx["content"] = i
		case "class":
			idx["label"] = i
		default:
			if _, ok := idx[name]; ok {
				idx[name] = i
			}
		}
	}
	for _, required := range []string{"content", "label"} {
		if idx[required] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(record []string, name string) string {
		i := idx[name]
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var samples []Sample
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		label, err := strconv.Atoi(strings.TrimSpace(field(record, "label")))
		if err != nil {
			return nil, fmt.Errorf("invalid label on row %d: %w", line, err)
		}
		samples = append(samples, Sample{
			Subject: field(record, "subject"),
			Content: field(record, "content"),
			From:    field(record, "from"),
			To:      field(record, "to"),
			Label:   label,
		})
	}
	return samples, nil
}

// ReadFile reads a dataset file
func ReadFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Write writes samples with the standard header
func Write(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, s := range samples {
		if err := cw.Write([]string{s.Subject, s.Content, s.From, s.To, strconv.Itoa(s.Label)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes samples to path, replacing any existing file
func WriteFile(path string, samples []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExportFeatures writes one row per sample: the feature values in schema
// order followed by the label
func ExportFeatures(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(features.Names(), "label")); err != nil {
		return err
	}

	row := make([]string, features.Len()+1)
	for _, s := range samples {
		values := features.Extract(s.Email().FeatureInput()).Values()
		for i, v := range values {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[len(row)-1] = strconv.Itoa(s.Label)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Counts returns the number of phishing and legitimate samples
func Counts(samples []Sample) (phishing, legitimate int) {
	for _, s := range samples {
		if s.Label == core.LabelPhishing {
			phishing++
		} else {
			legitimate++
		}
	}
	return phishing, legitimate
}
