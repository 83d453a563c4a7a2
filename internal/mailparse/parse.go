// Package mailparse decodes stored RFC 5322 messages into the subject, body and
// address fields the feature extractor works on.
package mailparse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/utils"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnparseable is returned when a message cannot be read or decoded at all.
// It is distinct from a valid message with an empty body.
var ErrUnparseable = errors.New("unparseable message")

func init() {
	// Some mailers label UTF-8 parts without the dash
	charset.RegisterEncoding("utf8", unicode.UTF8)
}

// Message is a decoded email
type Message struct {
	Subject string
	Body    string
	From    string
	To      string
	Headers map[string][]string
	// Partial is set when some parts could not be decoded and were skipped
	Partial bool
}

// Parse decodes a raw message. Undecodable bytes inside text parts are dropped
// rather than failing the whole parse.
func Parse(r io.Reader) (*Message, error) {
	ent, err := message.Read(r)
	if err != nil && !isRecoverable(err) {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	msg := &Message{
		From:    ent.Header.Get("From"),
		To:      ent.Header.Get("To"),
		Headers: make(map[string][]string),
		Partial: err != nil,
	}

	// Decode encoded-word subjects, falling back to the raw value
	subject, err := ent.Header.Text("Subject")
	if err != nil {
		subject = ent.Header.Get("Subject")
	}
	msg.Subject = subject

	fields := ent.Header.Fields()
	for fields.Next() {
		key := textproto.CanonicalMIMEHeaderKey(fields.Key())
		msg.Headers[key] = append(msg.Headers[key], fields.Value())
	}

	if ent.MultipartReader() == nil {
		body, err := io.ReadAll(ent.Body)
		if err != nil {
			msg.Partial = true
		}
		msg.Body = utils.SanitizeUTF8(string(body))
		return msg, nil
	}

	var body strings.Builder
	walkErr := ent.Walk(func(path []int, part *message.Entity, err error) error {
		if part == nil {
			return nil
		}
		if err != nil {
			msg.Partial = true
		}
		if part.MultipartReader() != nil || !isTextPart(part) {
			return nil
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			msg.Partial = true
		}
		body.WriteString(utils.SanitizeUTF8(string(data)))
		return nil
	})
	if walkErr != nil {
		msg.Partial = true
	}
	msg.Body = body.String()

	return msg, nil
}

// ParseBytes decodes a raw message held in memory
func ParseBytes(raw []byte) (*Message, error) {
	return Parse(bytes.NewReader(raw))
}

// ParseFile opens and decodes a message file
func ParseFile(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	defer f.Close()

	return Parse(f)
}

// Email converts the message into the domain model
func (m *Message) Email() *core.Email {
	var to []string
	for _, addr := range strings.Split(m.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return &core.Email{
		From:    m.From,
		To:      to,
		Subject: m.Subject,
		Body:    m.Body,
		Headers: m.Headers,
	}
}

// isTextPart reports whether a leaf part is text/plain or text/html. Parts
// without a usable Content-Type default to text/plain.
func isTextPart(part *message.Entity) bool {
	mediaType, _, err := part.Header.ContentType()
	if err != nil || mediaType == "" {
		return true
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType == "text/plain" || mediaType == "text/html"
}

func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
