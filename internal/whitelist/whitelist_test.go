package whitelist

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestChecker_IsWhitelisted(t *testing.T) {
	checker := NewChecker([]string{" Company.com ", "", "partner.org"}, zaptest.NewLogger(t))

	tests := []struct {
		from string
		want bool
	}{
		{"alice@company.com", true},
		{"Alice <alice@COMPANY.com>", true},
		{"bob@partner.org", true},
		{"mallory@company.com.evil.io", false},
		{"no-domain", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := checker.IsWhitelisted(tt.from); got != tt.want {
			t.Errorf("IsWhitelisted(%q) = %t, want %t", tt.from, got, tt.want)
		}
	}

	if got := checker.Domains(); len(got) != 2 || got[0] != "company.com" {
		t.Errorf("unexpected normalized domains %v", got)
	}
}

func TestChecker_Empty(t *testing.T) {
	var nilChecker *Checker
	if nilChecker.IsWhitelisted("a@b.com") {
		t.Error("nil checker must not trust anything")
	}
	if NewChecker(nil, nil).IsWhitelisted("a@b.com") {
		t.Error("empty checker must not trust anything")
	}
}
