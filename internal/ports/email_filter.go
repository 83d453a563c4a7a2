package ports

import (
	"context"

	"github.com/mikey/phishing-detector/internal/core"
)

// EmailFilter defines the interface for email filtering front ends
type EmailFilter interface {
	// ProcessEmail classifies an email and returns the detection result
	ProcessEmail(ctx context.Context, email *core.Email) (*core.DetectionResult, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
