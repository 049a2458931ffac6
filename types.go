package trust

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds trust layer options
type Config interface {
	// GetDomain returns the fixed public origin (scheme://host) when one is
	// configured; empty means the origin is resolved from request headers.
	GetDomain() string
	GetPrivateKeyPath() string
	GetPublicKeyPath() string
	// GetIPHeader returns the trusted proxy header carrying the client IP,
	// or empty when the transport peer address should be used.
	GetIPHeader() string
	GetJobInterval() time.Duration
	GetConnectionRetries() int
}

// Mailer dispatches emergency-access notifications. Sends are fire and
// forget from the caller's point of view: failures are reported so they can
// be logged, but they never roll back the state change that triggered them.
type Mailer interface {
	SendRecoveryAutoApproved(ctx context.Context, grantorEmail, granteeName, accessType string) error
	SendRecoveryApproved(ctx context.Context, granteeEmail, grantorName string) error
	SendRecoveryReminder(ctx context.Context, grantorEmail, granteeName, accessType string, waitTimeDays int) error
}

type noopMailer struct{}

func (noopMailer) SendRecoveryAutoApproved(context.Context, string, string, string) error { return nil }
func (noopMailer) SendRecoveryApproved(context.Context, string, string) error             { return nil }
func (noopMailer) SendRecoveryReminder(context.Context, string, string, string, int) error {
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] TRUST "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] TRUST "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] TRUST "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] TRUST "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
