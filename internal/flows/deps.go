package flows

import (
	"context"
	"fmt"
	"time"
)

// Errors carries the host's sentinel errors.
type Errors struct {
	EngineNotReady        error
	StoreUnavailable      error
	UserNotFound          error
	AccountDisabled       error
	InvalidCredentials    error
	LoginRateLimited      error
	EmailNotFound         error
	NoActiveReset         error
	ResetExpired          error
	IncorrectCode         error
	ResetNotVerified      error
	ResetAttemptsExceeded error
	ResetRateLimited      error
}

// Metrics carries the host's metric ids.
type Metrics struct {
	LoginSuccess          int
	LoginFailure          int
	LoginRateLimited      int
	SessionCreated        int
	Logout                int
	ResetRequest          int
	ResetRateLimited      int
	ResetVerifySuccess    int
	ResetVerifyFailure    int
	ResetAttemptsExceeded int
	ResetConfirmSuccess   int
	ResetConfirmFailure   int
}

// Events carries the host's audit event names.
type Events struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	Logout           string
	ResetRequest     string
	ResetVerify      string
	ResetConfirm     string
}

// Common holds collaborators shared by every flow.
type Common struct {
	Now       func() time.Time
	ClientIP  func(context.Context) string
	UserAgent func(context.Context) string

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID int64, sessionID string, err error, meta func() map[string]string)
	Warn      func(msg string, args ...any)

	Errors  Errors
	Metrics Metrics
	Events  Events
}

func (c *Common) normalize() {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.ClientIP == nil {
		c.ClientIP = func(context.Context) string { return "" }
	}
	if c.UserAgent == nil {
		c.UserAgent = func(context.Context) string { return "" }
	}
	if c.MetricInc == nil {
		c.MetricInc = func(int) {}
	}
	if c.EmitAudit == nil {
		c.EmitAudit = func(context.Context, string, bool, int64, string, error, func() map[string]string) {}
	}
	if c.Warn == nil {
		c.Warn = func(string, ...any) {}
	}
}

func (c *Common) storeErr(err error) error {
	return fmt.Errorf("%w: %v", c.Errors.StoreUnavailable, err)
}

func emailMeta(email string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"email": email}
	}
}
