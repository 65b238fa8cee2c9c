package dashauth

import (
	"context"
	"time"

	"github.com/MrEthical07/dashauth/internal/flows"
	"github.com/google/uuid"
)

// RequestReset opens a password reset for the account behind email and hands
// the six-digit code to the Notifier. Any earlier reset of that account is
// discarded.
func (e *Engine) RequestReset(ctx context.Context, email string) (*ResetTicket, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := flows.RunRequestReset(ctx, email, e.resetDeps())
	if err != nil {
		return nil, err
	}
	return &ResetTicket{ResetID: t.ResetID, ExpiresAt: t.ExpiresAt}, nil
}

// VerifyCode checks a reset code. Each wrong code counts against the reset;
// once MaxAttempts is reached the reset is discarded.
func (e *Engine) VerifyCode(ctx context.Context, resetID, code string) (*VerifyResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	uid, err := flows.RunVerifyCode(ctx, resetID, code, e.resetDeps())
	if err != nil {
		return nil, err
	}
	return &VerifyResult{UserID: uid}, nil
}

// ResetPassword sets a new password on a verified reset, ends every session
// of the user and discards the reset.
func (e *Engine) ResetPassword(ctx context.Context, resetID, newSecret string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return flows.RunResetPassword(ctx, resetID, newSecret, e.resetDeps())
}

func (e *Engine) resetDeps() flows.ResetDeps {
	return flows.ResetDeps{
		Common:       e.flowCommon(),
		Users:        e.users,
		Resets:       e.resets,
		Limiter:      e.limiter,
		CodeTTL:      e.config.PasswordReset.CodeTTL,
		Retention:    e.config.PasswordReset.Retention,
		MaxAttempts:  e.config.PasswordReset.MaxAttempts,
		NewResetID:   uuid.NewString,
		Deliver:      e.deliverResetCode,
		CheckPolicy:  e.checkPolicy,
		HashPassword: e.hasher.Hash,
	}
}

func (e *Engine) deliverResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if e.notifier == nil {
		e.logger.Warn("dashauth: no notifier configured, reset code not delivered", "email", email)
		return nil
	}
	return e.notifier.SendResetCode(ctx, email, code, expiresAt)
}
