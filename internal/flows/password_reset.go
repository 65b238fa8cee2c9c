package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/dashauth/internal"
	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/internal/rate"
	"github.com/MrEthical07/dashauth/internal/resets"
)

// ResetDeps wires the password-reset state machine.
type ResetDeps struct {
	Common

	Users   *credstore.Store
	Resets  *resets.Store
	Limiter *rate.Limiter

	CodeTTL time.Duration
	// Retention keeps expired slots readable for a while so a late attempt
	// reports expiry rather than a missing reset.
	Retention   time.Duration
	MaxAttempts int

	NewResetID   func() string
	NewCode      func() (string, error)
	Deliver      func(ctx context.Context, email, code string, expiresAt time.Time) error
	CheckPolicy  func(secret string) error
	HashPassword func(secret string) (string, error)
}

// ResetTicket identifies an opened reset without revealing its code.
type ResetTicket struct {
	ResetID   string
	ExpiresAt time.Time
}

// RunRequestReset opens a reset slot for the account behind email,
// replacing any earlier one, and hands the code to Deliver.
func RunRequestReset(ctx context.Context, email string, deps ResetDeps) (*ResetTicket, error) {
	deps.normalize()
	if deps.Users == nil || deps.Resets == nil || deps.NewResetID == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.NewCode == nil {
		deps.NewCode = internal.NewResetCode
	}

	email = credstore.NormalizeEmail(email)

	if deps.Limiter != nil {
		if err := deps.Limiter.HitReset(ctx, email); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				deps.MetricInc(deps.Metrics.ResetRateLimited)
				deps.EmitAudit(ctx, deps.Events.ResetRequest, false, 0, "", deps.Errors.ResetRateLimited, emailMeta(email))
				return nil, deps.Errors.ResetRateLimited
			}
			return nil, deps.storeErr(err)
		}
	}

	user, err := deps.Users.FindByEmail(ctx, email)
	if errors.Is(err, credstore.ErrNotFound) {
		deps.EmitAudit(ctx, deps.Events.ResetRequest, false, 0, "", deps.Errors.EmailNotFound, emailMeta(email))
		return nil, deps.Errors.EmailNotFound
	}
	if err != nil {
		return nil, deps.storeErr(err)
	}

	code, err := deps.NewCode()
	if err != nil {
		return nil, err
	}

	now := deps.Now()
	ticket := &ResetTicket{
		ResetID:   deps.NewResetID(),
		ExpiresAt: now.Add(deps.CodeTTL).UTC(),
	}
	rec := resets.Record{
		UserID:    user.ID,
		CodeHash:  internal.HashResetCode(code),
		ExpiresAt: ticket.ExpiresAt,
	}
	if err := deps.Resets.Open(ctx, ticket.ResetID, rec, deps.slotTTL(rec, now)); err != nil {
		return nil, deps.storeErr(err)
	}

	if deps.Deliver != nil {
		if err := deps.Deliver(ctx, user.Email, code, ticket.ExpiresAt); err != nil {
			deps.Warn("dashauth: reset code delivery failed", "user_id", user.ID, "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.ResetRequest)
	deps.EmitAudit(ctx, deps.Events.ResetRequest, true, user.ID, "", nil, emailMeta(email))
	return ticket, nil
}

// slotTTL keeps a slot in the backend for Retention past ExpiresAt, plus a
// second so it is still readable at the expiry instant itself.
func (d *ResetDeps) slotTTL(rec resets.Record, now time.Time) time.Duration {
	return rec.ExpiresAt.Sub(now) + d.Retention + time.Second
}

// loadLive returns the slot for resetID, clearing and reporting it when
// expired.
func loadLive(ctx context.Context, resetID string, deps *ResetDeps) (resets.Record, error) {
	rec, err := deps.Resets.Get(ctx, resetID)
	if errors.Is(err, resets.ErrNotFound) || errors.Is(err, resets.ErrCorrupt) {
		return rec, deps.Errors.NoActiveReset
	}
	if err != nil {
		return rec, deps.storeErr(err)
	}
	if rec.Expired(deps.Now()) {
		if err := deps.Resets.Clear(ctx, resetID, rec.UserID); err != nil {
			return rec, deps.storeErr(err)
		}
		return rec, deps.Errors.ResetExpired
	}
	return rec, nil
}

// RunVerifyCode checks code against the slot. A wrong code keeps the slot and
// counts an attempt; reaching MaxAttempts discards it. A match marks the slot
// verified and returns the owning user id.
func RunVerifyCode(ctx context.Context, resetID, code string, deps ResetDeps) (int64, error) {
	deps.normalize()
	if deps.Resets == nil {
		return 0, deps.Errors.EngineNotReady
	}

	rec, err := loadLive(ctx, resetID, &deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.ResetVerifyFailure)
		deps.EmitAudit(ctx, deps.Events.ResetVerify, false, rec.UserID, "", err, nil)
		return 0, err
	}
	ttl := deps.slotTTL(rec, deps.Now())

	if !internal.ResetCodeMatches(code, rec.CodeHash) {
		rec.Attempts++
		if deps.MaxAttempts > 0 && int(rec.Attempts) >= deps.MaxAttempts {
			if err := deps.Resets.Clear(ctx, resetID, rec.UserID); err != nil {
				return 0, deps.storeErr(err)
			}
			deps.MetricInc(deps.Metrics.ResetAttemptsExceeded)
			deps.EmitAudit(ctx, deps.Events.ResetVerify, false, rec.UserID, "", deps.Errors.ResetAttemptsExceeded, nil)
			return 0, deps.Errors.ResetAttemptsExceeded
		}
		if err := deps.Resets.Put(ctx, resetID, rec, ttl); err != nil {
			return 0, deps.storeErr(err)
		}
		deps.MetricInc(deps.Metrics.ResetVerifyFailure)
		deps.EmitAudit(ctx, deps.Events.ResetVerify, false, rec.UserID, "", deps.Errors.IncorrectCode, nil)
		return 0, deps.Errors.IncorrectCode
	}

	rec.Verified = true
	if err := deps.Resets.Put(ctx, resetID, rec, ttl); err != nil {
		return 0, deps.storeErr(err)
	}
	deps.MetricInc(deps.Metrics.ResetVerifySuccess)
	deps.EmitAudit(ctx, deps.Events.ResetVerify, true, rec.UserID, "", nil, nil)
	return rec.UserID, nil
}

// RunResetPassword replaces the password of the slot's user once the slot
// has been verified, then discards the slot and every session of the user.
func RunResetPassword(ctx context.Context, resetID, secret string, deps ResetDeps) error {
	deps.normalize()
	if deps.Users == nil || deps.Resets == nil || deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}

	rec, err := loadLive(ctx, resetID, &deps)
	if err == nil && !rec.Verified {
		err = deps.Errors.ResetNotVerified
	}
	if err == nil && deps.CheckPolicy != nil {
		err = deps.CheckPolicy(secret)
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.ResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.ResetConfirm, false, rec.UserID, "", err, nil)
		return err
	}

	hash, err := deps.HashPassword(secret)
	if err != nil {
		return err
	}

	_, err = deps.Users.Mutate(ctx, rec.UserID, func(r *credstore.Record, _ []credstore.Record) error {
		r.PasswordHash = hash
		r.Sessions = []credstore.SessionRecord{}
		return nil
	})
	if errors.Is(err, credstore.ErrNotFound) {
		if err := deps.Resets.Clear(ctx, resetID, rec.UserID); err != nil {
			deps.Warn("dashauth: clear orphaned reset", "error", err)
		}
		deps.MetricInc(deps.Metrics.ResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.ResetConfirm, false, rec.UserID, "", deps.Errors.UserNotFound, nil)
		return deps.Errors.UserNotFound
	}
	if err != nil {
		return deps.storeErr(err)
	}

	if err := deps.Resets.Clear(ctx, resetID, rec.UserID); err != nil {
		return deps.storeErr(err)
	}

	deps.MetricInc(deps.Metrics.ResetConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.ResetConfirm, true, rec.UserID, "", nil, nil)
	return nil
}
