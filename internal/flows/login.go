package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/internal/rate"
)

const (
	defaultDevice = "unknown"
	defaultIP     = "127.0.0.1"
)

// LoginDeps wires RunLogin.
type LoginDeps struct {
	Common

	Users   *credstore.Store
	Limiter *rate.Limiter

	VerifyPassword func(secret, hash string) (bool, error)
	NeedsUpgrade   func(hash string) (bool, error)
	HashPassword   func(secret string) (string, error)

	NewSessionID func() string
	// SessionTTL bounds how long a session is kept; sessions older than
	// this are pruned at the user's next login.
	SessionTTL time.Duration
	IssueToken func(rec credstore.Record, sessionID string) (token string, expiresAt time.Time, err error)
	SetCurrent func(ctx context.Context, token, sessionID string) error
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User      credstore.Record
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// RunLogin checks credentials, records a new session on the user, issues a
// token and stores it as the current session.
func RunLogin(ctx context.Context, email, secret string, deps LoginDeps) (*LoginResult, error) {
	deps.normalize()
	if deps.Users == nil || deps.VerifyPassword == nil || deps.IssueToken == nil || deps.NewSessionID == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = credstore.NormalizeEmail(email)
	ip := deps.ClientIP(ctx)

	if deps.Limiter != nil {
		if err := deps.Limiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				deps.MetricInc(deps.Metrics.LoginRateLimited)
				deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, 0, "", deps.Errors.LoginRateLimited, emailMeta(email))
				return nil, deps.Errors.LoginRateLimited
			}
			return nil, deps.storeErr(err)
		}
	}

	fail := func(userID int64, cause error) error {
		if deps.Limiter != nil {
			if err := deps.Limiter.RecordLoginFailure(ctx, email, ip); err != nil {
				deps.Warn("dashauth: record login failure", "error", err)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, "", cause, emailMeta(email))
		return cause
	}

	rec, err := deps.Users.FindByEmail(ctx, email)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, fail(0, deps.Errors.UserNotFound)
	}
	if err != nil {
		return nil, deps.storeErr(err)
	}

	if rec.Status != credstore.StatusActive {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, rec.ID, "", deps.Errors.AccountDisabled, emailMeta(email))
		return nil, deps.Errors.AccountDisabled
	}

	ok, err := deps.VerifyPassword(secret, rec.PasswordHash)
	if err != nil {
		deps.Warn("dashauth: stored password hash unreadable", "user_id", rec.ID, "error", err)
		ok = false
	}
	if !ok {
		return nil, fail(rec.ID, deps.Errors.InvalidCredentials)
	}

	upgraded := ""
	if deps.NeedsUpgrade != nil && deps.HashPassword != nil {
		if up, _ := deps.NeedsUpgrade(rec.PasswordHash); up {
			if h, err := deps.HashPassword(secret); err != nil {
				deps.Warn("dashauth: password rehash failed", "user_id", rec.ID, "error", err)
			} else {
				upgraded = h
			}
		}
	}

	now := deps.Now().UTC()
	sess := credstore.SessionRecord{
		ID:           deps.NewSessionID(),
		Device:       orDefault(deps.UserAgent(ctx), defaultDevice),
		IP:           orDefault(ip, defaultIP),
		CreatedAt:    now,
		LastActivity: now,
	}

	rec, err = deps.Users.Mutate(ctx, rec.ID, func(r *credstore.Record, _ []credstore.Record) error {
		if deps.SessionTTL > 0 {
			pruneSessions(r, now.Add(-deps.SessionTTL))
		}
		r.LastLogin = &now
		r.Sessions = append(r.Sessions, sess)
		if upgraded != "" {
			r.PasswordHash = upgraded
		}
		return nil
	})
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, deps.Errors.UserNotFound
	}
	if err != nil {
		return nil, deps.storeErr(err)
	}

	token, expiresAt, err := deps.IssueToken(rec, sess.ID)
	if err != nil {
		return nil, err
	}
	if deps.SetCurrent != nil {
		if err := deps.SetCurrent(ctx, token, sess.ID); err != nil {
			return nil, deps.storeErr(err)
		}
	}

	if deps.Limiter != nil {
		if err := deps.Limiter.ResetLogin(ctx, email); err != nil {
			deps.Warn("dashauth: reset login counter", "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, rec.ID, sess.ID, nil, emailMeta(email))

	return &LoginResult{
		User:      rec,
		Token:     token,
		SessionID: sess.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// pruneSessions drops sessions created before cutoff.
func pruneSessions(r *credstore.Record, cutoff time.Time) {
	kept := r.Sessions[:0]
	for _, s := range r.Sessions {
		if !s.CreatedAt.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	r.Sessions = kept
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
