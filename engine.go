package dashauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/dashauth/internal/audit"
	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/internal/flows"
	"github.com/MrEthical07/dashauth/internal/rate"
	"github.com/MrEthical07/dashauth/internal/resets"
	"github.com/MrEthical07/dashauth/kv"
	"github.com/MrEthical07/dashauth/password"
	"github.com/MrEthical07/dashauth/permission"
	"github.com/MrEthical07/dashauth/token"
	"github.com/google/uuid"
)

// Engine is the dashboard authentication core. It is safe for concurrent
// use; every write runs under one engine-wide lock.
type Engine struct {
	config Config

	kv      kv.Store
	users   *credstore.Store
	resets  *resets.Store
	limiter *rate.Limiter
	codec   *token.Codec
	hasher  *password.Argon2
	roles   *permission.RoleManager

	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	metrics  *Metrics
	audit    *audit.Dispatcher

	mu sync.Mutex
}

func (e *Engine) currentTokenKey() string     { return e.config.KeyPrefix + "currentToken" }
func (e *Engine) currentSessionIDKey() string { return e.config.KeyPrefix + "currentSessionId" }

// Login checks email and password and opens a session. The new token becomes
// the current session of the engine's store.
func (e *Engine) Login(ctx context.Context, email, secret string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricLoginLatency, time.Since(start)) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := flows.RunLogin(ctx, email, secret, flows.LoginDeps{
		Common:         e.flowCommon(),
		Users:          e.users,
		Limiter:        e.limiter,
		VerifyPassword: e.hasher.Verify,
		NeedsUpgrade:   e.needsUpgrade,
		HashPassword:   e.hasher.Hash,
		NewSessionID:   uuid.NewString,
		SessionTTL:     e.codec.TTL(),
		IssueToken:     e.issueToken,
		SetCurrent:     e.setCurrent,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:      toUser(res.User),
		Token:     res.Token,
		SessionID: res.SessionID,
		ExpiresAt: res.ExpiresAt,
	}, nil
}

// Logout ends the current session. It is a no-op when nobody is logged in.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return flows.RunLogout(ctx, e.sessionDeps())
}

// ResolveCurrentUser returns the user of the current session, or nil when
// there is none. An expired or tampered token is logged out first; a token
// whose user or session is gone has its pointers cleared.
func (e *Engine) ResolveCurrentUser(ctx context.Context) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := flows.RunResolveCurrent(ctx, e.sessionDeps())
	if err != nil || rec == nil {
		return nil, err
	}
	u := toUser(*rec)
	return &u, nil
}

// Authenticate validates a bearer token. The token must decode, its session
// must still exist on the user, and the account must be active.
func (e *Engine) Authenticate(ctx context.Context, raw string) (*User, *token.Claims, error) {
	if e == nil {
		return nil, nil, ErrEngineNotReady
	}
	rec, claims, err := e.authenticate(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	u := toUser(rec)
	return &u, claims, nil
}

func (e *Engine) authenticate(ctx context.Context, raw string) (credstore.Record, *token.Claims, error) {
	claims, ok := e.codec.Decode(raw)
	if !ok {
		return credstore.Record{}, nil, ErrTokenInvalid
	}
	rec, err := e.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, credstore.ErrNotFound) {
		return credstore.Record{}, nil, ErrTokenInvalid
	}
	if err != nil {
		return credstore.Record{}, nil, e.storeErr(err)
	}
	if _, ok := rec.Session(claims.SessionID); !ok {
		return credstore.Record{}, nil, ErrTokenInvalid
	}
	if rec.Status != credstore.StatusActive {
		return credstore.Record{}, nil, ErrAccountDisabled
	}
	return rec, claims, nil
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditStats counts audit events by fate. DroppedByType is keyed by event
// type, for example "login_failure".
type AuditStats struct {
	Delivered     uint64
	Dropped       uint64
	DroppedByType map[string]uint64
}

// AuditStats reports how many audit events reached the sink and how many
// were lost to backpressure.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{DroppedByType: map[string]uint64{}}
	}
	st := e.audit.Stats()
	return AuditStats{Delivered: st.Delivered, Dropped: st.Dropped, DroppedByType: st.DroppedByType}
}

// MetricsSnapshot copies the engine counters and the login latency buckets.
// Both maps are empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) issueToken(rec credstore.Record, sessionID string) (string, time.Time, error) {
	signed, claims, err := e.codec.Encode(token.Subject{
		UserID:    rec.ID,
		Email:     rec.Email,
		Role:      rec.Role,
		SessionID: sessionID,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (e *Engine) needsUpgrade(hash string) (bool, error) {
	if !e.config.Password.UpgradeOnLogin {
		return false, nil
	}
	return e.hasher.NeedsUpgrade(hash)
}

func (e *Engine) decodeToken(raw string) (int64, string, bool) {
	claims, ok := e.codec.Decode(raw)
	if !ok {
		return 0, "", false
	}
	return claims.UserID, claims.SessionID, true
}

func (e *Engine) current(ctx context.Context) (flows.CurrentSession, error) {
	var cur flows.CurrentSession
	tok, err := e.kv.Get(ctx, e.currentTokenKey())
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return cur, err
	}
	sid, err := e.kv.Get(ctx, e.currentSessionIDKey())
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return cur, err
	}
	cur.Token, cur.SessionID = string(tok), string(sid)
	return cur, nil
}

func (e *Engine) setCurrent(ctx context.Context, tok, sessionID string) error {
	if err := e.kv.Set(ctx, e.currentTokenKey(), []byte(tok), 0); err != nil {
		return err
	}
	return e.kv.Set(ctx, e.currentSessionIDKey(), []byte(sessionID), 0)
}

func (e *Engine) clearCurrent(ctx context.Context) error {
	return e.kv.Delete(ctx, e.currentTokenKey(), e.currentSessionIDKey())
}

func (e *Engine) storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) flowCommon() flows.Common {
	return flows.Common{
		Now:       e.now,
		ClientIP:  clientIPFromContext,
		UserAgent: userAgentFromContext,
		MetricInc: func(id int) { e.metrics.Inc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.logger.Warn,
		Errors: flows.Errors{
			EngineNotReady:        ErrEngineNotReady,
			StoreUnavailable:      ErrStoreUnavailable,
			UserNotFound:          ErrUserNotFound,
			AccountDisabled:       ErrAccountDisabled,
			InvalidCredentials:    ErrInvalidCredentials,
			LoginRateLimited:      ErrLoginRateLimited,
			EmailNotFound:         ErrEmailNotFound,
			NoActiveReset:         ErrNoActiveReset,
			ResetExpired:          ErrResetExpired,
			IncorrectCode:         ErrIncorrectCode,
			ResetNotVerified:      ErrResetNotVerified,
			ResetAttemptsExceeded: ErrResetAttemptsExceeded,
			ResetRateLimited:      ErrResetRateLimited,
		},
		Metrics: flows.Metrics{
			LoginSuccess:          int(MetricLoginSuccess),
			LoginFailure:          int(MetricLoginFailure),
			LoginRateLimited:      int(MetricLoginRateLimited),
			SessionCreated:        int(MetricSessionCreated),
			Logout:                int(MetricLogout),
			ResetRequest:          int(MetricPasswordResetRequest),
			ResetRateLimited:      int(MetricPasswordResetRateLimited),
			ResetVerifySuccess:    int(MetricPasswordResetVerifySuccess),
			ResetVerifyFailure:    int(MetricPasswordResetVerifyFailure),
			ResetAttemptsExceeded: int(MetricPasswordResetAttemptsExceeded),
			ResetConfirmSuccess:   int(MetricPasswordResetConfirmSuccess),
			ResetConfirmFailure:   int(MetricPasswordResetConfirmFailure),
		},
		Events: flows.Events{
			LoginSuccess:     AuditLoginSuccess,
			LoginFailure:     AuditLoginFailure,
			LoginRateLimited: AuditLoginRateLimited,
			Logout:           AuditLogout,
			ResetRequest:     AuditPasswordResetRequest,
			ResetVerify:      AuditPasswordResetVerify,
			ResetConfirm:     AuditPasswordResetConfirm,
		},
	}
}

func (e *Engine) sessionDeps() flows.SessionDeps {
	return flows.SessionDeps{
		Common:       e.flowCommon(),
		Users:        e.users,
		DecodeToken:  e.decodeToken,
		Current:      e.current,
		ClearCurrent: e.clearCurrent,
	}
}
