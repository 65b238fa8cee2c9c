package dashauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/dashauth/internal/audit"
	"github.com/MrEthical07/dashauth/internal/credstore"
	"github.com/MrEthical07/dashauth/internal/rate"
	"github.com/MrEthical07/dashauth/internal/resets"
	"github.com/MrEthical07/dashauth/kv"
	"github.com/MrEthical07/dashauth/password"
	"github.com/MrEthical07/dashauth/permission"
	"github.com/MrEthical07/dashauth/token"
	"github.com/redis/go-redis/v9"
)

const signingKeyLen = 32

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config   Config
	store    kv.Store
	logger   *slog.Logger
	now      func() time.Time
	notifier Notifier
	sink     AuditSink

	built bool
}

// New returns a Builder primed with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the backend holding users, sessions and reset slots.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithRedis is shorthand for WithStore(kv.NewRedis(client)).
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.store = kv.NewRedis(client)
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for sessions, tokens, reset expiry and the
// audit trail.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

func (b *Builder) WithSeedUsers(enabled bool) *Builder {
	b.config.Seed.Enabled = enabled
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the engine and writes the seed
// users into an empty store.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("kv store is required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	hasher, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}

	key := cfg.Token.PrivateKey
	if token.Method(cfg.Token.SigningMethod) == token.MethodHS256 && len(key) == 0 {
		if key, err = loadSigningKey(ctx, b.store, cfg.KeyPrefix+"signingKey"); err != nil {
			return nil, err
		}
	}
	codec, err := token.NewCodec(token.Config{
		Method:    token.Method(cfg.Token.SigningMethod),
		Key:       key,
		PublicKey: cfg.Token.PublicKey,
		TTL:       cfg.Token.TTL,
		Issuer:    cfg.Token.Issuer,
		Audience:  cfg.Token.Audience,
		Leeway:    cfg.Token.Leeway,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   cfg,
		kv:       b.store,
		users:    credstore.New(b.store, cfg.KeyPrefix+"users", now),
		resets:   resets.New(b.store, cfg.KeyPrefix+"pendingReset"),
		codec:    codec,
		hasher:   hasher,
		roles:    permission.Dashboard(),
		notifier: b.notifier,
		logger:   logger,
		now:      now,
		metrics:  NewMetrics(cfg.Metrics),
	}
	e.limiter = rate.New(b.store, cfg.KeyPrefix, rate.Config{
		EnableIPThrottle: cfg.Login.EnableIPThrottle,
		MaxLoginAttempts: cfg.Login.MaxAttempts,
		LoginWindow:      cfg.Login.Window,
		MaxResetRequests: cfg.PasswordReset.MaxRequests,
		ResetWindow:      cfg.PasswordReset.RequestWindow,
	})
	e.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.sink)

	if cfg.Seed.Enabled {
		if err := e.seed(ctx, cfg.Seed.Users); err != nil {
			e.Close()
			return nil, err
		}
	}

	b.built = true
	return e, nil
}

// loadSigningKey returns the HMAC key kept under key, creating it on first
// use.
func loadSigningKey(ctx context.Context, store kv.Store, key string) ([]byte, error) {
	raw, err := store.Get(ctx, key)
	if err == nil && len(raw) >= signingKeyLen {
		return raw, nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	raw = make([]byte, signingKeyLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	if err := store.Set(ctx, key, raw, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return raw, nil
}
