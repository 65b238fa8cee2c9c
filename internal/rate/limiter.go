package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/dashauth/kv"
)

// Config holds limiter tuning. A zero max disables the matching limit.
type Config struct {
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginWindow      time.Duration
	MaxResetRequests int
	ResetWindow      time.Duration
}

// Limiter counts login failures and reset requests.
type Limiter struct {
	kv     kv.Store
	prefix string
	config Config
}

// New returns a Limiter storing counters under prefix.
func New(backend kv.Store, prefix string, cfg Config) *Limiter {
	return &Limiter{kv: backend, prefix: prefix, config: cfg}
}

func (l *Limiter) loginKey(email string) string { return l.prefix + "rl:login:" + email }
func (l *Limiter) loginIPKey(ip string) string  { return l.prefix + "rl:login:ip:" + ip }
func (l *Limiter) resetKey(email string) string { return l.prefix + "rl:reset:" + email }

// CheckLogin fails with ErrRateLimited once the account, or the client
// address when IP throttling is on, has used up its failure budget.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	if err := l.check(ctx, l.loginKey(email), l.config.MaxLoginAttempts); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.check(ctx, l.loginIPKey(ip), l.config.MaxLoginAttempts)
	}
	return nil
}

// RecordLoginFailure counts one failed login.
func (l *Limiter) RecordLoginFailure(ctx context.Context, email, ip string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	if _, err := l.incr(ctx, l.loginKey(email), l.config.LoginWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.incr(ctx, l.loginIPKey(ip), l.config.LoginWindow); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin forgets the account's failures after a successful login. The
// per-IP counter is left alone so one good password does not unlock an
// address that is guessing at other accounts.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if err := l.kv.Delete(ctx, l.loginKey(email)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// HitReset counts a reset request and fails once the window's budget is
// spent.
func (l *Limiter) HitReset(ctx context.Context, email string) error {
	if l.config.MaxResetRequests <= 0 {
		return nil
	}
	n, err := l.incr(ctx, l.resetKey(email), l.config.ResetWindow)
	if err != nil {
		return err
	}
	if n > int64(l.config.MaxResetRequests) {
		return ErrRateLimited
	}
	return nil
}

// LoginFailures returns the current failure count for email.
func (l *Limiter) LoginFailures(ctx context.Context, email string) (int, error) {
	n, err := l.count(ctx, l.loginKey(email))
	return int(n), err
}

func (l *Limiter) check(ctx context.Context, key string, limit int) error {
	n, err := l.count(ctx, key)
	if err != nil {
		return err
	}
	if n >= int64(limit) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) count(ctx context.Context, key string) (int64, error) {
	raw, err := l.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func (l *Limiter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := l.kv.Incr(ctx, key, window)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
