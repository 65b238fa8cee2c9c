package dashauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/dashauth/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentCode struct {
	email     string
	code      string
	expiresAt time.Time
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (n *captureNotifier) SendResetCode(_ context.Context, email, code string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentCode{email: email, code: code, expiresAt: expiresAt})
	return n.err
}

func (n *captureNotifier) last(t *testing.T) sentCode {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no reset code was delivered")
	}
	return n.sent[len(n.sent)-1]
}

type testEnv struct {
	engine   *Engine
	store    *kv.Memory
	clock    *testClock
	notifier *captureNotifier
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Parallelism = 1
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	clock := newTestClock()
	store := kv.NewMemory().WithClock(clock.Now)
	notifier := &captureNotifier{}

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithClock(clock.Now).
		WithNotifier(notifier).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, store: store, clock: clock, notifier: notifier}
}

func (env *testEnv) login(t *testing.T, email, secret string) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), email, secret)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", email, err)
	}
	return res
}

func (env *testEnv) userByEmail(t *testing.T, email string) User {
	t.Helper()
	rec, err := env.engine.users.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail(%s) failed: %v", email, err)
	}
	return toUser(rec)
}

func TestBuildSeedsDemoUsersOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recs, err := env.engine.users.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 seeded users, got %d", len(recs))
	}
	want := map[string]string{"admin@demo.com": "admin", "mod@demo.com": "moderator", "user@demo.com": "user"}
	for _, r := range recs {
		if want[r.Email] != r.Role {
			t.Fatalf("unexpected seed user %s with role %s", r.Email, r.Role)
		}
		if r.PasswordHash == "" || r.PasswordHash == "admin123" {
			t.Fatalf("seed password for %s is not hashed", r.Email)
		}
	}

	again, err := New().WithConfig(testConfig()).WithStore(env.store).WithClock(env.clock.Now).Build(ctx)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	defer again.Close()

	recs, _ = again.users.List(ctx)
	if len(recs) != 3 {
		t.Fatalf("expected seeding to be skipped on a populated store, got %d users", len(recs))
	}
}

func TestBuilderRejectsReuseAndMissingStore(t *testing.T) {
	ctx := context.Background()

	if _, err := New().Build(ctx); err == nil {
		t.Fatal("expected error without a store")
	}

	b := New().WithConfig(testConfig()).WithStore(kv.NewMemory()).WithSeedUsers(false)
	e, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	e.Close()
	if _, err := b.Build(ctx); err == nil {
		t.Fatal("expected reused builder to fail")
	}
}

func TestAdminSeedLoginScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := WithUserAgent(WithClientIP(context.Background(), "10.0.0.7"), "Firefox")

	res, err := env.engine.Login(ctx, "admin@demo.com", "admin123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.User.ID != 1 || res.User.Role != RoleAdmin || res.User.Avatar != "A" {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if len(res.User.Sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(res.User.Sessions))
	}
	s := res.User.Sessions[0]
	if s.ID != res.SessionID || s.IP != "10.0.0.7" || s.Device != "Firefox" {
		t.Fatalf("unexpected session %+v", s)
	}
	if res.User.LastLogin == nil || !res.User.LastLogin.Equal(env.clock.Now()) {
		t.Fatalf("expected lastLogin to be now, got %v", res.User.LastLogin)
	}
	if !res.ExpiresAt.Equal(env.clock.Now().Add(24 * time.Hour)) {
		t.Fatalf("expected 24h token, got %v", res.ExpiresAt)
	}

	raw, err := env.store.Get(ctx, "dashauth:currentToken")
	if err != nil || string(raw) != res.Token {
		t.Fatalf("current token pointer not written: %v", err)
	}
}

func TestLoginResolveAddsOneSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before := env.userByEmail(t, "user@demo.com")
	res := env.login(t, "user@demo.com", "user123")

	cur, err := env.engine.ResolveCurrentUser(ctx)
	if err != nil {
		t.Fatalf("ResolveCurrentUser failed: %v", err)
	}
	if cur == nil || cur.ID != res.User.ID {
		t.Fatalf("expected current user %d, got %+v", res.User.ID, cur)
	}
	if len(cur.Sessions) != len(before.Sessions)+1 {
		t.Fatalf("expected %d sessions, got %d", len(before.Sessions)+1, len(cur.Sessions))
	}
	if cur.Sessions[0].Device != "unknown" || cur.Sessions[0].IP != "127.0.0.1" {
		t.Fatalf("expected default device and ip, got %+v", cur.Sessions[0])
	}
}

func TestLoginErrorOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Login(ctx, "nobody@demo.com", "whatever"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	mod := env.userByEmail(t, "mod@demo.com")
	if _, err := env.engine.users.SetStatus(ctx, mod.ID, "inactive"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	// disabled wins over a wrong password
	if _, err := env.engine.Login(ctx, "mod@demo.com", "wrong"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}

	if _, err := env.engine.Login(ctx, "user@demo.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "  USER@demo.com ", "user123"); err != nil {
		t.Fatalf("expected case-insensitive email match, got %v", err)
	}
}

func TestLoginRateLimitedAfterFailures(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Login.MaxAttempts = 3
		c.Login.Window = time.Minute
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := env.engine.Login(ctx, "user@demo.com", "bad"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := env.engine.Login(ctx, "user@demo.com", "user123"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	env.clock.Advance(time.Minute + time.Second)
	env.login(t, "user@demo.com", "user123")

	if got := env.engine.MetricsSnapshot().Counters[MetricLoginRateLimited]; got != 1 {
		t.Fatalf("expected 1 rate-limited login, got %d", got)
	}
}

func TestResolveExpiredTokenClearsPointers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.login(t, "user@demo.com", "user123")
	env.clock.Advance(25 * time.Hour)

	cur, err := env.engine.ResolveCurrentUser(ctx)
	if err != nil {
		t.Fatalf("ResolveCurrentUser failed: %v", err)
	}
	if cur != nil {
		t.Fatalf("expected nil user for expired token, got %+v", cur)
	}
	for _, key := range []string{"dashauth:currentToken", "dashauth:currentSessionId"} {
		if _, err := env.store.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected %s to be cleared, got %v", key, err)
		}
	}
}

func TestResolveTamperedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.login(t, "user@demo.com", "user123")
	if err := env.store.Set(ctx, "dashauth:currentToken", []byte(res.Token+"x"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	cur, err := env.engine.ResolveCurrentUser(ctx)
	if err != nil || cur != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", cur, err)
	}
}

func TestResolveVanishedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.login(t, "user@demo.com", "user123")
	if err := env.engine.users.Delete(ctx, res.User.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	cur, err := env.engine.ResolveCurrentUser(ctx)
	if err != nil || cur != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", cur, err)
	}
	assertCurrentCleared(t, env)
}

func TestResolveAfterDeleteDoesNotReachNewAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.login(t, "admin@demo.com", "admin123")
	if _, err := env.engine.Register(ctx, RegisterRequest{Name: "Vic", Email: "vic@demo.com", Password: "Secret12"}); err != nil {
		t.Fatalf("Register(vic) failed: %v", err)
	}
	vic := env.login(t, "vic@demo.com", "Secret12")

	if err := env.engine.DeleteUser(WithAccessToken(ctx, admin.Token), vic.User.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	eve, err := env.engine.Register(ctx, RegisterRequest{Name: "Eve", Email: "eve@demo.com", Password: "Secret12"})
	if err != nil {
		t.Fatalf("Register(eve) failed: %v", err)
	}
	if eve.ID == vic.User.ID {
		t.Fatalf("id %d of a deleted user was reused", eve.ID)
	}

	cur, err := env.engine.ResolveCurrentUser(ctx)
	if err != nil || cur != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", cur, err)
	}
	assertCurrentCleared(t, env)
}

func TestResolveRevokedCurrentSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.login(t, "admin@demo.com", "admin123")
	user := env.login(t, "user@demo.com", "user123")
	if err := env.engine.RevokeSession(WithAccessToken(ctx, admin.Token), user.User.ID, user.SessionID); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	cur, err := env.engine.ResolveCurrentUser(ctx)
	if err != nil || cur != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", cur, err)
	}
	assertCurrentCleared(t, env)
	if _, _, err := env.engine.Authenticate(ctx, user.Token); err == nil {
		t.Fatal("revoked token still authenticates")
	}
}

func assertCurrentCleared(t *testing.T, env *testEnv) {
	t.Helper()
	for _, key := range []string{"dashauth:currentToken", "dashauth:currentSessionId"} {
		if _, err := env.store.Get(context.Background(), key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected %s to be cleared, got %v", key, err)
		}
	}
}

func TestLogoutRemovesSessionAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.Logout(ctx); err != nil {
		t.Fatalf("Logout without session failed: %v", err)
	}

	env.login(t, "user@demo.com", "user123")
	env.login(t, "user@demo.com", "user123")
	if err := env.engine.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := env.engine.Logout(ctx); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}

	if u := env.userByEmail(t, "user@demo.com"); len(u.Sessions) != 1 {
		t.Fatalf("expected one remaining session, got %d", len(u.Sessions))
	}
	if cur, _ := env.engine.ResolveCurrentUser(ctx); cur != nil {
		t.Fatalf("expected no current user after logout, got %+v", cur)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("expected 1 logout, got %d", got)
	}
}

func TestAuthenticateBearer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.login(t, "mod@demo.com", "mod123")
	u, claims, err := env.engine.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.ID != res.User.ID || claims.SessionID != res.SessionID || claims.Role != "moderator" {
		t.Fatalf("unexpected identity %+v %+v", u, claims)
	}

	if _, _, err := env.engine.Authenticate(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	if err := env.engine.RevokeSession(ctx, res.User.ID, res.SessionID); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, _, err := env.engine.Authenticate(ctx, res.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked session to be rejected, got %v", err)
	}
}

func TestSigningKeyPersistsAcrossBuilds(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := kv.NewMemory().WithClock(clock.Now)

	cfg := testConfig()
	cfg.Token.PrivateKey = nil

	first, err := New().WithConfig(cfg).WithStore(store).WithClock(clock.Now).Build(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	res, err := first.Login(ctx, "user@demo.com", "user123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	first.Close()

	second, err := New().WithConfig(cfg).WithStore(store).WithClock(clock.Now).Build(ctx)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	defer second.Close()

	cur, err := second.ResolveCurrentUser(ctx)
	if err != nil || cur == nil || cur.ID != res.User.ID {
		t.Fatalf("expected session to survive a rebuild, got (%v, %v)", cur, err)
	}
}

func TestEngineOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	engine, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	res, err := engine.Login(ctx, "admin@demo.com", "admin123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !mr.Exists("dashauth:users") || !mr.Exists("dashauth:currentToken") {
		t.Fatal("expected users and current token in redis")
	}
	cur, err := engine.ResolveCurrentUser(ctx)
	if err != nil || cur == nil || cur.ID != res.User.ID {
		t.Fatalf("ResolveCurrentUser = (%v, %v)", cur, err)
	}
}

func TestAuditEventsReachSink(t *testing.T) {
	ctx := context.Background()
	sink := NewChannelSink(16)

	engine, err := New().WithConfig(testConfig()).WithStore(kv.NewMemory()).WithAuditSink(sink).Build(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := engine.Login(WithClientIP(ctx, "192.0.2.1"), "user@demo.com", "user123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	engine.Close()
	if st := engine.AuditStats(); st.Delivered == 0 || st.Dropped != 0 {
		t.Fatalf("unexpected audit stats %+v", st)
	}

	select {
	case ev := <-sink.Events():
		if ev.EventType != AuditLoginSuccess || !ev.Success || ev.IP != "192.0.2.1" || ev.Metadata["email"] != "user@demo.com" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected a login audit event")
	}
}
