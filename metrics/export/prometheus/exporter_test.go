package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/kv"
)

type fakeSource struct {
	snapshot dashauth.MetricsSnapshot
	audit    dashauth.AuditStats
}

func (f fakeSource) MetricsSnapshot() dashauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditStats() dashauth.AuditStats           { return f.audit }

func emptySnapshot() dashauth.MetricsSnapshot {
	return dashauth.MetricsSnapshot{
		Counters:      map[dashauth.MetricID]uint64{},
		Histograms:    map[dashauth.MetricID][]uint64{},
		HistogramSums: map[dashauth.MetricID]time.Duration{},
	}
}

func TestRenderEmptyWhenNothingToReport(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: emptySnapshot()})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
}

func TestRenderLabelledFamilies(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: dashauth.MetricsSnapshot{
			Counters: map[dashauth.MetricID]uint64{
				dashauth.MetricLoginSuccess:             7,
				dashauth.MetricLoginRateLimited:         1,
				dashauth.MetricPasswordResetRateLimited: 2,
				dashauth.MetricPermissionDenied:         4,
			},
			Histograms: map[dashauth.MetricID][]uint64{
				dashauth.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[dashauth.MetricID]time.Duration{
				dashauth.MetricLoginLatency: 1500 * time.Millisecond,
			},
		},
		audit: dashauth.AuditStats{
			Delivered:     40,
			Dropped:       3,
			DroppedByType: map[string]uint64{"login_failure": 2, "logout": 1},
		},
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE dashauth_logins_total counter",
		`dashauth_logins_total{outcome="success"} 7`,
		`dashauth_logins_total{outcome="rate_limited"} 1`,
		`dashauth_logins_total{outcome="failure"} 0`,
		`dashauth_password_resets_total{stage="request",outcome="rate_limited"} 2`,
		"dashauth_profile_updates_total 0",
		`dashauth_authorization_total{status="denied"} 4`,
		"# TYPE dashauth_login_latency_seconds histogram",
		`dashauth_login_latency_seconds_bucket{le="0.005"} 1`,
		`dashauth_login_latency_seconds_bucket{le="0.5"} 28`,
		`dashauth_login_latency_seconds_bucket{le="+Inf"} 36`,
		"dashauth_login_latency_seconds_sum 1.5",
		"dashauth_login_latency_seconds_count 36",
		`dashauth_audit_events_total{status="delivered"} 40`,
		`dashauth_audit_events_total{status="dropped",event_type="login_failure"} 2`,
		`dashauth_audit_events_total{status="dropped",event_type="logout"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Index(out, `event_type="login_failure"`) > strings.Index(out, `event_type="logout"`) {
		t.Fatal("dropped series are not sorted by event type")
	}
}

func TestRenderAuditWithoutCounters(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: emptySnapshot(),
		audit:    dashauth.AuditStats{Delivered: 2},
	})
	out := exp.Render()
	if strings.Contains(out, "dashauth_logins_total") {
		t.Fatalf("disabled counters rendered:\n%s", out)
	}
	if !strings.Contains(out, `dashauth_audit_events_total{status="delivered"} 2`) {
		t.Fatalf("missing audit series:\n%s", out)
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := dashauth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Parallelism = 1
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	engine, err := dashauth.New().WithConfig(cfg).WithStore(kv.NewMemory()).Build(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := engine.Login(ctx, "user@demo.com", "user123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewPrometheusExporter(engine).Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), `dashauth_logins_total{outcome="success"} 1`) {
		t.Fatalf("expected one login in output, got:\n%s", rec.Body.String())
	}
}

func TestEscaping(t *testing.T) {
	if got := escapeHelp("a\\b\nc"); got != `a\\b\nc` {
		t.Fatalf("escapeHelp = %q", got)
	}
	if got := escapeLabel(`say "hi"`); got != `say \"hi\"` {
		t.Fatalf("escapeLabel = %q", got)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: dashauth.MetricsSnapshot{
			Counters: map[dashauth.MetricID]uint64{
				dashauth.MetricLoginSuccess:                1000,
				dashauth.MetricLoginFailure:                40,
				dashauth.MetricSessionCreated:              1000,
				dashauth.MetricLogout:                      600,
				dashauth.MetricPasswordResetConfirmFailure: 3,
			},
			Histograms: map[dashauth.MetricID][]uint64{
				dashauth.MetricLoginLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		audit: dashauth.AuditStats{Delivered: 1000},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
