package otel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/dashauth"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot dashauth.MetricsSnapshot
	audit    dashauth.AuditStats
}

func (f *fakeSource) MetricsSnapshot() dashauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := dashauth.MetricsSnapshot{
		Counters:      make(map[dashauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms:    make(map[dashauth.MetricID][]uint64, len(f.snapshot.Histograms)),
		HistogramSums: make(map[dashauth.MetricID]time.Duration, len(f.snapshot.HistogramSums)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	for k, v := range f.snapshot.HistogramSums {
		out.HistogramSums[k] = v
	}
	return out
}

func (f *fakeSource) AuditStats() dashauth.AuditStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.audit
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func hasAttrs(set attribute.Set, want []attribute.KeyValue) bool {
	if set.Len() != len(want) {
		return false
	}
	for _, kv := range want {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}

func intPoint(t *testing.T, rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			default:
				t.Fatalf("metric %s has unexpected data %T", name, m.Data)
			}
			for _, p := range points {
				if hasAttrs(p.Attributes, want) {
					return p.Value
				}
			}
			t.Fatalf("metric %s has no point with %v", name, want)
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func floatPoint(t *testing.T, rm metricdata.ResourceMetrics, name string) float64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if g, ok := m.Data.(metricdata.Gauge[float64]); ok && m.Name == name && len(g.DataPoints) == 1 {
				return g.DataPoints[0].Value
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return rm
}

func TestExporterPublishesLabelledSeries(t *testing.T) {
	reader, provider := newTestMeter()
	src := &fakeSource{
		snapshot: dashauth.MetricsSnapshot{
			Counters: map[dashauth.MetricID]uint64{
				dashauth.MetricLoginSuccess:               3,
				dashauth.MetricPermissionDenied:           5,
				dashauth.MetricPasswordResetVerifyFailure: 2,
			},
			Histograms: map[dashauth.MetricID][]uint64{
				dashauth.MetricLoginLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
			HistogramSums: map[dashauth.MetricID]time.Duration{
				dashauth.MetricLoginLatency: 250 * time.Millisecond,
			},
		},
		audit: dashauth.AuditStats{Delivered: 9, Dropped: 1, DroppedByType: map[string]uint64{"login_failure": 1}},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("dashauth-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	rm := collect(t, reader)
	for _, tc := range []struct {
		name  string
		attrs []attribute.KeyValue
		want  int64
	}{
		{"dashauth_logins_total", []attribute.KeyValue{attribute.String("outcome", "success")}, 3},
		{"dashauth_logins_total", []attribute.KeyValue{attribute.String("outcome", "failure")}, 0},
		{"dashauth_authorization_total", []attribute.KeyValue{attribute.String("status", "denied")}, 5},
		{"dashauth_password_resets_total", []attribute.KeyValue{attribute.String("stage", "verify"), attribute.String("outcome", "failure")}, 2},
		{"dashauth_login_latency_seconds_bucket", []attribute.KeyValue{attribute.String("le", "0.005")}, 1},
		{"dashauth_login_latency_seconds_bucket", []attribute.KeyValue{attribute.String("le", "0.05")}, 4},
		{"dashauth_login_latency_seconds_bucket", []attribute.KeyValue{attribute.String("le", "+Inf")}, 8},
		{"dashauth_login_latency_seconds_count", nil, 8},
		{"dashauth_audit_events_total", []attribute.KeyValue{attribute.String("status", "delivered")}, 9},
		{"dashauth_audit_events_total", []attribute.KeyValue{attribute.String("status", "dropped"), attribute.String("event_type", "login_failure")}, 1},
	} {
		if got := intPoint(t, rm, tc.name, tc.attrs...); got != tc.want {
			t.Fatalf("%s%v = %d, want %d", tc.name, tc.attrs, got, tc.want)
		}
	}
	if got := floatPoint(t, rm, "dashauth_login_latency_seconds_sum"); got != 0.25 {
		t.Fatalf("latency sum = %v, want 0.25", got)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newTestMeter()

	if _, err := NewOTelExporterFromSource(provider.Meter("dashauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	src := &fakeSource{
		snapshot: dashauth.MetricsSnapshot{
			Counters:   map[dashauth.MetricID]uint64{dashauth.MetricLoginSuccess: 1},
			Histograms: map[dashauth.MetricID][]uint64{},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("dashauth-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[dashauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
