package dashauth

import (
	"testing"
	"time"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLogout)
	m.Inc(metricIDCount)

	m.Observe(MetricLoginLatency, 3*time.Millisecond)
	m.Observe(MetricLoginLatency, 2*time.Second)
	m.Observe(MetricLoginSuccess, time.Millisecond)

	s := m.Snapshot()
	if s.Counters[MetricLoginSuccess] != 2 || s.Counters[MetricLogout] != 1 {
		t.Fatalf("unexpected counters %v", s.Counters)
	}
	if _, ok := s.Counters[MetricLoginLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
	h := s.Histograms[MetricLoginLatency]
	if len(h) != histBucketCount || h[0] != 1 || h[7] != 1 {
		t.Fatalf("unexpected histogram %v", h)
	}
	if got := s.HistogramSums[MetricLoginLatency]; got != 2*time.Second+3*time.Millisecond {
		t.Fatalf("latency sum = %v", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 || len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled metrics must not count")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	nilMetrics.Observe(MetricLoginLatency, time.Millisecond)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics reported enabled")
	}
}

func TestBucketIndex(t *testing.T) {
	cases := map[time.Duration]int{
		0:                      0,
		5 * time.Millisecond:   0,
		6 * time.Millisecond:   1,
		30 * time.Millisecond:  3,
		250 * time.Millisecond: 5,
		time.Second:            7,
	}
	for d, want := range cases {
		if got := bucketIndex(d); got != want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", d, got, want)
		}
	}
}

func TestLoginLatencyBoundsMatchBuckets(t *testing.T) {
	bounds := LoginLatencyBounds()
	if len(bounds)+1 != histBucketCount {
		t.Fatalf("%d bounds for %d buckets", len(bounds), histBucketCount)
	}
	for i, b := range bounds {
		if got := bucketIndex(b); got != i {
			t.Fatalf("bound %v lands in bucket %d, want %d", b, got, i)
		}
	}
	bounds[0] = time.Hour
	if LoginLatencyBounds()[0] != 5*time.Millisecond {
		t.Fatal("LoginLatencyBounds returned shared storage")
	}
}
