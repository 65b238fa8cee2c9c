package prometheus

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/metrics/export/internaldefs"
)

// Source is what the exporter reads on every scrape. *dashauth.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() dashauth.MetricsSnapshot
	AuditStats() dashauth.AuditStats
}

// PrometheusExporter renders engine metrics in the Prometheus text format.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter creates an exporter reading from engine.
func NewPrometheusExporter(engine *dashauth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any Source.
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render with the Prometheus content type.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. Engine counters are omitted while
// metrics are disabled; audit delivery is always reported once any event
// was seen. With neither, Render returns "".
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	snap := p.source.MetricsSnapshot()
	audit := p.source.AuditStats()

	var t textWriter
	if len(snap.Counters) > 0 {
		for _, f := range internaldefs.Families {
			t.header(f.Name, f.Help, "counter")
			for _, s := range f.Series {
				t.sample(f.Name, s.Labels, snap.Counters[s.ID])
			}
		}
	}
	if raw, ok := snap.Histograms[dashauth.MetricLoginLatency]; ok {
		t.latency(raw, snap.HistogramSums[dashauth.MetricLoginLatency].Seconds())
	}
	if audit.Delivered > 0 || audit.Dropped > 0 {
		t.audit(audit)
	}
	return t.b.String()
}

type textWriter struct {
	b strings.Builder
}

func (t *textWriter) header(name, help, kind string) {
	t.b.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	t.b.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (t *textWriter) sample(name string, labels []internaldefs.Label, value uint64) {
	t.b.WriteString(name)
	if len(labels) > 0 {
		t.b.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				t.b.WriteByte(',')
			}
			t.b.WriteString(l.Name + `="` + escapeLabel(l.Value) + `"`)
		}
		t.b.WriteByte('}')
	}
	t.b.WriteString(" " + strconv.FormatUint(value, 10) + "\n")
}

func (t *textWriter) latency(raw []uint64, sumSeconds float64) {
	name := internaldefs.LoginLatencyName
	t.header(name, internaldefs.LoginLatencyHelp, "histogram")

	cumulative := internaldefs.Cumulative(raw)
	for i, bound := range internaldefs.LatencyBounds() {
		le := internaldefs.FormatBound(bound)
		t.sample(name+"_bucket", []internaldefs.Label{{Name: "le", Value: le}}, cumulative[i])
	}
	total := cumulative[len(cumulative)-1]
	t.sample(name+"_bucket", []internaldefs.Label{{Name: "le", Value: "+Inf"}}, total)
	t.b.WriteString(name + "_sum " + strconv.FormatFloat(sumSeconds, 'g', -1, 64) + "\n")
	t.sample(name+"_count", nil, total)
}

func (t *textWriter) audit(st dashauth.AuditStats) {
	name := internaldefs.AuditEventsName
	t.header(name, internaldefs.AuditEventsHelp, "counter")
	t.sample(name, []internaldefs.Label{{Name: "status", Value: "delivered"}}, st.Delivered)

	types := make([]string, 0, len(st.DroppedByType))
	for k := range st.DroppedByType {
		types = append(types, k)
	}
	slices.Sort(types)
	for _, typ := range types {
		t.sample(name, []internaldefs.Label{
			{Name: "status", Value: "dropped"},
			{Name: "event_type", Value: typ},
		}, st.DroppedByType[typ])
	}
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}

func escapeLabel(v string) string {
	v = escapeHelp(v)
	return strings.ReplaceAll(v, `"`, `\"`)
}
