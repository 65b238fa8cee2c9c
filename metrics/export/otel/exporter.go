package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads on every collection. *dashauth.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() dashauth.MetricsSnapshot
	AuditStats() dashauth.AuditStats
}

type labelledSeries struct {
	id    dashauth.MetricID
	attrs metric.ObserveOption
}

type family struct {
	counter metric.Int64ObservableCounter
	series  []labelledSeries
}

type latency struct {
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	sum     metric.Float64ObservableGauge
	// one per bucket, "+Inf" last
	le []metric.ObserveOption
}

// OTelExporter publishes engine metrics as observable instruments. Each
// counter family is one instrument whose series differ by attributes.
type OTelExporter struct {
	source       Source
	registration metric.Registration
	families     []family
	latency      latency
	audit        metric.Int64ObservableCounter
	delivered    metric.ObserveOption
}

// NewOTelExporter registers one callback on meter that reads engine on each
// collection.
func NewOTelExporter(meter metric.Meter, engine *dashauth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any Source.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:    source,
		delivered: metric.WithAttributes(attribute.String("status", "delivered")),
	}
	var observables []metric.Observable

	for _, f := range internaldefs.Families {
		counter, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", f.Name, err)
		}
		fam := family{counter: counter}
		for _, s := range f.Series {
			fam.series = append(fam.series, labelledSeries{id: s.ID, attrs: metric.WithAttributes(attrs(s.Labels)...)})
		}
		e.families = append(e.families, fam)
		observables = append(observables, counter)
	}

	if err := e.registerLatency(meter); err != nil {
		return nil, err
	}
	observables = append(observables, e.latency.buckets, e.latency.count, e.latency.sum)

	audit, err := meter.Int64ObservableCounter(internaldefs.AuditEventsName, metric.WithDescription(internaldefs.AuditEventsHelp))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditEventsName, err)
	}
	e.audit = audit
	observables = append(observables, audit)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *OTelExporter) registerLatency(meter metric.Meter) error {
	name := internaldefs.LoginLatencyName
	var err error
	if e.latency.buckets, err = meter.Int64ObservableGauge(name+"_bucket",
		metric.WithDescription("Cumulative login count per latency bound, keyed by le.")); err != nil {
		return fmt.Errorf("create gauge %s_bucket: %w", name, err)
	}
	if e.latency.count, err = meter.Int64ObservableGauge(name+"_count",
		metric.WithDescription("Logins timed.")); err != nil {
		return fmt.Errorf("create gauge %s_count: %w", name, err)
	}
	if e.latency.sum, err = meter.Float64ObservableGauge(name+"_sum",
		metric.WithDescription(internaldefs.LoginLatencyHelp), metric.WithUnit("s")); err != nil {
		return fmt.Errorf("create gauge %s_sum: %w", name, err)
	}
	for _, b := range internaldefs.LatencyBounds() {
		e.latency.le = append(e.latency.le, metric.WithAttributes(attribute.String("le", internaldefs.FormatBound(b))))
	}
	e.latency.le = append(e.latency.le, metric.WithAttributes(attribute.String("le", "+Inf")))
	return nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	if len(snap.Counters) > 0 {
		for _, f := range e.families {
			for _, s := range f.series {
				o.ObserveInt64(f.counter, int64(snap.Counters[s.id]), s.attrs)
			}
		}
	}
	if raw, ok := snap.Histograms[dashauth.MetricLoginLatency]; ok {
		cumulative := internaldefs.Cumulative(raw)
		for i, v := range cumulative {
			o.ObserveInt64(e.latency.buckets, int64(v), e.latency.le[i])
		}
		o.ObserveInt64(e.latency.count, int64(cumulative[len(cumulative)-1]))
		o.ObserveFloat64(e.latency.sum, snap.HistogramSums[dashauth.MetricLoginLatency].Seconds())
	}

	st := e.source.AuditStats()
	o.ObserveInt64(e.audit, int64(st.Delivered), e.delivered)
	for typ, n := range st.DroppedByType {
		o.ObserveInt64(e.audit, int64(n), metric.WithAttributes(
			attribute.String("status", "dropped"),
			attribute.String("event_type", typ),
		))
	}
	return nil
}

func attrs(labels []internaldefs.Label) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		out[i] = attribute.String(l.Name, l.Value)
	}
	return out
}

// Close unregisters the callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
