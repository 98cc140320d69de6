package otel

import (
	"context"
	"errors"
	"fmt"

	goAuthz "github.com/MrEthical07/goAuthz"
	"github.com/MrEthical07/goAuthz/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Constructor errors.
var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

const auditDroppedName = "goauthz_audit_dropped_total"

type metricsSource interface {
	MetricsSnapshot() goAuthz.MetricsSnapshot
	AuditDropped() uint64
}

// series is one observation target: an instrument, the snapshot counter it
// reads and the attributes it is recorded with.
type series struct {
	id         goAuthz.MetricID
	instrument metric.Int64Observable
	attrs      metric.MeasurementOption
}

type histogram struct {
	id      goAuthz.MetricID
	buckets metric.Int64ObservableGauge
	le      [internaldefs.BucketCount]metric.MeasurementOption
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics through asynchronous OTel
// instruments observed in a single callback. Denial kinds and token
// rejection reasons are attributes on one instrument per family; latency
// buckets are one gauge with an "le" attribute.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	series       []series
	histograms   []histogram
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter that read engine.
func NewOTelExporter(meter metric.Meter, engine *goAuthz.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments on meter that read source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	noAttrs := metric.WithAttributeSet(attribute.NewSet())
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.series = append(e.series, series{id: def.ID, instrument: ins, attrs: noAttrs})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.LabeledCounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		for _, s := range def.Series {
			e.series = append(e.series, series{
				id:         s.ID,
				instrument: ins,
				attrs:      metric.WithAttributeSet(attribute.NewSet(attribute.String(def.Label, s.Value))),
			})
		}
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := histogram{id: def.ID}
		var err error
		h.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription("Cumulative latency bucket count by upper bound."))
		if err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		}
		for i, le := range internaldefs.HistogramBounds {
			h.le[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
		}
		h.count, err = meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription("Latency sample count."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, h.buckets, h.count)
	}

	var err error
	e.auditDropped, err = meter.Int64ObservableCounter(auditDroppedName,
		metric.WithDescription("Audit events dropped under backpressure."))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", auditDroppedName, err)
	}
	observables = append(observables, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, s := range e.series {
		o.ObserveInt64(s.instrument, int64(snapshot.Counters[s.id]), s.attrs)
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), h.le[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[internaldefs.BucketCount-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
