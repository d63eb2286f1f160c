package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for sticker decisions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Decisions by document type and source path
	Decisions *prometheus.CounterVec

	// Issued validity in days, per document type
	ValidDays *prometheus.HistogramVec

	// Address table reloads by result
	AddressReloads *prometheus.CounterVec

	// Rules in the currently loaded address table
	AddressRules prometheus.Gauge

	// Round trip to the OCR provider
	OCRLatency prometheus.Histogram

	// Audit writes and event publishes that failed
	SideEffectFailures *prometheus.CounterVec
}

// New registers the collectors on the default registry
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetag_sticker_decisions_total",
			Help: "Sticker decisions by document type and source path",
		}, []string{"document_type", "source_path"}),

		ValidDays: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safetag_sticker_valid_days",
			Help:    "Issued sticker validity in days",
			Buckets: []float64{1, 30, 90, 180, 365, 540, 730, 1095, 1825},
		}, []string{"document_type"}),

		AddressReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetag_address_rule_reloads_total",
			Help: "Address table reload attempts by result",
		}, []string{"result"}), // result: "ok", "error"

		AddressRules: factory.NewGauge(prometheus.GaugeOpts{
			Name: "safetag_address_rules",
			Help: "Number of rules in the loaded address table",
		}),

		OCRLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "safetag_ocr_request_duration_seconds",
			Help:    "Duration of OCR provider requests",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		SideEffectFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetag_side_effect_failures_total",
			Help: "Failed audit writes and event publishes",
		}, []string{"kind"}), // kind: "audit", "event"
	}
}

// RecordDecision counts a decision and observes its validity
func (m *Metrics) RecordDecision(documentType, sourcePath string, validDays int) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(documentType, sourcePath).Inc()
	m.ValidDays.WithLabelValues(documentType).Observe(float64(validDays))
}

// AddressReloaded matches address.ReloadHook
func (m *Metrics) AddressReloaded(err error, rules int) {
	if m == nil {
		return
	}
	if err != nil {
		m.AddressReloads.WithLabelValues("error").Inc()
		m.AddressRules.Set(0)
		return
	}
	m.AddressReloads.WithLabelValues("ok").Inc()
	m.AddressRules.Set(float64(rules))
}

// ObserveOCRLatency records the duration of one OCR request
func (m *Metrics) ObserveOCRLatency(d time.Duration) {
	if m != nil {
		m.OCRLatency.Observe(d.Seconds())
	}
}

// IncrementSideEffectFailure counts a failed audit write or event publish
func (m *Metrics) IncrementSideEffectFailure(kind string) {
	if m != nil {
		m.SideEffectFailures.WithLabelValues(kind).Inc()
	}
}
