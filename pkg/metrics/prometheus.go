package metrics

import (
	"sync"

	"PriceWatch/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations  *prometheus.CounterVec
	triggered    *prometheus.CounterVec
	notifyErrors *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

var (
	defaultRecorder *Recorder
	once            sync.Once
)

// New returns the process-wide Prometheus recorder. Collectors register
// with the default registry once, so repeated calls share them.
func New() *Recorder {
	once.Do(func() {
		defaultRecorder = newRecorder(promauto.With(prometheus.DefaultRegisterer))
	})
	return defaultRecorder
}

// NewWithRegistry builds a recorder on its own registry (tests).
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	return newRecorder(promauto.With(reg))
}

func newRecorder(f promauto.Factory) *Recorder {
	return &Recorder{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_evaluations_total",
				Help: "Alert evaluation cycles by outcome",
			},
			[]string{"item", "outcome"},
		),
		triggered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_alerts_triggered_total",
				Help: "Alerts consumed because the price crossed the threshold",
			},
			[]string{"item", "kind"},
		),
		notifyErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_notify_errors_total",
				Help: "Failed notification deliveries",
			},
			[]string{"sink"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricewatch_last_price",
				Help: "Last polled price for an item",
			},
			[]string{"item"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricewatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvaluation counts one evaluation cycle.
func (r *Recorder) RecordEvaluation(itemKey, outcome string) {
	r.evaluations.WithLabelValues(itemKey, outcome).Inc()
}

// RecordTriggered counts a consumed alert.
func (r *Recorder) RecordTriggered(itemKey string, kind models.AlertKind) {
	r.triggered.WithLabelValues(itemKey, string(kind)).Inc()
}

// RecordNotifyError counts a failed delivery on sink.
func (r *Recorder) RecordNotifyError(sink string) {
	r.notifyErrors.WithLabelValues(sink).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an item.
func (r *Recorder) RecordLastPrice(itemKey string, price float64) {
	r.lastPrice.WithLabelValues(itemKey).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordEvaluation(string, string)          {}
func (Nop) RecordTriggered(string, models.AlertKind) {}
func (Nop) RecordNotifyError(string)                 {}
func (Nop) RecordLastPrice(string, float64)          {}
func (Nop) RecordError(string)                       {}
func (Nop) RecordLatency(string, float64)            {}
