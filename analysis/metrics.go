package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/theimaginaryfoundation/reflect-o-bot/analysis")

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	outcomes     *prometheus.CounterVec
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	repairs      *prometheus.CounterVec
	rejections   *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_analysis_outcomes_total",
			Help: "Completed pipeline runs by pipeline and final degradation state.",
		}, []string{"pipeline", "state"}),
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_generation_calls_total",
			Help: "Generator round trips by task and outcome.",
		}, []string{"task", "outcome"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "journal_generation_call_duration_seconds",
			Help:    "Generator round trip latency by task.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}, []string{"task"}),
		repairs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_repair_calls_total",
			Help: "Repair calls issued by schema.",
		}, []string{"schema"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_translation_rejections_total",
			Help: "Translations discarded and replaced by the original field.",
		}, []string{"field"}),
	}
}

func (m *Metrics) outcome(pipeline string, s State) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(pipeline, s.String()).Inc()
}

func (m *Metrics) call(task, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(task, outcome).Inc()
	m.callDuration.WithLabelValues(task).Observe(seconds)
}

func (m *Metrics) repair(schema string) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(schema).Inc()
}

func (m *Metrics) rejected(field string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(field).Inc()
}
