package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"poolGraph/internal/model"
)

// Metrics holds the per-event telemetry exported by the engine and processor.
// A nil *Metrics records nothing.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	ApplyDuration    *prometheus.HistogramVec
	LastAppliedBlock prometheus.Gauge
	DecodeFailures   prometheus.Counter
	LogsSkipped      *prometheus.CounterVec
}

// NewMetrics creates and registers the reconcile metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolgraph",
			Name:      "events_total",
			Help:      "Events processed by the reconcile engine, by event kind and outcome.",
		}, []string{"kind", "outcome"}),

		ApplyDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "poolgraph",
			Name:      "event_apply_duration_seconds",
			Help:      "Time to apply a single event including its store session.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		LastAppliedBlock: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "poolgraph",
			Name:      "last_applied_block",
			Help:      "Block number of the most recently committed event.",
		}),

		DecodeFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "poolgraph",
			Name:      "decode_failures_total",
			Help:      "Logs that matched a known signature but failed to decode.",
		}),

		LogsSkipped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolgraph",
			Name:      "logs_skipped_total",
			Help:      "Logs not turned into events, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) observeEvent(kind model.EventKind, outcome Outcome, blockNumber uint64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
	m.ApplyDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	if outcome != OutcomeSkipped {
		m.LastAppliedBlock.Set(float64(blockNumber))
	}
}

func (m *Metrics) observeDecodeFailure() {
	if m == nil {
		return
	}
	m.DecodeFailures.Inc()
}

func (m *Metrics) observeLogSkipped(reason string) {
	if m == nil {
		return
	}
	m.LogsSkipped.WithLabelValues(reason).Inc()
}
