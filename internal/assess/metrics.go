package assess

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons recorded by Metrics.
const (
	SkipUnknown  = "unknown_factor"
	SkipExternal = "external_service"
)

// Metrics instruments assessment runs.
type Metrics struct {
	Runs             *prometheus.CounterVec
	FactorsProcessed prometheus.Counter
	FactorsSkipped   *prometheus.CounterVec
	RecordsScored    prometheus.Counter
	RecordErrors     *prometheus.CounterVec
	FactorDuration   *prometheus.HistogramVec
}

// NewMetrics registers the assessment metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tankrisk",
			Name:      "runs_total",
			Help:      "Assessment runs by final state.",
		}, []string{"state"}),
		FactorsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tankrisk",
			Name:      "factors_processed_total",
			Help:      "Factors scored into the result table.",
		}),
		FactorsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tankrisk",
			Name:      "factors_skipped_total",
			Help:      "Selected layers that were not scored, by reason.",
		}, []string{"reason"}),
		RecordsScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tankrisk",
			Name:      "records_scored_total",
			Help:      "Proximity records scored.",
		}),
		RecordErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tankrisk",
			Name:      "record_errors_total",
			Help:      "Records that could not be scored, by factor.",
		}, []string{"factor"}),
		FactorDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tankrisk",
			Name:      "factor_duration_seconds",
			Help:      "Time to fetch and score one factor.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"factor"}),
	}
}
