package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineCollector records ingestion runs, item outcomes, fetch attempts and
// semantic tagging fallbacks.
type PipelineCollector struct {
	runs      *prometheus.CounterVec
	items     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	attempts  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	lastRun   *prometheus.GaugeVec
}

// NewPipelineCollector registers the ingestion metrics on reg.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	c := &PipelineCollector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Source runs by final status.",
		}, []string{"source", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Items by persistence outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Wall time of source runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Upstream HTTP attempts by outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "tagging",
			Name:      "semantic_fallbacks_total",
			Help:      "Items tagged heuristically after semantic tagging failed.",
		}, []string{"source"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "ingest",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run per source.",
		}, []string{"source"}),
	}

	for _, m := range []prometheus.Collector{c.runs, c.items, c.duration, c.attempts, c.fallbacks, c.lastRun} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveRun records a finished source run.
func (c *PipelineCollector) ObserveRun(source, status string, d time.Duration) {
	c.runs.WithLabelValues(source, status).Inc()
	c.duration.WithLabelValues(source).Observe(d.Seconds())
	c.lastRun.WithLabelValues(source).SetToCurrentTime()
}

// ObserveItems adds n items with the given outcome.
func (c *PipelineCollector) ObserveItems(source, outcome string, n int) {
	if n <= 0 {
		return
	}
	c.items.WithLabelValues(source, outcome).Add(float64(n))
}

// ObserveFetchAttempt counts one upstream HTTP attempt.
func (c *PipelineCollector) ObserveFetchAttempt(outcome string) {
	c.attempts.WithLabelValues(outcome).Inc()
}

// ObserveSemanticFallback counts one heuristic-only item.
func (c *PipelineCollector) ObserveSemanticFallback(source string) {
	c.fallbacks.WithLabelValues(source).Inc()
}
