package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Orchestrator's Prometheus instrumentation, covering the
// counters and histograms spec.md §4.3 names: executions by terminal
// status, execution duration, per-tool step duration, and retries by tool.
type Metrics struct {
	executionsTotal  *prometheus.CounterVec
	executionSeconds prometheus.Histogram
	stepSeconds      *prometheus.HistogramVec
	retriesTotal     *prometheus.CounterVec
	rollbacksTotal   *prometheus.CounterVec
}

// NewMetrics builds a Metrics and, if reg is non-nil, registers its
// collectors. Passing a nil Registerer is safe and yields an
// instrumented-but-unregistered Metrics suitable for tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentflow",
			Subsystem: "orchestrator",
			Name:      "executions_total",
			Help:      "Executions completed, partitioned by terminal status.",
		}, []string{"status"}),
		executionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agentflow",
			Subsystem: "orchestrator",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of a full workflow execution.",
			Buckets:   prometheus.DefBuckets,
		}),
		stepSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentflow",
			Subsystem: "orchestrator",
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of a single step dispatch, by tool.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool_id"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentflow",
			Subsystem: "orchestrator",
			Name:      "retries_total",
			Help:      "Step retry attempts, by tool.",
		}, []string{"tool_id"}),
		rollbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentflow",
			Subsystem: "orchestrator",
			Name:      "rollbacks_total",
			Help:      "Rollback compensations executed, by tool.",
		}, []string{"tool_id"}),
	}

	if reg != nil {
		reg.MustRegister(m.executionsTotal, m.executionSeconds, m.stepSeconds, m.retriesTotal, m.rollbacksTotal)
	}
	return m
}

func (m *Metrics) observeExecution(status string, seconds float64) {
	if m == nil {
		return
	}
	m.executionsTotal.WithLabelValues(status).Inc()
	m.executionSeconds.Observe(seconds)
}

func (m *Metrics) observeStep(toolID string, seconds float64) {
	if m == nil {
		return
	}
	m.stepSeconds.WithLabelValues(toolID).Observe(seconds)
}

func (m *Metrics) countRetry(toolID string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(toolID).Inc()
}

func (m *Metrics) countRollback(toolID string) {
	if m == nil {
		return
	}
	m.rollbacksTotal.WithLabelValues(toolID).Inc()
}
