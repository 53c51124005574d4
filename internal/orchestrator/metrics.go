package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the conversation loop.
//
// Metrics:
//   - courserag_llm_calls_total{state, status} - LLM calls per loop state
//   - courserag_llm_call_duration_seconds{state} - LLM call latency
//   - courserag_tool_calls_total{tool, status} - tool dispatches
//   - courserag_queries_total{exit} - queries by the rule that ended them
type Metrics struct {
	LLMCallsTotal   *prometheus.CounterVec
	LLMCallDuration *prometheus.HistogramVec
	ToolCallsTotal  *prometheus.CounterVec
	QueriesTotal    *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LLMCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courserag_llm_calls_total",
				Help: "Total number of LLM calls by loop state and status",
			},
			[]string{"state", "status"},
		),
		LLMCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courserag_llm_call_duration_seconds",
				Help:    "Duration of LLM calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"state"},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courserag_tool_calls_total",
				Help: "Total number of tool dispatches by tool and status",
			},
			[]string{"tool", "status"},
		),
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courserag_queries_total",
				Help: "Total number of answered queries by exit rule",
			},
			[]string{"exit"},
		),
	}
}

func (m *Metrics) recordLLMCall(s state, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.LLMCallsTotal.WithLabelValues(s.String(), status).Inc()
	m.LLMCallDuration.WithLabelValues(s.String()).Observe(seconds)
}

func (m *Metrics) recordToolCall(tool string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) recordExit(e exit) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(string(e)).Inc()
}
