package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for a single conductor process: turn
// throughput and latency, per-component (agent/tool) execution stats, and
// HTTP request stats for the Session API.
//
// Usage:
//
//	m := observability.NewMetrics()
//	defer m.TurnDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
type Metrics struct {
	// TurnCounter counts completed turns by outcome (ok|error|cancelled|busy).
	TurnCounter *prometheus.CounterVec

	// TurnDuration measures turn wall-clock time in seconds, by outcome.
	TurnDuration *prometheus.HistogramVec

	// AgentRunCounter counts agent runs by agent id and status (success|error).
	AgentRunCounter *prometheus.CounterVec

	// AgentRunDuration measures agent completion latency in seconds.
	AgentRunDuration *prometheus.HistogramVec

	// LLMTokensUsed tracks token consumption by provider, model, and type
	// (prompt|completion).
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool runs by tool id and status.
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool run latency in seconds.
	ToolExecutionDuration *prometheus.HistogramVec

	// PlanStrategyCounter counts analyzer strategy selections.
	PlanStrategyCounter *prometheus.CounterVec

	// ActiveSessions gauges the number of sessions with at least one turn
	// in flight.
	ActiveSessions prometheus.Gauge

	// ErrorCounter tracks errors by error kind (spec.md §7).
	ErrorCounter *prometheus.CounterVec

	// HTTPRequestDuration measures Session API request latency.
	HTTPRequestDuration *prometheus.HistogramVec

	// SessionCleanupSwept counts sessions removed by the cleanup sweep.
	SessionCleanupSwept prometheus.Counter
}

// NewMetrics creates and registers all metrics with Prometheus's default
// registry. Call once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_turns_total",
				Help: "Total number of turns by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conductor_turn_duration_seconds",
				Help:    "Duration of a turn in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		AgentRunCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_agent_runs_total",
				Help: "Total number of agent runs by agent id and status",
			},
			[]string{"agent_id", "status"},
		),
		AgentRunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conductor_agent_run_duration_seconds",
				Help:    "Duration of an agent completion in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent_id"},
		),
		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_llm_tokens_total",
				Help: "Total tokens consumed by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_tool_executions_total",
				Help: "Total number of tool executions by tool id and status",
			},
			[]string{"tool_id", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conductor_tool_execution_duration_seconds",
				Help:    "Duration of a tool execution in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 15},
			},
			[]string{"tool_id"},
		),
		PlanStrategyCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_plan_strategy_total",
				Help: "Total number of analyzer strategy selections",
			},
			[]string{"strategy"},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "conductor_active_sessions",
				Help: "Current number of sessions with a turn in flight",
			},
		),
		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_errors_total",
				Help: "Total number of errors by error kind",
			},
			[]string{"kind"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conductor_http_request_duration_seconds",
				Help:    "Duration of Session API HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status"},
		),
		SessionCleanupSwept: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "conductor_session_cleanup_swept_total",
				Help: "Total number of inactive sessions removed by the cleanup sweep",
			},
		),
	}
}

// RecordTurn records a completed turn's outcome and duration.
func (m *Metrics) RecordTurn(outcome string, seconds float64) {
	m.TurnCounter.WithLabelValues(outcome).Inc()
	m.TurnDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordAgentRun records a completed agent run.
func (m *Metrics) RecordAgentRun(agentID, status string, seconds float64) {
	m.AgentRunCounter.WithLabelValues(agentID, status).Inc()
	m.AgentRunDuration.WithLabelValues(agentID).Observe(seconds)
}

// RecordToolExecution records a completed tool run.
func (m *Metrics) RecordToolExecution(toolID, status string, seconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolID, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolID).Observe(seconds)
}

// RecordError records an error by its taxonomy kind (spec.md §7).
func (m *Metrics) RecordError(kind string) {
	m.ErrorCounter.WithLabelValues(kind).Inc()
}

// RecordPlanStrategy records the analyzer's strategy selection for a turn.
func (m *Metrics) RecordPlanStrategy(strategy string) {
	m.PlanStrategyCounter.WithLabelValues(strategy).Inc()
}
