// Package observability provides monitoring and debugging support for the
// conductor server through metrics, structured logging, and distributed
// tracing.
//
// # Overview
//
// The observability package implements the three pillars of observability:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed request tracing with OpenTelemetry
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - Turn throughput and latency by outcome (ok|error|cancelled|busy)
//   - Agent run counts and latency by agent id
//   - LLM token usage by provider, model, and type
//   - Tool execution counts and latency by tool id
//   - Analyzer strategy selections
//   - Error rates by error kind (spec.md §7)
//   - Session API HTTP request latency
//   - Session cleanup sweep counts
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	start := time.Now()
//	// ... run a turn ...
//	metrics.RecordTurn("ok", time.Since(start).Seconds())
//
//	start = time.Now()
//	// ... execute a tool ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request ID correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	ctx := observability.AddRequestID(ctx, requestID)
//	ctx = observability.AddSessionID(ctx, sessionID)
//
//	logger.Info(ctx, "turn started", "agent_count", len(plan.AgentSequence))
//	logger.Error(ctx, "agent run failed", "error", err, "api_key", apiKey) // redacted
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to follow a turn across the
// analyzer, planner, agent runner, and tool runtime:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:  "conductor",
//	    Endpoint:     "localhost:4317",
//	    SamplingRate: 0.1,
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceTurn(ctx, sessionID)
//	defer span.End()
//
//	ctx, agentSpan := tracer.TraceAgentRun(ctx, "granny")
//	defer agentSpan.End()
//
//	ctx, toolSpan := tracer.TraceToolExecution(ctx, "web_search")
//	defer toolSpan.End()
//
// # Context Propagation
//
//	ctx = observability.AddRequestID(ctx, "req-123")
//	ctx = observability.AddSessionID(ctx, "sess-456")
//	logger.Info(ctx, "processing") // includes request_id, session_id
//
// # Security Considerations
//
// The logging component automatically redacts API keys, passwords,
// secrets, JWTs, and bearer tokens, both from formatted message text and
// from map-valued structured fields.
//
// # Testing
//
//   - Metrics can be verified using prometheus/testutil against an
//     isolated prometheus.Registry rather than the default one.
//   - Logging can write to a bytes.Buffer for assertions.
//   - Tracing works with a no-op tracer when TraceConfig.Endpoint is empty.
//
// # Monitoring Dashboard
//
//	# Turn throughput
//	rate(conductor_turns_total[5m])
//
//	# Turn latency (95th percentile)
//	histogram_quantile(0.95, rate(conductor_turn_duration_seconds_bucket[5m]))
//
//	# Error rate by kind
//	rate(conductor_errors_total[5m])
//
//	# Sessions with a turn in flight
//	conductor_active_sessions
package observability
