package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects engine metrics on Prometheus:
//   - Model request performance and token usage
//   - Tool execution patterns and latencies
//   - Step throughput, checkpoint saves, evictions, compactions
//
// All recording methods are nil-safe so components can run without a
// metrics sink in tests.
type Metrics struct {
	// ModelRequestDuration measures model API call latency in seconds.
	// Labels: provider, model
	ModelRequestDuration *prometheus.HistogramVec

	// ModelRequestCounter counts model requests.
	// Labels: provider, model, status (success|error)
	ModelRequestCounter *prometheus.CounterVec

	// ModelTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	ModelTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// StepCounter counts engine steps.
	// Labels: thread_id
	StepCounter *prometheus.CounterVec

	// CheckpointCounter counts checkpoint saves.
	// Labels: backend (memory|disk|kv), status (success|error)
	CheckpointCounter *prometheus.CounterVec

	// EvictionCounter counts oversized tool results spilled to the workspace.
	// Labels: tool_name
	EvictionCounter *prometheus.CounterVec

	// CompactionCounter counts transcript summarization passes.
	CompactionCounter prometheus.Counter

	// InterruptCounter counts interrupt gate outcomes.
	// Labels: outcome (pending|approved|rejected|edited)
	InterruptCounter *prometheus.CounterVec

	// ActiveSubagents gauges concurrently running sub-agents.
	ActiveSubagents prometheus.Gauge
}

// NewMetrics registers all collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ModelRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conductor_model_request_duration_seconds",
			Help:    "Model API call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),
		ModelRequestCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_model_requests_total",
			Help: "Total model requests",
		}, []string{"provider", "model", "status"}),
		ModelTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_model_tokens_total",
			Help: "Tokens consumed by model requests",
		}, []string{"provider", "model", "type"}),
		ToolExecutionCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_tool_executions_total",
			Help: "Total tool executions",
		}, []string{"tool_name", "status"}),
		ToolExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conductor_tool_execution_duration_seconds",
			Help:    "Tool execution time in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool_name"}),
		StepCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_steps_total",
			Help: "Total engine steps",
		}, []string{"thread_id"}),
		CheckpointCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_checkpoint_saves_total",
			Help: "Total checkpoint saves",
		}, []string{"backend", "status"}),
		EvictionCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_result_evictions_total",
			Help: "Tool results spilled to the workspace",
		}, []string{"tool_name"}),
		CompactionCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conductor_transcript_compactions_total",
			Help: "Transcript summarization passes",
		}),
		InterruptCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_interrupts_total",
			Help: "Interrupt gate outcomes",
		}, []string{"outcome"}),
		ActiveSubagents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "conductor_active_subagents",
			Help: "Concurrently running sub-agents",
		}),
	}
}

// RecordModelRequest records one model call.
func (m *Metrics) RecordModelRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.ModelRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.ModelRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.ModelTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.ModelTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records one tool dispatch.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordStep records one completed engine step.
func (m *Metrics) RecordStep(threadID string) {
	if m == nil {
		return
	}
	m.StepCounter.WithLabelValues(threadID).Inc()
}

// RecordCheckpoint records a checkpoint save attempt.
func (m *Metrics) RecordCheckpoint(backend, status string) {
	if m == nil {
		return
	}
	m.CheckpointCounter.WithLabelValues(backend, status).Inc()
}

// RecordEviction records an oversized result spill.
func (m *Metrics) RecordEviction(toolName string) {
	if m == nil {
		return
	}
	m.EvictionCounter.WithLabelValues(toolName).Inc()
}

// RecordCompaction records a summarization pass.
func (m *Metrics) RecordCompaction() {
	if m == nil {
		return
	}
	m.CompactionCounter.Inc()
}

// RecordInterrupt records a gate outcome.
func (m *Metrics) RecordInterrupt(outcome string) {
	if m == nil {
		return
	}
	m.InterruptCounter.WithLabelValues(outcome).Inc()
}

// SubagentStarted and SubagentFinished track the sub-agent gauge.
func (m *Metrics) SubagentStarted() {
	if m == nil {
		return
	}
	m.ActiveSubagents.Inc()
}

func (m *Metrics) SubagentFinished() {
	if m == nil {
		return
	}
	m.ActiveSubagents.Dec()
}
