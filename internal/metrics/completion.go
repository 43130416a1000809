package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ingres"

// Completion and pipeline Prometheus metrics.
var (
	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"pipeline", "model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_request_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"pipeline", "model"},
	)

	CompletionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"pipeline", "model", "type"}, // type: "prompt" / "completion"
	)

	// PipelineOutcomesTotal counts how each request left the output state machine.
	PipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_outcomes_total",
			Help:      "Pipeline results by outcome (validated, parse_fallback, error_fallback)",
		},
		[]string{"pipeline", "outcome"},
	)

	RetrievedExamples = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_examples",
			Help:      "Number of few-shot examples placed in the prompt",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 10},
		},
		[]string{"pipeline"},
	)

	PromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_tokens",
			Help:      "Estimated tokens of the assembled system prompt",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 7),
		},
		[]string{"pipeline"},
	)
)

var completionMetricsRegistered bool

// RegisterCompletionMetrics registers completion and pipeline metrics. Must be called once from main.
func RegisterCompletionMetrics() {
	if completionMetricsRegistered {
		return
	}
	prometheus.MustRegister(CompletionRequestsTotal)
	prometheus.MustRegister(CompletionRequestDuration)
	prometheus.MustRegister(CompletionTokensTotal)
	prometheus.MustRegister(PipelineOutcomesTotal)
	prometheus.MustRegister(RetrievedExamples)
	prometheus.MustRegister(PromptTokens)
	completionMetricsRegistered = true
}
