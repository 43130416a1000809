package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/metrics"
)

var jsonFormat = json.RawMessage(`"json"`)

// Completer sends chat requests to a local Ollama model.
type Completer struct {
	client   *api.Client
	model    string
	pipeline string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewCompleter creates an Ollama completion client for one pipeline.
func NewCompleter(client *api.Client, model, pipeline string, timeout time.Duration, logger *zap.Logger) *Completer {
	return &Completer{client: client, model: model, pipeline: pipeline, timeout: timeout, logger: logger}
}

// Complete implements domain.Completer. Streaming is disabled; the call is never retried.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	msgs := make([]api.Message, 0, len(req.Messages)+1)
	msgs = append(msgs, api.Message{Role: "system", Content: req.System})
	for _, m := range req.Messages {
		msgs = append(msgs, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	chatReq := api.ChatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxTokens
	}
	if req.JSONMode {
		chatReq.Format = jsonFormat
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		text  strings.Builder
		final api.ChatResponse
		seen  bool
	)
	start := time.Now()
	err := c.client.Chat(ctx, &chatReq, func(res api.ChatResponse) error {
		seen = true
		text.WriteString(res.Message.Content)
		if res.Done {
			final = res
		}
		return nil
	})
	metrics.CompletionRequestDuration.WithLabelValues(c.pipeline, c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.pipeline, c.model, "error").Inc()
		return domain.Completion{}, parseAPIError("chat", err, domain.ErrCompletionProviderError)
	}
	if !seen {
		metrics.CompletionRequestsTotal.WithLabelValues(c.pipeline, c.model, "empty").Inc()
		return domain.Completion{}, fmt.Errorf("no message in chat response: %w", domain.ErrEmptyCompletion)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.pipeline, c.model, "success").Inc()
	prompt, completion := final.PromptEvalCount, final.EvalCount
	if prompt > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.pipeline, c.model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.pipeline, c.model, "completion").Add(float64(completion))
	}
	domain.UsageFromContext(ctx).AddCompletionTokens(prompt + completion)

	return domain.Completion{
		Text:             text.String(),
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

// HealthCheck pings the Ollama server.
func (c *Completer) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, c.client)
}

// Model returns the model id requests are sent to.
func (c *Completer) Model() string { return c.model }
