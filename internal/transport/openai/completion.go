package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/metrics"
)

// Completer sends chat completions to an OpenAI-compatible API (Groq by default).
type Completer struct {
	client   *openai.Client
	model    string
	pipeline string
	timeout  time.Duration
	logger   *zap.Logger
}

// CompleterConfig holds the completion provider settings for one pipeline.
type CompleterConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Pipeline string // metrics label: "intent" or "response"
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion client.
func NewCompleter(cfg *CompleterConfig) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Completer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		pipeline: cfg.Pipeline,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Complete implements domain.Completer. The call is never retried.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	ccr := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature(req.Temperature),
	}
	if req.JSONMode {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, ccr)
	duration := time.Since(start)

	metrics.CompletionRequestDuration.WithLabelValues(c.pipeline, c.model).Observe(duration.Seconds())

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.pipeline, c.model, "error").Inc()
		return domain.Completion{}, parseAPIError("completion", err, domain.ErrCompletionProviderError)
	}

	c.recordUsage(ctx, resp.Usage)

	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(c.pipeline, c.model, "empty").Inc()
		return domain.Completion{}, fmt.Errorf("no choices in completion response: %w", domain.ErrEmptyCompletion)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.pipeline, c.model, "success").Inc()

	return domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Model returns the model id requests are sent to.
func (c *Completer) Model() string { return c.model }

func (c *Completer) recordUsage(ctx context.Context, u openai.Usage) {
	if u.PromptTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.pipeline, c.model, "prompt").Add(float64(u.PromptTokens))
	}
	if u.CompletionTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.pipeline, c.model, "completion").Add(float64(u.CompletionTokens))
	}
	domain.UsageFromContext(ctx).AddCompletionTokens(u.TotalTokens)
}

// temperature maps 0 to the smallest positive float32: go-openai drops a zero
// temperature via omitempty and the API would apply its default of 1.
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
