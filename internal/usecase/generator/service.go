// Package generator turns raw query results into a natural-language answer
// with optional chart metadata.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/response"
	"github.com/kailas-cloud/ingres/internal/logger"
	"github.com/kailas-cloud/ingres/internal/metrics"
)

// Pipeline labels generator metrics and logs.
const Pipeline = "response"

const warmupMessage = "Hello! This is a warm-up request."

// Outcomes recorded in metrics.PipelineOutcomesTotal.
const (
	OutcomeValidated     = "validated"
	OutcomeParseFallback = "parse_fallback"
	OutcomeErrorFallback = "error_fallback"
)

// Config holds the completion parameters of the generator.
type Config struct {
	MaxTokens         int
	Temperature       float32
	WarmupMaxTokens   int
	WarmupTemperature float32
	JSONMode          bool
}

// DefaultConfig matches the generator's production settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         500,
		Temperature:       0.3,
		WarmupMaxTokens:   50,
		WarmupTemperature: 0.1,
		JSONMode:          true,
	}
}

// Request is one generation call.
type Request struct {
	Intent  string
	Query   string
	RawData json.RawMessage
	// ConversationID keys the history; ignored when history is disabled.
	ConversationID string
}

// Service generates responses. Safe for concurrent use.
type Service struct {
	completer Completer
	source    Source
	assembler Assembler
	validator Validator
	history   History
	cfg       Config
	logger    *zap.Logger
}

// New creates a stateless generator service.
func New(completer Completer, source Source, assembler Assembler, validator Validator, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		completer: completer,
		source:    source,
		assembler: assembler,
		validator: validator,
		cfg:       cfg,
		logger:    log.Named(Pipeline),
	}
}

// WithHistory enables per-conversation history replay.
func (s *Service) WithHistory(h History) *Service {
	s.history = h
	return s
}

// EndConversation drops the stored turns of conversationID. A no-op when
// history is disabled.
func (s *Service) EndConversation(ctx context.Context, conversationID string) {
	if s.history == nil {
		return
	}
	s.history.Forget(conversationID)
	logger.OrDefault(ctx, s.logger).Info("conversation ended", zap.String("uuid", conversationID))
}

// UserMessage formats the user turn for req.
func UserMessage(req Request) string {
	return fmt.Sprintf("Intent: %s\nQuery: %s\nRaw Data: %s\nRespond with ONLY JSON as specified.",
		req.Intent, req.Query, RenderRawData(req.RawData))
}

// RenderRawData compacts raw. Absent or empty values (null, false, 0, "",
// [] and {}) render as "{}".
func RenderRawData(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return "{}"
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	switch buf.String() {
	case "[]", "{}":
		return "{}"
	}
	return buf.String()
}

// Warmup sends one trivial request with the static instruction. Callers treat
// a failure as non-fatal.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      s.assembler.Static(),
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: warmupMessage}},
		MaxTokens:   s.cfg.WarmupMaxTokens,
		Temperature: s.cfg.WarmupTemperature,
	})
	if err != nil {
		return fmt.Errorf("generator warmup: %w", err)
	}
	s.logger.Info("model warmup completed")
	return nil
}

// Generate never fails: unparseable output yields response.ParseFailure,
// every other failure yields response.Failure with the cause.
func (s *Service) Generate(ctx context.Context, req Request) response.Result {
	log := logger.OrDefault(ctx, s.logger)
	start := time.Now()

	res, outcome := s.generate(ctx, log, req)
	metrics.PipelineOutcomesTotal.WithLabelValues(Pipeline, outcome).Inc()

	log.Info("response generated",
		zap.String("intent", req.Intent),
		zap.Bool("visualization", !res.Visualization().IsEmpty()),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	)
	return res
}

func (s *Service) generate(ctx context.Context, log *zap.Logger, req Request) (response.Result, string) {
	examples, err := s.source.Examples(ctx, req.Query)
	if err != nil {
		log.Error("example retrieval failed", zap.Error(err))
		return response.Failure(err), OutcomeErrorFallback
	}

	p, err := s.assembler.Assemble(s.source.Heading(), examples)
	if err != nil {
		log.Error("prompt assembly failed", zap.Error(err))
		return response.Failure(err), OutcomeErrorFallback
	}
	metrics.RetrievedExamples.WithLabelValues(Pipeline).Observe(float64(p.Examples))
	if p.Tokens > 0 {
		metrics.PromptTokens.WithLabelValues(Pipeline).Observe(float64(p.Tokens))
	}
	log.Info("retrieved examples for context",
		zap.Int("retrieved", len(examples)),
		zap.Int("included", p.Examples),
		zap.Int("dropped", p.Dropped),
	)
	if p.Overflow {
		log.Warn("prompt exceeds token budget without examples", zap.Int("tokens", p.Tokens))
	}

	user := UserMessage(req)
	var messages []domain.Message
	if s.history != nil && req.ConversationID != "" {
		stored := s.history.Turns(req.ConversationID)
		turns := s.assembler.FitTurns(p, user, stored)
		messages = domain.Messages(turns)
		log.Debug("replaying conversation history",
			zap.Int("turns", len(turns)),
			zap.Int("dropped", len(stored)-len(turns)),
		)
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: user})

	completion, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      p.System,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		JSONMode:    s.cfg.JSONMode,
	})
	if err != nil {
		log.Error("response generation failed", zap.Error(err))
		return response.Failure(err), OutcomeErrorFallback
	}
	log.Info("raw model output", zap.String("output", completion.Text))

	res, rep, err := s.validator.Response(completion.Text)
	if err != nil {
		log.Error("failed to parse model output", zap.Error(err), zap.String("output", completion.Text))
		return response.ParseFailure(), OutcomeParseFallback
	}
	if rep.Repaired {
		log.Warn("model output repaired", zap.String("output", completion.Text))
	}
	for _, w := range rep.Warnings {
		log.Warn("model output normalized", zap.String("detail", w))
	}

	if s.history != nil && req.ConversationID != "" {
		s.history.Append(req.ConversationID, domain.Turn{User: user, Assistant: completion.Text})
	}
	return res, OutcomeValidated
}
