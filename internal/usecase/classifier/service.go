// Package classifier maps a user query to an intent with extracted entities.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/logger"
	"github.com/kailas-cloud/ingres/internal/metrics"
)

// Pipeline labels classifier metrics and logs.
const Pipeline = "intent"

const warmupQuery = "Warm up the model. Respond with an empty JSON object."

// Outcomes recorded in metrics.PipelineOutcomesTotal.
const (
	OutcomeValidated     = "validated"
	OutcomeParseFallback = "parse_fallback"
	OutcomeErrorFallback = "error_fallback"
)

// Config holds the completion parameters of the classifier.
type Config struct {
	MaxTokens         int
	Temperature       float32
	WarmupMaxTokens   int
	WarmupTemperature float32
	JSONMode          bool
}

// DefaultConfig matches the classifier's production settings.
func DefaultConfig() Config {
	return Config{MaxTokens: 500, WarmupMaxTokens: 50}
}

// Service classifies queries. Safe for concurrent use.
type Service struct {
	completer Completer
	source    Source
	assembler Assembler
	validator Validator
	cfg       Config
	logger    *zap.Logger
}

// New creates a classifier service.
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

// UserMessage formats the user turn sent for query.
func UserMessage(query string) string {
	return "Query: " + query + "\nRespond with ONLY JSON as specified."
}

// Warmup sends one trivial request with the static instruction. Callers treat
// a failure as non-fatal.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      s.assembler.Static(),
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: UserMessage(warmupQuery)}},
		MaxTokens:   s.cfg.WarmupMaxTokens,
		Temperature: s.cfg.WarmupTemperature,
	})
	if err != nil {
		return fmt.Errorf("classifier warmup: %w", err)
	}
	s.logger.Info("model warmup completed")
	return nil
}

// Classify never fails: parse failures and an empty choice set yield
// intent.UnknownResult, every other failure yields intent.ErrorResult.
func (s *Service) Classify(ctx context.Context, query string) intent.Result {
	log := logger.OrDefault(ctx, s.logger)
	start := time.Now()
	log.Info("analyzing query", zap.String("query", query))

	res, outcome := s.classify(ctx, log, query)
	metrics.PipelineOutcomesTotal.WithLabelValues(Pipeline, outcome).Inc()

	log.Info("intent classified",
		zap.String("intent", res.Intent().String()),
		zap.Float64("confidence", res.Confidence()),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	)
	return res
}

func (s *Service) classify(ctx context.Context, log *zap.Logger, query string) (intent.Result, string) {
	examples, err := s.source.Examples(ctx, query)
	if err != nil {
		log.Error("example retrieval failed", zap.Error(err))
		return intent.ErrorResult(), OutcomeErrorFallback
	}

	p, err := s.assembler.Assemble(s.source.Heading(), examples)
	if err != nil {
		log.Error("prompt assembly failed", zap.Error(err))
		return intent.ErrorResult(), OutcomeErrorFallback
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

	completion, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      p.System,
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: UserMessage(query)}},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		JSONMode:    s.cfg.JSONMode,
	})
	if errors.Is(err, domain.ErrEmptyCompletion) {
		log.Error("empty response from model")
		return intent.UnknownResult(), OutcomeParseFallback
	}
	if err != nil {
		log.Error("intent detection failed", zap.Error(err))
		return intent.ErrorResult(), OutcomeErrorFallback
	}
	log.Info("raw model output", zap.String("output", completion.Text))

	res, rep, err := s.validator.Intent(completion.Text)
	if err != nil {
		log.Error("failed to parse model output", zap.Error(err), zap.String("output", completion.Text))
		return intent.UnknownResult(), OutcomeParseFallback
	}
	if rep.Repaired {
		log.Warn("model output repaired", zap.String("output", completion.Text))
	}
	for _, w := range rep.Warnings {
		log.Warn("model output normalized", zap.String("detail", w))
	}
	return res, OutcomeValidated
}
