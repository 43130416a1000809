package ingres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/domain/response"
	"github.com/kailas-cloud/ingres/internal/repository/exampleindex"
	"github.com/kailas-cloud/ingres/internal/repository/history"
	ollamaTransport "github.com/kailas-cloud/ingres/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/ingres/internal/transport/openai"
	"github.com/kailas-cloud/ingres/internal/usecase/classifier"
	"github.com/kailas-cloud/ingres/internal/usecase/generator"
	healthuc "github.com/kailas-cloud/ingres/internal/usecase/health"
	"github.com/kailas-cloud/ingres/internal/usecase/prompt"
	"github.com/kailas-cloud/ingres/internal/usecase/retrieval"
	"github.com/kailas-cloud/ingres/internal/usecase/validate"
)

const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
)

// Internal interfaces for substitution in tests.
type intentUseCase interface {
	Classify(ctx context.Context, query string) intent.Result
	Warmup(ctx context.Context) error
}

type responseUseCase interface {
	Generate(ctx context.Context, req generator.Request) response.Result
	EndConversation(ctx context.Context, conversationID string)
	Warmup(ctx context.Context) error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// completer is what both pipelines and the health check need from a provider.
type completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
	HealthCheck(ctx context.Context) error
}

// Client runs the chatbot pipelines in-process. Safe for concurrent use.
type Client struct {
	intentSvc   intentUseCase
	responseSvc responseUseCase
	healthSvc   healthUseCase
	obs         *observer
}

// New creates a Client. A completion provider and example files are required.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.provider == "" {
		return nil, errors.New("ingres: completion provider required (use WithGroq, WithOpenAICompatible or WithOllama)")
	}
	if cfg.provider == providerOpenAI && cfg.apiKey == "" {
		return nil, errors.New("ingres: api key required for OpenAI-compatible provider")
	}
	if cfg.intentExamples == "" || cfg.responseExamples == "" {
		return nil, errors.New("ingres: example files required (use WithExamples)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return wireClient(ctx, cfg, logger, obs)
}

func wireClient(ctx context.Context, cfg *clientConfig, logger *zap.Logger, obs *observer) (*Client, error) {
	var (
		intentSrc, responseSrc retrieval.Source
		embeddingChecker       healthuc.ProviderChecker
		err                    error
	)
	if cfg.embedder == nil {
		if intentSrc, err = staticSource(cfg.intentExamples); err != nil {
			return nil, err
		}
		if responseSrc, err = staticSource(cfg.responseExamples); err != nil {
			return nil, err
		}
	} else {
		embedder := domain.NewNormalizedEmbedder(&embedderAdapter{inner: cfg.embedder}, cfg.dimensions)
		if intentSrc, err = retrievalSource(ctx, cfg, "intent", cfg.intentExamples, embedder, logger); err != nil {
			return nil, err
		}
		if responseSrc, err = retrievalSource(ctx, cfg, "response", cfg.responseExamples, embedder, logger); err != nil {
			return nil, err
		}
		if hc, ok := cfg.embedder.(domain.HealthChecker); ok {
			embeddingChecker = hc
		}
	}

	var popts prompt.Options
	if tc, err := prompt.NewTiktokenCounter(); err == nil {
		popts.Counter = tc
	}
	intentAsm, err := prompt.NewAssembler(prompt.Intent, popts)
	if err != nil {
		return nil, fmt.Errorf("ingres: intent prompt: %w", err)
	}
	responseAsm, err := prompt.NewAssembler(prompt.Response, popts)
	if err != nil {
		return nil, fmt.Errorf("ingres: response prompt: %w", err)
	}
	validator, err := validate.New(validate.Options{RepairJSON: true})
	if err != nil {
		return nil, fmt.Errorf("ingres: output validator: %w", err)
	}

	intentCompleter, err := buildCompleter(cfg, classifier.Pipeline, cfg.intentModel, logger)
	if err != nil {
		return nil, err
	}
	responseCompleter, err := buildCompleter(cfg, generator.Pipeline, cfg.responseModel, logger)
	if err != nil {
		return nil, err
	}

	ccfg := classifier.DefaultConfig()
	ccfg.JSONMode = cfg.jsonMode
	gcfg := generator.DefaultConfig()
	gcfg.JSONMode = cfg.jsonMode

	intentSvc := classifier.New(intentCompleter, intentSrc, intentAsm, validator, ccfg, logger)
	responseSvc := generator.New(responseCompleter, responseSrc, responseAsm, validator, gcfg, logger)
	if cfg.historyTurns > 0 {
		responseSvc.WithHistory(history.New(cfg.historyConversations, cfg.historyTurns, cfg.historyTTL))
	}

	return &Client{
		intentSvc:   intentSvc,
		responseSvc: responseSvc,
		healthSvc:   healthuc.New(intentCompleter, embeddingChecker, nil),
		obs:         obs,
	}, nil
}

func staticSource(path string) (retrieval.Source, error) {
	records, err := exampleindex.LoadRecords(path)
	if err != nil {
		return nil, fmt.Errorf("ingres: load examples: %w", err)
	}
	return retrieval.NewStaticSource(records), nil
}

func retrievalSource(
	ctx context.Context,
	cfg *clientConfig,
	name, path string,
	embedder domain.Embedder,
	logger *zap.Logger,
) (retrieval.Source, error) {
	idx, err := exampleindex.Open(ctx, exampleindex.Options{
		Name:         name,
		MetadataFile: path,
		Backend:      exampleindex.BackendFlat,
		Embedder:     embedder,
		Dimensions:   cfg.dimensions,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("ingres: build %s index: %w", name, err)
	}
	return retrieval.NewRetrievalSource(embedder, idx, cfg.topK), nil
}

func buildCompleter(cfg *clientConfig, pipeline, model string, logger *zap.Logger) (completer, error) {
	if cfg.provider == providerOllama {
		client, err := ollamaTransport.NewClient(cfg.baseURL)
		if err != nil {
			return nil, fmt.Errorf("ingres: %w", err)
		}
		return ollamaTransport.NewCompleter(client, model, pipeline, cfg.timeout, logger), nil
	}

	return openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:   cfg.apiKey,
		BaseURL:  cfg.baseURL,
		Model:    model,
		Pipeline: pipeline,
		Timeout:  cfg.timeout,
		Logger:   logger,
	}), nil
}

// Warmup sends one short request through each pipeline so the first real
// query does not pay cold-start latency. Failures are returned joined.
func (c *Client) Warmup(ctx context.Context) error {
	return errors.Join(
		c.intentSvc.Warmup(ctx),
		c.responseSvc.Warmup(ctx),
	)
}

// DetectIntent classifies query. Failures yield the "unknown" or "error" intent.
func (c *Client) DetectIntent(ctx context.Context, query string) IntentResult {
	start := time.Now()
	res := intentFromDomain(c.intentSvc.Classify(ctx, query))
	c.obs.observe("detect_intent", outcome(res.Fallback()), start)
	return res
}

// GenerateResponse answers req from its raw data. Failures yield a fixed message.
func (c *Client) GenerateResponse(ctx context.Context, req ResponseRequest) Response {
	start := time.Now()
	res := responseFromDomain(c.responseSvc.Generate(ctx, generator.Request{
		Intent:         req.Intent,
		Query:          req.Query,
		RawData:        req.RawData,
		ConversationID: req.ConversationID,
	}))
	c.obs.observe("generate_response", outcome(res.Fallback()), start)
	return res
}

// EndConversation drops the history of conversationID. A no-op unless
// WithHistory is set.
func (c *Client) EndConversation(ctx context.Context, conversationID string) {
	c.responseSvc.EndConversation(ctx, conversationID)
}

// Health checks the completion provider and, when it supports it, the encoder.
func (c *Client) Health(ctx context.Context) HealthReport {
	start := time.Now()
	rep := healthFromDomain(c.healthSvc.Check(ctx))
	c.obs.observe("health", outcome(rep.Status != string(healthuc.Healthy)), start)
	return rep
}

func outcome(fallback bool) string {
	if fallback {
		return outcomeFallback
	}
	return outcomeOK
}
