package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ingres/internal/config"
	"github.com/kailas-cloud/ingres/internal/db"
	dbRedis "github.com/kailas-cloud/ingres/internal/db/redis"
	"github.com/kailas-cloud/ingres/internal/domain"
	logpkg "github.com/kailas-cloud/ingres/internal/logger"
	"github.com/kailas-cloud/ingres/internal/metrics"
	"github.com/kailas-cloud/ingres/internal/repository/embcache"
	"github.com/kailas-cloud/ingres/internal/repository/exampleindex"
	"github.com/kailas-cloud/ingres/internal/repository/history"
	chiTransport "github.com/kailas-cloud/ingres/internal/transport/chi"
	ollamaTransport "github.com/kailas-cloud/ingres/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/ingres/internal/transport/openai"
	"github.com/kailas-cloud/ingres/internal/usecase/classifier"
	embeddinguc "github.com/kailas-cloud/ingres/internal/usecase/embedding"
	"github.com/kailas-cloud/ingres/internal/usecase/generator"
	healthuc "github.com/kailas-cloud/ingres/internal/usecase/health"
	"github.com/kailas-cloud/ingres/internal/usecase/prompt"
	"github.com/kailas-cloud/ingres/internal/usecase/retrieval"
	"github.com/kailas-cloud/ingres/internal/usecase/validate"
	"github.com/kailas-cloud/ingres/internal/version"
)

// completer is what both pipelines and the health check need from a provider.
type completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
	HealthCheck(ctx context.Context) error
}

func main() {
	dotenv, err := config.LoadDotEnv()
	if err != nil {
		panic("failed to load .env: " + err.Error())
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting INGRES chatbot API",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("dotenv", dotenv),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("completion_provider", cfg.Completion.Provider),
		zap.String("examples_source", cfg.Examples.Source),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCompletionMetrics()
	metrics.RegisterHTTPMetrics()

	ctx := context.Background()

	// Optional embedding cache
	var store db.Store
	if cfg.Examples.Source == config.SourceRetrieval && cfg.Cache.Enabled() {
		store = connectCache(ctx, cfg.Cache, logger)
	}
	if store != nil {
		defer store.Close()
	}

	// Example sources: retrieval over an index, or a fixed list
	var (
		intentSrc, responseSrc retrieval.Source
		embeddingChecker       healthuc.ProviderChecker
	)
	switch cfg.Examples.Source {
	case config.SourceStatic:
		intentSrc = staticSource(cfg.Examples.Intent, logger)
		responseSrc = staticSource(cfg.Examples.Response, logger)
	default:
		base, checker := buildEmbeddingProvider(cfg.Embedding, logger)
		embeddingChecker = checker
		embedder := buildEmbedder(cfg.Embedding, base, store, cfg.Cache.TTLHours, logger)

		intentSrc = retrievalSource(ctx, cfg, "intent", cfg.Examples.Intent, embedder, logger)
		responseSrc = retrievalSource(ctx, cfg, "response", cfg.Examples.Response, embedder, logger)
	}

	// Prompt assembly and output validation, shared read-only state
	schema, err := prompt.LoadSchema(cfg.Prompt.SchemaFile)
	if err != nil {
		logger.Fatal("Failed to load schema", zap.Error(err))
	}
	var counter prompt.TokenCounter
	if tc, err := prompt.NewTiktokenCounter(); err != nil {
		logger.Warn("Token counter unavailable, prompt budget disabled", zap.Error(err))
	} else {
		counter = tc
	}
	opts := prompt.Options{Schema: schema, Counter: counter, MaxTokens: cfg.Prompt.MaxTokens}

	intentAsm, err := prompt.NewAssembler(prompt.Intent, opts)
	if err != nil {
		logger.Fatal("Failed to build intent prompt", zap.Error(err))
	}
	responseAsm, err := prompt.NewAssembler(prompt.Response, opts)
	if err != nil {
		logger.Fatal("Failed to build response prompt", zap.Error(err))
	}

	validator, err := validate.New(validate.Options{RepairJSON: cfg.Output.RepairJSON})
	if err != nil {
		logger.Fatal("Failed to build output validator", zap.Error(err))
	}

	// Pipelines
	intentCompleter := buildCompleter(cfg, classifier.Pipeline, cfg.ModelFor(cfg.Classifier), logger)
	responseCompleter := buildCompleter(cfg, generator.Pipeline, cfg.ModelFor(cfg.Generator.PipelineConfig), logger)

	classifierSvc := classifier.New(intentCompleter, intentSrc, intentAsm, validator, classifier.Config{
		MaxTokens:         cfg.Classifier.MaxTokens,
		Temperature:       *cfg.Classifier.Temperature,
		WarmupMaxTokens:   cfg.Classifier.WarmupMaxTokens,
		WarmupTemperature: *cfg.Classifier.WarmupTemperature,
		JSONMode:          cfg.Classifier.JSONMode,
	}, logger)

	generatorSvc := generator.New(responseCompleter, responseSrc, responseAsm, validator, generator.Config{
		MaxTokens:         cfg.Generator.MaxTokens,
		Temperature:       *cfg.Generator.Temperature,
		WarmupMaxTokens:   cfg.Generator.WarmupMaxTokens,
		WarmupTemperature: *cfg.Generator.WarmupTemperature,
		JSONMode:          cfg.Generator.JSONMode,
	}, logger)
	if h := cfg.Generator.History; h.Enabled {
		generatorSvc.WithHistory(history.New(h.MaxConversations, h.MaxTurns, time.Duration(h.TTLMinutes)*time.Minute))
		logger.Info("Conversation history enabled",
			zap.Int("max_conversations", h.MaxConversations),
			zap.Int("max_turns", h.MaxTurns),
			zap.Int("ttl_minutes", h.TTLMinutes),
		)
	}

	// Warm-up failures are logged and never stop the process
	if !cfg.Completion.DisableWarmup {
		warmup(ctx, "intent", cfg.Completion.TimeoutSec, classifierSvc.Warmup, logger)
		warmup(ctx, "response", cfg.Completion.TimeoutSec, generatorSvc.Warmup, logger)
	}

	// Health service. Pass nil interfaces, not typed nil pointers.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(intentCompleter, embeddingChecker, cachePinger)

	// Create chi server
	server := chiTransport.NewServer(classifierSvc, generatorSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// connectCache opens the Redis/Valkey embedding cache. The cache is optional:
// when it cannot be reached the service runs without it.
func connectCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) db.Store {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		logger.Warn("Embedding cache disabled", zap.Error(err))
		return nil
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Embedding cache not ready, disabled", zap.Error(err))
		store.Close()
		return nil
	}
	logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Addrs))
	return store
}

// buildEmbeddingProvider creates the remote encoder for the configured provider.
func buildEmbeddingProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, healthuc.ProviderChecker) {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second

	if cfg.Provider == config.ProviderOllama {
		client, err := ollamaTransport.NewClient(cfg.BaseURL)
		if err != nil {
			logger.Fatal("Failed to create ollama client", zap.Error(err))
		}
		e := ollamaTransport.NewEmbedder(client, cfg.Model, timeout, logger)
		return e, e
	}

	e := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Timeout:    timeout,
		Logger:     logger,
	})
	return e, e
}

// buildEmbedder assembles the decorator chain:
// provider -> cached -> instrumented -> instruction -> normalized.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	base domain.Embedder,
	store db.Store,
	cacheTTLHours int,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base

	if store != nil {
		ttl := time.Duration(cacheTTLHours) * time.Hour
		embedder = embcache.New(embedder, store, cfg.Model, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Instruction prefix sits outside the cache, so cache keys include it
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	// Normalization is outermost: blank text never reaches the provider
	return domain.NewNormalizedEmbedder(embedder, cfg.Dimensions)
}

func retrievalSource(
	ctx context.Context,
	cfg config.Config,
	name string,
	set config.ExampleSetConfig,
	embedder domain.Embedder,
	logger *zap.Logger,
) retrieval.Source {
	idx, err := exampleindex.Open(ctx, exampleindex.Options{
		Name:         name,
		MetadataFile: set.MetadataFile,
		IndexFile:    set.IndexFile,
		WriteIndex:   cfg.Examples.WriteIndex,
		Backend:      cfg.Examples.Backend,
		Embedder:     embedder,
		Dimensions:   cfg.Embedding.Dimensions,
		Concurrency:  cfg.Embedding.Concurrency,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open example index", zap.String("set", name), zap.Error(err))
	}
	return retrieval.NewRetrievalSource(embedder, idx, cfg.Examples.TopK)
}

func staticSource(set config.ExampleSetConfig, logger *zap.Logger) retrieval.Source {
	records, err := exampleindex.LoadRecords(set.MetadataFile)
	if err != nil {
		logger.Fatal("Failed to load examples", zap.String("file", set.MetadataFile), zap.Error(err))
	}
	logger.Info("Static examples loaded", zap.String("file", set.MetadataFile), zap.Int("records", len(records)))
	return retrieval.NewStaticSource(records)
}

// buildCompleter creates the completion client of one pipeline.
func buildCompleter(cfg config.Config, pipeline, model string, logger *zap.Logger) completer {
	timeout := time.Duration(cfg.Completion.TimeoutSec) * time.Second

	if cfg.Completion.Provider == config.ProviderOllama {
		client, err := ollamaTransport.NewClient(cfg.Completion.BaseURL)
		if err != nil {
			logger.Fatal("Failed to create ollama client", zap.Error(err))
		}
		return ollamaTransport.NewCompleter(client, model, pipeline, timeout, logger)
	}

	return openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:   cfg.Completion.APIKey,
		BaseURL:  cfg.Completion.BaseURL,
		Model:    model,
		Pipeline: pipeline,
		Timeout:  timeout,
		Logger:   logger,
	})
}

func warmup(ctx context.Context, pipeline string, timeoutSec int, fn func(context.Context) error, logger *zap.Logger) {
	wctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	if err := fn(wctx); err != nil {
		logger.Warn("Model warmup failed", zap.String("pipeline", pipeline), zap.Error(err))
	}
}
