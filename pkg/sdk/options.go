package ingres

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	providerOpenAI = "openai"
	providerOllama = "ollama"

	groqBaseURL    = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.1-8b-instant"
	defaultTimeout = 30 * time.Second
)

type clientConfig struct {
	provider string // "openai" or "ollama"
	apiKey   string
	baseURL  string

	intentModel   string
	responseModel string
	timeout       time.Duration
	jsonMode      bool

	intentExamples   string
	responseExamples string

	embedder   Embedder
	dimensions int
	topK       int

	historyConversations int
	historyTurns         int
	historyTTL           time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		intentModel:   defaultModel,
		responseModel: defaultModel,
		timeout:       defaultTimeout,
		jsonMode:      true,
	}
}

// WithGroq uses the Groq OpenAI-compatible endpoint for completions.
func WithGroq(apiKey string) Option {
	return WithOpenAICompatible(apiKey, groqBaseURL)
}

// WithOpenAICompatible uses any OpenAI-compatible chat completion endpoint.
func WithOpenAICompatible(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerOpenAI
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithOllama uses a local Ollama server for completions.
func WithOllama(host string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerOllama
		c.baseURL = host
	})
}

// WithModels sets the completion model of each pipeline.
// Empty values keep the default (llama-3.1-8b-instant).
func WithModels(intentModel, responseModel string) Option {
	return optionFunc(func(c *clientConfig) {
		if intentModel != "" {
			c.intentModel = intentModel
		}
		if responseModel != "" {
			c.responseModel = responseModel
		}
	})
}

// WithTimeout bounds every completion call. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithoutJSONMode stops requesting a JSON object response format.
// Use for providers that reject response_format.
func WithoutJSONMode() Option {
	return optionFunc(func(c *clientConfig) {
		c.jsonMode = false
	})
}

// WithExamples sets the few-shot example files of the two pipelines. Required.
func WithExamples(intentFile, responseFile string) Option {
	return optionFunc(func(c *clientConfig) {
		c.intentExamples = intentFile
		c.responseExamples = responseFile
	})
}

// WithEmbedder enables retrieval of the closest examples.
// dim is the vector size the encoder produces.
func WithEmbedder(e Embedder, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.dimensions = dim
	})
}

// WithTopK sets how many examples retrieval places in the prompt. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithHistory keeps the last maxTurns validated exchanges per conversation
// for up to maxConversations conversations, each expiring after ttl.
func WithHistory(maxConversations, maxTurns int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.historyConversations = maxConversations
		c.historyTurns = maxTurns
		c.historyTTL = ttl
	})
}

// WithLogger enables structured logging for client operations and the
// pipelines. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
