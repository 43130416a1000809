package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names accepted for completion and embedding.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Example source modes.
const (
	SourceRetrieval = "retrieval"
	SourceStatic    = "static"
)

// Example index backends.
const (
	BackendFlat    = "flat"
	BackendChromem = "chromem"
)

// Config holds the INGRES chatbot API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Completion CompletionConfig `yaml:"completion"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Cache      CacheConfig      `yaml:"cache"`
	Examples   ExamplesConfig   `yaml:"examples"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Output     OutputConfig     `yaml:"output"`
	Classifier PipelineConfig   `yaml:"classifier"`
	Generator  GeneratorConfig  `yaml:"generator"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CompletionConfig holds the remote language model settings shared by both pipelines.
type CompletionConfig struct {
	Provider      string `yaml:"provider"` // openai (any OpenAI-compatible API, e.g. Groq), ollama
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	DisableWarmup bool   `yaml:"disable_warmup"`
}

// EmbeddingConfig holds the query/example encoder settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	Concurrency      int    `yaml:"concurrency"`       // parallel embeddings while building an index
	QueryInstruction string `yaml:"query_instruction"` // prefix for every embedded text, e.g. "query: " for e5
}

// CacheConfig holds the optional Redis/Valkey embedding cache. Empty addrs disables it.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLHours         int      `yaml:"ttl_hours"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether an embedding cache should be connected.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// ExampleSetConfig points at the persisted artifacts of one example set.
type ExampleSetConfig struct {
	MetadataFile string `yaml:"metadata_file"`
	IndexFile    string `yaml:"index_file"` // optional; built from metadata when absent
}

// ExamplesConfig selects how few-shot examples reach the prompt.
type ExamplesConfig struct {
	Source     string           `yaml:"source"`  // retrieval, static
	Backend    string           `yaml:"backend"` // flat, chromem
	TopK       int              `yaml:"top_k"`
	WriteIndex bool             `yaml:"write_index"`
	Intent     ExampleSetConfig `yaml:"intent"`
	Response   ExampleSetConfig `yaml:"response"`
}

// PromptConfig holds prompt assembly settings.
type PromptConfig struct {
	MaxTokens  int    `yaml:"max_tokens"`
	SchemaFile string `yaml:"schema_file"` // overrides the built-in groundwater schema text
}

// OutputConfig holds model output validation settings.
type OutputConfig struct {
	RepairJSON bool `yaml:"repair_json"`
}

// PipelineConfig holds per-pipeline completion parameters.
type PipelineConfig struct {
	Model             string   `yaml:"model"` // overrides completion.model
	MaxTokens         int      `yaml:"max_tokens"`
	Temperature       *float32 `yaml:"temperature"`
	WarmupMaxTokens   int      `yaml:"warmup_max_tokens"`
	WarmupTemperature *float32 `yaml:"warmup_temperature"`
	JSONMode          bool     `yaml:"json_mode"`
}

// HistoryConfig bounds the optional per-conversation history of the generator.
type HistoryConfig struct {
	Enabled          bool `yaml:"enabled"`
	MaxConversations int  `yaml:"max_conversations"`
	MaxTurns         int  `yaml:"max_turns"`
	TTLMinutes       int  `yaml:"ttl_minutes"`
}

// GeneratorConfig holds the response generator settings.
type GeneratorConfig struct {
	PipelineConfig `yaml:",inline"`
	History        HistoryConfig `yaml:"history"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	c.applyCompletionDefaults()
	c.applyEmbeddingDefaults()

	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Examples.Source == "" {
		c.Examples.Source = SourceRetrieval
	}
	if c.Examples.Backend == "" {
		c.Examples.Backend = BackendFlat
	}
	if c.Examples.TopK <= 0 {
		c.Examples.TopK = 5
	}
	if c.Examples.Intent.MetadataFile == "" {
		c.Examples.Intent.MetadataFile = "config/examples/intent.json"
	}
	if c.Examples.Response.MetadataFile == "" {
		c.Examples.Response.MetadataFile = "config/examples/response.json"
	}

	if c.Prompt.MaxTokens <= 0 {
		c.Prompt.MaxTokens = 6000
	}

	applyPipelineDefaults(&c.Classifier, 0, 0)
	applyPipelineDefaults(&c.Generator.PipelineConfig, 0.3, 0.1)

	if c.Generator.History.MaxConversations <= 0 {
		c.Generator.History.MaxConversations = 1000
	}
	if c.Generator.History.MaxTurns <= 0 {
		c.Generator.History.MaxTurns = 10
	}
	if c.Generator.History.TTLMinutes <= 0 {
		c.Generator.History.TTLMinutes = 30
	}
}

func (c *Config) applyCompletionDefaults() {
	if c.Completion.Provider == "" {
		c.Completion.Provider = ProviderOpenAI
	}
	if c.Completion.BaseURL == "" {
		switch c.Completion.Provider {
		case ProviderOllama:
			c.Completion.BaseURL = "http://localhost:11434"
		default:
			c.Completion.BaseURL = "https://api.groq.com/openai/v1"
		}
	}
	if c.Completion.Model == "" {
		c.Completion.Model = "llama-3.1-8b-instant"
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 20
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.BaseURL == "" {
		switch c.Embedding.Provider {
		case ProviderOllama:
			c.Embedding.BaseURL = "http://localhost:11434"
		default:
			c.Embedding.BaseURL = "https://api.openai.com/v1"
		}
	}
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case ProviderOllama:
			c.Embedding.Model = "all-minilm"
		default:
			c.Embedding.Model = "text-embedding-3-small"
		}
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 20
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}
}

func applyPipelineDefaults(p *PipelineConfig, temperature, warmupTemperature float32) {
	if p.MaxTokens <= 0 {
		p.MaxTokens = 500
	}
	if p.WarmupMaxTokens <= 0 {
		p.WarmupMaxTokens = 50
	}
	if p.Temperature == nil {
		p.Temperature = &temperature
	}
	if p.WarmupTemperature == nil {
		p.WarmupTemperature = &warmupTemperature
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if err := validateProvider("completion.provider", c.Completion.Provider); err != nil {
		return err
	}
	if c.Completion.Provider == ProviderOpenAI && c.Completion.APIKey == "" {
		return fmt.Errorf("completion.api_key is required for provider %q", ProviderOpenAI)
	}

	switch c.Examples.Source {
	case SourceRetrieval, SourceStatic:
		// ok
	default:
		return fmt.Errorf("examples.source must be %q or %q, got %q",
			SourceRetrieval, SourceStatic, c.Examples.Source)
	}
	switch c.Examples.Backend {
	case BackendFlat, BackendChromem:
		// ok
	default:
		return fmt.Errorf("examples.backend must be %q or %q, got %q",
			BackendFlat, BackendChromem, c.Examples.Backend)
	}

	if c.Examples.Source == SourceRetrieval {
		if err := validateProvider("embedding.provider", c.Embedding.Provider); err != nil {
			return err
		}
		if c.Embedding.Provider == ProviderOpenAI && c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for provider %q", ProviderOpenAI)
		}
	}

	for name, p := range map[string]PipelineConfig{
		"classifier": c.Classifier,
		"generator":  c.Generator.PipelineConfig,
	} {
		if p.Temperature == nil {
			continue
		}
		if t := *p.Temperature; t < 0 || t > 2 {
			return fmt.Errorf("%s.temperature must be between 0 and 2, got %g", name, t)
		}
	}
	return nil
}

func validateProvider(field, provider string) error {
	switch provider {
	case ProviderOpenAI, ProviderOllama:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", field, ProviderOpenAI, ProviderOllama, provider)
	}
}

// ModelFor returns the pipeline model, falling back to the shared completion model.
func (c *Config) ModelFor(p PipelineConfig) string {
	if p.Model != "" {
		return p.Model
	}
	return c.Completion.Model
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
