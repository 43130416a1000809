package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:       HTTPConfig{Port: 8000},
		Completion: CompletionConfig{APIKey: "gsk-test"},
		Embedding:  EmbeddingConfig{APIKey: "sk-test"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_MissingCompletionAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Completion.APIKey = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing completion api key")
	}

	expected := `completion.api_key is required for provider "openai"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_OllamaNeedsNoKey(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{Port: 8000},
		Completion: CompletionConfig{Provider: ProviderOllama},
		Embedding:  EmbeddingConfig{Provider: ProviderOllama},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Completion.BaseURL != "http://localhost:11434" {
		t.Errorf("expected ollama base url, got %q", cfg.Completion.BaseURL)
	}
	if cfg.Embedding.Model != "all-minilm" {
		t.Errorf("expected all-minilm, got %q", cfg.Embedding.Model)
	}
}

func TestValidate_StaticSourceSkipsEmbeddingKey(t *testing.T) {
	cfg := validConfig()
	cfg.Examples.Source = SourceStatic
	cfg.Embedding.APIKey = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RetrievalNeedsEmbeddingKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding api key")
	}
}

func TestValidate_Enums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"provider", func(c *Config) { c.Completion.Provider = "gemini" }, "completion.provider"},
		{"source", func(c *Config) { c.Examples.Source = "mixed" }, "examples.source"},
		{"backend", func(c *Config) { c.Examples.Backend = "faiss" }, "examples.backend"},
		{"temperature", func(c *Config) {
			v := float32(3)
			c.Generator.Temperature = &v
		}, "generator.temperature"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8000 {
		t.Errorf("expected Port=8000, got %d", cfg.HTTP.Port)
	}
	if cfg.Completion.Model != "llama-3.1-8b-instant" {
		t.Errorf("unexpected completion model %q", cfg.Completion.Model)
	}
	if cfg.Completion.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("unexpected completion base url %q", cfg.Completion.BaseURL)
	}
	if cfg.Examples.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Examples.TopK)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected Dimensions=384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Classifier.MaxTokens != 500 || cfg.Generator.MaxTokens != 500 {
		t.Errorf("expected MaxTokens=500, got %d/%d", cfg.Classifier.MaxTokens, cfg.Generator.MaxTokens)
	}
	if *cfg.Classifier.Temperature != 0 {
		t.Errorf("expected classifier temperature 0, got %g", *cfg.Classifier.Temperature)
	}
	if *cfg.Generator.Temperature != 0.3 {
		t.Errorf("expected generator temperature 0.3, got %g", *cfg.Generator.Temperature)
	}
	if *cfg.Generator.WarmupTemperature != 0.1 {
		t.Errorf("expected generator warmup temperature 0.1, got %g", *cfg.Generator.WarmupTemperature)
	}
	if cfg.Generator.History.Enabled {
		t.Error("history must be disabled by default")
	}
	if cfg.Generator.History.MaxTurns != 10 {
		t.Errorf("expected MaxTurns=10, got %d", cfg.Generator.History.MaxTurns)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	zero := float32(0)
	cfg := Config{
		HTTP:      HTTPConfig{Port: 9000, ReadTimeoutSec: 30},
		Examples:  ExamplesConfig{TopK: 3, Source: SourceStatic},
		Generator: GeneratorConfig{PipelineConfig: PipelineConfig{Temperature: &zero, Model: "llama-3.3-70b-versatile"}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("http settings overridden: %+v", cfg.HTTP)
	}
	if cfg.Examples.TopK != 3 || cfg.Examples.Source != SourceStatic {
		t.Errorf("examples settings overridden: %+v", cfg.Examples)
	}
	if *cfg.Generator.Temperature != 0 {
		t.Errorf("explicit zero temperature overridden: %g", *cfg.Generator.Temperature)
	}
	if got := cfg.ModelFor(cfg.Generator.PipelineConfig); got != "llama-3.3-70b-versatile" {
		t.Errorf("ModelFor(generator) = %q", got)
	}
	if got := cfg.ModelFor(cfg.Classifier); got != "llama-3.1-8b-instant" {
		t.Errorf("ModelFor(classifier) = %q", got)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("INGRES_TEST_GROQ_KEY", "gsk-from-env")

	data := []byte(`
http:
  port: 8080
completion:
  api_key: ${INGRES_TEST_GROQ_KEY}
  model: ${INGRES_TEST_MODEL:-llama-3.1-8b-instant}
examples:
  source: static
generator:
  temperature: 0.2
  history:
    enabled: true
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Completion.APIKey != "gsk-from-env" {
		t.Errorf("expected key from env, got %q", cfg.Completion.APIKey)
	}
	if cfg.Completion.Model != "llama-3.1-8b-instant" {
		t.Errorf("expected default model, got %q", cfg.Completion.Model)
	}
	if *cfg.Generator.Temperature != 0.2 {
		t.Errorf("expected inline temperature 0.2, got %g", *cfg.Generator.Temperature)
	}
	if !cfg.Generator.History.Enabled {
		t.Error("expected history enabled")
	}
}

func TestParse_MissingKeyIsConfigError(t *testing.T) {
	_, err := Parse([]byte("http:\n  port: 8000\n"))
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("unexpected error: %v", err)
	}
}
