package ingres

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/domain/response"
	"github.com/kailas-cloud/ingres/internal/usecase/generator"
	healthuc "github.com/kailas-cloud/ingres/internal/usecase/health"
)

func TestNew_NoProvider(t *testing.T) {
	_, err := New(context.Background(), WithExamples("a.json", "b.json"))
	if err == nil {
		t.Fatal("expected error when no provider configured")
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(context.Background(), WithGroq(""), WithExamples("a.json", "b.json"))
	if err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestNew_NoExamples(t *testing.T) {
	_, err := New(context.Background(), WithGroq("gsk-test"))
	if err == nil {
		t.Fatal("expected error when example files are missing")
	}
}

func TestNew_UnreadableExamples(t *testing.T) {
	dir := t.TempDir()
	_, err := New(context.Background(),
		WithGroq("gsk-test"),
		WithExamples(filepath.Join(dir, "missing.json"), filepath.Join(dir, "missing.json")),
	)
	if err == nil {
		t.Fatal("expected error for missing example file")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := defaultClientConfig()
	for _, o := range []Option{
		WithOllama("http://localhost:11434"),
		WithModels("", "llama-3.3-70b-versatile"),
		WithTimeout(5 * time.Second),
		WithoutJSONMode(),
		WithTopK(3),
		WithHistory(100, 4, time.Hour),
	} {
		o.apply(cfg)
	}

	if cfg.provider != providerOllama || cfg.baseURL != "http://localhost:11434" {
		t.Errorf("provider = %q %q", cfg.provider, cfg.baseURL)
	}
	if cfg.intentModel != defaultModel {
		t.Errorf("intent model = %q, want default", cfg.intentModel)
	}
	if cfg.responseModel != "llama-3.3-70b-versatile" {
		t.Errorf("response model = %q", cfg.responseModel)
	}
	if cfg.timeout != 5*time.Second || cfg.jsonMode || cfg.topK != 3 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.historyConversations != 100 || cfg.historyTurns != 4 || cfg.historyTTL != time.Hour {
		t.Errorf("unexpected history config: %+v", cfg)
	}
}

func TestEmbedderAdapter(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{Embedding: []float32{1, 2, 3}, PromptTokens: 5, TotalTokens: 10}, nil
		},
	}

	adapter := &embedderAdapter{inner: mock}
	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 10 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}

	adapter := &embedderAdapter{inner: mock}
	if _, err := adapter.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from adapter")
	}
}

func TestDetectIntent(t *testing.T) {
	mock := &mockIntentUC{
		classifyFn: func(_ context.Context, q string) intent.Result {
			if q != "compare punjab and haryana" {
				t.Errorf("query = %q", q)
			}
			return intent.NewResult(intent.CompareStatesExtraction,
				map[string]any{"states": []any{"Punjab", "Haryana"}}, 0.9)
		},
	}

	c := testClient(mock, nil, nil)
	res := c.DetectIntent(context.Background(), "compare punjab and haryana")
	if res.Intent != "compare_states_extraction" {
		t.Errorf("Intent = %q", res.Intent)
	}
	if res.Confidence != 0.9 {
		t.Errorf("Confidence = %g", res.Confidence)
	}
	if res.Fallback() {
		t.Error("validated result reported as fallback")
	}
}

func TestDetectIntent_Fallback(t *testing.T) {
	mock := &mockIntentUC{
		classifyFn: func(_ context.Context, _ string) intent.Result { return intent.ErrorResult() },
	}

	c := testClient(mock, nil, nil)
	res := c.DetectIntent(context.Background(), "hi")
	if res.Intent != IntentError {
		t.Errorf("Intent = %q, want error", res.Intent)
	}
	if res.Entities == nil {
		t.Error("entities must be an empty map, not nil")
	}
	if res.Confidence != 0 || !res.Fallback() {
		t.Errorf("unexpected fallback: %+v", res)
	}
}

func TestGenerateResponse(t *testing.T) {
	mock := &mockResponseUC{
		generateFn: func(_ context.Context, req generator.Request) response.Result {
			if req.Intent != "get_state_metric" || req.ConversationID != "c1" {
				t.Errorf("unexpected request: %+v", req)
			}
			if string(req.RawData) != `{"value":42}` {
				t.Errorf("raw data = %s", req.RawData)
			}
			return response.NewResult("Extraction is 42%.",
				response.NewVisualization(response.Bar, []string{"Punjab"}, []float64{42}, "State", "Stage"))
		},
	}

	c := testClient(nil, mock, nil)
	res := c.GenerateResponse(context.Background(), ResponseRequest{
		Intent:         "get_state_metric",
		Query:          "stage of extraction in punjab",
		RawData:        json.RawMessage(`{"value":42}`),
		ConversationID: "c1",
	})
	if res.NLResponse != "Extraction is 42%." {
		t.Errorf("NLResponse = %q", res.NLResponse)
	}
	if res.Visualization == nil || res.Visualization.Type != "bar" {
		t.Fatalf("unexpected visualization: %+v", res.Visualization)
	}
	if res.Visualization.XAxis != "State" || res.Visualization.Data[0] != 42 {
		t.Errorf("unexpected visualization: %+v", res.Visualization)
	}
}

func TestGenerateResponse_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		result response.Result
	}{
		{"parse", response.ParseFailure()},
		{"failure", response.Failure(errors.New("timeout"))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockResponseUC{
				generateFn: func(_ context.Context, _ generator.Request) response.Result { return tc.result },
			}
			res := testClient(nil, mock, nil).GenerateResponse(context.Background(), ResponseRequest{})
			if !res.Fallback() {
				t.Errorf("expected fallback, got %q", res.NLResponse)
			}
			if res.Visualization != nil {
				t.Error("fallback must carry no visualization")
			}
		})
	}
}

func TestEndConversation(t *testing.T) {
	mock := &mockResponseUC{}
	testClient(nil, mock, nil).EndConversation(context.Background(), "c1")
	if len(mock.ended) != 1 || mock.ended[0] != "c1" {
		t.Errorf("unexpected ended conversations %v", mock.ended)
	}
}

func TestHealth(t *testing.T) {
	mock := &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"completion": healthuc.CheckOK, "embedding": healthuc.CheckError},
	}}

	rep := testClient(nil, nil, mock).Health(context.Background())
	if rep.Status != "degraded" {
		t.Errorf("Status = %q", rep.Status)
	}
	if rep.Checks["embedding"] != "error" || rep.Checks["completion"] != "ok" {
		t.Errorf("unexpected checks: %v", rep.Checks)
	}
}

func TestWarmup_JoinsErrors(t *testing.T) {
	errIntent := errors.New("intent cold")
	c := testClient(
		&mockIntentUC{warmupErr: errIntent},
		&mockResponseUC{},
		nil,
	)
	if err := c.Warmup(context.Background()); !errors.Is(err, errIntent) {
		t.Errorf("expected intent warmup error, got %v", err)
	}

	c = testClient(&mockIntentUC{}, &mockResponseUC{}, nil)
	if err := c.Warmup(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	c := testClient(&mockIntentUC{
		classifyFn: func(_ context.Context, _ string) intent.Result { return intent.UnknownResult() },
	}, nil, nil)
	c.obs = obs

	c.DetectIntent(context.Background(), "???")
	c.DetectIntent(context.Background(), "???")

	got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("detect_intent", outcomeFallback))
	if got != 2 {
		t.Errorf("fallback count = %g, want 2", got)
	}

	// A second observer on the same registry reuses the collectors.
	obs2, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second newObserver: %v", err)
	}
	if obs2.metrics.operations != obs.metrics.operations {
		t.Error("expected collectors to be reused")
	}
}

func TestObserver_Nil(t *testing.T) {
	var obs *observer
	obs.observe("noop", outcomeOK, time.Now())
}

// TestClient_EndToEnd drives the wired pipelines against a fake
// OpenAI-compatible endpoint.
func TestClient_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/models"):
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			content := `{"intent":"definition","entities":{"term":"recharge"},"confidence":0.8}`
			body, _ := json.Marshal(map[string]any{
				"id":      "cmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   defaultModel,
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				}},
				"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
			})
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	examples := filepath.Join(dir, "examples.json")
	data := `[{"query":"What is recharge?","response":{"intent":"definition","entities":{"term":"recharge"},"confidence":0.9}}]`
	if err := os.WriteFile(examples, []byte(data), 0o600); err != nil {
		t.Fatalf("write examples: %v", err)
	}

	c, err := New(context.Background(),
		WithOpenAICompatible("sk-test", srv.URL),
		WithExamples(examples, examples),
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := c.DetectIntent(context.Background(), "what does recharge mean")
	if res.Intent != "definition" {
		t.Errorf("Intent = %q, want definition", res.Intent)
	}
	if res.Entities["term"] != "recharge" {
		t.Errorf("Entities = %v", res.Entities)
	}

	if rep := c.Health(context.Background()); rep.Status != "ok" {
		t.Errorf("health = %+v", rep)
	}
}
