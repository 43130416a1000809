package ingres

import (
	"context"

	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/domain/response"
	"github.com/kailas-cloud/ingres/internal/usecase/generator"
	healthuc "github.com/kailas-cloud/ingres/internal/usecase/health"
)

// --- intentUseCase mock ---

type mockIntentUC struct {
	classifyFn func(ctx context.Context, query string) intent.Result
	warmupErr  error
}

func (m *mockIntentUC) Classify(ctx context.Context, query string) intent.Result {
	return m.classifyFn(ctx, query)
}

func (m *mockIntentUC) Warmup(_ context.Context) error { return m.warmupErr }

// --- responseUseCase mock ---

type mockResponseUC struct {
	generateFn func(ctx context.Context, req generator.Request) response.Result
	warmupErr  error
	ended      []string
}

func (m *mockResponseUC) EndConversation(_ context.Context, conversationID string) {
	m.ended = append(m.ended, conversationID)
}

func (m *mockResponseUC) Generate(ctx context.Context, req generator.Request) response.Result {
	return m.generateFn(ctx, req)
}

func (m *mockResponseUC) Warmup(_ context.Context) error { return m.warmupErr }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- helpers ---

func testClient(intentSvc intentUseCase, responseSvc responseUseCase, healthSvc healthUseCase) *Client {
	return &Client{
		intentSvc:   intentSvc,
		responseSvc: responseSvc,
		healthSvc:   healthSvc,
	}
}
