package generator

import (
	"context"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
	"github.com/kailas-cloud/ingres/internal/domain/response"
	"github.com/kailas-cloud/ingres/internal/usecase/prompt"
	"github.com/kailas-cloud/ingres/internal/usecase/validate"
)

// Completer sends chat completions to the generator model.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// Source yields few-shot examples for a query.
type Source interface {
	Examples(ctx context.Context, query string) ([]example.Record, error)
	Heading() string
}

// Assembler builds the system instruction.
type Assembler interface {
	Assemble(heading string, examples []example.Record) (prompt.Prompt, error)
	FitTurns(p prompt.Prompt, user string, turns []domain.Turn) []domain.Turn
	Static() string
}

// Validator turns model text into a response result.
type Validator interface {
	Response(text string) (response.Result, validate.Report, error)
}

// History stores prior turns per conversation.
type History interface {
	Turns(conversationID string) []domain.Turn
	Append(conversationID string, turn domain.Turn)
	Forget(conversationID string)
}
