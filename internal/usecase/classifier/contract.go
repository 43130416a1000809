package classifier

import (
	"context"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/usecase/prompt"
	"github.com/kailas-cloud/ingres/internal/usecase/validate"
)

// Completer sends chat completions to the classifier model.
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
	Static() string
}

// Validator turns model text into an intent result.
type Validator interface {
	Intent(text string) (intent.Result, validate.Report, error)
}
