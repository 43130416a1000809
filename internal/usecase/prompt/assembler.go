package prompt

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/example"
)

// TokenCounter estimates the token length of a text.
type TokenCounter interface {
	Count(text string) (int, error)
}

// TiktokenCounter counts tokens with the GPT-4o BPE vocabulary. Llama models
// tokenize differently, so counts are an estimate for budgeting.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter loads the GPT-4o codec.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer: %w", err)
	}
	return &TiktokenCounter{codec: codec}, nil
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) (int, error) {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to encode string: %w", err)
	}
	return len(ids), nil
}

// Prompt is an assembled system instruction.
type Prompt struct {
	System   string
	Examples int  // examples actually included
	Dropped  int  // examples removed to fit the budget
	Tokens   int  // estimated tokens; 0 when no counter is configured
	Overflow bool // still above budget with no examples left
}

// Assembler builds system instructions for one pipeline.
// Safe for concurrent use: it holds only immutable state.
type Assembler struct {
	static    string
	counter   TokenCounter
	maxTokens int
}

// Options configures an Assembler.
type Options struct {
	Schema    string       // empty uses DefaultSchema
	Counter   TokenCounter // nil disables the token budget
	MaxTokens int          // <= 0 disables the token budget
}

// NewAssembler renders the static instruction for kind.
func NewAssembler(kind Kind, opts Options) (*Assembler, error) {
	schema := opts.Schema
	if schema == "" {
		schema = DefaultSchema()
	}
	static, err := renderStatic(kind, schema)
	if err != nil {
		return nil, err
	}
	return &Assembler{static: static, counter: opts.Counter, maxTokens: opts.MaxTokens}, nil
}

// Static returns the fixed part of the instruction, used for warm-up calls.
func (a *Assembler) Static() string { return a.static }

// Assemble appends the examples section under heading. The section is always
// present. When a budget is set, the lowest ranked examples are dropped until
// the prompt fits.
func (a *Assembler) Assemble(heading string, examples []example.Record) (Prompt, error) {
	n := len(examples)
	for {
		system, err := a.compose(heading, examples[:n])
		if err != nil {
			return Prompt{}, err
		}
		p := Prompt{System: system, Examples: n, Dropped: len(examples) - n}

		if a.counter == nil || a.maxTokens <= 0 {
			return p, nil
		}
		tokens, err := a.counter.Count(system)
		if err != nil {
			// Budgeting is best effort; an uncountable prompt is sent as is.
			return p, nil //nolint:nilerr // counting failure must not fail the request
		}
		p.Tokens = tokens
		if tokens <= a.maxTokens {
			return p, nil
		}
		if n == 0 {
			p.Overflow = true
			return p, nil
		}
		n--
	}
}

// FitTurns returns the newest turns that fit in the budget left after the
// assembled system prompt and the current user message. Oldest turns go first.
// Without a budget, or when counting fails, every turn is kept.
func (a *Assembler) FitTurns(p Prompt, user string, turns []domain.Turn) []domain.Turn {
	if a.counter == nil || a.maxTokens <= 0 || len(turns) == 0 || p.Tokens == 0 {
		return turns
	}
	used, err := a.counter.Count(user)
	if err != nil {
		return turns
	}
	used += p.Tokens

	// Walk from newest to oldest, keeping turns while they fit.
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		u, err := a.counter.Count(turns[i].User)
		if err != nil {
			return turns
		}
		r, err := a.counter.Count(turns[i].Assistant)
		if err != nil {
			return turns
		}
		if used+u+r > a.maxTokens {
			break
		}
		used += u + r
		start = i
	}
	return turns[start:]
}

func (a *Assembler) compose(heading string, examples []example.Record) (string, error) {
	section, err := FormatExamples(examples)
	if err != nil {
		return "", err
	}
	return a.static + "\n\n" + heading + "\n" + section, nil
}
