package domain

import "context"

// Role is the author of a chat message.
type Role string

// Chat roles understood by every completion provider.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent after the system instruction.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a single system+messages call to a language model.
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
	// JSONMode asks the provider to constrain output to a JSON object.
	JSONMode bool
}

// Completion is the raw text of the first choice plus token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Completer sends chat completions to a fixed model.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Turn is one completed user/assistant exchange of a conversation.
type Turn struct {
	User      string
	Assistant string
}

// Messages expands turns into alternating user/assistant messages.
func Messages(turns []Turn) []Message {
	out := make([]Message, 0, 2*len(turns))
	for _, t := range turns {
		out = append(out,
			Message{Role: RoleUser, Content: t.User},
			Message{Role: RoleAssistant, Content: t.Assistant},
		)
	}
	return out
}
