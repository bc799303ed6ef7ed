// Package llm defines the chat-completion contract the agent loop consumes
// and is otherwise agnostic to which model or vendor answers it.
//
// Unlike the teacher's streaming LLMProvider (internal/agent/provider_types.go
// in haasonsaas/nexus), the browser agent asks for one tool call per turn and
// has no use for token-by-token deltas, so Provider.Chat returns a single
// Response rather than a channel of chunks.
package llm

import "context"

// Provider is the interface every LLM backend (GLM, OpenAI, Claude) implements.
// Implementations must be safe for concurrent use, though the agent loop
// itself only ever issues one Chat call at a time.
type Provider interface {
	// Chat sends the full message history and available tools, and returns
	// the model's single response for this turn.
	Chat(ctx context.Context, req Request) (*Response, error)

	// Name identifies the provider for logging ("glm", "openai", "claude").
	Name() string
}

// Request is everything a Provider needs to produce one completion.
type Request struct {
	Model       string
	Messages    []ChatMessage
	Tools       []ToolSchema
	Temperature float64
	MaxTokens   int
}

// ChatMessage is the wire-level shape a Provider sends upstream. It is built
// from []models.Message by the agent loop; ToolCallID is set only on
// tool-result entries and ToolCalls only on assistant entries.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCallOut
	ToolCallID string
}

// ToolCallOut mirrors models.ToolCall for the wire-level request/response.
type ToolCallOut struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// ToolSchema is the OpenAI-compatible function-call schema for one tool.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []byte // raw JSON-Schema object
}

// Response is a provider's single-turn answer.
type Response struct {
	Content      string
	ToolCalls    []ToolCallOut
	FinishReason string // "stop", "tool_calls", "length", ...
	Usage        *Usage
}

// Usage reports token accounting when the provider supplies it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
