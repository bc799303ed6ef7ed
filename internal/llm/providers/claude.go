package providers

import (
	"context"
	"errors"

	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrClaudeReserved is returned by every ClaudeProvider.Chat call. Per
// spec, LLM_PROVIDER=claude is a reserved value: the client is constructed
// and validated (so a missing ANTHROPIC_API_KEY is still caught at
// startup) but message/tool translation is not implemented.
var ErrClaudeReserved = errors.New("claude provider is reserved and not yet wired to the agent loop")

// ClaudeProvider holds a live Anthropic client so that future wiring only
// needs to fill in Chat; it is otherwise inert.
type ClaudeProvider struct {
	client       anthropic.Client
	defaultModel string
}

// NewClaude validates ANTHROPIC_API_KEY and constructs the client, but the
// provider is not yet usable by the agent loop.
func NewClaude(apiKey, model string) (*ClaudeProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &ClaudeProvider{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: model,
	}, nil
}

// Name identifies the provider for logging.
func (p *ClaudeProvider) Name() string { return "claude" }

// Chat always fails: see ErrClaudeReserved.
func (p *ClaudeProvider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, ErrClaudeReserved
}
