// Package providers implements llm.Provider backends: an OpenAI-compatible
// one that serves both Zhipu GLM and OpenAI itself (they share the same
// chat-completions wire format), and a reserved Claude stub.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatibleProvider talks to any chat-completions endpoint that
// follows OpenAI's wire format. GLM (api.z.ai/api/paas/v4) and OpenAI itself
// both qualify; only the base URL, API key, and default temperature differ.
type OpenAICompatibleProvider struct {
	name         string
	client       *openai.Client
	defaultModel string
	temperature  float32
}

// NewGLM returns the default provider: Zhipu's GLM endpoint at temperature
// 0.3, per spec.
func NewGLM(apiKey, model string) (*OpenAICompatibleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("GLM_API_KEY is required when LLM_PROVIDER=glm")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://api.z.ai/api/paas/v4"
	if model == "" {
		model = "glm-4.6"
	}
	return &OpenAICompatibleProvider{
		name:         "glm",
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: model,
		temperature:  0.3,
	}, nil
}

// NewOpenAI returns a provider pointed at OpenAI's own API.
func NewOpenAI(apiKey, model string) (*OpenAICompatibleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAICompatibleProvider{
		name:         "openai",
		client:       openai.NewClient(apiKey),
		defaultModel: model,
		temperature:  0.7,
	}, nil
}

// Name identifies the provider for logging.
func (p *OpenAICompatibleProvider) Name() string { return p.name }

// Chat sends one non-streaming completion request and returns the model's
// single response, including any tool calls.
func (p *OpenAICompatibleProvider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if len(m.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				oaiMsg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.ArgumentsJSON,
					},
				}
			}
		}
		messages = append(messages, oaiMsg)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: p.temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = make([]openai.Tool, len(req.Tools))
		for i, t := range req.Tools {
			chatReq.Tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  rawSchema(t.Parameters),
				},
			}
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return &llm.Response{FinishReason: "stop"}, nil
	}

	choice := resp.Choices[0]
	out := &llm.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCallOut{
			ID:            tc.ID,
			Name:          tc.Function.Name,
			ArgumentsJSON: tc.Function.Arguments,
		})
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// rawSchema decodes a JSON-Schema byte slice into the any the go-openai
// client expects for Tool.Function.Parameters.
func rawSchema(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	return v
}
