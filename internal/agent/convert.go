package agent

import (
	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm"
	"github.com/AlexanderGhosty/browser-ai-agent/pkg/models"
)

// toChatMessages renders the context manager's tagged-union log into the
// provider's flat wire shape.
func toChatMessages(msgs []models.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := llm.ChatMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == models.RoleToolResult {
			cm.Role = "tool"
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, llm.ToolCallOut{
				ID:            tc.ID,
				Name:          tc.Name,
				ArgumentsJSON: tc.ArgumentsJSON,
			})
		}
		out = append(out, cm)
	}
	return out
}

// toModelToolCalls renders the provider's wire-level tool calls back into
// the domain model.
func toModelToolCalls(calls []llm.ToolCallOut) []models.ToolCall {
	out := make([]models.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, models.ToolCall{ID: c.ID, Name: c.Name, ArgumentsJSON: c.ArgumentsJSON})
	}
	return out
}
