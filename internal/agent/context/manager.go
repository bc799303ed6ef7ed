// Package context maintains the agent loop's conversation log: a linear
// message history plus a compact ActionHistory used once raw messages age
// out, grounded on the teacher's Packer (internal/agent/context/packer.go
// in haasonsaas/nexus) — adapted from the teacher's "pack newest-first up
// to a char budget, summary + incoming" shape to the tagged tool-call/
// tool-result log this system's ToolResult-as-a-message model needs, with
// the window-builder owning the pairing invariant the teacher's embedded
// ToolResults field sidesteps entirely.
package context

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AlexanderGhosty/browser-ai-agent/pkg/models"
)

const (
	defaultMaxHistoryMessages = 10
	defaultTokenBudget        = 8000
)

// Manager owns one run's conversation log and ActionHistory.
type Manager struct {
	systemPrompt       string
	maxHistoryMessages int
	tokenBudget        int

	messages      []models.Message
	actionHistory []string
}

// NewManager returns a Manager seeded with systemPrompt (the
// task-parameterized instructions), using the spec's defaults:
// maxHistoryMessages=10, tokenBudget=8000.
func NewManager(systemPrompt string) *Manager {
	return &Manager{
		systemPrompt:       systemPrompt,
		maxHistoryMessages: defaultMaxHistoryMessages,
		tokenBudget:        defaultTokenBudget,
	}
}

// GetMessages builds the prompt sent to the LLM: system prompt, then an
// optional ActionHistory summary, then a sliding window over the recent
// raw messages that never splits a tool-call/tool-result pair.
func (m *Manager) GetMessages() []models.Message {
	out := make([]models.Message, 0, len(m.messages)+2)
	out = append(out, models.Message{Role: models.RoleSystem, Content: m.systemPrompt})

	if len(m.actionHistory) > 0 {
		out = append(out, models.Message{
			Role:    models.RoleUser,
			Content: "Action history so far:\n" + strings.Join(m.actionHistory, "\n"),
		})
	}

	start := m.windowStart()
	out = append(out, m.messages[start:]...)
	return out
}

// windowStart returns the later of len-maxHistoryMessages and the first
// non-ToolResult message, then walks backward past any ToolResult messages
// to the Assistant message that owns them — the pairing discipline spec.md
// §4.5 calls "critical": an LLM backend rejects a conversation that opens
// on an orphaned tool result.
func (m *Manager) windowStart() int {
	n := len(m.messages)
	if n == 0 {
		return 0
	}

	start := n - m.maxHistoryMessages
	if start < 0 {
		start = 0
	}

	for start > 0 && m.messages[start].Role == models.RoleToolResult {
		start--
	}
	return start
}

// AddObservation appends a User message carrying the page snapshot, then
// compresses the log if it now exceeds the token budget.
func (m *Manager) AddObservation(text string) {
	m.messages = append(m.messages, models.Message{Role: models.RoleUser, Content: text})
	m.compressIfOverBudget()
}

// AddAssistantMessage appends one Assistant record (content and/or tool
// calls).
func (m *Manager) AddAssistantMessage(content string, toolCalls []models.ToolCall) {
	m.messages = append(m.messages, models.Message{
		Role:      models.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// AddToolResult appends one ToolResult record answering call, and pushes a
// compact entry onto ActionHistory: "name(k1=v1,k2=v2,...) -> <prefix>".
// The prefix is 300 chars when result is longer than 1000 chars, else 100.
func (m *Manager) AddToolResult(call models.ToolCall, result string) {
	m.messages = append(m.messages, models.Message{
		Role:       models.RoleToolResult,
		ToolCallID: call.ID,
		Content:    result,
	})

	prefixLen := 100
	if len(result) > 1000 {
		prefixLen = 300
	}
	prefix := result
	if len(prefix) > prefixLen {
		prefix = prefix[:prefixLen]
	}

	m.actionHistory = append(m.actionHistory, fmt.Sprintf("%s(%s) -> %s", call.Name, flattenArgs(call.ArgumentsJSON), prefix))
}

// RemoveLastObservation scans backward and removes the most recent User
// message. Used by the agent loop to undo an observation whose subsequent
// inference call failed, so the log never starts its next window on a
// dangling, unanswered User turn.
func (m *Manager) RemoveLastObservation() {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == models.RoleUser {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
}

// Len reports the number of raw messages currently in the log (used by
// tests asserting the orphaned-observation scenario).
func (m *Manager) Len() int {
	return len(m.messages)
}

// compressIfOverBudget drops the oldest raw messages once the estimated
// token count of the full log exceeds tokenBudget. The ActionHistory
// already preserved their gist, so this is lossy by design.
func (m *Manager) compressIfOverBudget() {
	for m.estimateTokens() > m.tokenBudget && len(m.messages) > 1 {
		m.messages = m.messages[1:]
		for len(m.messages) > 0 && m.messages[0].Role == models.RoleToolResult {
			m.messages = m.messages[1:]
		}
	}
}

// estimateTokens sums ceil(len/4) per message content, plus
// ceil(argsLength/4)+10 per tool call, per spec.md §4.5.
func (m *Manager) estimateTokens() int {
	total := 0
	for _, msg := range m.messages {
		total += ceilDiv4(len(msg.Content))
		for _, tc := range msg.ToolCalls {
			total += ceilDiv4(len(tc.ArgumentsJSON)) + 10
		}
	}
	return total
}

func ceilDiv4(n int) int {
	return (n + 3) / 4
}

// flattenArgs renders a tool call's JSON arguments as "k1=v1,k2=v2" for
// the ActionHistory entry; falls back to the raw string if it isn't a flat
// JSON object.
func flattenArgs(argsJSON string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &m); err != nil || m == nil {
		return argsJSON
	}
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}
