package context

import (
	"testing"

	"github.com/AlexanderGhosty/browser-ai-agent/pkg/models"
)

func TestWindowNeverOrphansAToolResult(t *testing.T) {
	m := NewManager("system prompt")
	m.maxHistoryMessages = 2 // force a tight window so the backward walk is exercised

	m.AddObservation("obs 1")
	m.AddAssistantMessage("", []models.ToolCall{{ID: "t1", Name: "navigate", ArgumentsJSON: `{"url":"a"}`}})
	m.AddToolResult(models.ToolCall{ID: "t1", Name: "navigate", ArgumentsJSON: `{"url":"a"}`}, "Navigated to a")
	m.AddObservation("obs 2")

	msgs := m.GetMessages()

	// The window must start at the Assistant message owning t1, not at the
	// ToolResult that answers it.
	sawAssistant := false
	for _, msg := range msgs {
		if msg.Role == models.RoleToolResult && !sawAssistant {
			t.Fatalf("ToolResult for %q appeared before its owning Assistant message in the window", msg.ToolCallID)
		}
		if msg.Role == models.RoleAssistant {
			sawAssistant = true
		}
	}
}

func TestAddToolResultPrefixLength(t *testing.T) {
	m := NewManager("system prompt")

	shortResult := "ok"
	m.AddToolResult(models.ToolCall{ID: "t1", Name: "click", ArgumentsJSON: `{"selector":"x"}`}, shortResult)

	longResult := make([]byte, 2000)
	for i := range longResult {
		longResult[i] = 'a'
	}
	m.AddToolResult(models.ToolCall{ID: "t2", Name: "click", ArgumentsJSON: `{"selector":"y"}`}, string(longResult))

	if len(m.actionHistory) != 2 {
		t.Fatalf("expected 2 action history entries, got %d", len(m.actionHistory))
	}
	// Second entry's prefix should be 300 chars of 'a' plus the "click(...) -> " header.
	entry := m.actionHistory[1]
	aCount := 0
	for _, r := range entry {
		if r == 'a' {
			aCount++
		}
	}
	if aCount != 300 {
		t.Errorf("expected 300 chars of result prefix for a >1000-char result, got %d", aCount)
	}
}

func TestRemoveLastObservationRemovesMostRecentUserMessage(t *testing.T) {
	m := NewManager("system prompt")
	m.AddObservation("obs 1")
	before := m.Len()
	m.RemoveLastObservation()
	if m.Len() != before-1 {
		t.Fatalf("Len() = %d, want %d", m.Len(), before-1)
	}
	for _, msg := range m.messages {
		if msg.Content == "obs 1" {
			t.Error("obs 1 should have been removed")
		}
	}
}

func TestEstimateTokensCountsToolCallsSeparately(t *testing.T) {
	m := NewManager("") // estimateTokens counts only the raw log, never the system prompt
	m.AddAssistantMessage("", []models.ToolCall{{ID: "t1", Name: "click", ArgumentsJSON: `{"selector":"abcd"}`}})

	got := m.estimateTokens()
	want := ceilDiv4(len(`{"selector":"abcd"}`)) + 10
	if got != want {
		t.Errorf("estimateTokens() = %d, want %d", got, want)
	}
}
