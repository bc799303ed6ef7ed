package agent

import (
	"encoding/json"

	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm"
)

// schema builds a raw JSON-Schema object for one tool's parameters, in the
// same map-literal-then-marshal style as the teacher's tool definitions
// (internal/tools/nodes/tool.go in haasonsaas/nexus).
func schema(properties map[string]any, required []string) []byte {
	obj := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return []byte(`{"type":"object"}`)
	}
	return payload
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// ToolSchemas is the exact, fixed tool surface exposed to the LLM, per
// spec.md §6.
func ToolSchemas() []llm.ToolSchema {
	return []llm.ToolSchema{
		{
			Name:        "navigate",
			Description: "Navigate the browser to a URL. Use this to open a new site or page.",
			Parameters: schema(map[string]any{
				"url": prop("string", "URL to navigate to. A scheme is added automatically if omitted."),
			}, []string{"url"}),
		},
		{
			Name:        "click",
			Description: `Click an element. Selector must be an ARIA role+name like button "Submit", or text=/label=/placeholder=/CSS. Never use a DOM tree path.`,
			Parameters: schema(map[string]any{
				"selector": prop("string", `Element selector, e.g. button "Submit" or link "Sign in"`),
			}, []string{"selector"}),
		},
		{
			Name:        "type",
			Description: "Type text into an input or textarea identified by selector.",
			Parameters: schema(map[string]any{
				"selector": prop("string", "Element selector for the input field."),
				"text":     prop("string", "Text to type."),
			}, []string{"selector", "text"}),
		},
		{
			Name:        "scroll",
			Description: "Scroll the page up or down by a fixed amount.",
			Parameters: schema(map[string]any{
				"direction": prop("string", `"up" or "down"`),
			}, []string{"direction"}),
		},
		{
			Name:        "read_page",
			Description: "Re-read the current page's accessibility tree without performing any action. Use when you need a fresh look.",
			Parameters:  schema(map[string]any{}, nil),
		},
		{
			Name:        "go_back",
			Description: "Navigate back in browser history. Does nothing useful on single-page apps that intercept the back button.",
			Parameters:  schema(map[string]any{}, nil),
		},
		{
			Name:        "select_option",
			Description: "Choose an option in a <select> dropdown by its value or visible label.",
			Parameters: schema(map[string]any{
				"selector": prop("string", "Selector for the <select> element."),
				"value":    prop("string", "Option value or visible label to select."),
			}, []string{"selector", "value"}),
		},
		{
			Name:        "press_key",
			Description: `Press a single named key, e.g. "Enter", "Escape", "Tab".`,
			Parameters: schema(map[string]any{
				"key": prop("string", "Key name."),
			}, []string{"key"}),
		},
		{
			Name:        "hover",
			Description: "Hover over an element, e.g. to reveal a dropdown menu.",
			Parameters: schema(map[string]any{
				"selector": prop("string", "Element selector to hover."),
			}, []string{"selector"}),
		},
		{
			Name:        "wait",
			Description: "Pause for a number of milliseconds (clamped to 10000ms) before continuing. Use sparingly, only when the page needs time to settle.",
			Parameters: schema(map[string]any{
				"ms": prop("number", "Milliseconds to wait, clamped to 10000."),
			}, []string{"ms"}),
		},
		{
			Name:        "ask_user",
			Description: "Ask the human operator a clarifying question and wait for their answer before continuing.",
			Parameters: schema(map[string]any{
				"question": prop("string", "Question to ask the user."),
			}, []string{"question"}),
		},
		{
			Name:        "done",
			Description: "Call this when the task is complete (or cannot be completed) to end the run and report the outcome.",
			Parameters: schema(map[string]any{
				"summary": prop("string", "Summary of what was accomplished, or why the task could not be completed."),
			}, []string{"summary"}),
		},
	}
}

// metaToolDoneOnly returns just the done tool, used for the forced
// terminal-summary inference at the iteration ceiling (spec.md §4.6).
func metaToolDoneOnly() []llm.ToolSchema {
	for _, t := range ToolSchemas() {
		if t.Name == "done" {
			return []llm.ToolSchema{t}
		}
	}
	return nil
}

// SystemPrompt builds the task-parameterized system prompt, following
// spec.md §6's required contents: ARIA selector syntax, single-tool-per-
// turn discipline, list->detail navigation advice, modal handling, counting
// discipline, and a ban on tree-path selectors.
func SystemPrompt(task string) string {
	return `You are an autonomous browser agent. You control a real, visible Chrome browser one step at a time.

Your task: ` + task + `

Rules:
- Call exactly one tool per turn. Never describe an action without calling the matching tool.
- Selectors must use the ARIA role+name form, e.g. button "Submit", link "Sign in", textbox "Email". You may also use text=, label=, placeholder=, or a CSS selector. NEVER invent a DOM tree path like "ROOT > BUTTON1" — that is not a valid selector.
- If a page lists many similar items (search results, product cards, emails), open the detail page for the specific item you need instead of repeatedly clicking buttons in the list.
- If a modal, dialog, or cookie banner appears, handle it (close/accept/dismiss) before continuing with the task.
- When asked to do something to N items, track how many you have completed (e.g. "item 3 of 10") before calling done.
- Use read_page if you need to re-examine the current page without taking an action.
- Call done with a summary as soon as the task is complete, or as soon as you determine it cannot be completed.
- Destructive or consequential actions (deleting, paying, submitting forms, confirming orders) may require user confirmation; if blocked, try a different approach or use ask_user.`
}
