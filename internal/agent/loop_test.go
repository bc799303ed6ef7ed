package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm"
	"github.com/playwright-community/playwright-go"
)

// fakePage embeds playwright.Page so *fakePage satisfies the interface
// without hand-writing its dozens of methods; only URL and Title (the ones
// Run/act touch directly) are overridden. Calling anything else would
// panic on the nil embedded value, which is fine: the loop under test
// never does.
type fakePage struct {
	playwright.Page
	url   string
	title string
}

func (p *fakePage) URL() string           { return p.url }
func (p *fakePage) Title() (string, error) { return p.title, nil }

// fakeBrowser is a browserSource that always hands back the same page.
type fakeBrowser struct {
	page *fakePage
}

func (b *fakeBrowser) ActivePage() (playwright.Page, error) { return b.page, nil }
func (b *fakeBrowser) CloseExtraTabs(ctx context.Context)   {}

// fakeActions is an actionRunner that records every dispatched call instead
// of driving a real browser.
type fakeActions struct {
	calls []string
}

func (a *fakeActions) record(name, arg string) string {
	a.calls = append(a.calls, fmt.Sprintf("%s(%s)", name, arg))
	return name + " ok"
}

func (a *fakeActions) Navigate(page playwright.Page, rawURL string) string {
	return a.record("navigate", rawURL)
}
func (a *fakeActions) Click(page playwright.Page, selector string) string {
	return a.record("click", selector)
}
func (a *fakeActions) Type(page playwright.Page, selector, text string) string {
	return a.record("type", selector)
}
func (a *fakeActions) Scroll(page playwright.Page, direction string) string {
	return a.record("scroll", direction)
}
func (a *fakeActions) GoBack(page playwright.Page) string { return a.record("go_back", "") }
func (a *fakeActions) SelectOption(page playwright.Page, selector, value string) string {
	return a.record("select_option", selector)
}
func (a *fakeActions) PressKey(page playwright.Page, key string) string {
	return a.record("press_key", key)
}
func (a *fakeActions) Hover(page playwright.Page, selector string) string {
	return a.record("hover", selector)
}
func (a *fakeActions) Wait(page playwright.Page, ms int) string {
	return a.record("wait", fmt.Sprintf("%d", ms))
}

// fakeExtractor is a pageExtractor returning a fixed snapshot, standing in
// for a real accessibility-tree extraction.
type fakeExtractor struct{ snapshot string }

func (e *fakeExtractor) Extract(page playwright.Page) string { return e.snapshot }

// fakeGuard is a guardChecker with a scripted verdict.
type fakeGuard struct {
	allow   bool
	blocked string
	calls   int
}

func (g *fakeGuard) Check(toolName, argsJSON, pageTitle, pageURL string) (bool, string) {
	g.calls++
	return g.allow, g.blocked
}

// fakeProvider is an llm.Provider that plays back one scripted response (or
// error) per call, in order, and records every request it was handed.
type fakeProvider struct {
	responses []llm.Response
	errs      []error
	requests  []llm.Request
	call      int
}

func (p *fakeProvider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.requests = append(p.requests, req)
	i := p.call
	p.call++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.responses) {
		return &llm.Response{}, nil
	}
	resp := p.responses[i]
	return &resp, nil
}

func (p *fakeProvider) Name() string { return "fake" }

func toolCall(name string, args map[string]any) llm.ToolCallOut {
	b, _ := json.Marshal(args)
	return llm.ToolCallOut{ID: "call-" + name, Name: name, ArgumentsJSON: string(b)}
}

func newTestLoop(provider *fakeProvider, page *fakePage, g *fakeGuard, actions *fakeActions) *Loop {
	return &Loop{
		Browser:       &fakeBrowser{page: page},
		Actions:       actions,
		Extractor:     &fakeExtractor{snapshot: "Page: Test\nURL: https://example.com\n"},
		Guard:         g,
		Provider:      provider,
		Model:         "test-model",
		MaxIterations: 10,
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		AskUser:       func(string) string { return "" },
	}
}

// TestRun_ToolCallThenDoneReturnsSummary exercises spec §8 scenario 1
// (scheme-less navigate) at the dispatch-wiring level: the loop must pass
// the model's raw url argument straight to the action library unmodified.
func TestRun_ToolCallThenDoneReturnsSummary(t *testing.T) {
	provider := &fakeProvider{
		responses: []llm.Response{
			{ToolCalls: []llm.ToolCallOut{toolCall("navigate", map[string]any{"url": "example.com"})}, FinishReason: "tool_calls"},
			{ToolCalls: []llm.ToolCallOut{toolCall("done", map[string]any{"summary": "finished the task"})}, FinishReason: "tool_calls"},
		},
	}
	page := &fakePage{url: "https://example.com", title: "Example"}
	guard := &fakeGuard{allow: true}
	actions := &fakeActions{}
	loop := newTestLoop(provider, page, guard, actions)

	summary, err := loop.Run(context.Background(), "open example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != "finished the task" {
		t.Errorf("summary = %q, want %q", summary, "finished the task")
	}
	if len(actions.calls) != 1 || actions.calls[0] != "navigate(example.com)" {
		t.Errorf("actions.calls = %v, want [navigate(example.com)]", actions.calls)
	}
}

// TestRun_DestructiveConfirmationDeniedBlocksAction exercises spec §8
// scenario 4: a denied confirmation must block the action library from
// ever being dispatched.
func TestRun_DestructiveConfirmationDeniedBlocksAction(t *testing.T) {
	provider := &fakeProvider{
		responses: []llm.Response{
			{ToolCalls: []llm.ToolCallOut{toolCall("click", map[string]any{"selector": `button "Оплатить"`})}},
			{ToolCalls: []llm.ToolCallOut{toolCall("done", map[string]any{"summary": "stopped, user declined"})}},
		},
	}
	page := &fakePage{url: "https://pay.example/checkout", title: "Checkout"}
	guard := &fakeGuard{allow: false, blocked: "Action blocked: requires confirmation"}
	actions := &fakeActions{}
	loop := newTestLoop(provider, page, guard, actions)

	summary, err := loop.Run(context.Background(), "pay the invoice")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != "stopped, user declined" {
		t.Errorf("summary = %q, want %q", summary, "stopped, user declined")
	}
	if guard.calls != 1 {
		t.Errorf("guard.calls = %d, want 1", guard.calls)
	}
	if len(actions.calls) != 0 {
		t.Errorf("actions.calls = %v, want none dispatched", actions.calls)
	}
}

// TestRun_IterationCeilingForcesSummaryWithDoneOnlyTool exercises spec §8
// scenario 5: once MaxIterations elapses without done, exactly one
// additional call is made offering only the done tool.
func TestRun_IterationCeilingForcesSummaryWithDoneOnlyTool(t *testing.T) {
	provider := &fakeProvider{
		responses: []llm.Response{
			{ToolCalls: []llm.ToolCallOut{toolCall("scroll", map[string]any{"direction": "down"})}},
			{ToolCalls: []llm.ToolCallOut{toolCall("done", map[string]any{"summary": "forced summary"})}},
		},
	}
	page := &fakePage{url: "https://example.com", title: "Example"}
	guard := &fakeGuard{allow: true}
	actions := &fakeActions{}
	loop := newTestLoop(provider, page, guard, actions)
	loop.MaxIterations = 1

	summary, err := loop.Run(context.Background(), "scroll around")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != "forced summary" {
		t.Errorf("summary = %q, want %q", summary, "forced summary")
	}
	if len(provider.requests) != 2 {
		t.Fatalf("provider was called %d times, want exactly 2", len(provider.requests))
	}
	lastTools := provider.requests[1].Tools
	if len(lastTools) != 1 || lastTools[0].Name != "done" {
		t.Errorf("forced-summary request tools = %+v, want only done", lastTools)
	}
}

// TestRun_ThinkErrorRemovesOrphanedObservation exercises spec §8 scenario 6:
// a failed LLM call must not leave its triggering observation stacked on
// top of the next iteration's observation.
func TestRun_ThinkErrorRemovesOrphanedObservation(t *testing.T) {
	provider := &fakeProvider{
		errs: []error{errors.New("transport error")},
		responses: []llm.Response{
			{},
			{ToolCalls: []llm.ToolCallOut{toolCall("done", map[string]any{"summary": "done after retry"})}},
		},
	}
	page := &fakePage{url: "https://example.com", title: "Example"}
	guard := &fakeGuard{allow: true}
	actions := &fakeActions{}
	loop := newTestLoop(provider, page, guard, actions)
	loop.MaxIterations = 5

	summary, err := loop.Run(context.Background(), "do something")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != "done after retry" {
		t.Errorf("summary = %q, want %q", summary, "done after retry")
	}
	if len(provider.requests) != 2 {
		t.Fatalf("provider was called %d times, want exactly 2", len(provider.requests))
	}
	before := len(provider.requests[0].Messages)
	after := len(provider.requests[1].Messages)
	if after != before {
		t.Errorf("message count after retry = %d, want %d (the failed iteration's observation must not survive)", after, before)
	}
}

// TestRun_EmptyResponsesAbortAfterTooManyConsecutiveFailures exercises
// spec §7's ">3 consecutive failures" abort condition: the empty-response
// branch increments consecutiveFailures without erroring, so the counter
// must still accumulate across iterations instead of being reset.
func TestRun_EmptyResponsesAbortAfterTooManyConsecutiveFailures(t *testing.T) {
	provider := &fakeProvider{}
	page := &fakePage{url: "https://example.com", title: "Example"}
	guard := &fakeGuard{allow: true}
	actions := &fakeActions{}
	loop := newTestLoop(provider, page, guard, actions)
	loop.MaxIterations = 10

	_, err := loop.Run(context.Background(), "do something")
	if !errors.Is(err, ErrTooManyFailures) {
		t.Fatalf("Run() error = %v, want ErrTooManyFailures", err)
	}
	if len(provider.requests) != maxConsecutiveFails+1 {
		t.Errorf("provider was called %d times, want %d", len(provider.requests), maxConsecutiveFails+1)
	}
}

// TestRun_TextOnlyCompletionAccepted covers the text-only acceptance path:
// a "stop" finish reason with a completion word ends the run without any
// tool call.
func TestRun_TextOnlyCompletionAccepted(t *testing.T) {
	provider := &fakeProvider{
		responses: []llm.Response{
			{Content: "Task complete: everything requested is done.", FinishReason: "stop"},
		},
	}
	page := &fakePage{url: "https://example.com", title: "Example"}
	guard := &fakeGuard{allow: true}
	actions := &fakeActions{}
	loop := newTestLoop(provider, page, guard, actions)

	summary, err := loop.Run(context.Background(), "do something trivial")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != "Task complete: everything requested is done." {
		t.Errorf("summary = %q, want the model's text verbatim", summary)
	}
}
