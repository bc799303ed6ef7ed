// Package agent implements the observe->think->act orchestration engine:
// the agent loop, its tool surface, loop/degeneracy detection, and the
// security guard and context manager it drives. Grounded on the teacher's
// AgenticLoop state machine (internal/agent/loop.go in haasonsaas/nexus),
// simplified from the teacher's streaming/parallel-tool-executor/async-job
// machinery to the strictly serial loop this domain's browser actions
// require: the tool calls of one turn run one after another, in order.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	agentctx "github.com/AlexanderGhosty/browser-ai-agent/internal/agent/context"
	"github.com/AlexanderGhosty/browser-ai-agent/internal/agent/guard"
	"github.com/AlexanderGhosty/browser-ai-agent/internal/browser"
	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm"
	"github.com/AlexanderGhosty/browser-ai-agent/pkg/models"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

const (
	defaultMaxIterations = 50
	maxTextOnlyRetries   = 2
	maxConsecutiveFails  = 3
)

// AskUserFunc prompts the human operator with question and returns their
// answer. It backs both the ask_user tool and the security guard's
// confirmation prompts.
type AskUserFunc func(question string) string

// browserSource is the subset of *browser.Manager the loop depends on. A
// narrow interface here (rather than the concrete type) is what lets
// loop_test.go drive Run with a fake page instead of a live Chromium
// instance.
type browserSource interface {
	ActivePage() (playwright.Page, error)
	CloseExtraTabs(ctx context.Context)
}

// pageExtractor is the subset of *browser.Extractor the loop depends on.
type pageExtractor interface {
	Extract(page playwright.Page) string
}

// actionRunner is the subset of *browser.Actions the loop depends on.
type actionRunner interface {
	Navigate(page playwright.Page, rawURL string) string
	Click(page playwright.Page, selector string) string
	Type(page playwright.Page, selector, text string) string
	Scroll(page playwright.Page, direction string) string
	GoBack(page playwright.Page) string
	SelectOption(page playwright.Page, selector, value string) string
	PressKey(page playwright.Page, key string) string
	Hover(page playwright.Page, selector string) string
	Wait(page playwright.Page, ms int) string
}

// guardChecker is the subset of *guard.Guard the loop depends on.
type guardChecker interface {
	Check(toolName, argsJSON, pageTitle, pageURL string) (allowed bool, blockedMessage string)
}

// Loop is the agent's C6: it owns one run's state and drives the browser,
// LLM, guard and context manager to carry out a task.
type Loop struct {
	Browser   browserSource
	Actions   actionRunner
	Extractor pageExtractor
	Guard     guardChecker
	Provider  llm.Provider

	Model         string
	MaxIterations int
	Log           *slog.Logger

	AskUser AskUserFunc
}

// NewLoop wires the six components into a runnable loop. log defaults to
// slog.Default() if nil; maxIterations defaults to 50 if <= 0.
func NewLoop(b *browser.Manager, provider llm.Provider, model string, maxIterations int, askUser AskUserFunc, log *slog.Logger) *Loop {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if log == nil {
		log = slog.Default()
	}
	l := &Loop{
		Browser:       b,
		Actions:       browser.NewActions(),
		Extractor:     browser.NewExtractor(),
		Provider:      provider,
		Model:         model,
		MaxIterations: maxIterations,
		Log:           log,
		AskUser:       askUser,
	}
	l.Guard = guard.New(func(prompt string) string {
		if askUser != nil {
			return askUser(prompt)
		}
		return "n"
	})
	return l
}

// runState is the per-run mutable state spec.md §4.6 names.
type runState struct {
	isDone              bool
	summary             string
	consecutiveFailures int
	textOnlyRetries     int
	recentActions       []RecentAction
}

// Run carries out task: the observe->think->act loop, capped at
// MaxIterations, returning the final summary.
func (l *Loop) Run(ctx context.Context, task string) (string, error) {
	runID := uuid.NewString()
	log := l.Log.With("run_id", runID)

	cm := agentctx.NewManager(SystemPrompt(task))
	st := &runState{}

	for iteration := 1; iteration <= l.MaxIterations; iteration++ {
		page, err := l.Browser.ActivePage()
		if err != nil {
			return "", fmt.Errorf("task aborted: %w", err)
		}
		l.Browser.CloseExtraTabs(ctx)

		traceIteration(log, iteration, l.MaxIterations, page.URL())

		observation := l.observe(page, iteration)
		cm.AddObservation(observation)

		resp, err := l.think(ctx, cm)
		if err != nil {
			traceError(log, "think", err)
			st.consecutiveFailures++
			cm.RemoveLastObservation()
			if st.consecutiveFailures > maxConsecutiveFails {
				return "", ErrTooManyFailures
			}
			continue
		}

		done, err := l.act(ctx, cm, st, resp, page)
		if err != nil {
			traceError(log, "act", err)
			st.consecutiveFailures++
			cm.RemoveLastObservation()
		}
		if st.consecutiveFailures > maxConsecutiveFails {
			return "", ErrTooManyFailures
		}
		if err != nil {
			continue
		}

		if done {
			return st.summary, nil
		}
	}

	return l.forceSummary(ctx, cm)
}

// observe extracts the current page snapshot and formats it as the
// "[Step i/N]" observation spec.md §3 specifies.
func (l *Loop) observe(page playwright.Page, iteration int) string {
	snapshot := l.Extractor.Extract(page)
	return fmt.Sprintf("[Step %d/%d]\n\nCurrent page state:\n%s", iteration, l.MaxIterations, snapshot)
}

// think requests one completion from the LLM using the current window.
func (l *Loop) think(ctx context.Context, cm *agentctx.Manager) (*llm.Response, error) {
	req := llm.Request{
		Model:       l.Model,
		Messages:    toChatMessages(cm.GetMessages()),
		Tools:       ToolSchemas(),
		Temperature: 0.3,
		MaxTokens:   2048,
	}
	resp, err := l.Provider.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Usage != nil {
		l.Log.Debug("token usage", "prompt", resp.Usage.PromptTokens, "completion", resp.Usage.CompletionTokens, "total", resp.Usage.TotalTokens)
	}
	return resp, nil
}

// act dispatches on the three response shapes spec.md §4.6 step 4 names:
// tool calls present, text only, or empty. It returns done=true once the
// model has called the done tool or accepted a text summary.
func (l *Loop) act(ctx context.Context, cm *agentctx.Manager, st *runState, resp *llm.Response, page playwright.Page) (bool, error) {
	toolCalls := toModelToolCalls(resp.ToolCalls)

	switch {
	case len(toolCalls) > 0:
		cm.AddAssistantMessage(resp.Content, toolCalls)
		st.textOnlyRetries = 0
		st.consecutiveFailures = 0

		for _, call := range toolCalls {
			currentPage, err := l.Browser.ActivePage()
			if err != nil {
				return false, err
			}
			page = currentPage

			actionDesc := fmt.Sprintf("%s(%s)", call.Name, call.ArgumentsJSON)
			url := page.URL()

			if stuck, reason := isStuck(st.recentActions, actionDesc, url); stuck {
				traceStuck(l.Log, reason, actionDesc, url)
				cm.AddToolResult(call, "You are repeating the same action without progress. Try a different selector, a different approach, or call done if the task cannot proceed.")
				continue
			}
			st.recentActions = pushRecentAction(st.recentActions, RecentAction{ActionDesc: actionDesc, URL: url})

			result, isDone, summary := l.execute(call, page)
			traceToolCall(l.Log, call.Name, call.ArgumentsJSON, result)
			cm.AddToolResult(call, result)

			l.Browser.CloseExtraTabs(ctx)

			if isDone {
				st.isDone = true
				st.summary = summary
				return true, nil
			}
		}
		return false, nil

	case strings.TrimSpace(resp.Content) != "":
		cm.AddAssistantMessage(resp.Content, nil)

		if strings.Contains(resp.Content, "?") && st.textOnlyRetries < maxTextOnlyRetries {
			cm.AddObservation("You responded with text instead of calling a tool. Please call one of the available tools to make progress.")
			st.textOnlyRetries++
			return false, nil
		}

		if resp.FinishReason == string(models.FinishStop) && containsCompletionWord(resp.Content) {
			st.isDone = true
			st.summary = resp.Content
			st.consecutiveFailures = 0
			return true, nil
		}

		if st.textOnlyRetries < maxTextOnlyRetries {
			cm.AddObservation("Please call a tool (e.g. navigate, click, read_page, or done) to continue the task.")
			st.textOnlyRetries++
		}
		return false, nil

	default:
		l.Log.Warn("empty LLM response")
		st.consecutiveFailures++
		return false, nil
	}
}

// execute runs one tool call via the security guard and action library,
// with read_page routed to the extractor and ask_user/done handled inline
// rather than dispatched to the browser.
func (l *Loop) execute(call models.ToolCall, page playwright.Page) (result string, isDone bool, summary string) {
	switch call.Name {
	case "read_page":
		return l.Extractor.Extract(page), false, ""

	case "ask_user":
		var args struct {
			Question string `json:"question"`
		}
		_ = json.Unmarshal([]byte(call.ArgumentsJSON), &args)
		answer := ""
		if l.AskUser != nil {
			answer = l.AskUser(args.Question)
		}
		return fmt.Sprintf("User answered: %s", answer), false, ""

	case "done":
		var args struct {
			Summary string `json:"summary"`
		}
		_ = json.Unmarshal([]byte(call.ArgumentsJSON), &args)
		return "Task marked done.", true, args.Summary
	}

	allowed, blocked := l.Guard.Check(call.Name, call.ArgumentsJSON, pageTitleOrEmpty(page), page.URL())
	if !allowed {
		traceBlocked(l.Log, call.Name, call.ArgumentsJSON)
		return blocked, false, ""
	}

	return l.dispatchAction(call, page), false, ""
}

// dispatchAction maps a tool call onto the action library, per spec.md §4.2.
func (l *Loop) dispatchAction(call models.ToolCall, page playwright.Page) string {
	var args map[string]any
	_ = json.Unmarshal([]byte(call.ArgumentsJSON), &args)

	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}
	num := func(key string) int {
		switch v := args[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
		return 0
	}

	switch call.Name {
	case "navigate":
		return l.Actions.Navigate(page, str("url"))
	case "click":
		return l.Actions.Click(page, str("selector"))
	case "type":
		return l.Actions.Type(page, str("selector"), str("text"))
	case "scroll":
		return l.Actions.Scroll(page, str("direction"))
	case "go_back":
		return l.Actions.GoBack(page)
	case "select_option":
		return l.Actions.SelectOption(page, str("selector"), str("value"))
	case "press_key":
		return l.Actions.PressKey(page, str("key"))
	case "hover":
		return l.Actions.Hover(page, str("selector"))
	case "wait":
		return l.Actions.Wait(page, num("ms"))
	default:
		return fmt.Sprintf("Unknown tool %q", call.Name)
	}
}

// forceSummary runs spec.md §4.6's terminal-summary path once MaxIterations
// elapses without the model calling done.
func (l *Loop) forceSummary(ctx context.Context, cm *agentctx.Manager) (string, error) {
	cm.AddObservation("You have reached the maximum number of steps for this task. Call done now with a summary of what you achieved, what remains, and suggested next steps.")

	req := llm.Request{
		Model:       l.Model,
		Messages:    toChatMessages(cm.GetMessages()),
		Tools:       metaToolDoneOnly(),
		Temperature: 0.3,
		MaxTokens:   1024,
	}
	resp, err := l.Provider.Chat(ctx, req)
	if err != nil {
		return fmt.Sprintf("Reached %d iterations without completing the task.", l.MaxIterations), nil
	}

	for _, tc := range resp.ToolCalls {
		if tc.Name == "done" {
			var args struct {
				Summary string `json:"summary"`
			}
			if json.Unmarshal([]byte(tc.ArgumentsJSON), &args) == nil && args.Summary != "" {
				return args.Summary, nil
			}
		}
	}
	if strings.TrimSpace(resp.Content) != "" {
		return resp.Content, nil
	}
	return fmt.Sprintf("Reached %d iterations without completing the task.", l.MaxIterations), nil
}

// containsCompletionWord reports whether text signals the model believes
// the task is finished, per spec.md §4.6's text-only acceptance path.
func containsCompletionWord(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range []string{"task", "complete", "finished", "done"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func pageTitleOrEmpty(page playwright.Page) string {
	title, err := page.Title()
	if err != nil {
		return ""
	}
	return title
}
