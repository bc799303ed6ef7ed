// Package guard classifies tool calls the agent loop is about to execute
// and gates destructive ones behind an explicit user confirmation, grounded
// on the teacher's ApprovalChecker/ApprovalPolicy (internal/agent/approval.go
// in haasonsaas/nexus) — simplified from that checker's async
// allow/deny/pending store to a synchronous allow/block decision, since the
// browser agent has exactly one human in the loop and no persisted queue of
// pending approvals to track.
package guard

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// metaTools never require confirmation: they are read-only or already
// user-directed (spec.md §4.4).
var metaTools = map[string]bool{
	"read_page": true,
	"scroll":    true,
	"wait":      true,
	"ask_user":  true,
	"done":      true,
	"hover":     true,
	"go_back":   true,
	"navigate":  true,
}

// toolPatterns pairs a tool name with a regex tested against that tool's
// text-bearing arguments. Both Russian and English destructive verbs are
// covered, since the agent is expected to operate against Russian-language
// sites as readily as English ones.
var toolPatterns = map[string]*regexp.Regexp{
	"click":     regexp.MustCompile(`(?i)(delete|remove|pay|purchase|buy|submit|confirm|order|checkout|удалить|оплатить|купить|подтвердить|заказать|оформить)`),
	"press_key": regexp.MustCompile(`(?i)\benter\b`),
}

// destructiveKeywords are matched, case-insensitively, against every text
// argument of every non-meta tool call, regardless of which tool it is.
var destructiveKeywords = []string{
	"delete", "pay", "submit", "buy", "order", "cancel", "unsubscribe", "transfer", "sign", "agree", "reset",
	"удалить", "оплатить", "отправить", "купить", "заказать", "отменить", "отписаться", "перевести", "подписать", "согласиться", "сбросить",
}

// checkoutSignals are tested against the page title/URL to decide whether
// a click's page context alone (not just its selector text) should be
// treated as destructive — e.g. a plain "Apply" click is fine on a job
// listing but risky on a checkout page.
var checkoutSignals = []string{
	"checkout", "cart", "payment", "confirm", "delete", "remove",
	"оплата", "корзина", "удал", "подтвер",
}

// ConfirmFunc prompts the user with a formatted description of the pending
// action and returns their raw answer. An answer beginning with "y"
// (case-insensitive) grants approval.
type ConfirmFunc func(prompt string) string

// Guard implements checkAction from spec.md §4.4.
type Guard struct {
	Confirm ConfirmFunc
}

// New returns a Guard that prompts via confirm.
func New(confirm ConfirmFunc) *Guard {
	return &Guard{Confirm: confirm}
}

// Check decides whether the named tool call may execute. toolName and
// argsJSON describe the call; pageTitle/pageURL describe the page it would
// act on. It returns allowed=true when the call may proceed, or
// allowed=false with a blockedMessage to feed back to the model as the
// tool's result.
func (g *Guard) Check(toolName, argsJSON, pageTitle, pageURL string) (allowed bool, blockedMessage string) {
	if metaTools[toolName] {
		return true, ""
	}

	args := flattenArgs(argsJSON)

	suspicious := false

	if pattern, ok := toolPatterns[toolName]; ok && pattern.MatchString(args) {
		suspicious = true
	}

	if !suspicious {
		lowerArgs := strings.ToLower(args)
		for _, kw := range destructiveKeywords {
			if strings.Contains(lowerArgs, kw) {
				suspicious = true
				break
			}
		}
	}

	if !suspicious && toolName == "click" && isCheckoutLikeContext(pageTitle, pageURL) {
		suspicious = true
	}

	if !suspicious {
		return true, ""
	}

	prompt := fmt.Sprintf(
		"The agent wants to run %s(%s) on page %q (%s). This looks like it may have a real-world "+
			"effect (payment, deletion, submission, etc). Allow it? [y/N]: ",
		toolName, args, pageTitle, pageURL,
	)

	answer := ""
	if g.Confirm != nil {
		answer = g.Confirm(prompt)
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
		return true, ""
	}

	return false, fmt.Sprintf(
		"Action blocked: %s(%s) requires user confirmation and was not approved. "+
			"Try a different approach, or use ask_user to check with the user first.",
		toolName, args,
	)
}

// isCheckoutLikeContext reports whether the page's title or URL signals a
// checkout/cart/deletion/confirmation surface, per spec.md §4.4.
func isCheckoutLikeContext(title, url string) bool {
	haystack := strings.ToLower(title + " " + url)
	for _, signal := range checkoutSignals {
		if strings.Contains(haystack, signal) {
			return true
		}
	}
	return false
}

// flattenArgs renders a tool call's JSON arguments as a single string of
// "key=value, key=value" pairs so regexes/keyword scans can run over plain
// text instead of a parsed structure.
func flattenArgs(argsJSON string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &m); err != nil || m == nil {
		return argsJSON
	}
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ", ")
}
