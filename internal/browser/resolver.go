package browser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// ariaRoles is the closed set of W3C ARIA role names the resolver
// recognizes, compared case-insensitively. See spec.md GLOSSARY.
var ariaRoles = map[string]bool{
	"alert": true, "alertdialog": true, "application": true, "article": true,
	"banner": true, "blockquote": true, "button": true, "caption": true,
	"cell": true, "checkbox": true, "code": true, "columnheader": true,
	"combobox": true, "complementary": true, "contentinfo": true, "definition": true,
	"deletion": true, "dialog": true, "directory": true, "document": true,
	"emphasis": true, "feed": true, "figure": true, "form": true,
	"generic": true, "grid": true, "gridcell": true, "group": true,
	"heading": true, "img": true, "insertion": true, "link": true,
	"list": true, "listbox": true, "listitem": true, "log": true,
	"main": true, "marquee": true, "math": true, "menu": true,
	"menubar": true, "menuitem": true, "menuitemcheckbox": true, "menuitemradio": true,
	"meter": true, "navigation": true, "none": true, "note": true,
	"option": true, "paragraph": true, "presentation": true, "progressbar": true,
	"radio": true, "radiogroup": true, "region": true, "row": true,
	"rowgroup": true, "rowheader": true, "scrollbar": true, "search": true,
	"searchbox": true, "separator": true, "slider": true, "spinbutton": true,
	"status": true, "strong": true, "subscript": true, "superscript": true,
	"switch": true, "tab": true, "table": true, "tablist": true,
	"tabpanel": true, "term": true, "textbox": true, "time": true,
	"timer": true, "toolbar": true, "tooltip": true, "tree": true,
	"treegrid": true, "treeitem": true,
}

func isAriaRole(s string) bool {
	return ariaRoles[strings.ToLower(strings.TrimSpace(s))]
}

// uppercaseChainWithDigit matches tree-path selectors like "DIV > BUTTON2"
// that an LLM sometimes hallucinates from a DOM tree dump instead of an ARIA
// reference. Selectors containing "ROOT" are rejected by a separate check in
// Resolve.
var uppercaseChainWithDigit = regexp.MustCompile(`^[A-Z]+\s*>\s*[A-Z]+.*\d`)

// nestedAriaPattern matches `role1 "name1" role2 "name2"`.
var nestedAriaPattern = regexp.MustCompile(`(?i)^(\w+)\s+"([^"]*)"\s+(\w+)\s+"([^"]*)"\s*$`)

// quotedAriaPattern matches `role "name"` with an optional bracketed suffix,
// e.g. `button "Submit" [level=1]`.
var quotedAriaPattern = regexp.MustCompile(`(?i)^(\w+)\s+"([^"]*)"\s*(\[[^\]]*\])?\s*$`)

// unquotedAriaPattern matches `role name` with no '=' anywhere in the name
// (§9 Open Question: deliberately greedy — the whole remainder is the name).
var unquotedAriaPattern = regexp.MustCompile(`(?i)^(\w+)\s+([^=]+)$`)

// roleEqualsPattern matches `role=button[name='Submit']`.
var roleEqualsPattern = regexp.MustCompile(`(?i)^role=(\w+)(?:\[name=['"]([^'"]*)['"]\])?$`)

// cssHeuristicChars are characters that, if present, suggest the string is
// a CSS selector rather than any of the ARIA/text/label forms above.
const cssHeuristicChars = "#.[]>:=@"

// ResolveError is returned when a selector string cannot be turned into a
// locator. It is never retried by the resolver itself (spec.md §4.1); the
// caller (the action library) decides whether to surface it to the LLM.
type ResolveError struct {
	Selector string
	Reason   string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve selector %q: %s", e.Selector, e.Reason)
}

// Resolve maps a single LLM-authored selector string onto a Playwright
// locator, trying each rule in spec.md §4.1 order and returning on first
// match. The returned Locator is a lazy reference; it may end up matching
// zero, one, or many elements, which the action library discovers when it
// actually interacts with it.
func Resolve(page playwright.Page, raw string) (playwright.Locator, error) {
	selector := strings.TrimPrefix(strings.TrimSpace(raw), "- ")
	selector = strings.TrimSpace(selector)

	if selector == "" {
		return nil, &ResolveError{Selector: raw, Reason: "empty selector"}
	}

	if strings.Contains(strings.ToUpper(selector), "ROOT") || uppercaseChainWithDigit.MatchString(selector) {
		return nil, &ResolveError{
			Selector: raw,
			Reason:   `looks like a DOM tree path, not a selector; use the ARIA role "name" form instead (e.g. button "Submit")`,
		}
	}

	if m := nestedAriaPattern.FindStringSubmatch(selector); m != nil {
		parentRole, parentName, childRole, childName := m[1], m[2], m[3], m[4]
		if isAriaRole(parentRole) && isAriaRole(childRole) {
			parent := page.GetByRole(playwright.AriaRole(strings.ToLower(parentRole)), playwright.PageGetByRoleOptions{
				Name: parentName,
			})
			return parent.GetByRole(playwright.AriaRole(strings.ToLower(childRole)), playwright.LocatorGetByRoleOptions{
				Name: childName,
			}), nil
		}
	}

	if m := quotedAriaPattern.FindStringSubmatch(selector); m != nil {
		role, name := m[1], m[2]
		if isAriaRole(role) {
			return page.GetByRole(playwright.AriaRole(strings.ToLower(role)), playwright.PageGetByRoleOptions{
				Name: name,
			}), nil
		}
	}

	if !strings.Contains(selector, "=") {
		if m := unquotedAriaPattern.FindStringSubmatch(selector); m != nil {
			role, name := m[1], strings.TrimSpace(m[2])
			if isAriaRole(role) && name != "" {
				return page.GetByRole(playwright.AriaRole(strings.ToLower(role)), playwright.PageGetByRoleOptions{
					Name: name,
				}), nil
			}
		}
	}

	if m := roleEqualsPattern.FindStringSubmatch(selector); m != nil {
		role, name := m[1], m[2]
		opts := playwright.PageGetByRoleOptions{}
		if name != "" {
			opts.Name = name
		}
		return page.GetByRole(playwright.AriaRole(strings.ToLower(role)), opts), nil
	}

	if strings.HasPrefix(selector, "text=") {
		return page.GetByText(strings.TrimPrefix(selector, "text="), playwright.PageGetByTextOptions{
			Exact: playwright.Bool(false),
		}), nil
	}

	if strings.HasPrefix(selector, "label=") {
		return page.GetByLabel(strings.TrimPrefix(selector, "label="), playwright.PageGetByLabelOptions{}), nil
	}

	if strings.HasPrefix(selector, "placeholder=") {
		return page.GetByPlaceholder(strings.TrimPrefix(selector, "placeholder="), playwright.PageGetByPlaceholderOptions{}), nil
	}

	if strings.ContainsAny(selector, cssHeuristicChars) {
		return page.Locator(selector), nil
	}

	return page.GetByText(selector, playwright.PageGetByTextOptions{
		Exact: playwright.Bool(false),
	}), nil
}
