package browser

import "testing"

func TestIsAriaRole(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{"button", true},
		{"BUTTON", true},
		{"  textbox  ", true},
		{"notarole", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isAriaRole(tt.role); got != tt.expected {
			t.Errorf("isAriaRole(%q) = %v, want %v", tt.role, got, tt.expected)
		}
	}
}

func TestRejectsTreePathHallucinations(t *testing.T) {
	tests := []string{
		`ROOT > BUTTON1`,
		`root > button1`,
		`DIV > BUTTON2`,
	}
	for _, raw := range tests {
		_, err := Resolve(nil, raw)
		if err == nil {
			t.Errorf("Resolve(%q) should reject the tree-path hallucination, got nil error", raw)
		}
		var re *ResolveError
		if !isResolveError(err, &re) {
			t.Errorf("Resolve(%q) error should be a *ResolveError, got %T", raw, err)
		}
	}
}

func TestResolveEmptySelector(t *testing.T) {
	_, err := Resolve(nil, "   ")
	if err == nil {
		t.Fatal("expected an error for an empty selector")
	}
}

func TestDashPrefixedAriaSelectorIsNotTreePath(t *testing.T) {
	// Resolve is not called here (it would reach page methods on a nil
	// page). isTreePathHallucination strips leading "- " the way Resolve
	// does and applies the tree-path pattern, so this checks that an
	// ARIA-shaped string with a YAML-list dash is not taken for a tree path.
	selector := `- button "Submit"`
	if isTreePathHallucination(selector) {
		t.Errorf("%q should not be treated as a tree-path hallucination", selector)
	}
}

func isTreePathHallucination(raw string) bool {
	selector := raw
	for len(selector) > 2 && selector[:2] == "- " {
		selector = selector[2:]
	}
	return uppercaseChainWithDigit.MatchString(selector)
}

func isResolveError(err error, target **ResolveError) bool {
	re, ok := err.(*ResolveError)
	if ok {
		*target = re
	}
	return ok
}
