package agent

import "testing"

func TestExactRepetitionFlagsThirdIdenticalAction(t *testing.T) {
	ring := []RecentAction{
		{ActionDesc: `click({"selector":"button \"Next\""})`, URL: "https://example.com/page1"},
		{ActionDesc: `click({"selector":"button \"Next\""})`, URL: "https://example.com/page1"},
	}
	stuck, reason := isStuck(ring, `click({"selector":"button \"Next\""})`, "https://example.com/page1")
	if !stuck {
		t.Fatal("expected isStuck to flag the third identical (action, url)")
	}
	if reason != "exact repetition" {
		t.Errorf("reason = %q, want %q", reason, "exact repetition")
	}
}

func TestExactRepetitionDoesNotFireOnFirstTwo(t *testing.T) {
	ring := []RecentAction{
		{ActionDesc: `click(a)`, URL: "https://example.com"},
	}
	stuck, _ := isStuck(ring, `click(a)`, "https://example.com")
	if stuck {
		t.Error("only two identical entries total should not yet be flagged as stuck")
	}
}

func TestOscillationFlagsThreeDistinctVisits(t *testing.T) {
	ring := []RecentAction{
		{ActionDesc: "navigate(a)", URL: "https://example.com/a"},
		{ActionDesc: "navigate(b)", URL: "https://example.com/b"},
		{ActionDesc: "navigate(a)", URL: "https://example.com/a"},
		{ActionDesc: "navigate(b)", URL: "https://example.com/b"},
	}
	stuck, reason := isStuck(ring, "navigate(a)", "https://example.com/a")
	if !stuck {
		t.Fatal("expected oscillation between two URLs to be flagged as stuck")
	}
	if reason != "oscillation" {
		t.Errorf("reason = %q, want %q", reason, "oscillation")
	}
}

func TestOscillationDoesNotFlagRepeatedActionsOnSamePage(t *testing.T) {
	ring := []RecentAction{
		{ActionDesc: "click(next)", URL: "https://mail.example.com/inbox"},
		{ActionDesc: "click(next)", URL: "https://mail.example.com/inbox"},
	}
	stuck, _ := isStuck(ring, "click(archive)", "https://mail.example.com/inbox")
	if stuck {
		t.Error("repeated actions on a single page (one visit) should not be flagged as oscillation")
	}
}

func TestPushRecentActionEvictsOldestPast10(t *testing.T) {
	var ring []RecentAction
	for i := 0; i < 15; i++ {
		ring = pushRecentAction(ring, RecentAction{ActionDesc: "x", URL: "https://example.com"})
	}
	if len(ring) != recentActionsCapacity {
		t.Fatalf("len(ring) = %d, want %d", len(ring), recentActionsCapacity)
	}
}
