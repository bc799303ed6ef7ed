package agent

// RecentAction is one entry in the loop detector's bounded ring, per
// spec.md §3's RecentActions type.
type RecentAction struct {
	ActionDesc string
	URL        string
}

const recentActionsCapacity = 10

// pushRecentAction appends entry, evicting the oldest once the ring
// exceeds its capacity of 10.
func pushRecentAction(ring []RecentAction, entry RecentAction) []RecentAction {
	ring = append(ring, entry)
	if len(ring) > recentActionsCapacity {
		ring = ring[len(ring)-recentActionsCapacity:]
	}
	return ring
}

// isStuck implements spec.md §4.6's two loop-detection rules against the
// proposed (action, url) pair and the ring of actions taken so far.
func isStuck(ring []RecentAction, proposedAction, proposedURL string) (stuck bool, reason string) {
	if isExactRepetition(ring, proposedAction, proposedURL) {
		return true, "exact repetition"
	}
	if isOscillation(ring, proposedURL) {
		return true, "oscillation"
	}
	return false, ""
}

// isExactRepetition flags a proposed action when the last two ring entries
// already match it exactly on both action and url.
func isExactRepetition(ring []RecentAction, action, url string) bool {
	if len(ring) < 2 {
		return false
	}
	last := ring[len(ring)-1]
	prev := ring[len(ring)-2]
	return last.ActionDesc == action && last.URL == url && prev.ActionDesc == action && prev.URL == url
}

// isOscillation counts distinct "visits" to url in ring++[proposed], where
// a visit is index 0 or any index whose predecessor had a different url.
// Three or more visits flags oscillation. Counting visits rather than raw
// entries is deliberate (spec.md §9): repeated legitimate actions on one
// page, like paging through results, must not look like a loop.
func isOscillation(ring []RecentAction, url string) bool {
	sequence := make([]string, 0, len(ring)+1)
	for _, r := range ring {
		sequence = append(sequence, r.URL)
	}
	sequence = append(sequence, url)

	visits := 0
	for i, u := range sequence {
		if u != url {
			continue
		}
		if i == 0 || sequence[i-1] != u {
			visits++
		}
	}
	return visits >= 3
}
