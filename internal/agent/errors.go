package agent

import "errors"

// Sentinel error for one of the two fatal conditions the agent loop itself
// aborts a run for; the other, no open pages, is browser.ErrNoPages, which
// Run wraps. Every other failure (browser action,
// extraction, guard) is absorbed into a narrated string instead, following
// the teacher's internal/agent/errors.go convention of a small sentinel set
// reserved for truly unrecoverable states.
var (
	// ErrTooManyFailures is returned once consecutiveFailures exceeds
	// maxConsecutiveFails.
	ErrTooManyFailures = errors.New("too many consecutive errors")
)
