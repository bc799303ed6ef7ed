package browser

import "errors"

// ErrNoPages means the browser context has no open, non-closed pages left —
// one of the two fatal conditions the agent loop (spec.md §7) is allowed to
// abort a run for.
var ErrNoPages = errors.New("browser windows closed: no open pages remain")
