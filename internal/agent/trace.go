package agent

import "log/slog"

// traceIteration logs one loop iteration's shape at debug level, the same
// structured-field style the teacher uses for its JSON stderr handler
// (cmd/nexus/main.go in haasonsaas/nexus).
func traceIteration(log *slog.Logger, iteration, maxIterations int, url string) {
	log.Debug("agent iteration", "iteration", iteration, "max_iterations", maxIterations, "url", url)
}

func traceToolCall(log *slog.Logger, name, argsJSON, outcome string) {
	log.Info("tool call", "tool", name, "args", argsJSON, "outcome", outcome)
}

func traceStuck(log *slog.Logger, reason, action, url string) {
	log.Warn("loop detector flagged repetition", "reason", reason, "action", action, "url", url)
}

func traceBlocked(log *slog.Logger, name, argsJSON string) {
	log.Warn("security guard blocked action", "tool", name, "args", argsJSON)
}

func traceError(log *slog.Logger, stage string, err error) {
	log.Error("agent loop error", "stage", stage, "error", err)
}
