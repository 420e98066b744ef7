package physio

import (
	"context"
	"log/slog"
)

// AdvisoryKey is the attribute that marks a log record as an advisory.
const AdvisoryKey = "advisory"

// Advisory kinds.
const (
	AdvisoryHistoryAbsent         = "history_absent"
	AdvisoryFSOverridden          = "fs_overridden"
	AdvisoryEmptyHistory          = "empty_history"
	AdvisoryMissingCollaborators  = "missing_collaborators"
	AdvisoryWorkflowUnavailable   = "workflow_unavailable"
	AdvisoryDatasetLayoutFallback = "dataset_layout_fallback"
)

// Advise logs a non-fatal advisory at Warn level. Execution continues.
func Advise(logger *slog.Logger, kind, msg string, args ...any) {
	logger = LoggerOrDefault(logger)
	attrs := append([]any{AdvisoryKey, kind}, args...)
	logger.Log(context.Background(), slog.LevelWarn, msg, attrs...)
}

// LoggerOrDefault returns logger, or slog.Default() when logger is nil.
func LoggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
