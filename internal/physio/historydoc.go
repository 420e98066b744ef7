package physio

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/physutils/internal/ir"
)

// HistoryExt is appended to history document paths that lack it.
const HistoryExt = ".json"

// MarshalHistoryDocument renders h as a history document: a UTF-8 JSON
// array of [name, arguments] pairs indented by four spaces, with a
// trailing newline.
func MarshalHistoryDocument(h ir.History) ([]byte, error) {
	if h == nil {
		h = ir.History{}
	}
	data, err := json.MarshalIndent(h, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal history document: %w", err)
	}
	return append(data, '\n'), nil
}

// SaveHistory writes the history of sig to path, appending HistoryExt if
// missing, and returns the path written. An empty history is still
// written, with an advisory that the document cannot be replayed.
func SaveHistory(path string, sig *Signal, logger *slog.Logger) (string, error) {
	logger = LoggerOrDefault(logger)
	if len(sig.history) == 0 {
		Advise(logger, AdvisoryEmptyHistory,
			"history of signal is empty; saving anyway, but replaying this file will fail")
	}
	if !strings.HasSuffix(path, HistoryExt) {
		path += HistoryExt
	}
	data, err := MarshalHistoryDocument(sig.history)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save history: %w", err)
	}
	logger.Info("saved signal history", "signal", sig.String(), "path", path, "entries", len(sig.history))
	return path, nil
}
