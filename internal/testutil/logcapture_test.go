package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCapture_RecordsAttributes(t *testing.T) {
	capture, logger := NewLogCapture()

	logger.Debug("plain", "path", "x.txt")
	logger.Warn("advice", AdvisoryKey, "fs_overridden", "loaded_fs", 1000.0)

	records := capture.Records()
	require.Len(t, records, 2)
	assert.Equal(t, slog.LevelDebug, records[0].Level)
	assert.Equal(t, "x.txt", records[0].Attrs["path"])
	assert.Equal(t, 1000.0, records[1].Attrs["loaded_fs"])
}

func TestLogCapture_AdvisoriesFilter(t *testing.T) {
	capture, logger := NewLogCapture()

	logger.Info("not an advisory")
	logger.Warn("a", AdvisoryKey, "history_absent")
	logger.Warn("b", AdvisoryKey, "fs_overridden")

	assert.Len(t, capture.Advisories(), 2)
	assert.Len(t, capture.Advisories("fs_overridden"), 1)
	assert.Empty(t, capture.Advisories("empty_history"))

	capture.Reset()
	assert.Empty(t, capture.Records())
}

func TestSineWave(t *testing.T) {
	wave := SineWave(40)
	require.Len(t, wave, 40)
	assert.Equal(t, 0.0, wave[0])
	assert.InDelta(t, 0.9129, wave[39], 1e-4)
}
