package testutil

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// SineWave returns n samples of sin(x) over [0, 20], the waveform used
// throughout the tests.
func SineWave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := 0.0
		if n > 1 {
			x = 20 * float64(i) / float64(n-1)
		}
		out[i] = math.Sin(x)
	}
	return out
}

// WriteText writes values one per line to dir/name and returns the path.
func WriteText(t *testing.T, dir, name string, values []float64) string {
	t.Helper()
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// BIDSOptions describes a generated BIDS physio dataset.
type BIDSOptions struct {
	Subject   string
	Session   string
	Task      string
	Run       string
	Recording string
	Columns   []string
	Samples   int
	FS        float64
	StartTime float64
}

// DefaultBIDSOptions matches the layout used by the dataset tests:
// sub-01/ses-01, task rest, run 01, recording cardiac.
func DefaultBIDSOptions() BIDSOptions {
	return BIDSOptions{
		Subject:   "01",
		Session:   "01",
		Task:      "rest",
		Run:       "01",
		Recording: "cardiac",
		Columns:   []string{"time", "respiratory_chest", "trigger", "cardiac"},
		Samples:   100,
		FS:        10000,
		StartTime: -3,
	}
}

// WriteBIDSDataset creates root/bids-dir with a dataset_description.json
// and one gzipped physio recording plus JSON sidecar. Column c of row i
// holds c*1000 + i, so tests can check which column a channel came from.
// Returns the dataset directory.
func WriteBIDSDataset(t *testing.T, root string, opts BIDSOptions) string {
	t.Helper()
	dir := filepath.Join(root, "bids-dir")
	writeJSON(t, filepath.Join(dir, "dataset_description.json"), map[string]any{
		"Name":        "physutils test dataset",
		"BIDSVersion": "1.9.0",
	})

	funcDir := filepath.Join(dir, "sub-"+opts.Subject)
	if opts.Session != "" {
		funcDir = filepath.Join(funcDir, "ses-"+opts.Session)
	}
	funcDir = filepath.Join(funcDir, "func")
	require.NoError(t, os.MkdirAll(funcDir, 0o755))

	base := RecordingBase(opts)
	writeJSON(t, filepath.Join(funcDir, base+".json"), map[string]any{
		"SamplingFrequency": opts.FS,
		"StartTime":         opts.StartTime,
		"Columns":           opts.Columns,
	})

	var b strings.Builder
	for i := 0; i < opts.Samples; i++ {
		for c := range opts.Columns {
			if c > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(strconv.Itoa(c*1000 + i))
		}
		b.WriteByte('\n')
	}

	f, err := os.Create(filepath.Join(funcDir, base+".tsv.gz"))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(b.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return dir
}

// RecordingBase returns the file name stem of the generated recording,
// e.g. "sub-01_ses-01_task-rest_run-01_recording-cardiac_physio".
func RecordingBase(opts BIDSOptions) string {
	parts := []string{"sub-" + opts.Subject}
	if opts.Session != "" {
		parts = append(parts, "ses-"+opts.Session)
	}
	if opts.Task != "" {
		parts = append(parts, "task-"+opts.Task)
	}
	if opts.Run != "" {
		parts = append(parts, "run-"+opts.Run)
	}
	if opts.Recording != "" {
		parts = append(parts, "recording-"+opts.Recording)
	}
	return fmt.Sprintf("%s_physio", strings.Join(parts, "_"))
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
