package bids

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/replay"
	"github.com/roach88/physutils/internal/testutil"
)

func defaultSelector() Selector {
	return Selector{Subject: "01", Session: "01", Task: "rest", Run: "01", Recording: "cardiac"}
}

func TestIsDataset(t *testing.T) {
	root := t.TempDir()
	dir := testutil.WriteBIDSDataset(t, root, testutil.DefaultBIDSOptions())

	assert.True(t, IsDataset(dir))
	assert.False(t, IsDataset(root))
	assert.False(t, IsDataset(filepath.Join(root, "missing")))
}

func TestLoadReturnsOneSignalPerColumn(t *testing.T) {
	opts := testutil.DefaultBIDSOptions()
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), opts)
	_, logger := testutil.NewLogCapture()

	signals, err := Load(dir, defaultSelector(), logger)
	require.NoError(t, err)
	require.Len(t, signals, len(opts.Columns))

	cardiac := signals["cardiac"]
	require.NotNil(t, cardiac)
	assert.Equal(t, opts.Samples, cardiac.Len())
	assert.Equal(t, 10000.0, cardiac.FS())
	assert.Equal(t, 3000.0, cardiac.At(0))
	assert.Equal(t, 3099.0, cardiac.At(99))
	assert.Equal(t, 0.0, signals["time"].At(0))

	meta := cardiac.Metadata()
	assert.Equal(t, ir.String("cardiac"), meta[MetaChannel])
	assert.Equal(t, ir.Float(-3), meta[MetaStartTime])
	assert.Equal(t, ir.String("sub-01/ses-01/func/"+testutil.RecordingBase(opts)+".tsv.gz"), meta[MetaFile])

	h := cardiac.History()
	require.Len(t, h, 1)
	assert.Equal(t, LoadFromBIDSOp, h[0].Name)
	assert.True(t, h[0].IsLoad())
	assert.Equal(t, ir.Object{
		"data":      ir.String(dir),
		"subject":   ir.String("01"),
		"session":   ir.String("01"),
		"task":      ir.String("rest"),
		"run":       ir.String("01"),
		"recording": ir.String("cardiac"),
		"channel":   ir.String("cardiac"),
	}, h[0].Args)
}

func TestLoadErrors(t *testing.T) {
	root := t.TempDir()
	dir := testutil.WriteBIDSDataset(t, root, testutil.DefaultBIDSOptions())

	_, err := Load(root, defaultSelector(), nil)
	assert.True(t, HasCode(err, ErrCodeNotDataset))

	_, err = Load(dir, Selector{Subject: "02"}, nil)
	assert.True(t, HasCode(err, ErrCodeNoRecording))

	_, err = LoadChannel(dir, defaultSelector(), "ppg", nil)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeUnknownChannel))
	assert.Contains(t, err.Error(), "cardiac, respiratory_chest, time, trigger")
}

func TestLoadAmbiguousSelector(t *testing.T) {
	root := t.TempDir()
	opts := testutil.DefaultBIDSOptions()
	dir := testutil.WriteBIDSDataset(t, root, opts)
	opts.Run = "02"
	testutil.WriteBIDSDataset(t, root, opts)

	_, err := Load(dir, Selector{Subject: "01"}, nil)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeAmbiguousRecording))
	assert.Contains(t, err.Error(), "2 recordings")

	signals, err := Load(dir, Selector{Subject: "01", Run: "02"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.String("02"), signals["cardiac"].History()[0].Args["run"])
}

func TestLoadToleratesCommentedSidecar(t *testing.T) {
	opts := testutil.DefaultBIDSOptions()
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), opts)
	sidecarPath := filepath.Join(dir, "sub-01", "ses-01", "func", testutil.RecordingBase(opts)+".json")
	require.NoError(t, os.WriteFile(sidecarPath, []byte(`{
    // written by hand
    "SamplingFrequency": 250,
    "Columns": ["time", "respiratory_chest", "trigger", "cardiac",],
}`), 0o644))

	signals, err := Load(dir, defaultSelector(), nil)
	require.NoError(t, err)
	assert.Equal(t, 250.0, signals["cardiac"].FS())
	assert.Equal(t, ir.Null{}, signals["cardiac"].Metadata()[MetaStartTime])
}

func TestLoadRejectsBadSidecar(t *testing.T) {
	opts := testutil.DefaultBIDSOptions()
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), opts)
	sidecarPath := filepath.Join(dir, "sub-01", "ses-01", "func", testutil.RecordingBase(opts)+".json")
	require.NoError(t, os.WriteFile(sidecarPath, []byte(`{"Columns": ["a"]}`), 0o644))

	_, err := Load(dir, defaultSelector(), nil)
	assert.True(t, HasCode(err, ErrCodeInvalidSidecar))
}

func TestLoadRejectsColumnMismatch(t *testing.T) {
	opts := testutil.DefaultBIDSOptions()
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), opts)
	sidecarPath := filepath.Join(dir, "sub-01", "ses-01", "func", testutil.RecordingBase(opts)+".json")
	require.NoError(t, os.WriteFile(sidecarPath, []byte(`{"SamplingFrequency": 100, "Columns": ["a", "b"]}`), 0o644))

	_, err := Load(dir, defaultSelector(), nil)
	assert.True(t, HasCode(err, ErrCodeInvalidTable))
}

func TestReplayDatasetHistory(t *testing.T) {
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())
	_, logger := testutil.NewLogCapture()

	cardiac, err := LoadChannel(dir, defaultSelector(), "cardiac", logger)
	require.NoError(t, err)
	docPath, err := physio.SaveHistory(filepath.Join(t.TempDir(), "cardiac"), cardiac, logger)
	require.NoError(t, err)

	got, err := (&replay.Engine{Logger: logger}).Replay(docPath)
	require.NoError(t, err)
	assert.Equal(t, cardiac.Samples(), got.Samples())
	assert.Equal(t, cardiac.FS(), got.FS())
	assert.Equal(t, cardiac.History(), got.History())
}

func TestLoadFromBIDSRejectsReceiver(t *testing.T) {
	recv := physio.New([]float64{1}, 1, nil, nil)
	_, err := loadFromBIDS(physio.Call{Receiver: recv, Args: ir.Object{}})
	assert.True(t, physio.HasCode(err, physio.ErrCodeInvalidArgument))

	_, err = loadFromBIDS(physio.Call{Args: ir.Object{"data": ir.String("x")}})
	assert.True(t, physio.HasCode(err, physio.ErrCodeInvalidArgument))
}
