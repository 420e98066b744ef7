package dispatch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
	"github.com/roach88/physutils/internal/testutil"
)

var cardiacParams = map[string]string{
	"subject":   "01",
	"session":   "01",
	"task":      "rest",
	"run":       "01",
	"recording": "cardiac",
}

// writeECG writes the 44611-sample, 1000 Hz archive used by the mode tests.
func writeECG(t *testing.T, dir string) string {
	t.Helper()
	path, err := physio.SaveArchive(filepath.Join(dir, "ECG.phys"),
		physio.New(testutil.SineWave(44611), 1000, nil, nil), nil)
	require.NoError(t, err)
	return path
}

// loadOnlyRegistry resolves plain loads but not dataset loads.
func loadOnlyRegistry(t *testing.T) *physio.Registry {
	t.Helper()
	load, err := physio.DefaultRegistry.Lookup(physio.LoadPhysioOp)
	require.NoError(t, err)
	r := physio.NewRegistry()
	r.Register(physio.LoadPhysioOp, load)
	return r
}

func TestDetectCapabilities(t *testing.T) {
	caps := DetectCapabilities(physio.DefaultRegistry, nil)
	assert.Equal(t, Capabilities{DatasetLayout: true}, caps)

	caps = DetectCapabilities(loadOnlyRegistry(t), nil)
	assert.False(t, caps.DatasetLayout)

	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, DetectCapabilities(physio.DefaultRegistry, s).Workflow)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":        ModePhysio,
		"physio":  ModePhysio,
		"BIDS":    ModeBIDS,
		"history": ModeHistory,
		" auto ":  ModeAuto,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("nifti")
	assert.True(t, IsConfigError(err))
}

func TestTransformPhysioMode(t *testing.T) {
	path := writeECG(t, t.TempDir())
	d := New(Options{Logger: discardLogger()})

	sig, err := d.Transform(Request{InputFile: path, Mode: ModePhysio})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, sig.FS())
	assert.Equal(t, 44611, sig.Len())

	sig, err = d.Transform(Request{InputFile: path, Mode: ModePhysio, FS: 500})
	require.NoError(t, err)
	assert.Equal(t, 500.0, sig.FS())
}

func TestTransformPhysioModeRecordsAllowPickle(t *testing.T) {
	path := testutil.WriteText(t, t.TempDir(), "resp.txt", []float64{1, 2, 3})

	sig, err := New(Options{Logger: discardLogger()}).Transform(Request{InputFile: path})
	require.NoError(t, err)
	h := sig.History()
	require.Len(t, h, 1)
	assert.Equal(t, ir.Bool(true), h[0].Args["allow_pickle"])
	assert.Equal(t, ir.Null{}, h[0].Args["fs"], "zero rate is not supplied")
}

func TestTransformDatasetLayoutScenario(t *testing.T) {
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())
	d := New(Options{Logger: discardLogger()})

	sig, err := d.Transform(Request{
		InputFile:      dir,
		Mode:           ModeBIDS,
		BIDSParameters: cardiacParams,
		BIDSChannel:    "cardiac",
	})
	require.NoError(t, err)
	require.IsType(t, &physio.Signal{}, sig)
	assert.Equal(t, 3000.0, sig.At(0))
	assert.Equal(t, 10000.0, sig.FS())
}

func TestTransformBIDSRequiresParameters(t *testing.T) {
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())
	d := New(Options{Logger: discardLogger()})

	for _, params := range []map[string]string{nil, {}} {
		_, err := d.Transform(Request{InputFile: dir, Mode: ModeBIDS, BIDSParameters: params, BIDSChannel: "cardiac"})
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
		assert.Contains(t, err.Error(), "bids_parameters")
	}

	_, err := d.Transform(Request{InputFile: dir, Mode: ModeBIDS, BIDSParameters: cardiacParams})
	assert.True(t, IsConfigError(err))

	_, err = d.Transform(Request{InputFile: dir, Mode: ModeBIDS, BIDSParameters: map[string]string{"sub": "01"}, BIDSChannel: "cardiac"})
	assert.True(t, IsConfigError(err))
}

func TestTransformBIDSWithoutCapability(t *testing.T) {
	dir := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())
	d := New(Options{Registry: loadOnlyRegistry(t), Logger: discardLogger()})

	_, err := d.Transform(Request{InputFile: dir, Mode: ModeBIDS, BIDSParameters: cardiacParams, BIDSChannel: "cardiac"})
	assert.True(t, IsConfigError(err))
}

func TestTransformUnknownMode(t *testing.T) {
	_, err := New(Options{Logger: discardLogger()}).Transform(Request{InputFile: "x", Mode: "nifti"})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestTransformHistoryMode(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteText(t, dir, "ECG.txt", testutil.SineWave(50))
	loaded, err := physio.Load(physio.PathSource(src), physio.LoadOptions{FS: physio.FSOption(100)})
	require.NoError(t, err)
	doc, err := physio.SaveHistory(filepath.Join(dir, "ECG"), loaded, nil)
	require.NoError(t, err)

	d := New(Options{Collaborators: []string{}, Logger: discardLogger()})
	sig, err := d.Transform(Request{InputFile: doc, Mode: ModeHistory})
	require.NoError(t, err)
	assert.Equal(t, loaded.Samples(), sig.Samples())
	assert.Equal(t, loaded.History(), sig.History())

	sig, err = d.Transform(Request{InputFile: doc, Mode: ModeHistory, FS: 50})
	require.NoError(t, err)
	assert.Equal(t, 50.0, sig.FS())
	assert.Len(t, sig.History(), 2, "rate override is recorded")
}

func TestTransformAutoMode(t *testing.T) {
	root := t.TempDir()
	archive := writeECG(t, root)
	dataset := testutil.WriteBIDSDataset(t, root, testutil.DefaultBIDSOptions())
	text := testutil.WriteText(t, root, "resp.txt", []float64{4, 5})
	textSig, err := physio.Load(physio.PathSource(text), physio.LoadOptions{})
	require.NoError(t, err)
	doc, err := physio.SaveHistory(filepath.Join(root, "resp"), textSig, nil)
	require.NoError(t, err)

	d := New(Options{Collaborators: []string{}, Logger: discardLogger()})

	sig, err := d.Transform(Request{InputFile: archive, Mode: ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, 44611, sig.Len())

	sig, err = d.Transform(Request{InputFile: doc, Mode: ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, sig.Samples())

	sig, err = d.Transform(Request{InputFile: dataset, Mode: ModeAuto, BIDSParameters: cardiacParams, BIDSChannel: "cardiac"})
	require.NoError(t, err)
	assert.Equal(t, ir.String("cardiac"), sig.Metadata()["channel"])
}

func TestTransformAutoDatasetFallback(t *testing.T) {
	dataset := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())
	capture, logger := testutil.NewLogCapture()
	d := New(Options{Registry: loadOnlyRegistry(t), Logger: logger})

	_, err := d.Transform(Request{InputFile: dataset, Mode: ModeAuto, BIDSParameters: cardiacParams, BIDSChannel: "cardiac"})
	assert.Error(t, err, "a directory is not a plain recording")
	assert.Len(t, capture.Advisories(physio.AdvisoryDatasetLayoutFallback), 1)
}

func TestTaskWithoutWorkflow(t *testing.T) {
	path := writeECG(t, t.TempDir())
	capture, logger := testutil.NewLogCapture()
	d := New(Options{Logger: logger})

	task := d.NewTask(Request{InputFile: path, Mode: ModePhysio})
	assert.Len(t, capture.Advisories(physio.AdvisoryWorkflowUnavailable), 1)
	assert.Equal(t, path, task.Inputs.InputFile)
	assert.Equal(t, ModePhysio, task.Inputs.Mode)
	assert.Zero(t, task.Inputs.FS)

	_, err := task.Result()
	assert.ErrorIs(t, err, ErrNotRun)

	require.NoError(t, task.Run(context.Background()))
	res, err := task.Result()
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.Signal.FS())
	assert.Equal(t, 44611, res.Signal.Len())
	assert.Nil(t, res.Record)
}

func TestTaskRecordsIntoCatalog(t *testing.T) {
	dir := t.TempDir()
	dataset := testutil.WriteBIDSDataset(t, dir, testutil.DefaultBIDSOptions())
	s, err := store.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	defer s.Close()

	capture, logger := testutil.NewLogCapture()
	d := New(Options{Recorder: s, Logger: logger})
	task := d.NewTask(Request{
		InputFile:      dataset,
		Mode:           ModeBIDS,
		BIDSParameters: cardiacParams,
		BIDSChannel:    "cardiac",
	})
	assert.Empty(t, capture.Advisories(physio.AdvisoryWorkflowUnavailable))

	ctx := context.Background()
	require.NoError(t, task.Run(ctx))
	res, err := task.Result()
	require.NoError(t, err)
	require.NotNil(t, res.Record)

	h, err := s.ReadHistory(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Signal.History(), h)
}

func TestTaskRunFailure(t *testing.T) {
	d := New(Options{Logger: discardLogger()})
	task := d.NewTask(Request{InputFile: "x", Mode: "nifti"})

	err := task.Run(context.Background())
	assert.True(t, IsConfigError(err))
	_, resErr := task.Result()
	assert.Equal(t, err, resErr)
	assert.Equal(t, err, task.Run(context.Background()))
}
