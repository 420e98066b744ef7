package replay

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/testutil"
)

const scaleOp = "peakdet.operations.scale"

// scale multiplies every sample by args["factor"].
func scale(call physio.Call) (*physio.Signal, error) {
	factor, ok := call.Args.GetFloat("factor")
	if !ok {
		factor = 1
	}
	out := call.Receiver.Samples()
	for i := range out {
		out[i] *= factor
	}
	return call.Receiver.Derive(scaleOp, call.Args, out)
}

// testRegistry holds the physio load operation plus the scale stub.
func testRegistry(t *testing.T) *physio.Registry {
	t.Helper()
	load, err := physio.DefaultRegistry.Lookup(physio.LoadPhysioOp)
	require.NoError(t, err)

	r := physio.NewRegistry()
	r.Register(physio.LoadPhysioOp, load)
	r.Register(scaleOp, scale)
	return r
}

func TestReplayReconstructsPipeline(t *testing.T) {
	dir := t.TempDir()
	_, logger := testutil.NewLogCapture()
	src := testutil.WriteText(t, dir, "ECG.txt", testutil.SineWave(500))

	loaded, err := physio.Load(physio.PathSource(src), physio.LoadOptions{FS: physio.FSOption(1000), Logger: logger})
	require.NoError(t, err)
	scaled, err := scale(physio.Call{Receiver: loaded, Args: ir.Object{"factor": ir.Float(2)}})
	require.NoError(t, err)

	docPath, err := physio.SaveHistory(filepath.Join(dir, "ECG"), scaled, logger)
	require.NoError(t, err)

	engine := &Engine{Registry: testRegistry(t), Logger: logger}
	got, err := engine.Replay(docPath)
	require.NoError(t, err)

	assert.Equal(t, scaled.Samples(), got.Samples())
	assert.Equal(t, scaled.FS(), got.FS())
	assert.Equal(t, scaled.History(), got.History())
}

func TestReplayLoadWithReceiverDerives(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteText(t, dir, "resp.txt", []float64{1, 2, 3})
	_, logger := testutil.NewLogCapture()

	h := ir.History{
		ir.NewEntry(physio.LoadPhysioOp, ir.Object{"data": ir.String(src), "fs": ir.Float(10)}),
		ir.NewEntry(physio.LoadPhysioOp, ir.Object{"fs": ir.Float(20)}),
	}
	got, err := (&Engine{Registry: testRegistry(t), Logger: logger}).ReplayHistory(h)
	require.NoError(t, err)

	assert.Equal(t, 20.0, got.FS())
	assert.Equal(t, []float64{1, 2, 3}, got.Samples())
	assert.Len(t, got.History(), 2, "text load records itself, then the derived load appends")
}

func TestReplayRejectsUnseededHistory(t *testing.T) {
	engine := &Engine{Registry: testRegistry(t), Logger: slog.New(slog.DiscardHandler)}

	_, err := engine.ReplayHistory(ir.History{ir.NewEntry(scaleOp, ir.Object{"factor": ir.Int(2)})})
	require.Error(t, err)
	assert.True(t, physio.IsUnseededReplay(err))

	_, err = engine.ReplayHistory(nil)
	assert.True(t, physio.IsUnseededReplay(err))
}

func TestReplaySeedNotFound(t *testing.T) {
	engine := &Engine{Registry: testRegistry(t), Logger: slog.New(slog.DiscardHandler)}

	tests := []struct {
		name   string
		path   string
		likely string
	}{
		{"relative", filepath.Join("does", "not", "exist.txt"), "different working directory"},
		{"absolute", filepath.Join(t.TempDir(), "gone.txt"), "different machine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := ir.History{ir.NewEntry(physio.LoadPhysioOp, ir.Object{"data": ir.String(tt.path)})}
			_, err := engine.ReplayHistory(h)
			require.Error(t, err)
			assert.True(t, physio.IsSeedNotFound(err))
			assert.ErrorIs(t, err, os.ErrNotExist)
			assert.Contains(t, err.Error(), "absolute path")
			assert.Contains(t, err.Error(), "relative path")
			assert.Contains(t, err.Error(), tt.likely)
		})
	}
}

func TestReplayUnknownOperation(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteText(t, dir, "a.txt", []float64{1})

	h := ir.History{
		ir.NewEntry(physio.LoadPhysioOp, ir.Object{"data": ir.String(src)}),
		ir.NewEntry("phys2denoise.metrics.rvt", ir.Object{}),
	}
	_, err := (&Engine{Registry: testRegistry(t), Logger: slog.New(slog.DiscardHandler)}).ReplayHistory(h)
	require.Error(t, err)
	assert.True(t, physio.IsUnknownOperation(err))
	assert.Contains(t, err.Error(), "step 1")
}

func TestReplayMissingCollaboratorsAdvisory(t *testing.T) {
	capture, logger := testutil.NewLogCapture()
	src := testutil.WriteText(t, t.TempDir(), "a.txt", []float64{1})
	h := ir.History{ir.NewEntry(physio.LoadPhysioOp, ir.Object{"data": ir.String(src)})}

	_, err := (&Engine{Registry: testRegistry(t), Logger: logger}).ReplayHistory(h)
	require.NoError(t, err)
	adv := capture.Advisories(physio.AdvisoryMissingCollaborators)
	require.Len(t, adv, 1)
	assert.Equal(t, []string{"phys2denoise"}, adv[0].Attrs["missing"])

	capture.Reset()
	r := physio.NewRegistry()
	load, err := physio.DefaultRegistry.Lookup(physio.LoadPhysioOp)
	require.NoError(t, err)
	r.Register(physio.LoadPhysioOp, load)
	_, err = (&Engine{Registry: r, Logger: logger}).ReplayHistory(h)
	require.NoError(t, err)
	adv = capture.Advisories(physio.AdvisoryMissingCollaborators)
	require.Len(t, adv, 1)
	assert.Equal(t, []string{"peakdet", "phys2denoise"}, adv[0].Attrs["missing"])
	assert.Contains(t, adv[0].Message, "peakdet, phys2denoise")

	capture.Reset()
	_, err = (&Engine{Registry: r, Collaborators: []string{}, Logger: logger}).ReplayHistory(h)
	require.NoError(t, err)
	assert.Empty(t, capture.Advisories(physio.AdvisoryMissingCollaborators))
}

func TestReplayOperationReturningNil(t *testing.T) {
	src := testutil.WriteText(t, t.TempDir(), "a.txt", []float64{1})
	r := testRegistry(t)
	r.Register("peakdet.operations.broken", func(physio.Call) (*physio.Signal, error) { return nil, nil })

	h := ir.History{
		ir.NewEntry(physio.LoadPhysioOp, ir.Object{"data": ir.String(src)}),
		ir.NewEntry("peakdet.operations.broken", nil),
	}
	_, err := (&Engine{Registry: r, Logger: slog.New(slog.DiscardHandler)}).ReplayHistory(h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned no signal")
}

func TestReplayVerboseLogsAtInfo(t *testing.T) {
	src := testutil.WriteText(t, t.TempDir(), "a.txt", []float64{1, 2})
	h := ir.History{
		ir.NewEntry(physio.LoadPhysioOp, ir.Object{"data": ir.String(src)}),
		ir.NewEntry(scaleOp, ir.Object{"factor": ir.Int(3)}),
	}

	for _, verbose := range []bool{false, true} {
		capture, logger := testutil.NewLogCapture()
		got, err := (&Engine{Registry: testRegistry(t), Verbose: verbose, Logger: logger}).ReplayHistory(h)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 6}, got.Samples())

		want := slog.LevelDebug
		if verbose {
			want = slog.LevelInfo
		}
		var reruns int
		for _, rec := range capture.Records() {
			if rec.Message == "rerunning operation" {
				reruns++
				assert.Equal(t, want, rec.Level)
			}
		}
		assert.Equal(t, 2, reruns)
	}
}
