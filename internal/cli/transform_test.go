package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/physutils/internal/testutil"
)

const cardiacParams = "subject=01,session=01,task=rest,run=01,recording=cardiac"

func TestTransformBIDS(t *testing.T) {
	dataset := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())

	out, _, err := execute(t, "--format", "json", "transform", dataset,
		"--mode", "bids", "--bids-param", cardiacParams, "--channel", "cardiac")
	require.NoError(t, err)

	var summary SignalSummary
	decodeResponse(t, out, &summary)
	assert.Equal(t, 100, summary.Samples)
	require.NotNil(t, summary.FS)
	assert.Equal(t, 10000.0, *summary.FS)
	assert.Equal(t, []string{"physutils.io.load_from_bids"}, summary.Operations)
}

func TestTransformBIDSOverrideRecorded(t *testing.T) {
	dataset := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())

	out, _, err := execute(t, "--format", "json", "transform", dataset,
		"--mode", "bids", "--bids-param", cardiacParams, "--channel", "cardiac", "--fs", "500")
	require.NoError(t, err)

	var summary SignalSummary
	decodeResponse(t, out, &summary)
	require.NotNil(t, summary.FS)
	assert.Equal(t, 500.0, *summary.FS)
	assert.Equal(t, []string{"physutils.io.load_from_bids", "physutils.io.load_physio"}, summary.Operations)
}

func TestTransformBIDSWithoutParameters(t *testing.T) {
	dataset := testutil.WriteBIDSDataset(t, t.TempDir(), testutil.DefaultBIDSOptions())

	out, _, err := execute(t, "--format", "json", "transform", dataset, "--mode", "bids", "--channel", "cardiac")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.Equal(t, map[string]any{"field": "bids_parameters"}, resp.Error.Details)
}

func TestTransformConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	dataset := testutil.WriteBIDSDataset(t, dir, testutil.DefaultBIDSOptions())
	cfgPath := filepath.Join(dir, "physutils.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
transform:
  mode: auto
  bids_parameters:
    subject: "01"
    session: "01"
    task: rest
    run: "01"
    recording: cardiac
  bids_channel: respiratory_chest
`), 0644))

	out, _, err := execute(t, "--config", cfgPath, "--format", "json", "transform", dataset)
	require.NoError(t, err)
	var summary SignalSummary
	decodeResponse(t, out, &summary)
	assert.Equal(t, []string{"physutils.io.load_from_bids"}, summary.Operations)

	out, _, err = execute(t, "--config", cfgPath, "--format", "json", "transform", dataset, "--channel", "trigger")
	require.NoError(t, err)
	var trigger SignalSummary
	decodeResponse(t, out, &trigger)
	assert.NotEqual(t, summary.SamplesDigest, trigger.SamplesDigest, "--channel overrides the configured channel")
}

func TestTransformHistoryWithCatalog(t *testing.T) {
	dir := t.TempDir()
	_, doc := savedHistory(t, dir)
	db := filepath.Join(dir, "catalog.db")

	out, errOut, err := execute(t, "--format", "json", "transform", doc, "--mode", "auto", "--db", db)
	require.NoError(t, err)
	assert.NotContains(t, errOut, "advisory=workflow_unavailable")

	var summary SignalSummary
	decodeResponse(t, out, &summary)
	require.NotEmpty(t, summary.RecordID)

	out, _, err = execute(t, "--format", "json", "catalog", "list", "--db", db)
	require.NoError(t, err)
	var list RecordList
	decodeResponse(t, out, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, summary.RecordID, list.Records[0].ID)
	assert.Equal(t, doc, list.Records[0].Path)
}

func TestTransformInvalidMode(t *testing.T) {
	src := testutil.WriteText(t, t.TempDir(), "resp.txt", []float64{1})

	out, _, err := execute(t, "transform", src, "--mode", "edf")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}
