package bids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/physutils/internal/ir"
)

func TestSelectorFromMap(t *testing.T) {
	sel, err := SelectorFromMap(map[string]string{
		"subject":   "01",
		"session":   "01",
		"task":      "rest",
		"run":       "01",
		"recording": "cardiac",
	})
	require.NoError(t, err)
	assert.Equal(t, Selector{Subject: "01", Session: "01", Task: "rest", Run: "01", Recording: "cardiac"}, sel)
	assert.False(t, sel.Empty())
	assert.Equal(t, "sub-01_ses-01_task-rest_run-01_recording-cardiac", sel.String())

	_, err = SelectorFromMap(map[string]string{"subj": "01"})
	assert.Error(t, err)

	empty, err := SelectorFromMap(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.Equal(t, "<any>", empty.String())
}

func TestSelectorMatches(t *testing.T) {
	name := "sub-01_ses-01_task-rest_acq-fast_run-01_recording-cardiac_physio.tsv.gz"
	tests := []struct {
		sel  Selector
		want bool
	}{
		{Selector{}, true},
		{Selector{Subject: "01"}, true},
		{Selector{Subject: "01", Acquisition: "fast"}, true},
		{Selector{Subject: "02"}, false},
		{Selector{Task: "rest", Run: "02"}, false},
		{Selector{Recording: "resp"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.sel.Matches(name), tt.sel.String())
	}
}

func TestSelectorArgsRoundTrip(t *testing.T) {
	sel := Selector{Subject: "01", Task: "rest"}
	args := sel.Args()
	assert.Equal(t, ir.Object{"subject": ir.String("01"), "task": ir.String("rest")}, args)

	args["channel"] = ir.String("cardiac")
	got, err := selectorFromArgs(args)
	require.NoError(t, err)
	assert.Equal(t, sel, got)

	_, err = selectorFromArgs(ir.Object{"run": ir.Int(1)})
	assert.Error(t, err)
}
