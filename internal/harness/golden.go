package harness

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// Snapshot captures the deterministic parts of a scenario execution.
// It serializes to canonical JSON for byte-level comparison.
type Snapshot struct {
	ScenarioName string
	SampleCount  int
	FS           float64
	Trace        []TraceEvent
}

// NewSnapshot builds the snapshot of a passing result.
func NewSnapshot(name string, r *Result) Snapshot {
	s := Snapshot{ScenarioName: name, Trace: r.Trace, FS: physio.UnknownFS()}
	if r.Signal != nil {
		s.SampleCount = r.Signal.Len()
		s.FS = r.Signal.FS()
	}
	return s
}

// toValue converts the snapshot to an ir.Object for canonical JSON.
// An unknown sampling rate is rendered as null.
func (s Snapshot) toValue() ir.Object {
	history := make(ir.Array, len(s.Trace))
	for i, ev := range s.Trace {
		args := ev.Args
		if args == nil {
			args = ir.Object{}
		}
		history[i] = ir.Object{
			"position":  ir.Int(ev.Position),
			"operation": ir.String(ev.Operation),
			"args":      args,
		}
	}

	var fs ir.Value = ir.Null{}
	if !math.IsNaN(s.FS) {
		fs = ir.Float(s.FS)
	}
	return ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"sample_count":  ir.Int(s.SampleCount),
		"fs":            fs,
		"history":       history,
	}
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toValue())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts Options) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
