package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
)

// ErrNotRun is returned by Result before Run has completed.
var ErrNotRun = errors.New("task has not been run")

// Task is a Transform call packaged as a unit that can be inspected,
// run once, and queried for its result. With the workflow capability the
// produced signal is also recorded in the catalog.
type Task struct {
	// Inputs is the request the task was created with.
	Inputs Request

	d      *Dispatcher
	result *Result
	err    error
	done   bool
}

// Result is the output of a completed Task.
type Result struct {
	Signal *physio.Signal
	// Record is the catalog entry, nil without the workflow capability.
	Record *store.Record
}

// NewTask wraps req. Without the workflow capability an advisory is
// logged and the task runs as a plain call.
func (d *Dispatcher) NewTask(req Request) *Task {
	if !d.caps.Workflow {
		physio.Advise(d.logger, physio.AdvisoryWorkflowUnavailable,
			"no workflow catalog is configured; the task will run as a plain call and will not be recorded")
	}
	return &Task{Inputs: req, d: d}
}

// Run executes the task. Running a task twice returns the first outcome.
func (t *Task) Run(ctx context.Context) error {
	if t.done {
		return t.err
	}
	t.done = true

	sig, err := t.d.Transform(t.Inputs)
	if err != nil {
		t.err = err
		return err
	}
	res := &Result{Signal: sig}
	if t.d.caps.Workflow {
		rec, err := t.d.recorder.RecordSignal(ctx, t.Inputs.InputFile, sig)
		if err != nil {
			t.err = fmt.Errorf("record task result: %w", err)
			return t.err
		}
		res.Record = rec
		t.d.logger.Info("recorded task result", "id", rec.ID, "input", t.Inputs.InputFile)
	}
	t.result = res
	return nil
}

// Result returns the outcome of Run, or ErrNotRun.
func (t *Task) Result() (*Result, error) {
	if !t.done {
		return nil, ErrNotRun
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}
