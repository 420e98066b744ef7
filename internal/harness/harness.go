package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/physutils/internal/dispatch"
	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
	"github.com/roach88/physutils/internal/testutil"
)

// Options configure a scenario run.
type Options struct {
	// Registry resolves steps and replayed entries. Nil means
	// physio.DefaultRegistry.
	Registry *physio.Registry

	// Logger, when set, receives a copy of every record the run produces.
	Logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Open a fresh in-memory catalog
//  2. Load the input through a dispatch task (recorded in the catalog)
//  3. Apply the steps in order and record the final Signal
//  4. Evaluate assertions against the Signal, its trace and advisories
//
// The returned error is reserved for harness failures (catalog setup,
// invalid step arguments). Loading errors are matched against
// expect_error and otherwise reported as assertion failures.
func Run(scenario *Scenario, opts Options) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	capture, logger := testutil.NewLogCapture()
	if opts.Logger != nil {
		logger = slog.New(teeHandler{capture, opts.Logger.Handler()})
	}

	req, err := scenario.Input.Request()
	if err != nil {
		return nil, err
	}

	d := dispatch.New(dispatch.Options{
		Registry:      opts.Registry,
		Recorder:      st,
		Collaborators: scenario.Collaborators,
		Logger:        logger,
	})
	ctx := context.Background()
	result := NewResult()

	sig, recordID, runErr := runPipeline(ctx, d, st, scenario, req, opts.Registry, logger)
	for _, rec := range capture.Advisories() {
		result.Advisories = append(result.Advisories, rec.Attrs[testutil.AdvisoryKey].(string))
	}
	result.Err = runErr
	result.RecordID = recordID

	if scenario.ExpectError != "" {
		switch {
		case runErr == nil:
			result.AddError(fmt.Sprintf("expected error containing %q, got success", scenario.ExpectError))
		case !strings.Contains(runErr.Error(), scenario.ExpectError):
			result.AddError(fmt.Sprintf("expected error containing %q, got %q", scenario.ExpectError, runErr.Error()))
		}
		if runErr != nil {
			return result, nil
		}
	} else if runErr != nil {
		result.AddError(fmt.Sprintf("pipeline failed: %v", runErr))
		return result, nil
	}

	result.setSignal(sig)

	env := &assertionEnv{
		ctx:           ctx,
		store:         st,
		registry:      opts.Registry,
		collaborators: scenario.Collaborators,
		logger:        logger,
	}
	for i, a := range scenario.Assertions {
		if err := env.evaluate(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertion %d (%s): %s", i, a.Type, err.Error()))
		}
	}

	return result, nil
}

// RunFile loads a scenario file and runs it.
func RunFile(path string, opts Options) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(scenario, opts)
	return scenario, result, err
}

func runPipeline(ctx context.Context, d *dispatch.Dispatcher, st *store.Store, scenario *Scenario,
	req dispatch.Request, reg *physio.Registry, logger *slog.Logger) (*physio.Signal, string, error) {
	task := d.NewTask(req)
	if err := task.Run(ctx); err != nil {
		return nil, "", err
	}
	res, err := task.Result()
	if err != nil {
		return nil, "", err
	}
	sig := res.Signal
	recordID := res.Record.ID

	if len(scenario.Steps) == 0 {
		return sig, recordID, nil
	}
	if reg == nil {
		reg = physio.DefaultRegistry
	}
	for i, step := range scenario.Steps {
		op, err := reg.Lookup(step.Op)
		if err != nil {
			return nil, "", fmt.Errorf("step %d: %w", i, err)
		}
		args, err := ir.ObjectFromAny(step.Args)
		if err != nil {
			return nil, "", fmt.Errorf("step %d (%s): invalid args: %w", i, step.Op, err)
		}
		next, err := op(physio.Call{Receiver: sig, Args: args, Logger: logger})
		if err != nil {
			return nil, "", fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		if next == nil {
			return nil, "", fmt.Errorf("step %d (%s): operation returned no signal", i, step.Op)
		}
		sig = next
	}

	rec, err := st.RecordSignal(ctx, req.InputFile, sig)
	if err != nil {
		return nil, "", fmt.Errorf("record final signal: %w", err)
	}
	return sig, rec.ID, nil
}

// replayFromDocument saves sig's history to a scratch directory and
// replays it with a fresh dispatcher.
func replayFromDocument(sig *physio.Signal, reg *physio.Registry, collaborators []string, logger *slog.Logger) (*physio.Signal, error) {
	dir, err := os.MkdirTemp("", "physutils-harness-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path, err := physio.SaveHistory(filepath.Join(dir, "history"), sig, logger)
	if err != nil {
		return nil, err
	}
	d := dispatch.New(dispatch.Options{Registry: reg, Collaborators: collaborators, Logger: logger})
	return d.Transform(dispatch.Request{InputFile: path, Mode: dispatch.ModeHistory})
}

// teeHandler forwards records to the capture and to an outer handler.
type teeHandler struct {
	capture *testutil.LogCapture
	outer   slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h teeHandler) Handle(ctx context.Context, r slog.Record) error {
	_ = h.capture.Handle(ctx, r)
	if h.outer.Enabled(ctx, r.Level) {
		return h.outer.Handle(ctx, r.Clone())
	}
	return nil
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{h.capture, h.outer.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{h.capture, h.outer.WithGroup(name)}
}
