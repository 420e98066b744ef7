package harness

import (
	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// TraceEvent is one history entry of the produced Signal.
type TraceEvent struct {
	Position  int       `json:"position"`
	Operation string    `json:"operation"`
	Args      ir.Object `json:"args"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Trace is the history of the produced Signal, in order.
	Trace []TraceEvent `json:"trace"`

	// Advisories lists the advisory kinds logged during the run, in order.
	Advisories []string `json:"advisories"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RecordID is the catalog id of the produced Signal.
	RecordID string `json:"record_id,omitempty"`

	// Signal is the produced Signal, nil if loading failed.
	Signal *physio.Signal `json:"-"`

	// Err is the loading or step error, if any.
	Err error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Advisories: []string{},
		Errors:     []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// setSignal records the produced Signal and its history as the trace.
func (r *Result) setSignal(sig *physio.Signal) {
	r.Signal = sig
	r.Trace = r.Trace[:0]
	for i, e := range sig.History() {
		r.Trace = append(r.Trace, TraceEvent{Position: i, Operation: e.Name, Args: e.Args})
	}
}
