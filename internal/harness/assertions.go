package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
)

// assertionEnv carries what assertions need beyond the result.
type assertionEnv struct {
	ctx           context.Context
	store         *store.Store
	registry      *physio.Registry
	collaborators []string
	logger        *slog.Logger
}

// evaluate dispatches one assertion by type.
func (env *assertionEnv) evaluate(a Assertion, r *Result) error {
	switch a.Type {
	case AssertSampleCount:
		return assertSampleCount(a, r)
	case AssertSamplingRate:
		return assertSamplingRate(a, r)
	case AssertHistoryContains:
		return assertHistoryContains(a, r)
	case AssertHistoryOrder:
		return assertHistoryOrder(a, r)
	case AssertHistoryCount:
		return assertHistoryCount(a, r)
	case AssertMetadata:
		return assertMetadata(a, r)
	case AssertAdvisory:
		return assertAdvisory(a, r)
	case AssertReplayMatches:
		return env.assertReplayMatches(r)
	case AssertRecorded:
		return env.assertRecorded(r)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertSampleCount(a Assertion, r *Result) error {
	if got := r.Signal.Len(); got != a.Count {
		return fmt.Errorf("expected %d samples, got %d", a.Count, got)
	}
	return nil
}

func assertSamplingRate(a Assertion, r *Result) error {
	if got := r.Signal.FS(); got != a.FS {
		return fmt.Errorf("expected sampling rate %v, got %v", a.FS, got)
	}
	return nil
}

// assertHistoryContains passes when some entry for the operation has args
// that include every key in a.Args with a canonically equal value.
func assertHistoryContains(a Assertion, r *Result) error {
	want, err := ir.ObjectFromAny(a.Args)
	if err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	for _, ev := range r.Trace {
		if ev.Operation != a.Operation {
			continue
		}
		ok, err := argsSubset(want, ev.Args)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("no %s entry with args %s", a.Operation, formatObject(want))
}

func assertHistoryOrder(a Assertion, r *Result) error {
	got := make([]string, len(r.Trace))
	for i, ev := range r.Trace {
		got[i] = ev.Operation
	}
	if !slices.Equal(got, a.Operations) {
		return fmt.Errorf("expected history %v, got %v", a.Operations, got)
	}
	return nil
}

func assertHistoryCount(a Assertion, r *Result) error {
	count := 0
	for _, ev := range r.Trace {
		if ev.Operation == a.Operation {
			count++
		}
	}
	if count != a.Count {
		return fmt.Errorf("expected %d %s entries, got %d", a.Count, a.Operation, count)
	}
	return nil
}

func assertMetadata(a Assertion, r *Result) error {
	want, err := ir.ObjectFromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("invalid expect: %w", err)
	}
	ok, err := argsSubset(want, r.Signal.Metadata())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("metadata %s does not include %s", formatObject(r.Signal.Metadata()), formatObject(want))
	}
	return nil
}

func assertAdvisory(a Assertion, r *Result) error {
	count := 0
	for _, kind := range r.Advisories {
		if kind == a.Kind {
			count++
		}
	}
	if count != a.Count {
		return fmt.Errorf("expected %d %s advisories, got %d", a.Count, a.Kind, count)
	}
	return nil
}

// assertReplayMatches saves the history document, replays it, and
// compares samples, sampling rate and history digest.
func (env *assertionEnv) assertReplayMatches(r *Result) error {
	replayed, err := replayFromDocument(r.Signal, env.registry, env.collaborators, env.logger)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	if !sameSamples(r.Signal.Samples(), replayed.Samples()) {
		return fmt.Errorf("replayed samples differ (digest %s, want %s)",
			ir.SamplesDigest(replayed.Samples()), ir.SamplesDigest(r.Signal.Samples()))
	}
	if !sameFS(r.Signal.FS(), replayed.FS()) {
		return fmt.Errorf("replayed sampling rate %v, want %v", replayed.FS(), r.Signal.FS())
	}
	want, err := ir.HistoryDigest(r.Signal.History())
	if err != nil {
		return err
	}
	got, err := ir.HistoryDigest(replayed.History())
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("replayed history digest %s, want %s", got, want)
	}
	return nil
}

// assertRecorded checks that the catalog entry for the run carries the
// Signal's history digest and an identical history.
func (env *assertionEnv) assertRecorded(r *Result) error {
	if r.RecordID == "" {
		return fmt.Errorf("run produced no catalog record")
	}
	rec, err := env.store.GetSignal(env.ctx, r.RecordID)
	if err != nil {
		return err
	}
	want, err := ir.HistoryDigest(r.Signal.History())
	if err != nil {
		return err
	}
	if rec.HistoryDigest != want {
		return fmt.Errorf("catalog digest %s, want %s", rec.HistoryDigest, want)
	}
	if rec.NSamples != r.Signal.Len() {
		return fmt.Errorf("catalog sample count %d, want %d", rec.NSamples, r.Signal.Len())
	}
	h, err := env.store.ReadHistory(env.ctx, r.RecordID)
	if err != nil {
		return err
	}
	got, err := ir.HistoryDigest(h)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("catalog history digest %s, want %s", got, want)
	}
	return nil
}

// argsSubset reports whether every key of want appears in got with a
// canonically equal value.
func argsSubset(want, got ir.Object) (bool, error) {
	for k, wv := range want {
		gv, ok := got[k]
		if !ok {
			return false, nil
		}
		wb, err := ir.MarshalCanonical(wv)
		if err != nil {
			return false, fmt.Errorf("args[%q]: %w", k, err)
		}
		gb, err := ir.MarshalCanonical(gv)
		if err != nil {
			return false, fmt.Errorf("args[%q]: %w", k, err)
		}
		if !bytes.Equal(wb, gb) {
			return false, nil
		}
	}
	return true, nil
}

func formatObject(obj ir.Object) string {
	b, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("%v", obj)
	}
	return string(b)
}

func sameSamples(a, b []float64) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	})
}

func sameFS(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
