package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
)

// SignalSummary describes a loaded or produced signal.
type SignalSummary struct {
	Input          string   `json:"input"`
	Samples        int      `json:"samples"`
	FS             *float64 `json:"fs"` // nil when the rate is unknown
	DType          string   `json:"dtype"`
	Duration       *float64 `json:"duration_seconds,omitempty"`
	HistoryEntries int      `json:"history_entries"`
	Operations     []string `json:"operations"`
	HistoryDigest  string   `json:"history_digest"`
	SamplesDigest  string   `json:"samples_digest"`
	Archive        string   `json:"archive,omitempty"`
	HistoryFile    string   `json:"history_file,omitempty"`
	RecordID       string   `json:"record_id,omitempty"`
}

func summarize(input string, sig *physio.Signal) (*SignalSummary, error) {
	digest, err := ir.HistoryDigest(sig.History())
	if err != nil {
		return nil, fmt.Errorf("digest history: %w", err)
	}
	s := &SignalSummary{
		Input:          input,
		Samples:        sig.Len(),
		DType:          string(sig.DType()),
		HistoryEntries: len(sig.History()),
		Operations:     make([]string, 0, len(sig.History())),
		HistoryDigest:  digest,
		SamplesDigest:  ir.SamplesDigest(sig.Samples()),
	}
	if sig.HasFS() {
		fs, dur := sig.FS(), sig.Duration()
		s.FS, s.Duration = &fs, &dur
	}
	for _, e := range sig.History() {
		s.Operations = append(s.Operations, e.Name)
	}
	return s, nil
}

// String renders the summary for text output.
func (s *SignalSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Signal: %s\n", s.Input)
	fmt.Fprintf(&b, "  Samples:  %d (%s)\n", s.Samples, s.DType)
	if s.FS != nil {
		fmt.Fprintf(&b, "  Rate:     %g Hz (%.3fs)\n", *s.FS, *s.Duration)
	} else {
		fmt.Fprintf(&b, "  Rate:     unknown\n")
	}
	fmt.Fprintf(&b, "  History:  %d entries\n", s.HistoryEntries)
	for i, op := range s.Operations {
		fmt.Fprintf(&b, "    %d. %s\n", i+1, op)
	}
	fmt.Fprintf(&b, "  Digest:   %s", s.HistoryDigest)
	if s.Archive != "" {
		fmt.Fprintf(&b, "\n  Archive:  %s", s.Archive)
	}
	if s.HistoryFile != "" {
		fmt.Fprintf(&b, "\n  History file: %s", s.HistoryFile)
	}
	if s.RecordID != "" {
		fmt.Fprintf(&b, "\n  Recorded: %s", s.RecordID)
	}
	return b.String()
}

// outputFlags are the output options shared by commands that produce a
// signal.
type outputFlags struct {
	Archive  string // -o: archive path
	History  string // --save-history: history document path
	Database string // --db: catalog to record into

	// noRecord skips the catalog, for signals replayed from it.
	noRecord bool
}

// emit writes the requested outputs for sig and fills in s.
func (o *outputFlags) emit(ctx context.Context, opts *RootOptions, input string, sig *physio.Signal, s *SignalSummary) error {
	if o.Archive != "" {
		path, err := physio.SaveArchive(o.Archive, sig, opts.logger())
		if err != nil {
			return err
		}
		s.Archive = path
	}
	if o.History != "" {
		path, err := physio.SaveHistory(o.History, sig, opts.logger())
		if err != nil {
			return err
		}
		s.HistoryFile = path
	}
	db := o.Database
	if db == "" {
		db = opts.cfg().Catalog
	}
	if db != "" && !o.noRecord {
		rec, err := recordSignal(ctx, db, input, sig)
		if err != nil {
			return err
		}
		s.RecordID = rec.ID
	}
	return nil
}

func recordSignal(ctx context.Context, db, path string, sig *physio.Signal) (*store.Record, error) {
	st, err := store.Open(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer st.Close()
	return st.RecordSignal(ctx, path, sig)
}
