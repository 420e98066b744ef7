package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/replay"
	"github.com/roach88/physutils/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	outputFlags
	RecordID      string   // replay a catalogued history instead of a document
	Verify        bool     // replay twice and compare
	Collaborators []string // overrides replay.collaborators from the config
}

// ReplayResult is the JSON payload of the replay command.
type ReplayResult struct {
	*SignalSummary
	Deterministic *bool `json:"deterministic,omitempty"`
}

// String renders the result for text output.
func (r ReplayResult) String() string {
	s := r.SignalSummary.String()
	if r.Deterministic != nil {
		if *r.Deterministic {
			s += "\n  Verified: deterministic"
		} else {
			s += "\n  Verified: NOT deterministic"
		}
	}
	return s
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [history.json]",
		Short: "Rebuild a signal from its history",
		Long: `Replay a history document, or a history stored in a catalog, and
report the signal it produces.

The first entry must be a load operation whose recorded source still
exists. With --verify the history is replayed twice and the two results
compared.

Exit codes:
  0 - Replay succeeded (and was deterministic with --verify)
  1 - Replay failed or --verify found differences
  2 - Command error (unreadable document, catalog not found, etc.)

Examples:
  physutils replay ECG.json
  physutils replay ECG.json -o ECG.phys --verify
  physutils replay --db catalog.db --id 0190...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := ""
			if len(args) == 1 {
				doc = args[0]
			}
			return runReplay(opts, doc, cmd)
		},
	}

	addOutputFlags(cmd, &opts.outputFlags)
	cmd.Flags().StringVar(&opts.RecordID, "id", "", "replay the history of this catalog record (requires --db)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "replay twice and verify the results match")
	cmd.Flags().StringSliceVar(&opts.Collaborators, "collaborators", nil, "operation scopes expected to be available")

	return cmd
}

func runReplay(opts *ReplayOptions, doc string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	if (doc == "") == (opts.RecordID == "") {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid arguments",
			fmt.Errorf("give either a history document or --id"))
	}

	history, source, err := replaySource(ctx, opts, doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to read history", err)
	}

	engine := &replay.Engine{
		Collaborators: opts.Collaborators,
		Verbose:       opts.cfg().Replay.Verbose,
		Logger:        opts.logger(),
	}
	if engine.Collaborators == nil {
		engine.Collaborators = opts.cfg().Replay.Collaborators
	}

	formatter.VerboseLog("Replaying %d entries from %s", len(history), source)
	sig, err := engine.ReplayHistory(history)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "replay failed", err)
	}

	var deterministic *bool
	if opts.Verify {
		again, err := engine.ReplayHistory(history)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, "second replay failed", err)
		}
		same, err := sameSignal(sig, again)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to compare replays", err)
		}
		deterministic = &same
	}

	summary, err := summarize(source, sig)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to summarize signal", err)
	}
	out := opts.outputFlags
	out.noRecord = opts.RecordID != ""
	if err := out.emit(ctx, opts.RootOptions, source, sig, summary); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write output", err)
	}

	result := ReplayResult{SignalSummary: summary, Deterministic: deterministic}
	if err := formatter.Success(result); err != nil {
		return err
	}
	if deterministic != nil && !*deterministic {
		return NewExitError(ExitFailure, "replay is not deterministic")
	}
	return nil
}

// replaySource reads the history to replay and names where it came from.
func replaySource(ctx context.Context, opts *ReplayOptions, doc string) (ir.History, string, error) {
	if doc != "" {
		h, err := replay.ReadDocument(doc)
		return h, doc, err
	}
	if opts.Database == "" {
		return nil, "", fmt.Errorf("--id requires --db")
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open catalog: %w", err)
	}
	defer st.Close()
	h, err := st.ReadHistory(ctx, opts.RecordID)
	if err != nil {
		return nil, "", err
	}
	return h, opts.Database + "#" + opts.RecordID, nil
}

// sameSignal compares samples, rate and history by digest.
func sameSignal(a, b *physio.Signal) (bool, error) {
	da, err := ir.HistoryDigest(a.History())
	if err != nil {
		return false, err
	}
	db, err := ir.HistoryDigest(b.History())
	if err != nil {
		return false, err
	}
	sameFS := a.FS() == b.FS() || (!a.HasFS() && !b.HasFS())
	return da == db && sameFS && ir.SamplesDigest(a.Samples()) == ir.SamplesDigest(b.Samples()), nil
}
