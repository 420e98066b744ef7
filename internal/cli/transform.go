package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/physutils/internal/dispatch"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
)

// TransformOptions holds flags for the transform command.
type TransformOptions struct {
	*RootOptions
	outputFlags
	Mode           string
	FS             float64
	BIDSParameters map[string]string
	BIDSChannel    string
}

// NewTransformCommand creates the transform command.
func NewTransformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transform <input>",
		Short: "Load an input in the given mode",
		Long: `Load a recording, a BIDS dataset channel or a history document.

Modes:
  physio   archive or plain-text recording (default)
  bids     one channel of a BIDS dataset (needs --bids-param and --channel)
  history  replay a history document
  auto     pick one of the above from the input

Flags override the transform section of the config file. With --db (or a
configured catalog) the result is recorded as a catalog task.

Examples:
  physutils transform ECG.txt --fs 1000 -o ECG.phys
  physutils transform ./ds --mode bids --bids-param subject=01,task=rest --channel cardiac
  physutils transform ECG.json --mode auto --db catalog.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "", "input mode (physio|bids|history|auto)")
	cmd.Flags().Float64Var(&opts.FS, "fs", 0, "sampling rate override in Hz")
	cmd.Flags().StringToStringVar(&opts.BIDSParameters, "bids-param", nil, "BIDS entities (subject, session, task, acquisition, run, recording)")
	cmd.Flags().StringVar(&opts.BIDSChannel, "channel", "", "BIDS channel to return")
	addOutputFlags(cmd, &opts.outputFlags)

	return cmd
}

func runTransform(opts *TransformOptions, input string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	cfg := opts.cfg()

	req, err := cfg.Request(input)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	flags := cmd.Flags()
	if flags.Changed("mode") {
		if req.Mode, err = dispatch.ParseMode(opts.Mode); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid --mode", err)
		}
	}
	if flags.Changed("fs") {
		req.FS = opts.FS
	}
	if flags.Changed("bids-param") {
		req.BIDSParameters = opts.BIDSParameters
	}
	if flags.Changed("channel") {
		req.BIDSChannel = opts.BIDSChannel
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Catalog
	}
	dopts := dispatch.Options{
		Collaborators: cfg.Replay.Collaborators,
		Verbose:       cfg.Replay.Verbose,
		Logger:        opts.logger(),
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to open catalog", err)
		}
		defer st.Close()
		dopts.Recorder = st
	}
	d := dispatch.New(dopts)

	formatter.VerboseLog("Transforming %s (mode %s)", input, req.Mode)
	var (
		sig      *physio.Signal
		recordID string
	)
	if dopts.Recorder != nil {
		task := d.NewTask(req)
		if err := task.Run(ctx); err != nil {
			return formatter.Fail(transformExitCode(err), ErrCodeLoadFailed, "transform failed", err)
		}
		res, err := task.Result()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "transform failed", err)
		}
		sig, recordID = res.Signal, res.Record.ID
	} else {
		sig, err = d.Transform(req)
		if err != nil {
			return formatter.Fail(transformExitCode(err), ErrCodeLoadFailed, "transform failed", err)
		}
	}

	summary, err := summarize(input, sig)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to summarize signal", err)
	}
	summary.RecordID = recordID
	out := opts.outputFlags
	out.noRecord = true
	if err := out.emit(ctx, opts.RootOptions, input, sig, summary); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write output", err)
	}
	return formatter.Success(summary)
}

// transformExitCode treats replay failures as failures and everything
// else as command errors.
func transformExitCode(err error) int {
	switch {
	case physio.HasCode(err, physio.ErrCodeUnseededReplay),
		physio.HasCode(err, physio.ErrCodeSeedNotFound),
		physio.HasCode(err, physio.ErrCodeUnknownOperation):
		return ExitFailure
	default:
		return ExitCommandError
	}
}
