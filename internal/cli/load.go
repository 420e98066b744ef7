package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/physutils/internal/physio"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	outputFlags
	FS          float64
	DType       string
	AllowPickle bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <input>",
		Short: "Load a recording and describe it",
		Long: `Load an archive or a plain-text recording (one sample per line).

The loaded signal can be written as an archive, its history saved as a
history document, and the result recorded in a catalog.

Examples:
  physutils load ECG.txt --fs 1000
  physutils load ECG.txt --fs 1000 -o ECG.phys --save-history ECG.json
  physutils load ECG.phys --db catalog.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.FS, "fs", 0, "sampling rate in Hz (0 keeps the loaded rate)")
	cmd.Flags().StringVar(&opts.DType, "dtype", "", "coerce samples to this numeric type (e.g. float32, int16)")
	cmd.Flags().BoolVar(&opts.AllowPickle, "allow-pickle", false, "record allow_pickle in the history")
	addOutputFlags(cmd, &opts.outputFlags)

	return cmd
}

func addOutputFlags(cmd *cobra.Command, o *outputFlags) {
	cmd.Flags().StringVarP(&o.Archive, "output", "o", "", "write the signal as an archive")
	cmd.Flags().StringVar(&o.History, "save-history", "", "write the signal's history document")
	cmd.Flags().StringVar(&o.Database, "db", "", "record the signal in this catalog")
}

func runLoad(opts *LoadOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadOpts := physio.LoadOptions{AllowPickle: opts.AllowPickle, Logger: opts.logger()}
	if opts.FS != 0 {
		loadOpts.FS = physio.FSOption(opts.FS)
	}
	if opts.DType != "" {
		dtype, err := physio.ParseDType(opts.DType)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid --dtype", err)
		}
		loadOpts.DType = dtype
	}

	formatter.VerboseLog("Loading %s", input)
	sig, err := physio.Load(physio.PathSource(input), loadOpts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load input", err)
	}

	return finish(context.Background(), opts.RootOptions, &opts.outputFlags, formatter, input, sig)
}

// finish writes outputs for sig and prints its summary.
func finish(ctx context.Context, opts *RootOptions, out *outputFlags, formatter *OutputFormatter, input string, sig *physio.Signal) error {
	summary, err := summarize(input, sig)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to summarize signal", err)
	}
	if err := out.emit(ctx, opts, input, sig, summary); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write output", err)
	}
	return formatter.Success(summary)
}
