package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Output string
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Input   string     `json:"input"`
	Output  string     `json:"output,omitempty"`
	History ir.History `json:"history"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <input>",
		Short: "Print or save the history of a recording",
		Long: `Load an archive or recording and emit its history document.

Without -o the document is printed. With -o it is written to the given
path, ".json" being appended when missing.

Examples:
  physutils history ECG.phys
  physutils history ECG.phys -o ECG_history`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the history document to this path")

	return cmd
}

func runHistory(opts *HistoryOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sig, err := physio.Load(physio.PathSource(input), physio.LoadOptions{Logger: opts.logger()})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load input", err)
	}

	result := HistoryResult{Input: input, History: sig.History()}
	if result.History == nil {
		result.History = ir.History{}
	}
	if opts.Output != "" {
		path, err := physio.SaveHistory(opts.Output, sig, opts.logger())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to save history", err)
		}
		result.Output = path
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	if result.Output != "" {
		return formatter.Success("History written to " + result.Output)
	}
	doc, err := physio.MarshalHistoryDocument(sig.History())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to render history", err)
	}
	_, err = cmd.OutOrStdout().Write(doc)
	return err
}
