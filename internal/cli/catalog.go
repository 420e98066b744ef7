package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/store"
)

// CatalogOptions holds flags shared by the catalog subcommands.
type CatalogOptions struct {
	*RootOptions
	Database string
}

// RecordView is the output form of a catalog record.
type RecordView struct {
	ID            string     `json:"id"`
	Seq           int64      `json:"seq"`
	Path          string     `json:"path"`
	HistoryDigest string     `json:"history_digest"`
	SamplesDigest string     `json:"samples_digest"`
	FS            *float64   `json:"fs"`
	Samples       int        `json:"samples"`
	DType         string     `json:"dtype"`
	Metadata      ir.Object  `json:"metadata,omitempty"`
	History       ir.History `json:"history,omitempty"`
}

func newRecordView(rec *store.Record) RecordView {
	v := RecordView{
		ID:            rec.ID,
		Seq:           rec.Seq,
		Path:          rec.Path,
		HistoryDigest: rec.HistoryDigest,
		SamplesDigest: rec.SamplesDigest,
		Samples:       rec.NSamples,
		DType:         rec.DType,
		Metadata:      rec.Metadata,
	}
	if !math.IsNaN(rec.FS) {
		fs := rec.FS
		v.FS = &fs
	}
	return v
}

// RecordList is the output of catalog list and catalog find.
type RecordList struct {
	Records []RecordView `json:"records"`
	Total   int          `json:"total"`
}

// String renders the list as a table.
func (l RecordList) String() string {
	if l.Total == 0 {
		return "No signals recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s  %-36s  %8s  %10s  %s\n", "SEQ", "ID", "SAMPLES", "FS", "PATH")
	for _, r := range l.Records {
		fs := "unknown"
		if r.FS != nil {
			fs = fmt.Sprintf("%g", *r.FS)
		}
		fmt.Fprintf(&b, "%-4d  %-36s  %8d  %10s  %s\n", r.Seq, r.ID, r.Samples, fs, r.Path)
	}
	fmt.Fprintf(&b, "%d signal(s)", l.Total)
	return b.String()
}

// NewCatalogCommand creates the catalog command and its subcommands.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the provenance catalog",
		Long: `Query the SQLite catalog of recorded signals.

Examples:
  physutils catalog list --db catalog.db
  physutils catalog show --db catalog.db <id>
  physutils catalog export --db catalog.db <id> -o history.json
  physutils catalog find --db catalog.db --digest <history-digest>`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite catalog (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newCatalogListCommand(opts))
	cmd.AddCommand(newCatalogShowCommand(opts))
	cmd.AddCommand(newCatalogExportCommand(opts))
	cmd.AddCommand(newCatalogFindCommand(opts))
	cmd.AddCommand(newCatalogDeleteCommand(opts))

	return cmd
}

// withCatalog opens the catalog for the duration of fn.
func (o *CatalogOptions) withCatalog(formatter *OutputFormatter, fn func(st *store.Store) error) error {
	if _, err := os.Stat(o.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "catalog not found", err)
	}
	st, err := store.Open(o.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to open catalog", err)
	}
	defer st.Close()
	return fn(st)
}

func newCatalogListCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List recorded signals in catalog order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			return opts.withCatalog(formatter, func(st *store.Store) error {
				recs, err := st.ListSignals(context.Background())
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to list signals", err)
				}
				return formatter.Success(newRecordList(recs))
			})
		},
	}
}

func newRecordList(recs []*store.Record) RecordList {
	list := RecordList{Records: make([]RecordView, 0, len(recs)), Total: len(recs)}
	for _, rec := range recs {
		list.Records = append(list.Records, newRecordView(rec))
	}
	return list
}

func newCatalogShowCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one record and its history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			return opts.withCatalog(formatter, func(st *store.Store) error {
				ctx := context.Background()
				rec, err := st.GetSignal(ctx, args[0])
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to read record", err)
				}
				h, err := st.ReadHistory(ctx, rec.ID)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to read history", err)
				}
				view := newRecordView(rec)
				view.History = h
				if opts.Format == "json" {
					return formatter.Success(view)
				}
				return formatter.Success(formatRecord(view))
			})
		},
	}
}

func formatRecord(v RecordView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Record %s (seq %d)\n", v.ID, v.Seq)
	fmt.Fprintf(&b, "  Path:     %s\n", v.Path)
	fmt.Fprintf(&b, "  Samples:  %d (%s)\n", v.Samples, v.DType)
	if v.FS != nil {
		fmt.Fprintf(&b, "  Rate:     %g Hz\n", *v.FS)
	} else {
		fmt.Fprintf(&b, "  Rate:     unknown\n")
	}
	fmt.Fprintf(&b, "  Digest:   %s\n", v.HistoryDigest)
	fmt.Fprintf(&b, "  History:  %d entries", len(v.History))
	for i, e := range v.History {
		args, err := ir.MarshalValue(e.Args)
		if err != nil {
			args = []byte("?")
		}
		fmt.Fprintf(&b, "\n    %d. %s %s", i+1, e.Name, args)
	}
	return b.String()
}

func newCatalogExportCommand(opts *CatalogOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a record's history as a history document",
		Long: `Write the history recorded for <id> as a history document that
"physutils replay" accepts. Without -o the document is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			return opts.withCatalog(formatter, func(st *store.Store) error {
				h, err := st.ReadHistory(context.Background(), args[0])
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to read history", err)
				}
				doc, err := physio.MarshalHistoryDocument(h)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to render history", err)
				}
				if output == "" {
					_, err := cmd.OutOrStdout().Write(doc)
					return err
				}
				if !strings.HasSuffix(output, physio.HistoryExt) {
					output += physio.HistoryExt
				}
				if err := os.WriteFile(output, doc, 0644); err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write history", err)
				}
				if opts.Format == "json" {
					return formatter.Success(HistoryResult{Input: args[0], Output: output, History: h})
				}
				return formatter.Success("History written to " + output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the document to this path")
	return cmd
}

func newCatalogFindCommand(opts *CatalogOptions) *cobra.Command {
	var digest, path string
	cmd := &cobra.Command{
		Use:           "find",
		Short:         "Find records by history digest or path",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			if (digest == "") == (path == "") {
				return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid arguments",
					fmt.Errorf("give exactly one of --digest or --path"))
			}
			return opts.withCatalog(formatter, func(st *store.Store) error {
				ctx := context.Background()
				var (
					recs []*store.Record
					err  error
				)
				if digest != "" {
					recs, err = st.FindByDigest(ctx, digest)
				} else {
					recs, err = st.FindByPath(ctx, path)
				}
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to query catalog", err)
				}
				return formatter.Success(newRecordList(recs))
			})
		},
	}
	cmd.Flags().StringVar(&digest, "digest", "", "history digest to match")
	cmd.Flags().StringVar(&path, "path", "", "recorded path to match")
	return cmd
}

func newCatalogDeleteCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a record and its history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			return opts.withCatalog(formatter, func(st *store.Store) error {
				ctx := context.Background()
				if _, err := st.GetSignal(ctx, args[0]); err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to read record", err)
				}
				if err := st.DeleteSignal(ctx, args[0]); err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to delete record", err)
				}
				return formatter.Success(fmt.Sprintf("Deleted %s", args[0]))
			})
		},
	}
}
