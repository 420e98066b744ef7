package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/physutils/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden snapshots
	Filter string // glob over scenario file names, without extension
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name        string   `json:"name"`
	Pass        bool     `json:"pass"`
	SampleCount int      `json:"sample_count,omitempty"`
	Advisories  []string `json:"advisories,omitempty"`
	Golden      string   `json:"golden,omitempty"` // "matched", "updated" or "absent"
	Errors      []string `json:"errors,omitempty"`
}

// TestResult aggregates every scenario in a directory.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run pipeline conformance scenarios",
		Long: `Run every scenario YAML file under a directory.

Each scenario loads its input, applies its steps and checks its
assertions. When golden/<scenario>.golden exists next to the scenario
file, the canonical snapshot of the run must match it byte for byte.
The golden/ and data/ subdirectories are never scanned for scenarios.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, bad filter)

Examples:
  physutils test ./scenarios
  physutils test ./scenarios --filter "resp_*"
  physutils test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	if len(files) == 0 {
		if opts.Format == "json" {
			return writeTestResult(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, file := range files {
		s := runScenario(file, opts)
		if opts.Format != "json" {
			printScenario(cmd, s)
		}
		result.add(s)
	}

	if opts.Format == "json" {
		return writeTestResult(cmd, result)
	}
	return printSummary(cmd, result)
}

// findScenarioFiles lists .yaml/.yml files under dir in lexical order,
// skipping fixture directories.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (d.Name() == "golden" || d.Name() == "data") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func runScenario(file string, opts *TestOptions) ScenarioResult {
	fail := func(name string, errs ...string) ScenarioResult {
		return ScenarioResult{Name: name, Errors: errs}
	}

	scenario, result, err := harness.RunFile(file, harness.Options{Logger: opts.Logger})
	if scenario == nil {
		return fail(filepath.Base(file), fmt.Sprintf("failed to load scenario: %v", err))
	}
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	out := ScenarioResult{
		Name:       scenario.Name,
		Advisories: result.Advisories,
	}
	if result.Signal != nil {
		out.SampleCount = result.Signal.Len()
	}
	if !result.Pass {
		out.Errors = result.Errors
		return out
	}
	if scenario.ExpectError != "" {
		// A scenario that must fail leaves no snapshot.
		out.Pass = true
		return out
	}

	golden := goldenFileFor(file)
	snapshot, err := harness.NewSnapshot(scenario.Name, result).MarshalCanonical()
	if err != nil {
		out.Errors = []string{fmt.Sprintf("failed to marshal snapshot: %v", err)}
		return out
	}

	if opts.Update {
		if err := golden.write(snapshot); err != nil {
			out.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return out
		}
		out.Pass, out.Golden = true, "updated"
		return out
	}

	state, err := golden.compare(snapshot)
	if err != nil {
		out.Errors = []string{fmt.Sprintf("golden comparison failed: %v", err)}
		return out
	}
	if state == "mismatch" {
		out.Errors = []string{"snapshot does not match golden file (run with --update to regenerate)"}
		return out
	}
	out.Pass, out.Golden = true, state
	return out
}

// goldenFile is the snapshot path for one scenario: golden/<name>.golden
// beside the scenario file.
type goldenFile string

func goldenFileFor(scenarioFile string) goldenFile {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return goldenFile(filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden"))
}

func (g goldenFile) write(snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(string(g)), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(string(g), snapshot, 0644)
}

// compare returns "matched", "mismatch", or "absent" when no golden file
// exists (the assertions alone decide).
func (g goldenFile) compare(snapshot []byte) (string, error) {
	want, err := os.ReadFile(string(g))
	if os.IsNotExist(err) {
		return "absent", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, snapshot) {
		return "mismatch", nil
	}
	return "matched", nil
}

func printScenario(cmd *cobra.Command, s ScenarioResult) {
	w := cmd.OutOrStdout()
	if !s.Pass {
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	switch s.Golden {
	case "updated":
		fmt.Fprintf(w, "✓ %s (golden updated)\n", s.Name)
	default:
		fmt.Fprintf(w, "✓ %s\n", s.Name)
	}
	for _, kind := range s.Advisories {
		fmt.Fprintf(w, "  advisory: %s\n", kind)
	}
}

func printSummary(cmd *cobra.Command, r TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", r.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

// writeTestResult emits the JSON envelope. Failures carry both the data
// and an error so callers see which scenarios failed.
func writeTestResult(cmd *cobra.Command, r TestResult) error {
	resp := CLIResponse{Status: "ok", Data: r}
	if r.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", r.Failed),
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if r.Failed > 0 {
		return NewExitError(ExitFailure, resp.Error.Message)
	}
	return nil
}
