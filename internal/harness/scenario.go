package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/physutils/internal/dispatch"
)

// Scenario defines a pipeline conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Input is what the dispatcher loads.
	Input Input `yaml:"input"`

	// Steps are registered operations applied, in order, to the loaded
	// Signal.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the produced Signal.
	Assertions []Assertion `yaml:"assertions"`

	// ExpectError, when set, makes the scenario expect loading or a step
	// to fail with an error containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Collaborators overrides the collaborator scopes checked on replay.
	Collaborators []string `yaml:"collaborators,omitempty"`
}

// Input mirrors dispatch.Request.
type Input struct {
	File           string            `yaml:"file"`
	Mode           string            `yaml:"mode"`
	FS             float64           `yaml:"fs,omitempty"`
	BIDSParameters map[string]string `yaml:"bids_parameters,omitempty"`
	BIDSChannel    string            `yaml:"bids_channel,omitempty"`
}

// Request converts the input into a dispatch request.
func (in Input) Request() (dispatch.Request, error) {
	mode, err := dispatch.ParseMode(in.Mode)
	if err != nil {
		return dispatch.Request{}, err
	}
	return dispatch.Request{
		InputFile:      in.File,
		Mode:           mode,
		FS:             in.FS,
		BIDSParameters: in.BIDSParameters,
		BIDSChannel:    in.BIDSChannel,
	}, nil
}

// Step invokes one registered operation with the current Signal as
// receiver.
type Step struct {
	// Op is the qualified operation name.
	Op string `yaml:"op"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args"`
}

// Assertion validates the produced Signal.
type Assertion struct {
	// Type specifies the assertion type; see the package documentation.
	Type string `yaml:"type"`

	// Count is used by sample_count, history_count and advisory.
	Count int `yaml:"count,omitempty"`

	// FS is used by sampling_rate.
	FS float64 `yaml:"fs,omitempty"`

	// Operation is used by history_contains and history_count.
	Operation string `yaml:"operation,omitempty"`

	// Args is a subset match for history_contains.
	Args map[string]any `yaml:"args,omitempty"`

	// Operations is the exact sequence for history_order.
	Operations []string `yaml:"operations,omitempty"`

	// Expect is a subset match for metadata.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Kind is the advisory kind for advisory.
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertSampleCount     = "sample_count"
	AssertSamplingRate    = "sampling_rate"
	AssertHistoryContains = "history_contains"
	AssertHistoryOrder    = "history_order"
	AssertHistoryCount    = "history_count"
	AssertMetadata        = "metadata"
	AssertAdvisory        = "advisory"
	AssertReplayMatches   = "replay_matches"
	AssertRecorded        = "recorded"
)

// LoadScenario reads and parses a scenario YAML file. The input file is
// resolved relative to the scenario's directory. Returns an error if the
// file doesn't exist, is malformed, contains unknown fields (typos), or
// is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Input.File != "" && !filepath.IsAbs(scenario.Input.File) {
		scenario.Input.File = filepath.Join(filepath.Dir(path), scenario.Input.File)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Input.File == "" {
		return fmt.Errorf("input.file is required")
	}

	if _, err := s.Input.Request(); err != nil {
		return fmt.Errorf("input: %w", err)
	}

	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSampleCount, AssertHistoryCount, AssertAdvisory:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
		if a.Type == AssertHistoryCount && a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for history_count", index)
		}
		if a.Type == AssertAdvisory && a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for advisory", index)
		}
	case AssertSamplingRate:
		if !(a.FS > 0) {
			return fmt.Errorf("assertions[%d]: fs must be positive for sampling_rate", index)
		}
	case AssertHistoryContains:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for history_contains", index)
		}
	case AssertHistoryOrder:
		if len(a.Operations) == 0 {
			return fmt.Errorf("assertions[%d]: operations list is required for history_order", index)
		}
	case AssertMetadata:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for metadata", index)
		}
	case AssertReplayMatches, AssertRecorded:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
