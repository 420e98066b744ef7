// Package harness runs pipeline conformance scenarios.
//
// A scenario loads one input through the mode dispatcher, applies a list
// of registered operations to the result, and then asserts on the
// produced Signal, its history, the advisories raised on the way, and
// whether the history replays to the same Signal.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	input:
//	  file: data/ECG.txt        # relative to the scenario file
//	  mode: physio
//	  fs: 1000
//	steps:
//	  - op: physutils.io.load_physio
//	    args: { fs: 500 }
//	assertions:
//	  - type: sample_count
//	    count: 5
//	  - type: history_order
//	    operations: [physutils.io.load_physio, physutils.io.load_physio]
//	  - type: replay_matches
//
// # Assertion Types
//
//   - sample_count: the Signal has exactly count samples
//   - sampling_rate: the Signal's rate equals fs
//   - history_contains: an entry for operation exists whose args include args
//   - history_order: the history's operation names are exactly operations
//   - history_count: operation appears exactly count times
//   - metadata: the Signal's metadata includes expect
//   - advisory: exactly count advisories of kind were logged
//   - replay_matches: the saved history replays to the same samples and history
//   - recorded: the catalog holds the Signal's history under its digest
//
// A scenario with expect_error instead asserts that loading fails with an
// error whose message contains the given text.
//
// Every scenario runs against a fresh in-memory catalog, so results are
// independent of each other and of the host.
package harness
