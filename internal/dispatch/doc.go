// Package dispatch is the single entry point orchestration uses to turn an
// input path into a Signal: a plain or archived recording, a BIDS dataset
// or a history document, selected by mode.
//
// Optional collaborators (the dataset-layout reader and the workflow
// recorder) are probed once when a Dispatcher is built; the result is a
// Capabilities value that Transform consults instead of re-checking on
// every call.
package dispatch
