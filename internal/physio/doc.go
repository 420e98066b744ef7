// Package physio implements the provenance-tracked signal container and
// its persistence.
//
// A Signal holds a one-dimensional sample array, its sampling rate, free
// form metadata and an ordered history of the operations that produced it.
// The package provides:
//
//   - Load: normalizes a path, a raw sample array or an existing Signal into
//     a new Signal, recording the call in the history
//   - SaveArchive / ReadArchive: the full binary archive (.phys)
//   - SaveHistory: the standalone history document (.json) consumed by
//     package replay
//   - Registry: the name-addressable table of replayable operations
//
// # History Invariants
//
// A non-empty history always starts with a load-marked entry whose
// arguments can regenerate the samples from a persistent source. Entries
// are only ever appended: every derivation builds a new History from the
// old one plus one entry (see Signal.Derive). Arguments never contain the
// receiver; replay passes it implicitly.
//
// # Advisories
//
// Conditions that compromise reproducibility without stopping execution
// (a raw array loaded without history, a sampling rate overridden, an
// empty history saved) are logged as Warn records carrying an "advisory"
// attribute. See Advise.
package physio
