// Package bids reads physiological recordings stored in a BIDS dataset.
//
// A recording is a gzipped, headerless tab-separated table
// (*_physio.tsv.gz) with a JSON sidecar naming its columns and sampling
// frequency. Load returns one Signal per column, each seeded with a
// physutils.io.load_from_bids history entry so it can be replayed.
package bids
