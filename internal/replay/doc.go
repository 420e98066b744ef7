// Package replay rebuilds a Signal from nothing but its history document.
//
// A history document is a JSON array of [name, arguments] pairs. The
// Engine runs each entry in order against a physio.Registry: the first
// entry must be a load operation, invoked without a receiver (the seed);
// every later entry receives the Signal produced by the one before it.
// The seed's source file must still exist where the document says it is.
package replay
