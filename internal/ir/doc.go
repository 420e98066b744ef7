// Package ir provides the value and history types shared by every other
// package in physutils.
//
// A history is an ordered list of entries. Each entry names an operation
// ("physutils.io.load_physio") and carries the arguments it was called
// with. Histories are written to archives (CBOR), to history documents
// (indented JSON) and to the provenance catalog (sorted-key JSON), and
// are digested as RFC 8785 canonical JSON. Argument values are therefore
// constrained to a small sealed set of types that survive every encoding
// unchanged.
//
// ir imports nothing internal.
//
// Key constraints:
//   - Argument values are Null, String, Int, Float, Bool, Array or Object
//   - Float always serializes with a decimal point or exponent, so a float
//     read back from JSON stays a Float
//   - Non-finite floats cannot be written to JSON
//   - History.Append never writes into the receiver's backing array
package ir
