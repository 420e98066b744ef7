package physio

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/physutils/internal/ir"
)

// Signal is a one-dimensional physiological time series with its sampling
// rate, metadata and provenance history.
//
// A Signal is never shared between owners: Load and Derive always return a
// new Signal and leave their input untouched. The only in-place mutations
// are the load-time sampling-rate override and dtype coercion, both applied
// by Load before the Signal is returned.
type Signal struct {
	samples  []float64
	dtype    DType
	fs       float64
	history  ir.History
	metadata ir.Object
}

// UnknownFS is the sampling-rate sentinel for "not yet established".
func UnknownFS() float64 {
	return math.NaN()
}

// New creates a Signal. samples is copied; pass UnknownFS() when the rate
// is not known. A nil metadata becomes an empty Object.
func New(samples []float64, fs float64, history ir.History, metadata ir.Object) *Signal {
	return &Signal{
		samples:  slices.Clone(samples),
		dtype:    Float64,
		fs:       fs,
		history:  history.Clone(),
		metadata: metadata.Clone(),
	}
}

// Samples returns a copy of the sample array.
func (s *Signal) Samples() []float64 {
	return slices.Clone(s.samples)
}

// At returns sample i.
func (s *Signal) At(i int) float64 {
	return s.samples[i]
}

// Len returns the number of samples.
func (s *Signal) Len() int {
	return len(s.samples)
}

// FS returns the sampling rate, NaN when unknown.
func (s *Signal) FS() float64 {
	return s.fs
}

// HasFS reports whether the sampling rate is defined.
func (s *Signal) HasFS() bool {
	return !math.IsNaN(s.fs)
}

// DType returns the numeric type the samples were coerced to.
func (s *Signal) DType() DType {
	if s.dtype == "" {
		return Float64
	}
	return s.dtype
}

// History returns a copy of the history.
func (s *Signal) History() ir.History {
	return s.history.Clone()
}

// Metadata returns a copy of the metadata.
func (s *Signal) Metadata() ir.Object {
	return s.metadata.Clone()
}

// Duration returns the length of the signal in seconds, NaN when the
// sampling rate is unknown.
func (s *Signal) Duration() float64 {
	return float64(len(s.samples)) / s.fs
}

func (s *Signal) String() string {
	return fmt.Sprintf("Signal(size=%d, fs=%g)", len(s.samples), s.fs)
}

// Derive returns a new Signal carrying samples (or a copy of the receiver's
// samples when nil) and the receiver's history extended by one entry
// (name, args). Sampling rate, dtype and metadata carry forward. This is
// how operations outside this package record themselves.
func (s *Signal) Derive(name string, args ir.Object, samples []float64) (*Signal, error) {
	if name == "" {
		return nil, &Error{Code: ErrCodeInvalidArgument, Message: "derived operation name is empty"}
	}
	if samples == nil {
		samples = s.samples
	}
	return &Signal{
		samples:  slices.Clone(samples),
		dtype:    s.DType(),
		fs:       s.fs,
		history:  s.history.Append(ir.NewEntry(name, args.Clone())),
		metadata: s.metadata.Clone(),
	}, nil
}

// setFS overrides the sampling rate. Load-time normalization only.
func (s *Signal) setFS(fs float64) {
	s.fs = fs
}

// coerce rounds every sample through d in place. Load-time normalization
// only.
func (s *Signal) coerce(d DType) {
	for i, v := range s.samples {
		s.samples[i] = d.Convert(v)
	}
	s.dtype = d
}
