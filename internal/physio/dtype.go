package physio

import (
	"fmt"
	"math"
	"strings"
)

// DType names the numeric type samples are coerced to. Samples are always
// held as float64; a narrower DType rounds every value through the target
// type so the stored values are exactly those the target can represent.
type DType string

const (
	Float64 DType = "float64"
	Float32 DType = "float32"
	Int64   DType = "int64"
	Int32   DType = "int32"
	Int16   DType = "int16"
	Int8    DType = "int8"
	Uint32  DType = "uint32"
	Uint16  DType = "uint16"
	Uint8   DType = "uint8"
)

var dtypeAliases = map[string]DType{
	"float64": Float64, "float": Float64, "double": Float64, "f8": Float64,
	"float32": Float32, "single": Float32, "f4": Float32,
	"int64": Int64, "int": Int64, "i8": Int64,
	"int32": Int32, "i4": Int32,
	"int16": Int16, "i2": Int16,
	"int8": Int8, "i1": Int8,
	"uint32": Uint32, "u4": Uint32,
	"uint16": Uint16, "u2": Uint16,
	"uint8": Uint8, "u1": Uint8,
}

// integer bounds per type, as float64
var intRange = map[DType][2]float64{
	Int64:  {math.MinInt64, math.MaxInt64},
	Int32:  {math.MinInt32, math.MaxInt32},
	Int16:  {math.MinInt16, math.MaxInt16},
	Int8:   {math.MinInt8, math.MaxInt8},
	Uint32: {0, math.MaxUint32},
	Uint16: {0, math.MaxUint16},
	Uint8:  {0, math.MaxUint8},
}

// ParseDType parses a dtype name. Common numpy-style aliases are
// accepted ("float", "f4", "i2", ...). The empty string parses to the
// zero DType, meaning "no coercion requested".
func ParseDType(s string) (DType, error) {
	if s == "" {
		return "", nil
	}
	if d, ok := dtypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", &Error{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf("unknown dtype %q", s),
	}
}

// IsInteger reports whether d is an integer type.
func (d DType) IsInteger() bool {
	_, ok := intRange[d]
	return ok
}

// Convert rounds v through d. Integer types truncate toward zero and clamp
// to the type's range; NaN becomes 0.
func (d DType) Convert(v float64) float64 {
	switch d {
	case "", Float64:
		return v
	case Float32:
		return float64(float32(v))
	}
	bounds, ok := intRange[d]
	if !ok {
		return v
	}
	if math.IsNaN(v) {
		return 0
	}
	return math.Trunc(math.Max(bounds[0], math.Min(bounds[1], v)))
}

// ConvertAll returns a new slice with every value converted.
func (d DType) ConvertAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = d.Convert(v)
	}
	return out
}

func (d DType) String() string {
	if d == "" {
		return string(Float64)
	}
	return string(d)
}
