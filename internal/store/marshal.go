package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/physutils/internal/ir"
)

// marshalArgs converts an argument Object to JSON TEXT for storage.
// Keys are sorted and floats keep their fractional marker, so an exported
// history matches the document it was recorded from. Digests are computed
// separately over canonical JSON.
func marshalArgs(args ir.Object) (string, error) {
	if args == nil {
		args = ir.Object{}
	}
	data, err := ir.MarshalValue(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses JSON TEXT to an Object.
// ir.Object.UnmarshalJSON keeps integers as ir.Int via json.Number, so
// values above 2^53 survive.
func unmarshalArgs(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return obj, nil
}
