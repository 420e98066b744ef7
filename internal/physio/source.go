package physio

// Source is the input to Load: exactly one of PathSource, ArraySource or
// ContainerSource. The set is closed.
type Source interface {
	source()
}

// PathSource is a file path: an archive, or a plain-text list of numbers.
type PathSource string

func (PathSource) source() {}

// ArraySource is a raw sample array.
type ArraySource []float64

func (ArraySource) source() {}

// ContainerSource is an existing Signal to derive a new one from.
type ContainerSource struct {
	Signal *Signal
}

func (ContainerSource) source() {}

// SourceOf maps a dynamically typed input onto a Source. Strings are
// paths, []float64 is a raw array and *Signal an existing container;
// anything else is an UNSUPPORTED_INPUT error naming the type.
func SourceOf(v any) (Source, error) {
	switch val := v.(type) {
	case Source:
		return val, nil
	case string:
		return PathSource(val), nil
	case []float64:
		return ArraySource(val), nil
	case *Signal:
		if val == nil {
			return nil, NewUnsupportedInputError(v)
		}
		return ContainerSource{Signal: val}, nil
	default:
		return nil, NewUnsupportedInputError(v)
	}
}
