package physio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/physutils/internal/ir"
)

// LoadPhysioOp is the qualified operation name Load records in histories.
const LoadPhysioOp = "physutils.io.load_physio"

// LoadOptions are the optional arguments of Load.
type LoadOptions struct {
	// FS overrides the sampling rate when non-nil.
	FS *float64

	// DType coerces the samples when non-empty.
	DType DType

	// History is the provenance of an ArraySource. Ignored for other sources.
	History ir.History

	// AllowPickle is recorded in the history for compatibility with
	// documents written by other tools. Archives never hold executable
	// objects, so it has no effect on decoding.
	AllowPickle bool

	// Logger receives debug records and advisories. Defaults to slog.Default().
	Logger *slog.Logger
}

// FSOption returns a pointer to fs, for LoadOptions.FS.
func FSOption(fs float64) *float64 {
	return &fs
}

// Load normalizes src into a new Signal.
//
//   - PathSource: decoded as an archive; if the file is not an archive it
//     is parsed as plain text and given a one-entry history recording this
//     call with its full argument set. An archive missing a required
//     attribute is fatal and does not fall back.
//   - ArraySource: wrapped as is. Without opts.History an advisory is
//     logged because the result cannot be replayed.
//   - ContainerSource: samples copied into a new Signal whose history is
//     the source's plus one entry recording this call. The source is not
//     modified.
//
// Afterwards a supplied sampling rate that differs from the loaded one
// replaces it (with an advisory when the loaded rate was defined), and a
// supplied dtype coerces the samples.
func Load(src Source, opts LoadOptions) (*Signal, error) {
	logger := LoggerOrDefault(opts.Logger)
	if opts.FS != nil && !(*opts.FS > 0) && !math.IsNaN(*opts.FS) {
		return nil, &Error{
			Code:    ErrCodeInvalidArgument,
			Message: fmt.Sprintf("sampling rate must be positive, got %v", *opts.FS),
		}
	}

	var (
		sig *Signal
		err error
	)
	switch s := src.(type) {
	case PathSource:
		sig, err = loadPath(string(s), opts, logger)
		if err != nil {
			return nil, err
		}
	case ArraySource:
		logger.Debug("instantiating signal from sample array", "size", len(s))
		if opts.History == nil {
			Advise(logger, AdvisoryHistoryAbsent,
				"loading data from a sample array without a history makes it impossible to replay; continuing anyway")
		}
		fs := UnknownFS()
		if opts.FS != nil {
			fs = *opts.FS
		}
		sig = New(s, fs, opts.History, nil)
	case ContainerSource:
		if s.Signal == nil {
			return nil, NewUnsupportedInputError(s.Signal)
		}
		logger.Debug("instantiating signal from existing signal", "signal", s.Signal.String())
		sig = s.Signal.derived(opts)
	default:
		return nil, NewUnsupportedInputError(src)
	}

	if opts.FS != nil && *opts.FS != sig.fs {
		if sig.HasFS() {
			Advise(logger, AdvisoryFSOverridden,
				"provided sampling rate does not match loaded rate; resetting loaded rate",
				"loaded_fs", sig.fs, "provided_fs", *opts.FS)
		}
		sig.setFS(*opts.FS)
	}
	if opts.DType != "" {
		sig.coerce(opts.DType)
	}
	return sig, nil
}

func loadPath(path string, opts LoadOptions, logger *slog.Logger) (*Signal, error) {
	archive, err := ReadArchive(path)
	if err == nil {
		logger.Debug("instantiating signal from archive", "path", path)
		return archive.Signal(), nil
	}
	if !errors.Is(err, errNotArchive) {
		return nil, err
	}
	logger.Debug("not an archive, loading as plain text", "path", path, "reason", err)

	samples, textErr := readText(path)
	if textErr != nil {
		var pe *Error
		if errors.As(textErr, &pe) {
			return nil, pe
		}
		return nil, fmt.Errorf("load %s: %w", path, textErr)
	}
	history := ir.History{ir.NewEntry(LoadPhysioOp, loadArgs(ir.String(path), opts))}
	return New(samples, UnknownFS(), history, nil), nil
}

// derived copies s for a ContainerSource load. The requested rate is
// applied at construction, so deriving never raises the override advisory.
func (s *Signal) derived(opts LoadOptions) *Signal {
	fs := s.fs
	if opts.FS != nil {
		fs = *opts.FS
	}
	entry := ir.NewEntry(LoadPhysioOp, loadArgs(nil, opts))
	return &Signal{
		samples:  s.Samples(),
		dtype:    s.DType(),
		fs:       fs,
		history:  s.history.Append(entry),
		metadata: s.metadata.Clone(),
	}
}

// loadArgs records the arguments of a Load call. data is omitted when nil
// (the receiver is never recorded).
func loadArgs(data ir.Value, opts LoadOptions) ir.Object {
	args := ir.Object{
		"fs":           ir.Null{},
		"dtype":        ir.Null{},
		"history":      ir.Null{},
		"allow_pickle": ir.Bool(opts.AllowPickle),
	}
	if data != nil {
		args["data"] = data
	}
	if opts.FS != nil && !math.IsNaN(*opts.FS) {
		args["fs"] = ir.Float(*opts.FS)
	}
	if opts.DType != "" {
		args["dtype"] = ir.String(opts.DType)
	}
	if opts.History != nil {
		arr := make(ir.Array, len(opts.History))
		for i, e := range opts.History {
			arr[i] = ir.Array{ir.String(e.Name), e.Args.Clone()}
		}
		args["history"] = arr
	}
	return args
}

// LoadOptionsFromArgs rebuilds LoadOptions from recorded arguments.
func LoadOptionsFromArgs(args ir.Object) (LoadOptions, error) {
	var opts LoadOptions
	if !args.IsNull("fs") {
		fs, ok := args.GetFloat("fs")
		if !ok {
			return opts, invalidArg("fs", "a number", args["fs"])
		}
		opts.FS = FSOption(fs)
	}
	if !args.IsNull("dtype") {
		name, ok := args.GetString("dtype")
		if !ok {
			return opts, invalidArg("dtype", "a string", args["dtype"])
		}
		d, err := ParseDType(name)
		if err != nil {
			return opts, err
		}
		opts.DType = d
	}
	if !args.IsNull("history") {
		h, err := ir.HistoryFromAny(ir.ToAny(args["history"]))
		if err != nil {
			return opts, &Error{Code: ErrCodeInvalidArgument, Message: "history argument is not a list of pairs", Err: err}
		}
		opts.History = h
	}
	if !args.IsNull("allow_pickle") {
		b, ok := args.GetBool("allow_pickle")
		if !ok {
			return opts, invalidArg("allow_pickle", "a bool", args["allow_pickle"])
		}
		opts.AllowPickle = b
	}
	return opts, nil
}

func invalidArg(name, want string, got ir.Value) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf("argument %q must be %s, got %T", name, want, got),
	}
}
