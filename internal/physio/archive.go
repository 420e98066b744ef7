package physio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/roach88/physutils/internal/ir"
)

// ArchiveExt is appended to archive paths that lack it.
const ArchiveExt = ".phys"

// Archive attribute names.
const (
	AttrData     = "data"
	AttrFS       = "fs"
	AttrHistory  = "history"
	AttrMetadata = "metadata"
	AttrDType    = "dtype"
)

// RequiredAttributes must all be present in an archive.
var RequiredAttributes = []string{AttrData, AttrFS, AttrHistory, AttrMetadata}

// errNotArchive marks input that is not a zstd-framed CBOR map at all.
// Load falls back to plain text only for this error.
var errNotArchive = errors.New("not a physutils archive")

// The archive is a single zstd frame wrapping one CBOR map. Encoding is
// deterministic (sorted keys) and floats are written at full width with
// NaN payloads untouched, so samples and sampling rate round-trip bit for
// bit.
var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		ShortestFloat: cbor.ShortestFloatNone,
		NaNConvert:    cbor.NaNConvertNone,
		InfConvert:    cbor.InfConvertNone,
		IndefLength:   cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic("physio: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("physio: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("physio: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("physio: zstd decoder initialization failed: " + err.Error())
	}
}

// Archive is the decoded content of a .phys file.
type Archive struct {
	Data     []float64
	FS       float64
	History  ir.History
	Metadata ir.Object
	DType    DType
}

// Signal builds a Signal from the archive content.
func (a *Archive) Signal() *Signal {
	sig := New(a.Data, a.FS, a.History, a.Metadata)
	if a.DType != "" {
		sig.dtype = a.DType
	}
	return sig
}

// EncodeArchive serializes sig. An empty history is written as CBOR null,
// distinct from a recorded history.
func EncodeArchive(sig *Signal) ([]byte, error) {
	var history any
	if len(sig.history) > 0 {
		history = sig.history.ToAny()
	}
	metadata := sig.metadata
	if metadata == nil {
		metadata = ir.Object{}
	}
	samples := sig.samples
	if samples == nil {
		samples = []float64{}
	}

	payload := map[string]any{
		AttrData:     samples,
		AttrFS:       sig.fs,
		AttrHistory:  history,
		AttrMetadata: ir.ToAny(metadata),
		AttrDType:    string(sig.DType()),
	}
	raw, err := encMode.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

// DecodeArchive parses archive bytes. path is used for error messages.
//
// Bytes that are not a zstd frame holding a CBOR map return an error
// wrapping errNotArchive. An archive that lacks one of RequiredAttributes
// returns a MISSING_ATTRIBUTE error naming it.
func DecodeArchive(path string, compressed []byte) (*Archive, error) {
	raw, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotArchive, err)
	}
	var fields map[string]cbor.RawMessage
	if err := decMode.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotArchive, err)
	}
	for _, attr := range RequiredAttributes {
		if _, ok := fields[attr]; !ok {
			return nil, NewMissingAttributeError(path, attr)
		}
	}

	a := &Archive{}
	if err := decMode.Unmarshal(fields[AttrData], &a.Data); err != nil {
		return nil, corruptAttribute(path, AttrData, err)
	}
	if err := decMode.Unmarshal(fields[AttrFS], &a.FS); err != nil {
		return nil, corruptAttribute(path, AttrFS, err)
	}

	var history any
	if err := decMode.Unmarshal(fields[AttrHistory], &history); err != nil {
		return nil, corruptAttribute(path, AttrHistory, err)
	}
	if a.History, err = ir.HistoryFromAny(history); err != nil {
		return nil, corruptAttribute(path, AttrHistory, err)
	}

	var metadata any
	if err := decMode.Unmarshal(fields[AttrMetadata], &metadata); err != nil {
		return nil, corruptAttribute(path, AttrMetadata, err)
	}
	if a.Metadata, err = ir.ObjectFromAny(metadata); err != nil {
		return nil, corruptAttribute(path, AttrMetadata, err)
	}

	if rawDType, ok := fields[AttrDType]; ok {
		var name string
		if err := decMode.Unmarshal(rawDType, &name); err != nil {
			return nil, corruptAttribute(path, AttrDType, err)
		}
		if a.DType, err = ParseDType(name); err != nil {
			return nil, corruptAttribute(path, AttrDType, err)
		}
	}
	if a.Data == nil {
		a.Data = []float64{}
	}
	return a, nil
}

// ReadArchive reads and decodes the archive at path.
func ReadArchive(path string) (*Archive, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotArchive, err)
	}
	return DecodeArchive(path, compressed)
}

// SaveArchive writes sig to path, appending ArchiveExt if missing, and
// returns the path actually written. A failed write is returned as is;
// nothing is retried.
func SaveArchive(path string, sig *Signal, logger *slog.Logger) (string, error) {
	if !strings.HasSuffix(path, ArchiveExt) {
		path += ArchiveExt
	}
	data, err := EncodeArchive(sig)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save archive: %w", err)
	}
	LoggerOrDefault(logger).Info("saved signal", "signal", sig.String(), "path", path)
	return path, nil
}

func corruptAttribute(path, attr string, err error) *Error {
	return &Error{
		Code:      ErrCodeCorruptArchive,
		Message:   "archive attribute could not be decoded",
		Path:      path,
		Attribute: attr,
		Err:       err,
	}
}
