package bids

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/jsonc"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// LoadFromBIDSOp is the qualified operation name recorded by Load.
const LoadFromBIDSOp = "physutils.io.load_from_bids"

const (
	descriptionFile = "dataset_description.json"
	recordingSuffix = "_physio.tsv.gz"
)

// Metadata keys set on every loaded Signal.
const (
	MetaChannel   = "channel"
	MetaStartTime = "start_time"
	MetaFile      = "bids_file"
)

// IsDataset reports whether dir is the root of a BIDS dataset.
func IsDataset(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, descriptionFile))
	return err == nil && info.Mode().IsRegular()
}

// sidecar is the subset of the recording's JSON sidecar we read.
type sidecar struct {
	SamplingFrequency float64  `json:"SamplingFrequency"`
	StartTime         *float64 `json:"StartTime"`
	Columns           []string `json:"Columns"`
}

// Load reads the single recording in dir matching sel and returns one
// Signal per column, keyed by column name.
func Load(dir string, sel Selector, logger *slog.Logger) (map[string]*physio.Signal, error) {
	logger = physio.LoggerOrDefault(logger)
	if !IsDataset(dir) {
		return nil, &Error{
			Code:    ErrCodeNotDataset,
			Message: "directory has no " + descriptionFile,
			Path:    dir,
		}
	}

	path, err := findRecording(dir, sel)
	if err != nil {
		return nil, err
	}
	logger.Debug("loading BIDS recording", "path", path, "selector", sel.String())

	meta, err := readSidecar(strings.TrimSuffix(path, ".tsv.gz") + ".json")
	if err != nil {
		return nil, err
	}
	columns, err := readTable(path, len(meta.Columns))
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = path
	}
	startTime := ir.Value(ir.Null{})
	if meta.StartTime != nil {
		startTime = ir.Float(*meta.StartTime)
	}

	out := make(map[string]*physio.Signal, len(meta.Columns))
	for i, name := range meta.Columns {
		args := sel.Args()
		args["data"] = ir.String(dir)
		args["channel"] = ir.String(name)
		history := ir.History{ir.NewEntry(LoadFromBIDSOp, args)}
		metadata := ir.Object{
			MetaChannel:   ir.String(name),
			MetaStartTime: startTime,
			MetaFile:      ir.String(filepath.ToSlash(rel)),
		}
		out[name] = physio.New(columns[i], meta.SamplingFrequency, history, metadata)
	}
	logger.Info("loaded BIDS recording", "path", path, "channels", len(out), "fs", meta.SamplingFrequency)
	return out, nil
}

// LoadChannel loads the recording matching sel and returns the column
// named channel.
func LoadChannel(dir string, sel Selector, channel string, logger *slog.Logger) (*physio.Signal, error) {
	signals, err := Load(dir, sel, logger)
	if err != nil {
		return nil, err
	}
	sig, ok := signals[channel]
	if !ok {
		return nil, &Error{
			Code:    ErrCodeUnknownChannel,
			Message: fmt.Sprintf("recording has no channel %q (available: %s)", channel, strings.Join(sortedKeys(signals), ", ")),
			Path:    dir,
		}
	}
	return sig, nil
}

// findRecording walks dir for the one *_physio.tsv.gz matching sel.
func findRecording(dir string, sel Selector) (string, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// derivatives and hidden directories are not raw data
			if path != dir && (d.Name() == "derivatives" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), recordingSuffix) && sel.Matches(d.Name()) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan dataset %s: %w", dir, err)
	}

	switch len(matches) {
	case 0:
		return "", &Error{
			Code:    ErrCodeNoRecording,
			Message: fmt.Sprintf("no physio recording matches %s", sel),
			Path:    dir,
		}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = filepath.Base(m)
		}
		return "", &Error{
			Code:    ErrCodeAmbiguousRecording,
			Message: fmt.Sprintf("%d recordings match %s: %s", len(matches), sel, strings.Join(names, ", ")),
			Path:    dir,
		}
	}
}

// readSidecar parses the JSON sidecar. Comments and trailing commas are
// tolerated.
func readSidecar(path string) (*sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidSidecar, Message: "cannot read sidecar", Path: path, Err: err}
	}
	var meta sidecar
	if err := json.Unmarshal(jsonc.ToJSON(data), &meta); err != nil {
		return nil, &Error{Code: ErrCodeInvalidSidecar, Message: "cannot parse sidecar", Path: path, Err: err}
	}
	if !(meta.SamplingFrequency > 0) {
		return nil, &Error{Code: ErrCodeInvalidSidecar, Message: "SamplingFrequency must be positive", Path: path}
	}
	if len(meta.Columns) == 0 {
		return nil, &Error{Code: ErrCodeInvalidSidecar, Message: "Columns must not be empty", Path: path}
	}
	return &meta, nil
}

// readTable decompresses and parses a headerless TSV into one slice per
// column. "n/a" cells read as NaN.
func readTable(path string, width int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidTable, Message: "cannot open recording", Path: path, Err: err}
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidTable, Message: "recording is not gzip-compressed", Path: path, Err: err}
	}
	defer zr.Close()

	r := csv.NewReader(zr)
	r.Comma = '\t'
	r.FieldsPerRecord = width
	r.ReuseRecord = true

	columns := make([][]float64, width)
	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalidTable, Message: "cannot parse recording", Path: path, Err: err}
		}
		for c, cell := range record {
			v, err := parseCell(cell)
			if err != nil {
				return nil, &Error{
					Code:    ErrCodeInvalidTable,
					Message: fmt.Sprintf("row %d column %d", row, c+1),
					Path:    path,
					Err:     err,
				}
			}
			columns[c] = append(columns[c], v)
		}
	}
	for c := range columns {
		if columns[c] == nil {
			columns[c] = []float64{}
		}
	}
	return columns, nil
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "n/a" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
