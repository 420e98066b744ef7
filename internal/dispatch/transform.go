package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/physutils/internal/bids"
	"github.com/roach88/physutils/internal/physio"
	"github.com/roach88/physutils/internal/replay"
	"github.com/roach88/physutils/internal/store"
)

// Mode selects how the input path is interpreted.
type Mode string

const (
	// ModePhysio loads an archive or plain-text recording.
	ModePhysio Mode = "physio"
	// ModeBIDS loads one channel of a BIDS dataset.
	ModeBIDS Mode = "bids"
	// ModeHistory replays a history document.
	ModeHistory Mode = "history"
	// ModeAuto picks one of the above from the input.
	ModeAuto Mode = "auto"
)

// ParseMode parses a mode name. The empty string is ModePhysio.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModePhysio, nil
	case ModePhysio, ModeBIDS, ModeHistory, ModeAuto:
		return m, nil
	default:
		return "", &ConfigError{Field: "mode", Message: fmt.Sprintf("unrecognized mode %q (want physio, bids, history or auto)", s)}
	}
}

// Request is one Transform call.
type Request struct {
	// InputFile is the recording, dataset directory or history document.
	InputFile string

	// Mode selects the loader. Empty means ModePhysio.
	Mode Mode

	// FS overrides the sampling rate. Zero means not supplied.
	FS float64

	// BIDSParameters select the dataset recording ("subject", "session",
	// "task", "acquisition", "run", "recording"). Required in bids mode.
	BIDSParameters map[string]string

	// BIDSChannel names the column to return in bids mode.
	BIDSChannel string
}

// Recorder catalogues produced signals. *store.Store implements it.
type Recorder interface {
	RecordSignal(ctx context.Context, path string, sig *physio.Signal) (*store.Record, error)
}

// Dispatcher routes requests to the loaders.
type Dispatcher struct {
	caps     Capabilities
	registry *physio.Registry
	recorder Recorder
	replay   *replay.Engine
	logger   *slog.Logger
}

// Options configure a Dispatcher.
type Options struct {
	// Registry resolves replayed operations. Nil means
	// physio.DefaultRegistry.
	Registry *physio.Registry

	// Recorder enables the workflow capability when non-nil.
	Recorder Recorder

	// Collaborators and Verbose configure history replay.
	Collaborators []string
	Verbose       bool

	Logger *slog.Logger
}

// New builds a Dispatcher and detects its capabilities.
func New(opts Options) *Dispatcher {
	reg := opts.Registry
	if reg == nil {
		reg = physio.DefaultRegistry
	}
	logger := physio.LoggerOrDefault(opts.Logger)
	d := &Dispatcher{
		caps:     DetectCapabilities(reg, opts.Recorder),
		registry: reg,
		recorder: opts.Recorder,
		replay: &replay.Engine{
			Registry:      reg,
			Collaborators: opts.Collaborators,
			Verbose:       opts.Verbose,
			Logger:        logger,
		},
		logger: logger,
	}
	logger.Debug("dispatcher capabilities", "dataset_layout", d.caps.DatasetLayout, "workflow", d.caps.Workflow)
	return d
}

// Capabilities returns the capabilities detected by New.
func (d *Dispatcher) Capabilities() Capabilities {
	return d.caps
}

// Transform loads req.InputFile according to req.Mode.
func (d *Dispatcher) Transform(req Request) (*physio.Signal, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	if mode == ModeAuto {
		mode = d.sniff(req.InputFile)
	}
	d.logger.Debug("loading signal", "input", req.InputFile, "mode", mode)

	switch mode {
	case ModePhysio:
		opts := physio.LoadOptions{AllowPickle: true, Logger: d.logger}
		if req.FS != 0 {
			opts.FS = physio.FSOption(req.FS)
		}
		return physio.Load(physio.PathSource(req.InputFile), opts)
	case ModeBIDS:
		sig, err := d.loadDataset(req)
		if err != nil {
			return nil, err
		}
		return d.overrideFS(sig, req.FS)
	case ModeHistory:
		sig, err := d.replay.Replay(req.InputFile)
		if err != nil {
			return nil, err
		}
		return d.overrideFS(sig, req.FS)
	default:
		return nil, &ConfigError{Field: "mode", Message: fmt.Sprintf("unrecognized mode %q", mode)}
	}
}

func (d *Dispatcher) loadDataset(req Request) (*physio.Signal, error) {
	if !d.caps.DatasetLayout {
		return nil, &ConfigError{Field: "mode", Message: "dataset-layout reader is not available in this build"}
	}
	if len(req.BIDSParameters) == 0 {
		return nil, &ConfigError{Field: "bids_parameters", Message: "BIDS parameters must be provided when loading from BIDS"}
	}
	if req.BIDSChannel == "" {
		return nil, &ConfigError{Field: "bids_channel", Message: "a channel must be provided when loading from BIDS"}
	}
	sel, err := bids.SelectorFromMap(req.BIDSParameters)
	if err != nil {
		return nil, &ConfigError{Field: "bids_parameters", Message: err.Error()}
	}
	return bids.LoadChannel(req.InputFile, sel, req.BIDSChannel, d.logger)
}

// overrideFS applies a requested rate to a signal that did not come from
// Load, recording it as a derived load.
func (d *Dispatcher) overrideFS(sig *physio.Signal, fs float64) (*physio.Signal, error) {
	if fs == 0 {
		return sig, nil
	}
	return physio.Load(physio.ContainerSource{Signal: sig}, physio.LoadOptions{FS: physio.FSOption(fs), Logger: d.logger})
}

// sniff resolves ModeAuto: a .json file is a history document, a dataset
// directory is bids, anything else is physio.
func (d *Dispatcher) sniff(input string) Mode {
	if strings.HasSuffix(strings.ToLower(input), physio.HistoryExt) {
		return ModeHistory
	}
	info, err := os.Stat(input)
	if err != nil || !info.IsDir() || !bids.IsDataset(input) {
		return ModePhysio
	}
	if !d.caps.DatasetLayout {
		physio.Advise(d.logger, physio.AdvisoryDatasetLayoutFallback,
			"input looks like a BIDS dataset but the dataset-layout reader is not available; loading as a plain recording",
			"input", input)
		return ModePhysio
	}
	return ModeBIDS
}
