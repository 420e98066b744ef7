package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// DefaultCollaborators are the scopes whose operations commonly appear in
// history documents but are defined outside this module.
var DefaultCollaborators = []string{"peakdet", "phys2denoise"}

// Engine replays history documents.
//
// The zero value is usable: it resolves against physio.DefaultRegistry,
// checks DefaultCollaborators and logs to slog.Default().
type Engine struct {
	// Registry resolves operation names. Nil means physio.DefaultRegistry.
	Registry *physio.Registry

	// Collaborators are scopes checked before replay; every one with no
	// registered operation is named in a single advisory. Nil means
	// DefaultCollaborators.
	Collaborators []string

	// Verbose logs each rerun entry at Info instead of Debug.
	Verbose bool

	// Logger receives progress records and advisories.
	Logger *slog.Logger
}

func (e *Engine) registry() *physio.Registry {
	if e.Registry == nil {
		return physio.DefaultRegistry
	}
	return e.Registry
}

func (e *Engine) logger() *slog.Logger {
	return physio.LoggerOrDefault(e.Logger)
}

// Replay reads the history document at path and rebuilds the Signal it
// describes.
func (e *Engine) Replay(path string) (*physio.Signal, error) {
	h, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	e.logger().Info("replaying history", "path", path, "entries", len(h))
	return e.ReplayHistory(h)
}

// ReplayHistory runs h from an empty accumulator and returns the final
// Signal.
//
// A load-marked entry reached while the accumulator is empty is the seed
// and runs without a receiver; every other entry runs with the current
// Signal as receiver. A non-load entry with nothing to receive it, an
// empty history, and an operation that yields no Signal are all errors.
func (e *Engine) ReplayHistory(h ir.History) (*physio.Signal, error) {
	logger := e.logger()
	e.checkCollaborators()

	if len(h) == 0 {
		return nil, &physio.Error{
			Code:    physio.ErrCodeUnseededReplay,
			Message: "history is empty; there is no load operation to start from",
		}
	}

	level := slog.LevelDebug
	if e.Verbose {
		level = slog.LevelInfo
	}

	var current *physio.Signal
	for i, entry := range h {
		logger.Log(context.Background(), level, "rerunning operation", "step", i, "operation", entry.Name)

		seed := current == nil && entry.IsLoad()
		if current == nil && !seed {
			return nil, &physio.Error{
				Code:      physio.ErrCodeUnseededReplay,
				Message:   fmt.Sprintf("entry %d is not a load operation and nothing has been loaded yet", i),
				Operation: entry.Name,
			}
		}

		op, err := e.registry().Lookup(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("replay step %d: %w", i, err)
		}

		call := physio.Call{Receiver: current, Args: entry.Args.Clone(), Logger: logger}
		if seed {
			call.Receiver = nil
			if err := checkSeedSource(entry); err != nil {
				return nil, err
			}
		}

		next, err := op(call)
		if err != nil {
			return nil, fmt.Errorf("replay step %d (%s): %w", i, entry.Name, err)
		}
		if next == nil {
			return nil, fmt.Errorf("replay step %d (%s): operation returned no signal", i, entry.Name)
		}
		current = next
	}
	return current, nil
}

// checkCollaborators logs one advisory naming every collaborator scope
// that has no registered operation. Replay continues regardless.
func (e *Engine) checkCollaborators() {
	collaborators := e.Collaborators
	if collaborators == nil {
		collaborators = DefaultCollaborators
	}
	var missing []string
	for _, scope := range collaborators {
		if !e.registry().HasScope(scope) {
			missing = append(missing, scope)
		}
	}
	if len(missing) == 0 {
		return
	}
	physio.Advise(e.logger(), physio.AdvisoryMissingCollaborators,
		fmt.Sprintf("the following packages are not available: (%s); replaying history that uses them will not be possible",
			strings.Join(missing, ", ")),
		"missing", missing)
}

// checkSeedSource fails with SEED_NOT_FOUND when the seed's recorded data
// path does not exist.
func checkSeedSource(entry ir.Entry) error {
	path, ok := entry.Args.GetString("data")
	if !ok {
		return nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat seed source %s: %w", path, err)
	}

	likely := "a relative path replayed from a different working directory"
	if filepath.IsAbs(path) {
		likely = "an absolute path recorded on a different machine"
	}
	msg := fmt.Sprintf("%s does not exist. The history was either generated with an absolute path "+
		"on another machine or with a relative path from a different directory; here it is most likely %s",
		path, likely)
	return &physio.Error{
		Code:      physio.ErrCodeSeedNotFound,
		Message:   msg,
		Path:      path,
		Operation: entry.Name,
		Err:       err,
	}
}
