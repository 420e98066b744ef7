package bids

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/physutils/internal/ir"
)

// Selector picks one recording by its BIDS entities. Empty fields match
// anything.
type Selector struct {
	Subject     string
	Session     string
	Task        string
	Acquisition string
	Run         string
	Recording   string
}

// selector keys, in the order they are recorded and matched
var selectorKeys = []string{"subject", "session", "task", "acquisition", "run", "recording"}

// entity labels as they appear in file names
var entityLabels = map[string]string{
	"subject":     "sub",
	"session":     "ses",
	"task":        "task",
	"acquisition": "acq",
	"run":         "run",
	"recording":   "recording",
}

// SelectorFromMap builds a Selector from long-form keys ("subject",
// "session", ...). Unknown keys are an error.
func SelectorFromMap(m map[string]string) (Selector, error) {
	var s Selector
	for k, v := range m {
		field := s.field(k)
		if field == nil {
			return Selector{}, fmt.Errorf("unknown BIDS parameter %q (want one of %s)", k, strings.Join(selectorKeys, ", "))
		}
		*field = v
	}
	return s, nil
}

// Empty reports whether no entity is set.
func (s Selector) Empty() bool {
	return s == Selector{}
}

// Map returns the set entities keyed by their long names.
func (s Selector) Map() map[string]string {
	out := make(map[string]string)
	for _, k := range selectorKeys {
		if v := *s.field(k); v != "" {
			out[k] = v
		}
	}
	return out
}

// Args returns the set entities as recorded history arguments.
func (s Selector) Args() ir.Object {
	args := ir.Object{}
	for k, v := range s.Map() {
		args[k] = ir.String(v)
	}
	return args
}

// Matches reports whether the file name carries every set entity.
func (s Selector) Matches(name string) bool {
	entities := parseEntities(name)
	for k, v := range s.Map() {
		if entities[entityLabels[k]] != v {
			return false
		}
	}
	return true
}

func (s Selector) String() string {
	var parts []string
	for _, k := range selectorKeys {
		if v := *s.field(k); v != "" {
			parts = append(parts, entityLabels[k]+"-"+v)
		}
	}
	if len(parts) == 0 {
		return "<any>"
	}
	return strings.Join(parts, "_")
}

func (s *Selector) field(key string) *string {
	switch key {
	case "subject":
		return &s.Subject
	case "session":
		return &s.Session
	case "task":
		return &s.Task
	case "acquisition":
		return &s.Acquisition
	case "run":
		return &s.Run
	case "recording":
		return &s.Recording
	}
	return nil
}

// selectorFromArgs rebuilds a Selector from recorded history arguments.
func selectorFromArgs(args ir.Object) (Selector, error) {
	var s Selector
	for _, k := range selectorKeys {
		if args.IsNull(k) {
			continue
		}
		v, ok := args.GetString(k)
		if !ok {
			return Selector{}, fmt.Errorf("BIDS parameter %q must be a string", k)
		}
		*s.field(k) = v
	}
	return s, nil
}

// parseEntities splits "sub-01_ses-01_task-rest_physio.tsv.gz" into
// {"sub": "01", "ses": "01", "task": "rest"}. The suffix is ignored.
func parseEntities(name string) map[string]string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	out := make(map[string]string)
	for _, part := range strings.Split(base, "_") {
		label, value, ok := strings.Cut(part, "-")
		if ok && label != "" {
			out[label] = value
		}
	}
	return out
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
