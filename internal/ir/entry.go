package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LoadMarker is the substring that identifies a load operation. A load
// operation can seed a replay: it runs without a receiver.
const LoadMarker = "load"

// Entry is one recorded operation call: a dotted, module-scoped operation
// name plus the arguments it was called with. The receiver is never part
// of Args; replay threads it implicitly.
type Entry struct {
	Name string
	Args Object
}

// NewEntry creates an Entry. A nil args becomes an empty Object.
func NewEntry(name string, args Object) Entry {
	if args == nil {
		args = Object{}
	}
	return Entry{Name: name, Args: args}
}

// Scope returns the defining scope: everything before the final ".".
// "physutils.io.load_physio" has scope "physutils.io".
func (e Entry) Scope() string {
	i := strings.LastIndex(e.Name, ".")
	if i < 0 {
		return ""
	}
	return e.Name[:i]
}

// Operation returns the bare operation name after the final ".".
func (e Entry) Operation() string {
	return e.Name[strings.LastIndex(e.Name, ".")+1:]
}

// IsLoad reports whether the bare operation name carries the load marker.
func (e Entry) IsLoad() bool {
	return strings.Contains(e.Operation(), LoadMarker)
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	return Entry{Name: e.Name, Args: e.Args.Clone()}
}

// MarshalJSON writes the entry as a 2-element array: [name, args].
func (e Entry) MarshalJSON() ([]byte, error) {
	nameBytes, err := json.Marshal(e.Name)
	if err != nil {
		return nil, err
	}
	args := e.Args
	if args == nil {
		args = Object{}
	}
	argBytes, err := args.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Name, err)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(nameBytes)
	buf.WriteByte(',')
	buf.Write(argBytes)
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a 2-element [name, args] array.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("history entry must be a [name, arguments] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("history entry must have exactly 2 elements, got %d", len(pair))
	}
	var name string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return fmt.Errorf("history entry name must be a string: %w", err)
	}
	var args Object
	if err := args.UnmarshalJSON(pair[1]); err != nil {
		return fmt.Errorf("history entry %q arguments: %w", name, err)
	}
	*e = Entry{Name: name, Args: args}
	return nil
}

// EntryFromAny converts a decoded [name, args] pair (as produced by a
// CBOR or JSON decoder into `any`) into an Entry.
func EntryFromAny(v any) (Entry, error) {
	pair, ok := v.([]any)
	if !ok {
		return Entry{}, fmt.Errorf("history entry must be a sequence, got %T", v)
	}
	if len(pair) != 2 {
		return Entry{}, fmt.Errorf("history entry must have exactly 2 elements, got %d", len(pair))
	}
	name, ok := pair[0].(string)
	if !ok {
		return Entry{}, fmt.Errorf("history entry name must be a string, got %T", pair[0])
	}
	args, err := ObjectFromAny(pair[1])
	if err != nil {
		return Entry{}, fmt.Errorf("history entry %q arguments: %w", name, err)
	}
	return Entry{Name: name, Args: args}, nil
}

// ToAny returns the entry as a plain []any{name, map[string]any}.
func (e Entry) ToAny() []any {
	args := e.Args
	if args == nil {
		args = Object{}
	}
	return []any{e.Name, ToAny(args)}
}

// History is an append-only, totally ordered list of entries.
type History []Entry

// Append returns a new History holding h followed by e. The receiver is
// never modified, even when its backing array has spare capacity.
func (h History) Append(e Entry) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, e)
}

// Clone returns a deep copy of h. A nil History clones to nil.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	for i, e := range h {
		out[i] = e.Clone()
	}
	return out
}

// HistoryFromAny converts a decoded sequence of pairs into a History.
// nil decodes to an empty (nil) History.
func HistoryFromAny(v any) (History, error) {
	if v == nil {
		return nil, nil
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("history must be a sequence, got %T", v)
	}
	h := make(History, 0, len(seq))
	for i, item := range seq {
		e, err := EntryFromAny(item)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		h = append(h, e)
	}
	return h, nil
}

// ToAny returns the history as a []any of pairs.
func (h History) ToAny() []any {
	out := make([]any, len(h))
	for i, e := range h {
		out[i] = e.ToAny()
	}
	return out
}
