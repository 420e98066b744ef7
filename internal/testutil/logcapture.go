package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// AdvisoryKey is the attribute physio uses to mark advisory records.
const AdvisoryKey = "advisory"

// Record is a captured log record with its attributes flattened.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record in memory so tests
// can assert on advisories.
//
// Thread-safety: all methods are safe for concurrent use.
type LogCapture struct {
	mu      sync.Mutex
	records []Record
}

// NewLogCapture returns a capture handler and a logger writing to it.
func NewLogCapture() (*LogCapture, *slog.Logger) {
	c := &LogCapture{}
	return c, slog.New(c)
}

// Enabled accepts every level, including Debug.
func (c *LogCapture) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle stores the record.
func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	rec := Record{Level: r.Level, Message: r.Message, Attrs: make(map[string]any)}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Resolve().Any()
		return true
	})
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return nil
}

// WithAttrs is not needed by the code under test; attributes are dropped.
func (c *LogCapture) WithAttrs([]slog.Attr) slog.Handler {
	return c
}

// WithGroup is not needed by the code under test.
func (c *LogCapture) WithGroup(string) slog.Handler {
	return c
}

// Records returns a copy of all captured records.
func (c *LogCapture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Advisories returns the captured advisory records, optionally limited to
// the given kinds.
func (c *LogCapture) Advisories(kinds ...string) []Record {
	var out []Record
	for _, r := range c.Records() {
		kind, ok := r.Attrs[AdvisoryKey].(string)
		if !ok {
			continue
		}
		if len(kinds) == 0 || contains(kinds, kind) {
			out = append(out, r)
		}
	}
	return out
}

// Reset discards all captured records.
func (c *LogCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
