package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// createTestStore creates a new catalog in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSignal creates a signal with a seed load entry plus one
// entry per extra operation name.
func createTestSignal(source string, ops ...string) *physio.Signal {
	h := ir.History{ir.NewEntry(physio.LoadPhysioOp, ir.Object{
		"data": ir.String(source),
		"fs":   ir.Float(1000),
	})}
	for i, op := range ops {
		h = h.Append(ir.NewEntry(op, ir.Object{"step": ir.Int(i)}))
	}
	return physio.New([]float64{0.5, 1.5, -2}, 1000, h, ir.Object{"units": ir.String("mV")})
}
