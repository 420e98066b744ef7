package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/roach88/physutils/internal/ir"
	"github.com/roach88/physutils/internal/physio"
)

// Record is one catalogued signal.
type Record struct {
	ID            string
	Seq           int64
	Path          string
	HistoryDigest string
	SamplesDigest string
	// FS is NaN when the sampling rate was unknown.
	FS       float64
	NSamples int
	DType    string
	Metadata ir.Object
}

// RecordSignal catalogues sig as written to path, together with its full
// history, and returns the new record. Each call creates a new record
// with a fresh UUIDv7 id, even for a path that was recorded before.
func (s *Store) RecordSignal(ctx context.Context, path string, sig *physio.Signal) (*Record, error) {
	history := sig.History()
	digest, err := ir.HistoryDigest(history)
	if err != nil {
		return nil, fmt.Errorf("record signal: %w", err)
	}
	metadata, err := marshalArgs(sig.Metadata())
	if err != nil {
		return nil, fmt.Errorf("record signal: metadata: %w", err)
	}

	rec := &Record{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Path:          path,
		HistoryDigest: digest,
		SamplesDigest: ir.SamplesDigest(sig.Samples()),
		FS:            sig.FS(),
		NSamples:      sig.Len(),
		DType:         sig.DType().String(),
		Metadata:      sig.Metadata(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("record signal: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM signals`).Scan(&rec.Seq); err != nil {
		return nil, fmt.Errorf("record signal: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO signals
		(id, seq, path, history_digest, samples_digest, fs, n_samples, dtype, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Seq,
		rec.Path,
		rec.HistoryDigest,
		rec.SamplesDigest,
		nullableFS(rec.FS),
		rec.NSamples,
		rec.DType,
		metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("record signal: insert signal: %w", err)
	}

	for i, entry := range history {
		argsJSON, err := marshalArgs(entry.Args)
		if err != nil {
			return nil, fmt.Errorf("record signal: entry %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO history_entries (signal_id, position, name, args)
			VALUES (?, ?, ?, ?)
		`, rec.ID, i, entry.Name, argsJSON)
		if err != nil {
			return nil, fmt.Errorf("record signal: insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("record signal: commit: %w", err)
	}
	return rec, nil
}

// DeleteSignal removes a record and its history. Deleting an unknown id
// is not an error.
func (s *Store) DeleteSignal(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM signals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete signal: %w", err)
	}
	return nil
}

// SQLite has no NaN; an unknown rate is stored as NULL.
func nullableFS(fs float64) sql.NullFloat64 {
	if math.IsNaN(fs) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: fs, Valid: true}
}
