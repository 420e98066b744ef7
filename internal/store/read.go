package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/physutils/internal/ir"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("signal not found in catalog")

const selectSignal = `
	SELECT id, seq, path, history_digest, samples_digest, fs, n_samples, dtype, metadata
	FROM signals
`

// GetSignal returns the record with the given id.
// Returns ErrNotFound if there is none.
func (s *Store) GetSignal(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectSignal+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get signal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get signal %s: %w", id, err)
	}
	return rec, nil
}

// ListSignals returns every record in catalog order.
// Returns an empty slice (not nil) for an empty catalog.
func (s *Store) ListSignals(ctx context.Context) ([]*Record, error) {
	return s.querySignals(ctx, selectSignal+` ORDER BY seq ASC, id ASC COLLATE BINARY`)
}

// FindByDigest returns every record whose history digest matches, in
// catalog order. Signals produced by the same pipeline share a digest.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]*Record, error) {
	return s.querySignals(ctx, selectSignal+` WHERE history_digest = ? ORDER BY seq ASC, id ASC COLLATE BINARY`, digest)
}

// FindByPath returns every record written to path, in catalog order.
func (s *Store) FindByPath(ctx context.Context, path string) ([]*Record, error) {
	return s.querySignals(ctx, selectSignal+` WHERE path = ? ORDER BY seq ASC, id ASC COLLATE BINARY`, path)
}

// ReadHistory returns the history recorded for id, in original order.
// Returns ErrNotFound if the record does not exist.
func (s *Store) ReadHistory(ctx context.Context, id string) (ir.History, error) {
	if _, err := s.GetSignal(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, args
		FROM history_entries
		WHERE signal_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := ir.History{}
	for rows.Next() {
		var name, argsJSON string
		if err := rows.Scan(&name, &argsJSON); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		args, err := unmarshalArgs(argsJSON)
		if err != nil {
			return nil, fmt.Errorf("history entry %s: %w", name, err)
		}
		history = append(history, ir.NewEntry(name, args))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}

func (s *Store) querySignals(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return records, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec      Record
		fs       sql.NullFloat64
		metadata string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.Path,
		&rec.HistoryDigest,
		&rec.SamplesDigest,
		&fs,
		&rec.NSamples,
		&rec.DType,
		&metadata,
	)
	if err != nil {
		return nil, err
	}
	rec.FS = math.NaN()
	if fs.Valid {
		rec.FS = fs.Float64
	}
	if rec.Metadata, err = unmarshalArgs(metadata); err != nil {
		return nil, fmt.Errorf("signal %s metadata: %w", rec.ID, err)
	}
	return &rec, nil
}
