package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// archiveTimeLayout is fixed-width so stored timestamps sort as text.
const archiveTimeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Summary describes an archived batch without its records.
type Summary struct {
	ID          string    `json:"id"`
	Crate       string    `json:"crate"`
	Timestamp   time.Time `json:"timestamp"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredBatch is an archived batch with its records in report order.
type StoredBatch struct {
	Summary
	Records []thermal.Record `json:"records"`
}

// Batch returns the archived batch as the registry produced it.
func (s StoredBatch) Batch() thermal.Batch {
	return thermal.Batch{Timestamp: s.Timestamp, Records: s.Records}
}

// Filter pages through the archive, newest first.
type Filter struct {
	Limit  int // default 50, max 500
	Offset int
}

// ListResult is one page of archive summaries.
type ListResult struct {
	Batches []Summary `json:"batches"`
	Total   int       `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}

// Archive stores report batches in the report_batches and report_records
// tables.
//
// Thread Safety: safe for concurrent use; SQLite serialises writers.
type Archive struct {
	db      *sql.DB
	crateID string
	retain  int
	now     func() time.Time
}

// NewArchive returns an archive for crateID. retain > 0 keeps only that
// many of the newest batches after every Publish.
func NewArchive(db *sql.DB, crateID string, retain int) *Archive {
	return &Archive{db: db, crateID: crateID, retain: retain, now: time.Now}
}

// Publish implements Publisher by storing the batch in one transaction.
func (a *Archive) Publish(ctx context.Context, batch thermal.Batch) error {
	if _, err := a.Store(ctx, batch); err != nil {
		return err
	}
	if a.retain > 0 {
		if _, err := a.Prune(ctx, a.retain); err != nil {
			return err
		}
	}
	return nil
}

// Store inserts batch and returns its new ID.
func (a *Archive) Store(ctx context.Context, batch thermal.Batch) (string, error) {
	id := uuid.NewString()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting archive transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO report_batches (id, crate_id, taken_at, record_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, a.crateID, formatArchiveTime(batch.Timestamp), len(batch.Records), formatArchiveTime(a.now()),
	); err != nil {
		return "", fmt.Errorf("inserting report batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_records (batch_id, position, address, name, kind, scaling_factor,
		 offset_value, raw_value, temperature, min_temperature, max_temperature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range batch.Records {
		if _, err := stmt.ExecContext(ctx,
			id, i, int(rec.Address), rec.Name, rec.Kind.Code(), rec.ScalingFactor,
			rec.Offset, rec.RawValue, rec.Temperature, rec.MinTemperature, rec.MaxTemperature,
		); err != nil {
			return "", fmt.Errorf("inserting record for sensor %d: %w", rec.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing report batch: %w", err)
	}
	return id, nil
}

// List returns archived batches, newest first.
func (a *Archive) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var total int
	if err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM report_batches WHERE crate_id = ?", a.crateID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting report batches: %w", err)
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, crate_id, taken_at, record_count, created_at FROM report_batches
		 WHERE crate_id = ? ORDER BY taken_at DESC, created_at DESC LIMIT ? OFFSET ?`,
		a.crateID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("querying report batches: %w", err)
	}
	defer rows.Close()

	result := &ListResult{Batches: []Summary{}, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result.Batches = append(result.Batches, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report batches: %w", err)
	}
	return result, nil
}

// Get returns one archived batch with its records.
func (a *Archive) Get(ctx context.Context, id string) (*StoredBatch, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT id, crate_id, taken_at, record_count, created_at FROM report_batches
		 WHERE id = ? AND crate_id = ?`, id, a.crateID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT address, name, kind, scaling_factor, offset_value, raw_value,
		 temperature, min_temperature, max_temperature
		 FROM report_records WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying report records: %w", err)
	}
	defer rows.Close()

	stored := &StoredBatch{Summary: summary, Records: []thermal.Record{}}
	for rows.Next() {
		var (
			rec     thermal.Record
			address int
			kind    string
		)
		if err := rows.Scan(&address, &rec.Name, &kind, &rec.ScalingFactor, &rec.Offset,
			&rec.RawValue, &rec.Temperature, &rec.MinTemperature, &rec.MaxTemperature); err != nil {
			return nil, fmt.Errorf("scanning report record: %w", err)
		}
		rec.Address = uint16(address) //nolint:gosec // stored from a uint16
		if rec.Kind, err = thermal.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("report record for sensor %d: %w", address, err)
		}
		stored.Records = append(stored.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report records: %w", err)
	}
	return stored, nil
}

// Prune deletes all but the keep newest batches and returns how many
// batches were removed. Records go with their batch.
func (a *Archive) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM report_batches WHERE crate_id = ? AND id NOT IN (
			SELECT id FROM report_batches WHERE crate_id = ?
			ORDER BY taken_at DESC, created_at DESC LIMIT ?)`,
		a.crateID, a.crateID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning report batches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning report batches: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (Summary, error) {
	var (
		s                  Summary
		takenAt, createdAt string
	)
	if err := row.Scan(&s.ID, &s.Crate, &takenAt, &s.RecordCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("scanning report batch: %w", err)
	}

	var err error
	if s.Timestamp, err = time.Parse(archiveTimeLayout, takenAt); err != nil {
		return Summary{}, fmt.Errorf("parsing batch time %q: %w", takenAt, err)
	}
	if s.CreatedAt, err = time.Parse(archiveTimeLayout, createdAt); err != nil {
		return Summary{}, fmt.Errorf("parsing creation time %q: %w", createdAt, err)
	}
	return s, nil
}

func formatArchiveTime(t time.Time) string {
	return t.UTC().Format(archiveTimeLayout)
}
