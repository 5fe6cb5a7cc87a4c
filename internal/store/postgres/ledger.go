package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// LedgerRepository provides the PostgreSQL-backed attendance ledger. The
// attendance_once_per_day unique constraint is the at-most-once guarantee;
// HasRecord exists only to reject duplicates before work is done.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// HasRecord reports whether a record already exists for the person, date and
// direction.
func (r *LedgerRepository) HasRecord(ctx context.Context, population attendance.Population, personID int64, date string, direction attendance.Direction) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS(
			SELECT 1 FROM attendance
			WHERE population = $1 AND person_id = $2 AND date = $3 AND direction = $4
		)`,
		string(population), personID, date, string(direction),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// Commit inserts one attendance record. Returns attendance.ErrDuplicateRecord
// when the unique constraint fires, which happens when two kiosks race on the
// same person.
func (r *LedgerRepository) Commit(ctx context.Context, outcome *attendance.Outcome) error {
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO attendance (id, person_id, population, date, direction, recorded_at, status, method, distance_meters)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		outcome.ID, outcome.PersonID, string(outcome.Population), outcome.Date,
		string(outcome.Direction), outcome.Timestamp, string(outcome.Status),
		string(outcome.Method), outcome.DistanceMeters,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return attendance.ErrDuplicateRecord
		}
		return fmt.Errorf("commit attendance record: %w", err)
	}
	return nil
}

// ListDay returns all records for a population on one date ordered by time.
func (r *LedgerRepository) ListDay(ctx context.Context, population attendance.Population, date string) ([]attendance.Outcome, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, person_id, population, TO_CHAR(date, 'YYYY-MM-DD'), direction, recorded_at, status, method, distance_meters
		 FROM attendance
		 WHERE population = $1 AND date = $2
		 ORDER BY recorded_at, id`,
		string(population), date,
	)
	if err != nil {
		return nil, fmt.Errorf("query attendance day: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

func scanOutcomes(rows *sql.Rows) ([]attendance.Outcome, error) {
	var outcomes []attendance.Outcome
	for rows.Next() {
		var o attendance.Outcome
		var distance sql.NullFloat64
		if err := rows.Scan(
			&o.ID, &o.PersonID, &o.Population, &o.Date, &o.Direction,
			&o.Timestamp, &o.Status, &o.Method, &distance,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		if distance.Valid {
			d := distance.Float64
			o.DistanceMeters = &d
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return outcomes, nil
}
