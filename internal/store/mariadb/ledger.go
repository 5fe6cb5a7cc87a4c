package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// duplicateEntry is the MySQL error number for ER_DUP_ENTRY.
const duplicateEntry = 1062

// LedgerRepository implements the attendance ledger on the legacy MariaDB
// schema. The unique key on (population, person_id, date, direction) is the
// at-most-once guarantee, same as the PostgreSQL store.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a MariaDB-backed ledger.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// HasRecord reports whether a record already exists for the person, date and
// direction.
func (r *LedgerRepository) HasRecord(ctx context.Context, population attendance.Population, personID int64, date string, direction attendance.Direction) (bool, error) {
	var one int
	err := r.pool.db.QueryRowContext(
		ctx,
		"SELECT 1 FROM gate_attendance WHERE population = ? AND person_id = ? AND date = ? AND direction = ? LIMIT 1",
		string(population), personID, date, string(direction),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return true, nil
}

// Commit inserts one attendance record, mapping a duplicate-key error to
// attendance.ErrDuplicateRecord.
func (r *LedgerRepository) Commit(ctx context.Context, outcome *attendance.Outcome) error {
	_, err := r.pool.db.ExecContext(
		ctx,
		`INSERT INTO gate_attendance (id, person_id, population, date, direction, recorded_at, status, method, distance_meters)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.ID, outcome.PersonID, string(outcome.Population), outcome.Date,
		string(outcome.Direction), outcome.Timestamp, string(outcome.Status),
		string(outcome.Method), outcome.DistanceMeters,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateEntry {
			return attendance.ErrDuplicateRecord
		}
		return fmt.Errorf("commit attendance record: %w", err)
	}
	return nil
}

// ListDay returns all records for a population on one date ordered by time.
func (r *LedgerRepository) ListDay(ctx context.Context, population attendance.Population, date string) ([]attendance.Outcome, error) {
	rows, err := r.pool.db.QueryContext(
		ctx,
		`SELECT id, person_id, population, DATE_FORMAT(date, '%Y-%m-%d'), direction, recorded_at, status, method, distance_meters
		 FROM gate_attendance
		 WHERE population = ? AND date = ?
		 ORDER BY recorded_at, id`,
		string(population), date,
	)
	if err != nil {
		return nil, fmt.Errorf("query attendance day: %w", err)
	}
	defer rows.Close()

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
