// Package mariadb adapts the attendance ledger onto the school's existing
// MariaDB administration database, for deployments that keep attendance rows
// in the legacy schema instead of PostgreSQL.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the attendance table in the legacy database if it is
// missing. The school-administration schema owns every other table; this is
// the only one the engine writes.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gate_attendance (
			id CHAR(36) NOT NULL PRIMARY KEY,
			person_id BIGINT NOT NULL,
			population VARCHAR(16) NOT NULL,
			date DATE NOT NULL,
			direction VARCHAR(16) NOT NULL,
			recorded_at DATETIME NOT NULL,
			status VARCHAR(16) NOT NULL,
			method VARCHAR(16) NOT NULL,
			distance_meters DOUBLE NULL,
			UNIQUE KEY attendance_once_per_day (population, person_id, date, direction)
		)
	`)
	if err != nil {
		return fmt.Errorf("create attendance table: %w", err)
	}
	return nil
}
