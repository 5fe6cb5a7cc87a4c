package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/store"
)

// RosterRepository provides PostgreSQL-backed roster lookups.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a new PostgreSQL roster repository.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// Person looks up one person by id. Returns (nil, nil) when the id is not on
// the roster.
func (r *RosterRepository) Person(ctx context.Context, population attendance.Population, id int64) (*attendance.Person, error) {
	var p attendance.Person
	err := r.pool.QueryRow(
		ctx,
		"SELECT id, name, population FROM people WHERE population = $1 AND id = $2",
		string(population), id,
	).Scan(&p.ID, &p.Name, &p.Population)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query person: %w", err)
	}
	return &p, nil
}

// List returns every person in a population ordered by name.
func (r *RosterRepository) List(ctx context.Context, population attendance.Population) ([]attendance.Person, error) {
	rows, err := r.pool.Query(
		ctx,
		"SELECT id, name, population FROM people WHERE population = $1 ORDER BY name, id",
		string(population),
	)
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// SearchByName matches names case- and diacritic-insensitively. Input is
// normalized in Go; the database side mirrors the same normalization with
// LOWER + unaccent + REPLACE so that "jan-novak" matches "Jan Novák".
func (r *RosterRepository) SearchByName(ctx context.Context, population attendance.Population, name string) ([]attendance.Person, error) {
	normalized := store.NormalizeName(name)

	query := `
		SELECT id, name, population
		FROM people
		WHERE population = $1
		  AND LOWER(REPLACE(unaccent(name), '-', ' ')) LIKE '%' || $2 || '%'
		ORDER BY name, id
	`

	rows, err := r.pool.Query(ctx, query, string(population), normalized)
	if err != nil {
		return nil, fmt.Errorf("query people by name: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// SavePerson upserts a roster entry. Used by the roster import command.
func (r *RosterRepository) SavePerson(ctx context.Context, p attendance.Person) error {
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO people (id, population, name) VALUES ($1, $2, $3)
		 ON CONFLICT (population, id) DO UPDATE SET name = EXCLUDED.name`,
		p.ID, string(p.Population), p.Name,
	)
	if err != nil {
		return fmt.Errorf("save person: %w", err)
	}
	return nil
}

func scanPeople(rows *sql.Rows) ([]attendance.Person, error) {
	var people []attendance.Person
	for rows.Next() {
		var p attendance.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Population); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return people, nil
}
