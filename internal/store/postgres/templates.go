package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// TemplateRepository provides PostgreSQL-backed storage for enrolled face
// descriptors using the pgvector column type.
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a new PostgreSQL template repository.
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// ListTemplates returns every enrolled template of one population. The
// engine reads a fresh snapshot per verification attempt.
func (r *TemplateRepository) ListTemplates(ctx context.Context, population attendance.Population) ([]attendance.Template, error) {
	rows, err := r.pool.Query(
		ctx,
		"SELECT id, person_id, population, descriptor FROM templates WHERE population = $1 ORDER BY id",
		string(population),
	)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	return scanTemplates(rows)
}

// SaveTemplate stores one descriptor and returns its id.
func (r *TemplateRepository) SaveTemplate(ctx context.Context, tpl attendance.Template) (int64, error) {
	vec := pgvector.NewVector(tpl.Descriptor)

	var id int64
	err := r.pool.QueryRow(
		ctx,
		"INSERT INTO templates (person_id, population, descriptor) VALUES ($1, $2, $3) RETURNING id",
		tpl.PersonID, string(tpl.Population), vec,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save template: %w", err)
	}
	return id, nil
}

// DeleteTemplates removes all descriptors enrolled for one person.
func (r *TemplateRepository) DeleteTemplates(ctx context.Context, population attendance.Population, personID int64) error {
	_, err := r.pool.Exec(
		ctx,
		"DELETE FROM templates WHERE population = $1 AND person_id = $2",
		string(population), personID,
	)
	if err != nil {
		return fmt.Errorf("delete templates: %w", err)
	}
	return nil
}

func scanTemplates(rows *sql.Rows) ([]attendance.Template, error) {
	var templates []attendance.Template
	for rows.Next() {
		var tpl attendance.Template
		var vec pgvector.Vector
		if err := rows.Scan(&tpl.ID, &tpl.PersonID, &tpl.Population, &vec); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpl.Descriptor = vec.Slice()
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}
