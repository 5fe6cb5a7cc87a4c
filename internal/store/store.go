// Package store defines the persistence boundary the verification engine
// consumes: roster lookups, enrolled-template snapshots and the attendance
// ledger. Implementations live in the postgres, mariadb and mock
// subpackages.
package store

import (
	"context"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// RosterReader resolves people within one population. Person returns
// (nil, nil) for an unknown id; errors are reserved for store failures.
type RosterReader interface {
	Person(ctx context.Context, population attendance.Population, id int64) (*attendance.Person, error)
	List(ctx context.Context, population attendance.Population) ([]attendance.Person, error)
	// SearchByName matches case- and diacritic-insensitively; operators use
	// it when a scan keeps failing.
	SearchByName(ctx context.Context, population attendance.Population, name string) ([]attendance.Person, error)
}

// TemplateReader serves enrolled-template snapshots. The engine reads one
// snapshot per verification attempt and never caches across attempts.
// Implementations must only return templates of the requested population.
type TemplateReader interface {
	ListTemplates(ctx context.Context, population attendance.Population) ([]attendance.Template, error)
}

// TemplateWriter stores enrolled templates. Used by the bulk import command;
// the enrollment capture flow itself lives outside this system.
type TemplateWriter interface {
	SaveTemplate(ctx context.Context, tpl attendance.Template) (int64, error)
	DeleteTemplates(ctx context.Context, population attendance.Population, personID int64) error
}

// Ledger is the attendance record gateway. Commit returns
// attendance.ErrDuplicateRecord when the uniqueness constraint on
// (population, person, date, direction) fires; the constraint is the source
// of truth and HasRecord is only a pre-check optimization.
type Ledger interface {
	HasRecord(ctx context.Context, population attendance.Population, personID int64, date string, direction attendance.Direction) (bool, error)
	Commit(ctx context.Context, outcome *attendance.Outcome) error
	// ListDay returns all outcomes for a population on one date, for the
	// kiosk day view.
	ListDay(ctx context.Context, population attendance.Population, date string) ([]attendance.Outcome, error)
}
