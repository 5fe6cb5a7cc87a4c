// Package mock provides in-memory implementations of the store interfaces
// for tests and for running a kiosk without a database.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/store"
)

// Roster is an in-memory store.RosterReader.
type Roster struct {
	mu     sync.RWMutex
	people map[attendance.Population]map[int64]attendance.Person

	// Error injection
	PersonError error
	ListError   error
	SearchError error
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{people: make(map[attendance.Population]map[int64]attendance.Person)}
}

// AddPerson adds a person to the roster.
func (r *Roster) AddPerson(p attendance.Person) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.people[p.Population] == nil {
		r.people[p.Population] = make(map[int64]attendance.Person)
	}
	r.people[p.Population][p.ID] = p
}

// Person resolves an id within a population. Unknown ids return (nil, nil).
func (r *Roster) Person(ctx context.Context, population attendance.Population, id int64) (*attendance.Person, error) {
	if r.PersonError != nil {
		return nil, r.PersonError
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.people[population][id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// List returns all people in a population sorted by id.
func (r *Roster) List(ctx context.Context, population attendance.Population) ([]attendance.Person, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	people := make([]attendance.Person, 0, len(r.people[population]))
	for _, p := range r.people[population] {
		people = append(people, p)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
	return people, nil
}

// SearchByName matches normalized names by substring.
func (r *Roster) SearchByName(ctx context.Context, population attendance.Population, name string) ([]attendance.Person, error) {
	if r.SearchError != nil {
		return nil, r.SearchError
	}
	needle := store.NormalizeName(name)
	all, err := r.List(ctx, population)
	if err != nil {
		return nil, err
	}
	var matched []attendance.Person
	for _, p := range all {
		if strings.Contains(store.NormalizeName(p.Name), needle) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Templates is an in-memory store.TemplateReader and store.TemplateWriter.
type Templates struct {
	mu        sync.RWMutex
	nextID    int64
	templates map[attendance.Population][]attendance.Template

	// Error injection
	ListError error
	SaveError error
}

// NewTemplates creates an empty template store.
func NewTemplates() *Templates {
	return &Templates{templates: make(map[attendance.Population][]attendance.Template)}
}

// ListTemplates returns the population's templates. Population isolation is
// structural: templates are keyed by population.
func (t *Templates) ListTemplates(ctx context.Context, population attendance.Population) ([]attendance.Template, error) {
	if t.ListError != nil {
		return nil, t.ListError
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]attendance.Template, len(t.templates[population]))
	copy(out, t.templates[population])
	return out, nil
}

// SaveTemplate stores a template and returns its assigned id.
func (t *Templates) SaveTemplate(ctx context.Context, tpl attendance.Template) (int64, error) {
	if t.SaveError != nil {
		return 0, t.SaveError
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	tpl.ID = t.nextID
	t.templates[tpl.Population] = append(t.templates[tpl.Population], tpl)
	return tpl.ID, nil
}

// DeleteTemplates removes all templates for a person.
func (t *Templates) DeleteTemplates(ctx context.Context, population attendance.Population, personID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.templates[population][:0]
	for _, tpl := range t.templates[population] {
		if tpl.PersonID != personID {
			kept = append(kept, tpl)
		}
	}
	t.templates[population] = kept
	return nil
}

// Ledger is an in-memory store.Ledger enforcing the same uniqueness
// constraint as the SQL stores.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]attendance.Outcome

	// Error injection
	HasRecordError error
	CommitError    error
	ListDayError   error
	// CommitConflict forces the next Commit to report a uniqueness conflict
	// even when the pre-check saw nothing, simulating the two-kiosk race.
	CommitConflict bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]attendance.Outcome)}
}

func ledgerKey(population attendance.Population, personID int64, date string, direction attendance.Direction) string {
	return fmt.Sprintf("%s/%s/%s/%d", population, date, direction, personID)
}

// HasRecord reports whether a record exists for (population, person, date, direction).
func (l *Ledger) HasRecord(ctx context.Context, population attendance.Population, personID int64, date string, direction attendance.Direction) (bool, error) {
	if l.HasRecordError != nil {
		return false, l.HasRecordError
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[ledgerKey(population, personID, date, direction)]
	return ok, nil
}

// Commit stores an outcome, failing with attendance.ErrDuplicateRecord when
// one already exists for the same key.
func (l *Ledger) Commit(ctx context.Context, outcome *attendance.Outcome) error {
	if l.CommitError != nil {
		return l.CommitError
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.CommitConflict {
		l.CommitConflict = false
		return attendance.ErrDuplicateRecord
	}
	key := ledgerKey(outcome.Population, outcome.PersonID, outcome.Date, outcome.Direction)
	if _, ok := l.records[key]; ok {
		return attendance.ErrDuplicateRecord
	}
	l.records[key] = *outcome
	return nil
}

// ListDay returns outcomes for one population and date, ordered by timestamp.
func (l *Ledger) ListDay(ctx context.Context, population attendance.Population, date string) ([]attendance.Outcome, error) {
	if l.ListDayError != nil {
		return nil, l.ListDayError
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []attendance.Outcome
	for _, rec := range l.records {
		if rec.Population == population && rec.Date == date {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Count returns the number of committed records.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
