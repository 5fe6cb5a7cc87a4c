package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/store"
)

// RecordManual writes an operator-entered attendance record. It goes through
// the same time classification and ledger idempotency as a scan, but skips
// the geofence and the biometric-required veto: a manual record is already an
// operator override.
func RecordManual(
	ctx context.Context,
	eval *policy.Evaluator,
	roster store.RosterReader,
	ledger store.Ledger,
	population attendance.Population,
	personID int64,
	direction attendance.Direction,
	now time.Time,
) (*attendance.Outcome, error) {
	if !population.Valid() {
		return nil, fmt.Errorf("invalid population %q", population)
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	person, err := roster.Person(ctx, population, personID)
	if err != nil {
		return nil, fmt.Errorf("roster lookup: %w", err)
	}
	if person == nil {
		return nil, attendance.ErrPersonNotFound
	}

	date := attendance.DateOf(now)
	exists, err := ledger.HasRecord(ctx, population, personID, date, direction)
	if err != nil {
		return nil, fmt.Errorf("ledger pre-check: %w", err)
	}
	if exists {
		return nil, attendance.ErrDuplicateRecord
	}

	outcome := &attendance.Outcome{
		ID:         uuid.NewString(),
		PersonID:   personID,
		Population: population,
		Date:       date,
		Direction:  direction,
		Timestamp:  now,
		Status:     eval.ClassifyTime(direction, now),
		Method:     attendance.MethodManual,
	}

	if err := ledger.Commit(ctx, outcome); err != nil {
		return nil, err
	}

	log.Printf("manual record: %s %s for person %d (%s)", direction, outcome.Status, personID, population)
	return outcome, nil
}
