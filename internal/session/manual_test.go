package session

import (
	"context"
	"errors"
	"testing"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/store/mock"
)

func TestRecordManual_Accepted(t *testing.T) {
	roster := mock.NewRoster()
	roster.AddPerson(attendance.Person{ID: 42, Name: "Okello James", Population: attendance.PopulationStudent})
	ledger := mock.NewLedger()
	eval := policy.NewEvaluator(testSchedule(), nil)

	outcome, err := RecordManual(context.Background(), eval, roster, ledger,
		attendance.PopulationStudent, 42, attendance.DirectionCheckIn, morningAt(8, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Method != attendance.MethodManual {
		t.Errorf("expected manual method, got %s", outcome.Method)
	}
	if outcome.Status != attendance.StatusLate {
		t.Errorf("expected late at 08:20, got %s", outcome.Status)
	}
	if ledger.Count() != 1 {
		t.Errorf("expected 1 record, got %d", ledger.Count())
	}
}

func TestRecordManual_Duplicate(t *testing.T) {
	roster := mock.NewRoster()
	roster.AddPerson(attendance.Person{ID: 42, Name: "Okello James", Population: attendance.PopulationStudent})
	ledger := mock.NewLedger()
	eval := policy.NewEvaluator(testSchedule(), nil)
	ctx := context.Background()

	if _, err := RecordManual(ctx, eval, roster, ledger,
		attendance.PopulationStudent, 42, attendance.DirectionCheckIn, morningAt(8, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := RecordManual(ctx, eval, roster, ledger,
		attendance.PopulationStudent, 42, attendance.DirectionCheckIn, morningAt(9, 0))
	if !errors.Is(err, attendance.ErrDuplicateRecord) {
		t.Errorf("expected ErrDuplicateRecord, got %v", err)
	}
}

func TestRecordManual_UnknownPerson(t *testing.T) {
	eval := policy.NewEvaluator(testSchedule(), nil)

	_, err := RecordManual(context.Background(), eval, mock.NewRoster(), mock.NewLedger(),
		attendance.PopulationStudent, 42, attendance.DirectionCheckIn, morningAt(8, 5))
	if !errors.Is(err, attendance.ErrPersonNotFound) {
		t.Errorf("expected ErrPersonNotFound, got %v", err)
	}
}

func TestRecordManual_SkipsBiometricVeto(t *testing.T) {
	// Manual records are an operator override; the biometric-required policy
	// does not apply.
	sched := testSchedule()
	sched.RequireBiometricFor = []attendance.Population{attendance.PopulationTeacher}
	eval := policy.NewEvaluator(sched, nil)

	roster := mock.NewRoster()
	roster.AddPerson(attendance.Person{ID: 7, Name: "Nakato Sarah", Population: attendance.PopulationTeacher})

	_, err := RecordManual(context.Background(), eval, roster, mock.NewLedger(),
		attendance.PopulationTeacher, 7, attendance.DirectionCheckIn, morningAt(8, 5))
	if err != nil {
		t.Errorf("expected manual record to bypass method veto, got %v", err)
	}
}
