// Package policy classifies attendance events against school hours and gates
// check-ins on the school geofence.
package policy

import (
	"fmt"
	"time"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/geo"
)

// DayTime is a time of day in minutes since midnight, school-local.
type DayTime int

// ParseDayTime parses an "HH:MM" string.
func ParseDayTime(s string) (DayTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse day time %q: %w", s, err)
	}
	return DayTime(t.Hour()*60 + t.Minute()), nil
}

// String formats the time as "HH:MM".
func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(d)/60, int(d)%60)
}

// minutesOfDay converts a wall-clock timestamp to minutes since midnight.
func minutesOfDay(t time.Time) DayTime {
	return DayTime(t.Hour()*60 + t.Minute())
}

// Schedule is a school's time policy.
type Schedule struct {
	Start                DayTime
	LateThresholdMinutes int
	End                  DayTime
	// RequireBiometricFor lists populations for which a code scan is refused
	// even when the identity resolves.
	RequireBiometricFor []attendance.Population
}

// Geofence is the circular boundary check-ins must happen inside.
type Geofence struct {
	Center       geo.Point
	RadiusMeters float64
}

// Verdict is the geofence result for one attempt.
type Verdict string

// Geofence verdicts. VerdictSkipped means geofencing was not evaluated
// (disabled, or a check-out).
const (
	VerdictInside  Verdict = "inside"
	VerdictOutside Verdict = "outside"
	VerdictSkipped Verdict = "skipped"
)

// Decision is the evaluator's output for one attempt.
type Decision struct {
	Status          attendance.Status
	GeofenceVerdict Verdict
	// DistanceMeters is set whenever the geofence was evaluated, including on
	// rejection, so the operator can be shown how far away the device was.
	DistanceMeters *float64
}

// Evaluator applies a schedule and optional geofence. Configuration is
// externally owned; the evaluator holds a read-only snapshot.
type Evaluator struct {
	schedule Schedule
	geofence *Geofence
}

// NewEvaluator creates an evaluator. A nil geofence disables location gating.
func NewEvaluator(schedule Schedule, geofence *Geofence) *Evaluator {
	return &Evaluator{schedule: schedule, geofence: geofence}
}

// ClassifyTime classifies a timestamp for the given direction.
//
// Check-in is present up to and including start + late threshold, late for
// any time after that; the engine never forbids late-day check-ins. Check-out
// before the end of school is left-early, at or after it is a normal
// checkout.
func (e *Evaluator) ClassifyTime(direction attendance.Direction, now time.Time) attendance.Status {
	m := minutesOfDay(now)

	if direction == attendance.DirectionCheckOut {
		if m < e.schedule.End {
			return attendance.StatusLeftEarly
		}
		return attendance.StatusPresent
	}

	if m <= e.schedule.Start+DayTime(e.schedule.LateThresholdMinutes) {
		return attendance.StatusPresent
	}
	return attendance.StatusLate
}

// RequiresBiometric reports whether code scans are refused for a population.
func (e *Evaluator) RequiresBiometric(population attendance.Population) bool {
	for _, p := range e.schedule.RequireBiometricFor {
		if p == population {
			return true
		}
	}
	return false
}

// CheckMethod vetoes code-method verification for populations that require
// biometric proof. Manual operator records are exempt.
func (e *Evaluator) CheckMethod(method attendance.Method, population attendance.Population) error {
	if method == attendance.MethodCode && e.RequiresBiometric(population) {
		return attendance.ErrBiometricRequired
	}
	return nil
}

// GeofenceEnabled reports whether the geofence applies to a direction.
// Only check-ins are location-gated.
func (e *Evaluator) GeofenceEnabled(direction attendance.Direction) bool {
	return e.geofence != nil && direction == attendance.DirectionCheckIn
}

// Evaluate classifies the attempt and, for geofenced check-ins, verifies the
// device location. The returned Decision is meaningful even on error: an
// outside-geofence rejection still carries the measured distance.
//
// A nil location on a geofenced check-in means the device could not obtain
// one; that is ErrLocationUnavailable, deliberately distinct from being
// outside the fence.
func (e *Evaluator) Evaluate(direction attendance.Direction, now time.Time, location *geo.Point) (Decision, error) {
	decision := Decision{
		Status:          e.ClassifyTime(direction, now),
		GeofenceVerdict: VerdictSkipped,
	}

	if !e.GeofenceEnabled(direction) {
		return decision, nil
	}

	if location == nil {
		return decision, attendance.ErrLocationUnavailable
	}

	d, err := geo.Distance(*location, e.geofence.Center)
	if err != nil {
		// A garbage coordinate from the device is indistinguishable from no
		// coordinate at all.
		return decision, fmt.Errorf("%w: %v", attendance.ErrLocationUnavailable, err)
	}

	decision.DistanceMeters = &d
	if d > e.geofence.RadiusMeters {
		decision.GeofenceVerdict = VerdictOutside
		return decision, attendance.ErrOutsideGeofence
	}

	decision.GeofenceVerdict = VerdictInside
	return decision, nil
}
