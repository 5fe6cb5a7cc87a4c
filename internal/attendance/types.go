// Package attendance defines the domain types shared by the verification
// engine: populations, people, enrolled templates, probes and outcomes.
package attendance

import "time"

// Population is the disjoint identity space a probe is matched within.
// Students and teachers are never matched against each other.
type Population string

// Populations known to the engine.
const (
	PopulationStudent Population = "student"
	PopulationTeacher Population = "teacher"
)

// Valid reports whether p is a known population.
func (p Population) Valid() bool {
	return p == PopulationStudent || p == PopulationTeacher
}

// Direction of an attendance event.
type Direction string

// Directions supported by the engine.
const (
	DirectionCheckIn  Direction = "check_in"
	DirectionCheckOut Direction = "check_out"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionCheckIn || d == DirectionCheckOut
}

// Status is the time classification of an attendance event.
type Status string

// Statuses produced by the policy evaluator. StatusAbsent is never emitted by
// the engine itself; it exists so ledger rows written by end-of-day jobs share
// the same enum.
const (
	StatusPresent   Status = "present"
	StatusLate      Status = "late"
	StatusLeftEarly Status = "left_early"
	StatusAbsent    Status = "absent"
)

// Method records how an identity was verified.
type Method string

// Verification methods.
const (
	MethodCode      Method = "code"
	MethodBiometric Method = "biometric"
	MethodManual    Method = "manual"
)

// Person is a roster entry. Owned by the roster store; the engine only reads
// snapshots of it.
type Person struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Population Population `json:"population"`
}

// Template is an enrolled face descriptor for a person. One person may hold
// several templates (different poses/captures). Descriptor length is constant
// within a population; mismatched templates are skipped by the matcher, never
// fatal.
type Template struct {
	ID         int64      `json:"id"`
	PersonID   int64      `json:"person_id"`
	Population Population `json:"population"`
	Descriptor []float32  `json:"descriptor"`
}

// ProbeKind distinguishes scanned-code probes from live biometric probes.
type ProbeKind string

// Probe kinds.
const (
	ProbeCode      ProbeKind = "code"
	ProbeBiometric ProbeKind = "biometric"
)

// Probe is one decoded scan attempt. Ephemeral: produced per attempt and
// discarded after resolution.
type Probe struct {
	Kind       ProbeKind `json:"kind"`
	Payload    string    `json:"payload,omitempty"`
	Descriptor []float32 `json:"descriptor,omitempty"`
}

// Method returns the verification method a probe resolves with.
func (p *Probe) Method() Method {
	if p.Kind == ProbeCode {
		return MethodCode
	}
	return MethodBiometric
}

// MatchResult is the outcome of matching a probe descriptor against a
// template set. Derived value, never persisted.
type MatchResult struct {
	Matched    bool    `json:"matched"`
	PersonID   int64   `json:"person_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
	// Compared counts templates actually scored (dimension mismatches are
	// excluded). Zero means there was nothing to match against.
	Compared int `json:"-"`
}

// Outcome is a single verified attendance event, produced at most once per
// (person, date, direction). The ledger enforces uniqueness as a backstop.
type Outcome struct {
	ID             string     `json:"id"`
	PersonID       int64      `json:"person_id"`
	Population     Population `json:"population"`
	Date           string     `json:"date"` // YYYY-MM-DD in school-local time
	Direction      Direction  `json:"direction"`
	Timestamp      time.Time  `json:"timestamp"`
	Status         Status     `json:"status"`
	Method         Method     `json:"method"`
	DistanceMeters *float64   `json:"distance_meters,omitempty"`
}

// DateFormat is the layout used for Outcome.Date.
const DateFormat = "2006-01-02"

// DateOf formats a timestamp as a ledger date key.
func DateOf(t time.Time) string {
	return t.Format(DateFormat)
}
