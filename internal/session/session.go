// Package session implements the verification scanning loop: it owns the
// capture cadence, resolves decoded probes through the matcher and policy
// evaluator, checks the ledger for duplicates and re-arms after a cooldown.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/geo"
	"github.com/ssematimba/gate-check/internal/matcher"
	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/store"
)

// State of a verification session.
type State string

// Session states. Resolving is entered at most once per decoded probe and is
// always followed by Cooldown, so a misread cannot spin faster than the
// cooldown dwell.
const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateResolving State = "resolving"
	StateCooldown  State = "cooldown"
	StateStopped   State = "stopped"
)

// Session-level errors. These are not attempt rejections: they tell the host
// a probe was not resolved at all.
var (
	// ErrCoolingDown is returned by Submit while the cooldown dwell is
	// active or another resolve is in flight; the probe is dropped.
	ErrCoolingDown = errors.New("session cooling down")
	// ErrStopped is returned once the session has been stopped.
	ErrStopped = errors.New("session stopped")
)

// Frame is one captured camera frame. The engine never inspects the bytes;
// decoding is external.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// FrameSource is the capture device. The session owns it exclusively for its
// lifetime and closes it on every exit path. Next blocks until the next frame
// is available; only the freshest frame should be returned, stale frames are
// dropped at the source, never queued.
type FrameSource interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// Decoder turns a frame into a probe. A (nil, nil) return means nothing
// decodable was in frame, which is the common case.
type Decoder interface {
	Decode(ctx context.Context, frame *Frame) (*attendance.Probe, error)
}

// Locator obtains the device position, one shot per geofenced check-in.
type Locator interface {
	Current(ctx context.Context) (*geo.Point, error)
}

// EventType distinguishes accepted outcomes from rejections.
type EventType string

// Event types.
const (
	EventAccepted EventType = "accepted"
	EventRejected EventType = "rejected"
)

// Event is the single outcome emitted per resolved probe.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`

	// Outcome is set on accepted events.
	Outcome *attendance.Outcome `json:"outcome,omitempty"`

	// Reason is set on rejected events.
	Reason attendance.RejectReason `json:"reason,omitempty"`

	// Person is a hint for the operator when the identity resolved but the
	// attempt was still rejected (policy veto, duplicate, geofence).
	Person         *attendance.Person `json:"person,omitempty"`
	Confidence     *float64           `json:"confidence,omitempty"`
	DistanceMeters *float64           `json:"distance_meters,omitempty"`
}

// Options configure one session.
type Options struct {
	Population attendance.Population
	Direction  attendance.Direction
	// Threshold and MaxDistance tune the biometric matcher; zero values fall
	// back to the matcher defaults.
	Threshold   float64
	MaxDistance float64
	// Cooldown is the dwell after every resolution attempt. Default 2500ms.
	Cooldown time.Duration
	// LocationTimeout bounds the one-shot geolocation query. Default 10s.
	LocationTimeout time.Duration
}

// Default engine timings.
const (
	DefaultCooldown        = 2500 * time.Millisecond
	DefaultLocationTimeout = 10 * time.Second
)

func (o *Options) applyDefaults() {
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.LocationTimeout <= 0 {
		o.LocationTimeout = DefaultLocationTimeout
	}
}

// Deps are the external collaborators a session borrows. All of them are
// read per attempt; the session never caches their data across attempts.
type Deps struct {
	Roster    store.RosterReader
	Templates store.TemplateReader
	Ledger    store.Ledger
	Evaluator *policy.Evaluator
	// Locator may be nil; geofenced check-ins then fail with
	// location_unavailable.
	Locator Locator
	// OnEvent receives every outcome event. May be nil.
	OnEvent func(Event)
}

// Session is a single kiosk scanning session.
type Session struct {
	id   string
	opts Options
	deps Deps

	mu            sync.Mutex
	state         State
	cooldownUntil time.Time
	stopCh        chan struct{}
	stopOnce      sync.Once

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a session in the Idle state.
func New(deps Deps, opts Options) (*Session, error) {
	if !opts.Population.Valid() {
		return nil, fmt.Errorf("invalid population %q", opts.Population)
	}
	if !opts.Direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q", opts.Direction)
	}
	if deps.Roster == nil || deps.Templates == nil || deps.Ledger == nil || deps.Evaluator == nil {
		return nil, errors.New("session requires roster, templates, ledger and evaluator")
	}
	opts.applyDefaults()

	return &Session{
		id:     uuid.NewString(),
		opts:   opts,
		deps:   deps,
		state:  StateIdle,
		stopCh: make(chan struct{}),
		now:    time.Now,
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Population returns the population this session scans.
func (s *Session) Population() attendance.Population { return s.opts.Population }

// Direction returns the direction this session records.
func (s *Session) Direction() attendance.Direction { return s.opts.Direction }

// State returns the current state. An expired cooldown reads as Scanning.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCooldown && !s.now().Before(s.cooldownUntil) {
		s.state = StateScanning
	}
	return s.state
}

// Stop terminates the session. It is safe to call more than once and does
// not wait for an in-flight resolve: a ledger commit already underway is
// allowed to finish, since a completed physical check-in should not be
// un-recorded because the operator closed the kiosk.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}

// Run drives the cooperative capture loop until the context is cancelled or
// the session is stopped. The frame source is closed on every exit path.
// A nil source or decoder means the camera could never be acquired; the
// session stays out of Scanning and the error is fatal.
func (s *Session) Run(ctx context.Context, src FrameSource, dec Decoder) error {
	if src == nil || dec == nil {
		return attendance.ErrCameraUnavailable
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		if err := src.Close(); err != nil {
			log.Printf("session %s: closing capture source: %v", s.id, err)
		}
		return ErrStopped
	}
	s.state = StateScanning
	s.mu.Unlock()

	// Stop must abort an in-flight capture wait, not just the next loop
	// iteration.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("session %s: closing capture source: %v", s.id, err)
		}
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
	}()

	for {
		select {
		case <-runCtx.Done():
			return nil
		default:
		}

		frame, err := src.Next(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			// Losing the capture device mid-session is fatal, same as never
			// acquiring it.
			return fmt.Errorf("%w: %v", attendance.ErrCameraUnavailable, err)
		}
		if frame == nil {
			continue
		}

		// Frames keep arriving during cooldown but are dropped unresolved,
		// so a subject still in frame cannot produce rapid-fire attempts.
		if s.coolingDown() {
			continue
		}

		probe, err := dec.Decode(runCtx, frame)
		if err != nil {
			log.Printf("session %s: decode: %v", s.id, err)
			continue
		}
		if probe == nil {
			continue
		}

		s.mu.Lock()
		s.state = StateResolving
		s.mu.Unlock()

		// Resolve fully, including the blocking ledger call, before pulling
		// the next frame: no second outcome can be emitted for a subject
		// still in frame before cooldown engages. The parent context is used
		// on purpose so an in-flight commit survives Stop.
		ev := s.resolve(ctx, probe)
		s.finishResolve()
		s.emit(ev)
	}
}

// Submit resolves a single decoded probe on behalf of a host that owns the
// capture loop itself (the kiosk web UI). It honors the same state machine
// as Run: probes during cooldown or an in-flight resolve are dropped with
// ErrCoolingDown.
func (s *Session) Submit(ctx context.Context, probe *attendance.Probe) (*Event, error) {
	if probe == nil {
		return nil, errors.New("nil probe")
	}

	s.mu.Lock()
	switch s.state {
	case StateStopped:
		s.mu.Unlock()
		return nil, ErrStopped
	case StateResolving:
		s.mu.Unlock()
		return nil, ErrCoolingDown
	case StateCooldown:
		if s.now().Before(s.cooldownUntil) {
			s.mu.Unlock()
			return nil, ErrCoolingDown
		}
	}
	s.state = StateResolving
	s.mu.Unlock()

	ev := s.resolve(ctx, probe)
	s.finishResolve()
	s.emit(ev)
	return &ev, nil
}

func (s *Session) coolingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCooldown && s.now().Before(s.cooldownUntil)
}

func (s *Session) finishResolve() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.state = StateCooldown
	s.cooldownUntil = s.now().Add(s.opts.Cooldown)
}

func (s *Session) emit(ev Event) {
	if s.deps.OnEvent != nil {
		s.deps.OnEvent(ev)
	}
}

// resolve runs the full pipeline for one probe and returns exactly one event.
func (s *Session) resolve(ctx context.Context, probe *attendance.Probe) Event {
	now := s.now()
	ev := Event{
		ID:        uuid.NewString(),
		SessionID: s.id,
		At:        now,
	}

	person, match, err := s.identify(ctx, probe)
	if err != nil {
		return s.reject(ev, err)
	}
	ev.Person = person
	if match.Matched {
		c := match.Confidence
		ev.Confidence = &c
	}

	if err := s.deps.Evaluator.CheckMethod(probe.Method(), s.opts.Population); err != nil {
		return s.reject(ev, err)
	}

	var loc *geo.Point
	if s.deps.Evaluator.GeofenceEnabled(s.opts.Direction) {
		loc, err = s.currentLocation(ctx)
		if err != nil {
			return s.reject(ev, err)
		}
	}

	decision, err := s.deps.Evaluator.Evaluate(s.opts.Direction, now, loc)
	ev.DistanceMeters = decision.DistanceMeters
	if err != nil {
		return s.reject(ev, err)
	}

	date := attendance.DateOf(now)
	exists, err := s.deps.Ledger.HasRecord(ctx, s.opts.Population, person.ID, date, s.opts.Direction)
	if err != nil {
		return s.reject(ev, fmt.Errorf("ledger pre-check: %w", err))
	}
	if exists {
		return s.reject(ev, attendance.ErrDuplicateRecord)
	}

	outcome := &attendance.Outcome{
		ID:             uuid.NewString(),
		PersonID:       person.ID,
		Population:     s.opts.Population,
		Date:           date,
		Direction:      s.opts.Direction,
		Timestamp:      now,
		Status:         decision.Status,
		Method:         probe.Method(),
		DistanceMeters: decision.DistanceMeters,
	}

	// The pre-check above is only an optimization: two kiosks can race past
	// it in the same instant. The store's uniqueness constraint is the source
	// of truth and its conflict reads the same as a duplicate.
	if err := s.deps.Ledger.Commit(ctx, outcome); err != nil {
		return s.reject(ev, err)
	}

	ev.Type = EventAccepted
	ev.Outcome = outcome
	log.Printf("session %s: accepted %s %s for person %d (%s, %s)",
		s.id, s.opts.Direction, outcome.Status, person.ID, s.opts.Population, outcome.Method)
	return ev
}

// identify resolves a probe to a roster person.
func (s *Session) identify(ctx context.Context, probe *attendance.Probe) (*attendance.Person, attendance.MatchResult, error) {
	var result attendance.MatchResult
	var personID int64

	switch probe.Kind {
	case attendance.ProbeCode:
		id, err := matcher.ParsePayload(probe.Payload)
		if err != nil {
			return nil, result, err
		}
		personID = id

	case attendance.ProbeBiometric:
		// Fresh snapshot per attempt; templates may change between attempts.
		templates, err := s.deps.Templates.ListTemplates(ctx, s.opts.Population)
		if err != nil {
			return nil, result, fmt.Errorf("list templates: %w", err)
		}
		result = matcher.Match(probe.Descriptor, templates, matcher.Options{
			Threshold:   s.opts.Threshold,
			MaxDistance: s.opts.MaxDistance,
		})
		if !result.Matched {
			if result.Compared == 0 {
				return nil, result, attendance.ErrNoMatch
			}
			return nil, result, attendance.ErrLowConfidence
		}
		personID = result.PersonID

	default:
		return nil, result, attendance.ErrMalformedPayload
	}

	person, err := s.deps.Roster.Person(ctx, s.opts.Population, personID)
	if err != nil {
		return nil, result, fmt.Errorf("roster lookup: %w", err)
	}
	if person == nil {
		return nil, result, attendance.ErrPersonNotFound
	}
	return person, result, nil
}

// currentLocation runs the one-shot geolocation query with its timeout.
func (s *Session) currentLocation(ctx context.Context) (*geo.Point, error) {
	if s.deps.Locator == nil {
		return nil, attendance.ErrLocationUnavailable
	}

	lctx, cancel := context.WithTimeout(ctx, s.opts.LocationTimeout)
	defer cancel()

	loc, err := s.deps.Locator.Current(lctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", attendance.ErrLocationUnavailable, err)
	}
	return loc, nil
}

// reject finalizes a rejection event with its reason. Every rejection is
// logged for audit: who (when known), why, when.
func (s *Session) reject(ev Event, err error) Event {
	ev.Type = EventRejected
	ev.Reason = attendance.ReasonForError(err)

	if ev.Reason == attendance.ReasonStorageError {
		log.Printf("session %s: storage error during resolve: %v", s.id, err)
	} else if ev.Person != nil {
		log.Printf("session %s: rejected person %d (%s): %s", s.id, ev.Person.ID, s.opts.Population, ev.Reason)
	} else {
		log.Printf("session %s: rejected: %s", s.id, ev.Reason)
	}
	return ev
}
