package attendance

import "errors"

// Sentinel errors for the verification pipeline. All of them except
// ErrCameraUnavailable are per-attempt: the session rejects the attempt and
// keeps scanning.
var (
	// ErrDimensionMismatch is returned when two descriptors have different
	// lengths. During a match pass the offending template is skipped.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

	// ErrInvalidCoordinate is returned for NaN or out-of-range latitudes and
	// longitudes.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrMalformedPayload is returned when a scanned code payload parses
	// neither as a structured identifier nor as a bare integer.
	ErrMalformedPayload = errors.New("malformed code payload")

	// ErrPersonNotFound is returned when a resolved id is missing from the
	// active roster snapshot.
	ErrPersonNotFound = errors.New("person not found in roster")

	// ErrNoMatch is returned when there were no templates to match against.
	ErrNoMatch = errors.New("no enrolled template matched")

	// ErrLowConfidence is returned when templates were compared but none
	// cleared the confidence threshold.
	ErrLowConfidence = errors.New("best match below confidence threshold")

	// ErrBiometricRequired is returned when a code-method verification is
	// attempted for a population that requires biometric verification.
	ErrBiometricRequired = errors.New("biometric verification required")

	// ErrLocationUnavailable is returned when the device location cannot be
	// obtained for a geofenced check-in.
	ErrLocationUnavailable = errors.New("device location unavailable")

	// ErrOutsideGeofence is returned when the device is outside the school
	// geofence radius.
	ErrOutsideGeofence = errors.New("outside school geofence")

	// ErrDuplicateRecord is returned by the ledger when a record already
	// exists for (person, date, direction).
	ErrDuplicateRecord = errors.New("attendance already recorded")

	// ErrCameraUnavailable is fatal to the session: the capture device could
	// not be acquired or was lost mid-session.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// RejectReason is the machine-readable reason attached to every rejection
// event. The host UI renders these; they are also logged for audit.
type RejectReason string

// Reject reasons.
const (
	ReasonMalformedPayload    RejectReason = "malformed_payload"
	ReasonPersonNotFound      RejectReason = "person_not_found"
	ReasonNoMatch             RejectReason = "no_match"
	ReasonLowConfidence       RejectReason = "low_confidence"
	ReasonBiometricRequired   RejectReason = "biometric_required"
	ReasonLocationUnavailable RejectReason = "location_unavailable"
	ReasonOutsideGeofence     RejectReason = "outside_geofence"
	ReasonAlreadyRecorded     RejectReason = "already_recorded"
	ReasonStorageError        RejectReason = "storage_error"
)

// ReasonForError maps a pipeline error to its reject reason. Unknown errors
// map to ReasonStorageError so no rejection is ever silently dropped.
func ReasonForError(err error) RejectReason {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return ReasonMalformedPayload
	case errors.Is(err, ErrPersonNotFound):
		return ReasonPersonNotFound
	case errors.Is(err, ErrNoMatch):
		return ReasonNoMatch
	case errors.Is(err, ErrLowConfidence):
		return ReasonLowConfidence
	case errors.Is(err, ErrBiometricRequired):
		return ReasonBiometricRequired
	case errors.Is(err, ErrLocationUnavailable):
		return ReasonLocationUnavailable
	case errors.Is(err, ErrOutsideGeofence):
		return ReasonOutsideGeofence
	case errors.Is(err, ErrDuplicateRecord):
		return ReasonAlreadyRecorded
	default:
		return ReasonStorageError
	}
}
