package matcher

import (
	"math"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// DefaultMaxDistance is the descriptor distance at which confidence reaches
// zero. Empirical constant tied to the dlib 128-d descriptor model; treat as
// configuration, not a derived value.
const DefaultMaxDistance = 1.5

// DefaultThreshold is the minimum confidence for a match to be accepted.
const DefaultThreshold = 0.6

// EuclideanDistance computes the Euclidean distance between two descriptors.
// Returns attendance.ErrDimensionMismatch if the lengths differ or are zero.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, attendance.ErrDimensionMismatch
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// DistanceToConfidence maps a descriptor distance to a [0,1] confidence:
// clamp(1 - d/maxDistance, 0, 1). Monotonically non-increasing in d for any
// fixed maxDistance. A non-positive maxDistance falls back to the default.
func DistanceToConfidence(d, maxDistance float64) float64 {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}

	c := 1 - d/maxDistance
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
