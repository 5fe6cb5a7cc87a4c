// Package matcher resolves identities from probe descriptors and scanned
// code payloads. The biometric path scores a probe against a population's
// enrolled templates; the code path parses the payload and defers to the
// roster.
package matcher

import (
	"log"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// Options tune a match pass.
type Options struct {
	// Threshold is the minimum confidence for a candidate to be considered.
	Threshold float64
	// MaxDistance is the distance at which confidence reaches zero.
	MaxDistance float64
}

// DefaultOptions returns the empirical defaults for the dlib descriptor model.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, MaxDistance: DefaultMaxDistance}
}

// Match scores a probe descriptor against a template snapshot and returns the
// best candidate at or above the threshold, or an unmatched result.
//
// Among candidates clearing the threshold the one with minimum distance wins;
// exact ties break to the lowest person id so results are deterministic.
// Templates whose descriptor length differs from the probe are skipped and
// logged, never fatal. An empty template set short-circuits to no match.
func Match(probe []float32, templates []attendance.Template, opts Options) attendance.MatchResult {
	if len(templates) == 0 {
		return attendance.MatchResult{}
	}

	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}

	best := attendance.MatchResult{}
	for i := range templates {
		tpl := &templates[i]
		d, err := EuclideanDistance(probe, tpl.Descriptor)
		if err != nil {
			log.Printf("matcher: skipping template %d (person %d): %v", tpl.ID, tpl.PersonID, err)
			continue
		}
		best.Compared++

		c := DistanceToConfidence(d, opts.MaxDistance)
		if c < opts.Threshold {
			continue
		}

		if !best.Matched || d < best.Distance ||
			(d == best.Distance && tpl.PersonID < best.PersonID) {
			best.Matched = true
			best.PersonID = tpl.PersonID
			best.Confidence = c
			best.Distance = d
		}
	}

	return best
}
