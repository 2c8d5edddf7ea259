package facematch

import (
	"math"
	"slices"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
)

const (
	unknownLabel = constants.UnknownLabel

	// tieEpsilon treats nearly equal distances as ties; ties keep the earlier identity.
	tieEpsilon = 1e-9
)

// NoMatchDistance is reported when there is nothing to compare against.
const NoMatchDistance = math.MaxFloat64

type entry struct {
	name       string
	descriptor []float32
}

// Matcher is an immutable nearest-neighbour snapshot of a gallery.
// It is safe for concurrent use.
type Matcher struct {
	entries   []entry
	threshold float64
}

// Build creates a matcher over the gallery identities in gallery order.
// A non-positive threshold falls back to the default distance threshold.
func Build(g gallery.Gallery, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = constants.DefaultDistanceThreshold
	}
	ids := g.Identities()
	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, entry{name: id.Name, descriptor: slices.Clone(id.Descriptor)})
	}
	return &Matcher{entries: entries, threshold: threshold}
}

// Match returns the closest identity to the query descriptor.
// Identities with a different descriptor length are skipped. When the closest
// distance is above the threshold, or nothing is comparable, the label is "unknown".
func (m *Matcher) Match(query []float32) MatchResult {
	best := -1
	bestDistance := NoMatchDistance
	for i, e := range m.entries {
		if len(e.descriptor) != len(query) {
			continue
		}
		d := EuclideanDistance(e.descriptor, query)
		if best < 0 || d < bestDistance-tieEpsilon {
			best, bestDistance = i, d
		}
	}

	if best < 0 {
		return MatchResult{Label: unknownLabel, Distance: NoMatchDistance, Confidence: 0}
	}

	result := MatchResult{
		Label:      unknownLabel,
		Distance:   bestDistance,
		Confidence: Confidence(bestDistance),
	}
	if withinThreshold(bestDistance, m.threshold) {
		result.Label = m.entries[best].name
	}
	return result
}

// withinThreshold compares at float32 precision, the precision descriptors are
// stored in, so a distance equal to the threshold matches despite rounding of
// the inputs and anything above it does not.
func withinThreshold(distance, threshold float64) bool {
	return float32(distance) <= float32(threshold)
}

// Len returns the number of identities in the snapshot.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// Threshold returns the maximum distance that still counts as a match.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Labels returns identity names in gallery order.
func (m *Matcher) Labels() []string {
	labels := make([]string, len(m.entries))
	for i, e := range m.entries {
		labels[i] = e.name
	}
	return labels
}

// EuclideanDistance computes the L2 distance between two vectors of equal length.
// Returns NoMatchDistance if the lengths differ.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return NoMatchDistance
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Confidence converts a distance into a 0-100 score.
func Confidence(distance float64) float64 {
	return min(max((1-distance)*100, 0), 100)
}
