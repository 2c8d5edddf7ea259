// Package facematch matches face descriptors against a gallery of known identities.
package facematch

// MatchResult is the outcome of matching a single face descriptor.
type MatchResult struct {
	Label      string  `json:"label"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Matched reports whether the result names a known identity.
func (r MatchResult) Matched() bool {
	return r.Label != "" && r.Label != unknownLabel
}
