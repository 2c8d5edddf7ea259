package facematch

import (
	"testing"

	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGallery() gallery.Gallery {
	return gallery.New(
		gallery.Identity{Name: "alice", Descriptor: []float32{0.1, 0.2, 0.3, 0.4}},
		gallery.Identity{Name: "bob", Descriptor: []float32{0.9, 0.1, 0.0, 0.2}},
		gallery.Identity{Name: "carol", Descriptor: []float32{-0.5, 0.5, 0.5, -0.5}},
	)
}

func TestMatch_SelfQueryReturnsOwnLabel(t *testing.T) {
	g := testGallery()
	m := Build(g, 0.6)

	for _, id := range g.Identities() {
		result := m.Match(id.Descriptor)
		assert.Equal(t, id.Name, result.Label)
		assert.InDelta(t, 0, result.Distance, 1e-9)
		assert.InDelta(t, 100, result.Confidence, 1e-6)
	}
}

func TestMatch_DistanceEqualToThresholdMatches(t *testing.T) {
	m := Build(gallery.New(gallery.Identity{Name: "bob", Descriptor: []float32{0, 0}}), 0.6)

	result := m.Match([]float32{0.6, 0})

	assert.Equal(t, "bob", result.Label)
	assert.InDelta(t, 0.6, result.Distance, 1e-6)
	assert.True(t, result.Matched())
}

func TestMatch_JustAboveThresholdIsUnknown(t *testing.T) {
	m := Build(gallery.New(gallery.Identity{Name: "bob", Descriptor: []float32{0, 0}}), 0.6)

	for _, query := range [][]float32{{0.600001, 0}, {0.6000009, 0}, {0.36, 0.48000100}} {
		result := m.Match(query)
		assert.Equal(t, "unknown", result.Label, "query %v at distance %v", query, result.Distance)
		assert.Greater(t, result.Distance, 0.6)
	}
}

func TestWithinThreshold(t *testing.T) {
	assert.True(t, withinThreshold(0.6, 0.6))
	assert.True(t, withinThreshold(float64(float32(0.6)), 0.6))
	assert.True(t, withinThreshold(0.59, 0.6))
	assert.False(t, withinThreshold(0.600001, 0.6))
	assert.False(t, withinThreshold(0.6000009, 0.6))
}

func TestMatch_AboveThresholdIsUnknown(t *testing.T) {
	m := Build(gallery.New(gallery.Identity{Name: "bob", Descriptor: []float32{0, 0}}), 0.6)

	result := m.Match([]float32{0.61, 0})

	assert.Equal(t, "unknown", result.Label)
	assert.InDelta(t, 0.61, result.Distance, 1e-6)
	assert.InDelta(t, 39, result.Confidence, 1e-3)
	assert.False(t, result.Matched())
}

func TestMatch_KnownDistanceAndConfidence(t *testing.T) {
	m := Build(gallery.New(gallery.Identity{Name: "bob", Descriptor: []float32{0, 0}}), 0.6)

	result := m.Match([]float32{0.18, 0.24})

	assert.Equal(t, "bob", result.Label)
	assert.InDelta(t, 0.3, result.Distance, 1e-6)
	assert.InDelta(t, 70, result.Confidence, 1e-3)
}

func TestMatch_EmptyGalleryIsUnknown(t *testing.T) {
	m := Build(gallery.Gallery{}, 0.6)

	result := m.Match([]float32{0.1, 0.2})

	assert.Equal(t, "unknown", result.Label)
	assert.Equal(t, NoMatchDistance, result.Distance)
	assert.Zero(t, result.Confidence)
	assert.Zero(t, m.Len())
}

func TestMatch_TieKeepsFirstIdentity(t *testing.T) {
	m := Build(gallery.New(
		gallery.Identity{Name: "alice", Descriptor: []float32{1, 0}},
		gallery.Identity{Name: "bob", Descriptor: []float32{-1, 0}},
	), 1.5)

	result := m.Match([]float32{0, 0})

	assert.Equal(t, "alice", result.Label)
	assert.InDelta(t, 1, result.Distance, 1e-9)
}

func TestMatch_SkipsMismatchedDimensions(t *testing.T) {
	m := Build(gallery.New(
		gallery.Identity{Name: "short", Descriptor: []float32{0, 0}},
		gallery.Identity{Name: "long", Descriptor: []float32{0, 0, 0.1}},
	), 0.6)

	result := m.Match([]float32{0, 0, 0})

	assert.Equal(t, "long", result.Label)
	assert.InDelta(t, 0.1, result.Distance, 1e-6)
}

func TestBuild_DefaultsThreshold(t *testing.T) {
	m := Build(testGallery(), 0)

	assert.Equal(t, 0.6, m.Threshold())
	assert.Equal(t, []string{"alice", "bob", "carol"}, m.Labels())
}

func TestBuild_SnapshotIsIndependentOfLaterEnrollment(t *testing.T) {
	g := testGallery()
	m := Build(g, 0.6)

	updated := g.With(gallery.Identity{Name: "dave", Descriptor: []float32{5, 5, 5, 5}})
	require.Equal(t, 4, updated.Len())

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, "unknown", m.Match([]float32{5, 5, 5, 5}).Label)
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"empty", []float32{}, []float32{}, 0},
		{"length mismatch", []float32{1}, []float32{1, 2}, NoMatchDistance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EuclideanDistance(tt.a, tt.b), 1e-6)
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 100, Confidence(0), 1e-9)
	assert.InDelta(t, 40, Confidence(0.6), 1e-9)
	assert.Zero(t, Confidence(1))
	assert.Zero(t, Confidence(2.5))
	assert.Equal(t, 100.0, Confidence(-0.5))
}
