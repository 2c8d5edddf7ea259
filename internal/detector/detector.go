// Package detector defines the face detection capability and its backends.
package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/rs/zerolog"
)

// ErrDetectorFailure wraps any error raised by a detection backend.
var ErrDetectorFailure = errors.New("detector failure")

// BoundingBox is a face rectangle in pixel coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Slice returns the box as [x1, y1, x2, y2].
func (b BoundingBox) Slice() []float64 {
	return []float64{b.X1, b.Y1, b.X2, b.Y2}
}

// Width returns the box width.
func (b BoundingBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height.
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 }

// Point is a facial landmark in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is a single detected face.
type Detection struct {
	BoundingBox BoundingBox        `json:"bounding_box"`
	Descriptor  []float32          `json:"-"`
	Landmarks   []Point            `json:"landmarks,omitempty"`
	Expressions map[string]float64 `json:"expressions,omitempty"`
	Score       float64            `json:"score"`
}

// Detector finds faces in an encoded image and extracts one descriptor per face.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// Closer is implemented by detectors holding native resources.
type Closer interface {
	Close() error
}

// Factory creates a detector backend from configuration.
type Factory func(cfg config.DetectorConfig, logger zerolog.Logger) (Detector, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a detector backend available under name.
// Backends compiled behind build tags register themselves in init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Backends returns the registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the detector selected by cfg.Backend.
func New(cfg config.DetectorConfig, logger zerolog.Logger) (Detector, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown detector backend %q (available: %v)", cfg.Backend, Backends())
	}
	return factory(cfg, logger)
}

// BestDetection returns the detection with the highest score.
func BestDetection(detections []Detection) (Detection, bool) {
	if len(detections) == 0 {
		return Detection{}, false
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Score > best.Score {
			best = d
		}
	}
	return best, true
}

// AsFailure wraps err with ErrDetectorFailure unless it already is one.
func AsFailure(err error) error {
	if err == nil || errors.Is(err, ErrDetectorFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDetectorFailure, err)
}
