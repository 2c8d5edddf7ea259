//go:build dlib

package detector

import (
	"context"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/rs/zerolog"
)

func init() {
	Register("dlib", func(cfg config.DetectorConfig, logger zerolog.Logger) (Detector, error) {
		return NewDlibDetector(cfg.ModelsDir, logger)
	})
}

// DlibDetector runs dlib face detection and descriptor extraction in-process.
// It expects JPEG input, which is what the store and camera sources produce.
type DlibDetector struct {
	mu     sync.Mutex
	rec    *face.Recognizer
	logger zerolog.Logger
}

// NewDlibDetector loads the dlib models from modelsDir.
func NewDlibDetector(modelsDir string, logger zerolog.Logger) (*DlibDetector, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	return &DlibDetector{
		rec:    rec,
		logger: logger.With().Str("component", "detector").Str("backend", "dlib").Logger(),
	}, nil
}

// Detect recognizes every face in the image. The recognizer is not safe for
// concurrent use, so calls are serialized.
func (d *DlibDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	faces, err := d.rec.Recognize(image)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorFailure, err)
	}

	detections := make([]Detection, 0, len(faces))
	for _, f := range faces {
		det := Detection{
			BoundingBox: BoundingBox{
				X1: float64(f.Rectangle.Min.X),
				Y1: float64(f.Rectangle.Min.Y),
				X2: float64(f.Rectangle.Max.X),
				Y2: float64(f.Rectangle.Max.Y),
			},
			Descriptor: append([]float32(nil), f.Descriptor[:]...),
			Score:      1,
		}
		for _, p := range f.Shapes {
			det.Landmarks = append(det.Landmarks, Point{X: float64(p.X), Y: float64(p.Y)})
		}
		detections = append(detections, det)
	}

	d.logger.Debug().Int("faces", len(detections)).Msg("detection finished")
	return detections, nil
}

// Close releases the native recognizer.
func (d *DlibDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rec.Close()
	return nil
}
