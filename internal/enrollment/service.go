// Package enrollment owns the identity gallery: it loads it from the store,
// enrolls new identities and publishes matcher snapshots for recognition.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/kozaktomas/face-recognizer/internal/metrics"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/rs/zerolog"
)

// Enrollment errors.
var (
	ErrNoFaceDetected = errors.New("no face detected")
	ErrAmbiguousFace  = errors.New("more than one face detected")
)

// Store is the persistence the service needs.
type Store interface {
	Load() ([]store.Entry, error)
	Persist(name string, image []byte) (string, error)
	Read(imageRef string) ([]byte, error)
}

// Options tune the service.
type Options struct {
	Threshold    float64
	MaxImageSize int
	Workers      int
}

type snapshot struct {
	gallery gallery.Gallery
	matcher *facematch.Matcher
}

// Service is the single writer of the gallery. Readers obtain immutable
// matcher snapshots through Matcher.
type Service struct {
	store    Store
	detector detector.Detector
	opts     Options
	logger   zerolog.Logger

	// commitMu serializes persist + publish so disk and memory agree on the last writer.
	commitMu sync.Mutex
	current  atomic.Pointer[snapshot]
	loaded   atomic.Bool
}

// New creates a service with an empty published gallery.
func New(st Store, det detector.Detector, opts Options, logger zerolog.Logger) *Service {
	if opts.Threshold <= 0 {
		opts.Threshold = constants.DefaultDistanceThreshold
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = constants.MaxImageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = constants.WorkerPoolSize
	}
	s := &Service{
		store:    st,
		detector: det,
		opts:     opts,
		logger:   logger.With().Str("component", "enrollment").Logger(),
	}
	s.publish(gallery.Gallery{})
	return s
}

// Matcher returns the currently published matcher. Never nil.
func (s *Service) Matcher() *facematch.Matcher {
	return s.current.Load().matcher
}

// Gallery returns the currently published gallery.
func (s *Service) Gallery() gallery.Gallery {
	return s.current.Load().gallery
}

// Threshold returns the configured match threshold.
func (s *Service) Threshold() float64 {
	return s.opts.Threshold
}

func (s *Service) publish(g gallery.Gallery) {
	s.current.Store(&snapshot{gallery: g, matcher: facematch.Build(g, s.opts.Threshold)})
	metrics.GalleryIdentities.Set(float64(g.Len()))
}

// Enroll registers the face in frame under name, replacing any previous
// identity with that name. The new matcher is published before Enroll returns.
func (s *Service) Enroll(ctx context.Context, name string, frame []byte) (gallery.Identity, error) {
	identity, err := s.enroll(ctx, name, frame)
	metrics.EnrollmentsTotal.WithLabelValues(enrollmentResult(err)).Inc()
	if err != nil {
		s.logger.Warn().Str("name", name).Err(err).Msg("enrollment rejected")
		return gallery.Identity{}, err
	}
	s.logger.Info().Str("name", identity.Name).Str("image", identity.ImageRef).
		Int("identities", s.Gallery().Len()).Msg("identity enrolled")
	return identity, nil
}

func (s *Service) enroll(ctx context.Context, name string, frame []byte) (gallery.Identity, error) {
	name, err := gallery.SanitizeName(name)
	if err != nil {
		return gallery.Identity{}, err
	}

	img, err := store.NormalizeImage(frame, s.opts.MaxImageSize)
	if err != nil {
		return gallery.Identity{}, err
	}

	detections, err := s.detector.Detect(ctx, img.Data)
	if err != nil {
		metrics.DetectorFailuresTotal.WithLabelValues("enrollment").Inc()
		return gallery.Identity{}, detector.AsFailure(err)
	}
	switch {
	case len(detections) == 0:
		return gallery.Identity{}, ErrNoFaceDetected
	case len(detections) > 1:
		return gallery.Identity{}, fmt.Errorf("%w: found %d", ErrAmbiguousFace, len(detections))
	}
	if err := ctx.Err(); err != nil {
		return gallery.Identity{}, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	imageRef, err := s.store.Persist(name, img.Data)
	if err != nil {
		return gallery.Identity{}, err
	}
	identity := gallery.Identity{
		Name:       name,
		Descriptor: detections[0].Descriptor,
		ImageRef:   imageRef,
	}
	s.publish(s.Gallery().With(identity))
	return identity, nil
}

func enrollmentResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gallery.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, store.ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, ErrAmbiguousFace):
		return "ambiguous_face"
	case errors.Is(err, detector.ErrDetectorFailure):
		return "detector_failure"
	case errors.Is(err, store.ErrUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
