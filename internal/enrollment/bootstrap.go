package enrollment

import (
	"context"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/kozaktomas/face-recognizer/internal/metrics"
	"github.com/kozaktomas/face-recognizer/internal/store"
)

// EntryReport describes how a stored image would be turned into an identity.
type EntryReport struct {
	Entry    store.Entry
	Faces    int
	Identity gallery.Identity
	Err      error
}

// Usable reports whether the entry produced an identity.
func (r EntryReport) Usable() bool {
	return r.Err == nil
}

// Reload rebuilds the gallery from the store and publishes it. Entries that
// cannot be read or contain no face are skipped. If the store cannot be listed
// the previously published gallery stays in place and the error is returned.
// Enrollments wait while a reload is running.
func (s *Service) Reload(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		if s.loaded.Load() {
			s.logger.Error().Err(err).Int("identities", s.Gallery().Len()).
				Msg("gallery reload failed, keeping last good gallery")
		} else {
			s.logger.Error().Err(err).Msg("gallery load failed, starting with an empty gallery")
		}
		return fmt.Errorf("loading gallery: %w", err)
	}

	reports, err := s.Inspect(ctx, entries, nil)
	if err != nil {
		return err
	}

	identities := make([]gallery.Identity, 0, len(reports))
	for _, r := range reports {
		if !r.Usable() {
			s.logger.Warn().Str("file", r.Entry.ImageRef).Err(r.Err).Msg("skipping stored image")
			continue
		}
		identities = append(identities, r.Identity)
	}

	s.publish(gallery.New(identities...))
	s.loaded.Store(true)
	s.logger.Info().Int("identities", len(identities)).Int("skipped", len(entries)-len(identities)).
		Msg("gallery loaded")
	return nil
}

// Inspect runs the detector over stored entries with a bounded worker pool.
// Reports are returned in entry order. progress, when set, is called once per
// finished entry from the worker goroutines.
func (s *Service) Inspect(ctx context.Context, entries []store.Entry, progress func(EntryReport)) ([]EntryReport, error) {
	reports := make([]EntryReport, len(entries))
	sem := make(chan struct{}, s.opts.Workers)
	var wg sync.WaitGroup

	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, entry store.Entry) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[i] = s.inspectEntry(ctx, entry)
			if progress != nil {
				progress(reports[i])
			}
		}(i, entry)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) inspectEntry(ctx context.Context, entry store.Entry) EntryReport {
	report := EntryReport{Entry: entry}

	data, err := s.store.Read(entry.ImageRef)
	if err != nil {
		report.Err = err
		return report
	}

	detections, err := s.detector.Detect(ctx, data)
	if err != nil {
		metrics.DetectorFailuresTotal.WithLabelValues("bootstrap").Inc()
		report.Err = detector.AsFailure(err)
		return report
	}
	report.Faces = len(detections)

	best, ok := detector.BestDetection(detections)
	if !ok {
		report.Err = ErrNoFaceDetected
		return report
	}
	if len(detections) > 1 {
		s.logger.Warn().Str("file", entry.ImageRef).Int("faces", len(detections)).
			Msg("stored image has several faces, using the most confident one")
	}

	report.Identity = gallery.Identity{
		Name:       entry.Name,
		Descriptor: best.Descriptor,
		ImageRef:   entry.ImageRef,
	}
	return report
}
