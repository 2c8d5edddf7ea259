package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/rs/zerolog"
)

const maxSnapshotSize = 16 << 20

func init() {
	Register("snapshot", func(cfg config.CameraConfig, logger zerolog.Logger) (Source, error) {
		return NewSnapshotSource(cfg.URL, logger), nil
	})
}

// SnapshotSource fetches JPEG snapshots from an IP camera HTTP endpoint.
type SnapshotSource struct {
	url    string
	client *http.Client
	open   atomic.Bool
	logger zerolog.Logger
}

// NewSnapshotSource creates a source polling url for each frame.
func NewSnapshotSource(url string, logger zerolog.Logger) *SnapshotSource {
	return &SnapshotSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "camera").Str("backend", "snapshot").Logger(),
	}
}

// Open fetches one snapshot to verify the camera is reachable and authorized.
func (s *SnapshotSource) Open(ctx context.Context) error {
	s.open.Store(true)
	if _, err := s.fetch(ctx); err != nil {
		s.open.Store(false)
		return accessDenied("%s: %v", s.url, err)
	}
	s.logger.Info().Str("url", s.url).Msg("camera opened")
	return nil
}

// Frame fetches the current snapshot.
func (s *SnapshotSource) Frame(ctx context.Context) (*Frame, error) {
	if !s.open.Load() {
		return nil, ErrNotOpen
	}
	return s.fetch(ctx)
}

// Close marks the source closed.
func (s *SnapshotSource) Close() error {
	if s.open.Swap(false) {
		s.logger.Info().Msg("camera closed")
	}
	return nil
}

func (s *SnapshotSource) fetch(ctx context.Context) (*Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	width, height, err := store.DecodeSize(data)
	if err != nil {
		return nil, err
	}
	return &Frame{Data: data, Width: width, Height: height, CapturedAt: time.Now()}, nil
}
