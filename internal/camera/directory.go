package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/rs/zerolog"
)

func init() {
	Register("directory", func(cfg config.CameraConfig, logger zerolog.Logger) (Source, error) {
		return NewDirectorySource(cfg.Dir, logger), nil
	})
}

var frameExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// DirectorySource replays image files from a directory in name order, looping
// at the end. Useful for kiosks fed by an external capture process and for demos.
type DirectorySource struct {
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	files []string
	next  int
	open  bool
}

// NewDirectorySource creates a source replaying images from dir.
func NewDirectorySource(dir string, logger zerolog.Logger) *DirectorySource {
	return &DirectorySource{
		dir:    dir,
		logger: logger.With().Str("component", "camera").Str("backend", "directory").Logger(),
	}
}

// Open lists the frames. An unreadable or empty directory is treated as a denied camera.
func (s *DirectorySource) Open(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return accessDenied("%s: %v", s.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(s.dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return accessDenied("%s: no frames", s.dir)
	}

	s.mu.Lock()
	s.files, s.next, s.open = files, 0, true
	s.mu.Unlock()
	s.logger.Info().Str("dir", s.dir).Int("frames", len(files)).Msg("camera opened")
	return nil
}

// Frame returns the next image.
func (s *DirectorySource) Frame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured directory listing
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	width, height, err := store.DecodeSize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &Frame{Data: data, Width: width, Height: height, CapturedAt: time.Now()}, nil
}

// Close stops the replay.
func (s *DirectorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		s.open = false
		s.logger.Info().Msg("camera closed")
	}
	return nil
}
