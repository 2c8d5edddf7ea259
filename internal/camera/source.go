// Package camera provides video frame sources for the recognition loop.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/rs/zerolog"
)

var (
	// ErrAccessDenied is returned when the camera cannot be acquired.
	ErrAccessDenied = errors.New("camera access denied")
	// ErrNotOpen is returned when frames are requested from a closed source.
	ErrNotOpen = errors.New("camera not open")
)

// Frame is a single encoded video frame.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Source produces frames. Open must succeed before Frame is called; Close
// releases the underlying device and may be called more than once.
type Source interface {
	Open(ctx context.Context) error
	Frame(ctx context.Context) (*Frame, error)
	Close() error
}

// Factory creates a source backend from configuration.
type Factory func(cfg config.CameraConfig, logger zerolog.Logger) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a camera backend available under name.
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

// New creates the source selected by cfg.Backend.
func New(cfg config.CameraConfig, logger zerolog.Logger) (Source, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown camera backend %q (available: %v)", cfg.Backend, Backends())
	}
	return factory(cfg, logger)
}

func accessDenied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAccessDenied, fmt.Sprintf(format, args...))
}
