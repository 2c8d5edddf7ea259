//go:build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

func init() {
	Register("device", func(cfg config.CameraConfig, logger zerolog.Logger) (Source, error) {
		return NewDeviceSource(cfg.Device, cfg.Width, cfg.Height, logger), nil
	})
}

// DeviceSource captures frames from a local video device through OpenCV.
type DeviceSource struct {
	device        int
	width, height int
	logger        zerolog.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	img     gocv.Mat
}

// NewDeviceSource creates a source for the video device index.
func NewDeviceSource(device, width, height int, logger zerolog.Logger) *DeviceSource {
	if width <= 0 || height <= 0 {
		width, height = constants.CameraWidth, constants.CameraHeight
	}
	return &DeviceSource{
		device: device,
		width:  width,
		height: height,
		logger: logger.With().Str("component", "camera").Str("backend", "device").Int("device", device).Logger(),
	}
}

// Open acquires the device.
func (s *DeviceSource) Open(ctx context.Context) error {
	capture, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		return accessDenied("device %d: %v", s.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return accessDenied("device %d: not opened", s.device)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(s.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(s.height))

	s.mu.Lock()
	s.capture = capture
	s.img = gocv.NewMat()
	s.mu.Unlock()
	s.logger.Info().Int("width", s.width).Int("height", s.height).Msg("camera opened")
	return nil
}

// Frame reads and JPEG-encodes the next frame.
func (s *DeviceSource) Frame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return nil, ErrNotOpen
	}
	if ok := s.capture.Read(&s.img); !ok || s.img.Empty() {
		return nil, errors.New("failed to read frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.img)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()

	return &Frame{
		Data:       slices.Clone(buf.GetBytes()),
		Width:      s.img.Cols(),
		Height:     s.img.Rows(),
		CapturedAt: time.Now(),
	}, nil
}

// Close releases the device.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return nil
	}
	s.img.Close()
	err := s.capture.Close()
	s.capture = nil
	s.logger.Info().Msg("camera closed")
	return err
}
