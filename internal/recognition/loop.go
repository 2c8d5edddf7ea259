// Package recognition runs the continuous recognition loop: sample a frame,
// detect faces, match them against the published gallery and emit an event.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/camera"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrAlreadyStarted is returned when Run is called on a loop that already ran.
var ErrAlreadyStarted = errors.New("recognition loop already started")

// State is the phase of the recognition loop.
type State int32

// Loop states. A cycle moves Idle -> Sampling -> Detecting -> Matching -> Rendering -> Idle.
const (
	StateIdle State = iota
	StateSampling
	StateDetecting
	StateMatching
	StateRendering
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateDetecting:
		return "detecting"
	case StateMatching:
		return "matching"
	case StateRendering:
		return "rendering"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateIdle; candidate <= StateStopped; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown recognition state %q", text)
}

// MatcherProvider supplies the matcher snapshot a cycle should use.
type MatcherProvider interface {
	Matcher() *facematch.Matcher
}

// Presenter receives the outcome of every completed cycle.
type Presenter interface {
	Present(Event)
}

// Options tune the loop.
type Options struct {
	Interval time.Duration
	// OverlapIoU, when positive, drops detections overlapping a more
	// confident one by more than this IoU. Zero matches every detection.
	OverlapIoU float64
}

// Stats is a point-in-time view of loop counters.
type Stats struct {
	State            State  `json:"state"`
	Running          bool   `json:"running"`
	Cycles           uint64 `json:"cycles"`
	Dropped          uint64 `json:"dropped"`
	FrameErrors      uint64 `json:"frame_errors"`
	DetectorFailures uint64 `json:"detector_failures"`
}

// Loop drives recognition cycles from a ticker. At most one cycle is in
// flight; ticks arriving meanwhile are dropped, not queued.
type Loop struct {
	source    camera.Source
	detector  detector.Detector
	matchers  MatcherProvider
	presenter Presenter
	interval  time.Duration
	overlap   float64
	logger    zerolog.Logger

	// state doubles as the single-flight gate: a cycle starts only by moving
	// it from Idle to Sampling and releases it by storing Idle.
	state   atomic.Int32
	started atomic.Bool

	cycles           atomic.Uint64
	dropped          atomic.Uint64
	frameErrors      atomic.Uint64
	detectorFailures atomic.Uint64

	// mu guards running and runCtx so no cycle starts after shutdown began.
	mu      sync.Mutex
	running bool
	runCtx  context.Context
	wg      sync.WaitGroup
}

// NewLoop creates a loop. Nothing happens until Run is called.
func NewLoop(source camera.Source, det detector.Detector, matchers MatcherProvider, presenter Presenter, opts Options, logger zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = constants.DefaultTickInterval
	}
	return &Loop{
		source:    source,
		detector:  det,
		matchers:  matchers,
		presenter: presenter,
		interval:  opts.Interval,
		overlap:   opts.OverlapIoU,
		logger:    logger.With().Str("component", "recognition").Logger(),
	}
}

// Run opens the camera and runs cycles until ctx is cancelled. A camera that
// cannot be opened stops the loop before any frame is sampled. On return the
// in-flight cycle has finished and the camera is closed.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := l.source.Open(ctx); err != nil {
		l.setState(StateStopped)
		if !errors.Is(err, camera.ErrAccessDenied) {
			err = fmt.Errorf("%w: %w", camera.ErrAccessDenied, err)
		}
		l.logger.Error().Err(err).Msg("camera unavailable, recognition stopped")
		return err
	}

	l.mu.Lock()
	l.setState(StateIdle)
	l.running = true
	l.runCtx = ctx
	l.mu.Unlock()
	defer l.shutdown()

	l.logger.Info().Dur("interval", l.interval).Msg("recognition loop started")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Tick()
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()

	l.wg.Wait()
	if err := l.source.Close(); err != nil {
		l.logger.Warn().Err(err).Msg("failed to close camera")
	}
	l.setState(StateStopped)
	l.logger.Info().Uint64("cycles", l.cycles.Load()).Uint64("dropped", l.dropped.Load()).
		Msg("recognition loop stopped")
}

// Tick starts a cycle unless one is already in flight. Returns false when the
// tick was dropped or the loop is not running.
func (l *Loop) Tick() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return false
	}
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateSampling)) {
		l.dropped.Add(1)
		metrics.RecognitionTicksDroppedTotal.Inc()
		return false
	}
	l.wg.Add(1)
	go l.cycle(l.runCtx)
	return true
}

func (l *Loop) cycle(ctx context.Context) {
	defer l.wg.Done()

	start := time.Now()
	matcher := l.matchers.Matcher()

	frame, err := l.source.Frame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.frameErrors.Add(1)
		metrics.FrameErrorsTotal.Inc()
		l.logger.Warn().Err(err).Msg("failed to capture frame")
		l.setState(StateIdle)
		return
	}
	if ctx.Err() != nil {
		return
	}

	l.setState(StateDetecting)
	detections, err := l.detector.Detect(ctx, frame.Data)
	if ctx.Err() != nil {
		l.logger.Debug().Msg("discarding detection result after stop")
		return
	}
	if err != nil {
		l.detectorFailures.Add(1)
		metrics.DetectorFailuresTotal.WithLabelValues("recognition").Inc()
		l.logger.Warn().Err(detector.AsFailure(err)).Msg("detection failed, treating frame as empty")
		detections = nil
	}

	l.setState(StateMatching)
	event := buildEvent(matcher, frame, detections, l.overlap)

	l.setState(StateRendering)
	l.presenter.Present(event)

	l.cycles.Add(1)
	metrics.RecognitionCyclesTotal.Inc()
	metrics.RecognitionCycleDuration.Observe(time.Since(start).Seconds())
	l.logger.Debug().Str("cycle_id", event.CycleID).Int("faces", len(event.Faces)).
		Dur("took", time.Since(start)).Msg("cycle finished")
	l.setState(StateIdle)
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// State returns the current loop state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	return Stats{
		State:            l.State(),
		Running:          running,
		Cycles:           l.cycles.Load(),
		Dropped:          l.dropped.Load(),
		FrameErrors:      l.frameErrors.Load(),
		DetectorFailures: l.detectorFailures.Load(),
	}
}
