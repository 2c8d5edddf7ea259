package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/camera"
	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/rs/zerolog"
)

// StatsSource reports recognition loop counters.
type StatsSource interface {
	Stats() recognition.Stats
}

// EventSource fans out recognition events.
type EventSource interface {
	AddListener() chan recognition.Event
	RemoveListener(ch chan recognition.Event)
	Last() (recognition.Event, bool)
}

// RecognitionHandler handles the live recognition and one-shot match endpoints.
type RecognitionHandler struct {
	matchers recognition.MatcherProvider
	detector detector.Detector
	loop     StatsSource // nil when no camera is configured
	events   EventSource
	logger   zerolog.Logger
}

// NewRecognitionHandler creates a new recognition handler. loop may be nil.
func NewRecognitionHandler(matchers recognition.MatcherProvider, det detector.Detector, loop StatsSource, events EventSource, logger zerolog.Logger) *RecognitionHandler {
	return &RecognitionHandler{
		matchers: matchers,
		detector: det,
		loop:     loop,
		events:   events,
		logger:   logger.With().Str("component", "recognition-handler").Logger(),
	}
}

// StatusResponse describes the recognition loop.
type StatusResponse struct {
	Enabled    bool               `json:"enabled"`
	Stats      *recognition.Stats `json:"stats,omitempty"`
	Identities int                `json:"identities"`
	Threshold  float64            `json:"threshold"`
	LastEvent  *recognition.Event `json:"last_event,omitempty"`
}

func (h *RecognitionHandler) status() StatusResponse {
	matcher := h.matchers.Matcher()
	resp := StatusResponse{
		Enabled:    h.loop != nil,
		Identities: matcher.Len(),
		Threshold:  matcher.Threshold(),
	}
	if h.loop != nil {
		stats := h.loop.Stats()
		resp.Stats = &stats
	}
	if last, ok := h.events.Last(); ok {
		resp.LastEvent = &last
	}
	return resp
}

// Status returns the loop counters and the latest event.
func (h *RecognitionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.status())
}

// Events streams recognition events as Server-Sent Events.
func (h *RecognitionHandler) Events(w http.ResponseWriter, r *http.Request) {
	stream, ok := newSSEStream(w)
	if !ok {
		return
	}

	eventCh := h.events.AddListener()
	defer h.events.RemoveListener(eventCh)

	if err := stream.send("status", h.status()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if err := stream.send("recognition", event); err != nil {
				h.logger.Debug().Err(err).Msg("event stream closed")
				return
			}
		}
	}
}

// Match detects and matches every face of the uploaded image.
func (h *RecognitionHandler) Match(w http.ResponseWriter, r *http.Request) {
	img, err := readUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	width, height, err := store.DecodeSize(img.Data)
	if err != nil {
		respondError(w, http.StatusBadRequest, store.ErrInvalidImage.Error())
		return
	}

	frame := &camera.Frame{Data: img.Data, Width: width, Height: height, CapturedAt: time.Now()}
	event, err := recognition.Recognize(r.Context(), h.detector, h.matchers.Matcher(), frame)
	if err != nil {
		h.logger.Error().Err(err).Msg("match failed")
		status := http.StatusInternalServerError
		if errors.Is(err, detector.ErrDetectorFailure) {
			status = http.StatusBadGateway
		}
		respondFailure(w, status, err, "failed to match faces")
		return
	}
	respondJSON(w, http.StatusOK, event)
}
