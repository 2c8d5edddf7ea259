package recognition

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-recognizer/internal/camera"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/metrics"
)

// Face is a recognized face ready for presentation.
type Face struct {
	BoundingBox detector.BoundingBox `json:"bounding_box"`
	RelativeBox []float64            `json:"relative_box"` // [x1, y1, x2, y2] in 0-1 frame coordinates
	Label       string               `json:"label"`
	Distance    float64              `json:"distance"`
	Confidence  float64              `json:"confidence"`
	Matched     bool                 `json:"matched"`
	Expressions map[string]float64   `json:"expressions,omitempty"`
}

// Event is the outcome of one recognition cycle.
type Event struct {
	CycleID     string    `json:"cycle_id"`
	Timestamp   time.Time `json:"timestamp"`
	FrameWidth  int       `json:"frame_width"`
	FrameHeight int       `json:"frame_height"`
	Faces       []Face    `json:"faces"`
}

// Recognize detects every face in frame and matches each returned descriptor
// against matcher, in detector order.
func Recognize(ctx context.Context, det detector.Detector, matcher *facematch.Matcher, frame *camera.Frame) (Event, error) {
	detections, err := det.Detect(ctx, frame.Data)
	if err != nil {
		return Event{}, detector.AsFailure(err)
	}
	return buildEvent(matcher, frame, detections, 0), nil
}

// buildEvent matches detections into an event. With overlapIoU > 0, a detection
// overlapping a more confident one by more than overlapIoU is left out.
func buildEvent(matcher *facematch.Matcher, frame *camera.Frame, detections []detector.Detection, overlapIoU float64) Event {
	event := Event{
		CycleID:     uuid.NewString(),
		Timestamp:   frame.CapturedAt,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Faces:       []Face{},
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	boxes := make([][]float64, len(detections))
	scores := make([]float64, len(detections))
	for i, d := range detections {
		boxes[i] = d.BoundingBox.Slice()
		scores[i] = d.Score
	}

	keep := make([]int, len(detections))
	for i := range keep {
		keep[i] = i
	}
	if overlapIoU > 0 {
		keep = facematch.SuppressOverlaps(boxes, scores, overlapIoU)
	}

	for _, i := range keep {
		d := detections[i]
		result := matcher.Match(d.Descriptor)
		face := Face{
			BoundingBox: d.BoundingBox,
			RelativeBox: facematch.ConvertPixelBBoxToRelative(boxes[i], frame.Width, frame.Height),
			Label:       result.Label,
			Distance:    result.Distance,
			Confidence:  result.Confidence,
			Matched:     result.Matched(),
			Expressions: d.Expressions,
		}
		outcome := "known"
		if face.Label == constants.UnknownLabel {
			outcome = "unknown"
		}
		metrics.FacesMatchedTotal.WithLabelValues(outcome).Inc()
		event.Faces = append(event.Faces, face)
	}
	return event
}
