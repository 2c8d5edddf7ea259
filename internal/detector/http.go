package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/rs/zerolog"
)

const (
	defaultDetectorURL = "http://localhost:8000"
	faceEndpoint       = "/embed/face"
)

func init() {
	Register("http", func(cfg config.DetectorConfig, logger zerolog.Logger) (Detector, error) {
		return NewHTTPDetector(cfg.URL, cfg.Timeout, logger), nil
	})
}

// HTTPDetector detects faces using a remote embedding server.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPDetector creates a detector calling baseURL + /embed/face.
func NewHTTPDetector(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPDetector {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	if timeout <= 0 {
		timeout = constants.DefaultDetectorTimeout
	}
	return &HTTPDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "detector").Str("backend", "http").Logger(),
	}
}

// faceDetection represents a single detected face in the server response
type faceDetection struct {
	FaceIndex   int                `json:"face_index"`
	Dim         int                `json:"dim"`
	Embedding   []float32          `json:"embedding"`
	BBox        []float64          `json:"bbox"` // [x1, y1, x2, y2]
	DetScore    float64            `json:"det_score"`
	Landmarks   [][]float64        `json:"landmarks,omitempty"`
	Expressions map[string]float64 `json:"expressions,omitempty"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Detect posts the image and converts every returned face into a Detection.
func (d *HTTPDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	body, err := d.postMultipartImage(ctx, faceEndpoint, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorFailure, err)
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrDetectorFailure, err)
	}

	detections := make([]Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.Embedding) == 0 || len(f.BBox) != 4 {
			d.logger.Warn().Int("face_index", f.FaceIndex).Msg("skipping face without embedding or bbox")
			continue
		}
		det := Detection{
			BoundingBox: BoundingBox{X1: f.BBox[0], Y1: f.BBox[1], X2: f.BBox[2], Y2: f.BBox[3]},
			Descriptor:  f.Embedding,
			Expressions: f.Expressions,
			Score:       f.DetScore,
		}
		for _, lm := range f.Landmarks {
			if len(lm) >= 2 {
				det.Landmarks = append(det.Landmarks, Point{X: lm[0], Y: lm[1]})
			}
		}
		detections = append(detections, det)
	}

	d.logger.Debug().Int("faces", len(detections)).Str("model", resp.Model).Msg("detection finished")
	return detections, nil
}

// postMultipartImage posts the image as the "file" form field with a sniffed content type.
func (d *HTTPDetector) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return http.DetectContentType(data)
}
