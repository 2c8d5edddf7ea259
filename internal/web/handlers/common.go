package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/constants"
)

// imageField is the multipart field carrying an uploaded image.
const imageField = "image"

var errMissingImage = errors.New("no image uploaded")

var logLineBreaks = strings.NewReplacer("\n", "", "\r", "")

// sanitizeForLog strips line breaks from user input before it reaches a log line.
func sanitizeForLog(s string) string {
	return logLineBreaks.Replace(s)
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

const msgDetectorUnavailable = "face detector unavailable"

// respondFailure reports err to the client. Client errors carry their own
// text; server errors get a fixed message since the cause may expose paths or
// upstream bodies and is logged by the caller.
func respondFailure(w http.ResponseWriter, status int, err error, serverMessage string) {
	switch {
	case status < http.StatusInternalServerError:
		respondError(w, status, err.Error())
	case status == http.StatusBadGateway:
		respondError(w, status, msgDetectorUnavailable)
	default:
		respondError(w, status, serverMessage)
	}
}

// HealthCheck reports that the process is serving requests.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type uploadedImage struct {
	Filename string
	Data     []byte
}

// readUploadedImage returns the non-empty image part of a multipart request.
// Every failure is reported as errMissingImage.
func readUploadedImage(r *http.Request) (*uploadedImage, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, errMissingImage
	}
	file, header, err := r.FormFile(imageField)
	if err != nil {
		return nil, errMissingImage
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
	if err != nil || len(data) == 0 {
		return nil, errMissingImage
	}
	return &uploadedImage{Filename: header.Filename, Data: data}, nil
}

// sseStream writes Server-Sent Events and flushes after each one.
type sseStream struct {
	w       io.Writer
	flusher http.Flusher
}

// newSSEStream sets event stream headers. It writes a 500 and returns false
// when the response writer cannot flush.
func newSSEStream(w http.ResponseWriter) (*sseStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &sseStream{w: w, flusher: flusher}, true
}

// send writes one event with a JSON payload. A write error means the client is gone.
func (s *sseStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
