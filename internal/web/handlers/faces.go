package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/kozaktomas/face-recognizer/internal/enrollment"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/rs/zerolog"
)

// Enroller enrolls identities and exposes the published gallery.
type Enroller interface {
	Enroll(ctx context.Context, name string, frame []byte) (gallery.Identity, error)
	Gallery() gallery.Gallery
}

// FaceStore is the read side of the identity image store.
type FaceStore interface {
	Load() ([]store.Entry, error)
	Path(imageRef string) (string, error)
}

// FacesHandler handles enrollment and saved face endpoints.
type FacesHandler struct {
	enroller Enroller
	store    FaceStore
	logger   zerolog.Logger
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(enroller Enroller, st FaceStore, logger zerolog.Logger) *FacesHandler {
	return &FacesHandler{
		enroller: enroller,
		store:    st,
		logger:   logger.With().Str("component", "faces-handler").Logger(),
	}
}

// SavedFaceResponse represents a stored identity image.
type SavedFaceResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GalleryIdentityResponse represents an identity of the published gallery.
type GalleryIdentityResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Dim  int    `json:"dim"`
}

// UploadResponse is returned after a successful enrollment.
type UploadResponse struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	Name     string `json:"name"`
}

func imageURL(imageRef string) string {
	return constants.UploadsURLPrefix + imageRef
}

// SavedFaces lists the identity images currently in the store.
func (h *FacesHandler) SavedFaces(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list saved faces")
		respondError(w, http.StatusInternalServerError, "failed to list saved faces")
		return
	}

	result := make([]SavedFaceResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, SavedFaceResponse{Name: e.Name, URL: imageURL(e.ImageRef)})
	}
	respondJSON(w, http.StatusOK, result)
}

// Gallery lists the identities the recognizer currently matches against.
func (h *FacesHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	identities := h.enroller.Gallery().Identities()
	if q := r.URL.Query().Get("q"); q != "" {
		identities = h.enroller.Gallery().Search(q)
	}

	result := make([]GalleryIdentityResponse, 0, len(identities))
	for _, id := range identities {
		result = append(result, GalleryIdentityResponse{
			Name: id.Name,
			URL:  imageURL(id.ImageRef),
			Dim:  len(id.Descriptor),
		})
	}
	respondJSON(w, http.StatusOK, result)
}

// Upload enrolls the uploaded image under the name given by the form field
// "name" or, if absent, the file name without extension.
func (h *FacesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	img, err := readUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.FormValue("name")
	if name == "" {
		base := filepath.Base(img.Filename)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	identity, err := h.enroller.Enroll(r.Context(), name, img.Data)
	if err != nil {
		status := enrollStatus(err)
		event := h.logger.Warn()
		if status >= http.StatusInternalServerError {
			event = h.logger.Error()
		}
		event.Err(err).Str("name", sanitizeForLog(name)).Int("status", status).Msg("enrollment rejected")
		respondFailure(w, status, err, "failed to enroll face")
		return
	}

	respondJSON(w, http.StatusOK, UploadResponse{
		FileName: identity.ImageRef,
		FilePath: imageURL(identity.ImageRef),
		Name:     identity.Name,
	})
}

// enrollStatus maps enrollment errors to HTTP status codes.
func enrollStatus(err error) int {
	switch {
	case errors.Is(err, gallery.ErrInvalidName), errors.Is(err, store.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, enrollment.ErrNoFaceDetected), errors.Is(err, enrollment.ErrAmbiguousFace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, detector.ErrDetectorFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ServeUpload serves a persisted identity image.
func (h *FacesHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	path, err := h.store.Path(chi.URLParam(r, "file"))
	if err != nil {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}

	f, err := os.Open(path) //nolint:gosec // path validated by the store
	if err != nil {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), f)
}
