package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-recognizer/internal/web/handlers"
	"github.com/kozaktomas/face-recognizer/internal/web/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	var loop handlers.StatsSource
	if s.deps.Loop != nil {
		loop = s.deps.Loop
	}

	facesHandler := handlers.NewFacesHandler(s.deps.Enrollment, s.deps.Store, s.logger)
	recognitionHandler := handlers.NewRecognitionHandler(s.deps.Enrollment, s.deps.Detector, loop, s.deps.Events, s.logger)

	// Event stream stays open, everything else is bounded by the request timeout.
	s.router.Get("/api/v1/recognition/events", recognitionHandler.Events)

	s.router.Group(func(r chi.Router) {
		if s.config.Web.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(s.config.Web.RequestTimeout))
		}

		r.Get("/api/v1/health", handlers.HealthCheck)
		r.Handle("/metrics", promhttp.Handler())

		// Enrollment
		r.Get("/saved-faces", facesHandler.SavedFaces)
		r.Post("/upload", facesHandler.Upload)
		r.Get("/uploads/{file}", facesHandler.ServeUpload)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/gallery", facesHandler.Gallery)
			r.Post("/match", recognitionHandler.Match)
			r.Get("/recognition", recognitionHandler.Status)
		})

		// Kiosk page
		r.Handle("/*", http.FileServerFS(static.Assets()))
	})
}
