package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/camera"
	"github.com/kozaktomas/face-recognizer/internal/enrollment"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/kozaktomas/face-recognizer/internal/web"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server and the recognition loop",
	Long: `Start the Face Recognizer web server.

The gallery is loaded from the store directory at startup. When a camera
backend is configured, frames are sampled at the recognition interval and
the results are streamed to connected clients.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().String("camera", "", "Camera backend: snapshot, directory or device (overrides config)")
}

// reloadPeriodically picks up images added to or removed from the store by hand.
func reloadPeriodically(ctx context.Context, svc *enrollment.Service, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.Reload(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("periodic gallery reload failed")
			}
		}
	}
}

// startLoop starts the recognition loop in the background. The returned
// channel is closed once the loop has released the camera.
func startLoop(ctx context.Context, loop *recognition.Loop, logger zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := loop.Run(ctx); err != nil {
			if errors.Is(err, camera.ErrAccessDenied) {
				logger.Error().Err(err).Msg("camera access denied, live recognition disabled")
				return
			}
			logger.Error().Err(err).Msg("recognition loop failed")
		}
	}()
	return done
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if backend := mustGetString(cmd, "camera"); backend != "" {
		cfg.Camera.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.service.Reload(ctx); err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			return fmt.Errorf("loading gallery: %w", err)
		}
		logger.Warn().Err(err).Msg("starting with an empty gallery")
	}

	events := recognition.NewBroadcaster()
	deps := web.Deps{
		Enrollment: c.service,
		Store:      c.store,
		Detector:   c.detector,
		Events:     events,
	}

	var loopDone <-chan struct{}
	if cfg.Camera.Enabled() {
		source, err := camera.New(cfg.Camera, logger)
		if err != nil {
			return fmt.Errorf("creating camera: %w", err)
		}
		deps.Loop = recognition.NewLoop(source, c.detector, c.service, events,
			recognition.Options{Interval: cfg.Recognition.Interval, OverlapIoU: cfg.Recognition.OverlapIoU}, logger)
		loopDone = startLoop(ctx, deps.Loop, logger)
	} else {
		logger.Info().Msg("no camera configured, live recognition disabled")
	}

	if cfg.Recognition.ReloadInterval > 0 {
		go reloadPeriodically(ctx, c.service, cfg.Recognition.ReloadInterval, logger)
	}

	server := web.NewServer(cfg, deps, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
	}()

	fmt.Printf("Face Recognizer listening on http://%s\n", cfg.Web.Addr())
	fmt.Println("Press Ctrl+C to stop")

	err = server.Start()
	cancel()
	if deps.Loop != nil {
		<-loopDone
	}
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
