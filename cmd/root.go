package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/detector"
	"github.com/kozaktomas/face-recognizer/internal/enrollment"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/kozaktomas/face-recognizer/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "face-recognizer",
	Short: "Recognize enrolled faces in a live camera feed",
	Long: `Face Recognizer keeps a gallery of named face images, extracts a face
descriptor from each of them and continuously matches the faces seen by a
camera against that gallery.

New people are enrolled from a single image, either through the web UI,
the HTTP API or the enroll command.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (defaults to $FACES_CONFIG_FILE)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig loads the configuration and creates the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("loading config: %w", err)
	}
	return cfg, logging.New(cfg.Log), nil
}

// core holds the components shared by every command.
type core struct {
	store    *store.DiskStore
	detector detector.Detector
	service  *enrollment.Service
}

func newCore(cfg *config.Config, logger zerolog.Logger) (*core, error) {
	st, err := store.NewDiskStore(cfg.Store.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	det, err := detector.New(cfg.Detector, logger)
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}
	svc := enrollment.New(st, det, enrollment.Options{
		Threshold:    cfg.Matcher.Threshold,
		MaxImageSize: cfg.Store.MaxImageSize,
		Workers:      cfg.Matcher.Workers,
	}, logger)
	return &core{store: st, detector: det, service: svc}, nil
}

// Close releases native detector resources.
func (c *core) Close() {
	if closer, ok := c.detector.(detector.Closer); ok {
		_ = closer.Close()
	}
}
