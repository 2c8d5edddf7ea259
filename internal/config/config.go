package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "FACES"

//go:embed defaults.yaml
var defaultsYAML []byte

// Validation errors.
var (
	ErrInvalidPort      = errors.New("web port must be between 1 and 65535")
	ErrEmptyStoreDir    = errors.New("store directory is required")
	ErrInvalidThreshold = errors.New("matcher threshold must be positive")
	ErrInvalidInterval  = errors.New("recognition interval must be positive")
	ErrInvalidOverlap   = errors.New("recognition overlap IoU must be between 0 and 1")
	ErrUnknownCamera    = errors.New("unknown camera backend")
	ErrMissingCameraURL = errors.New("snapshot camera requires a URL")
	ErrMissingCameraDir = errors.New("directory camera requires a directory")
	ErrInvalidLogFormat = errors.New("log format must be console or json")
)

type Config struct {
	Web         WebConfig         `yaml:"web" envconfig:"WEB"`
	Store       StoreConfig       `yaml:"store" envconfig:"STORE"`
	Detector    DetectorConfig    `yaml:"detector" envconfig:"DETECTOR"`
	Matcher     MatcherConfig     `yaml:"matcher" envconfig:"MATCHER"`
	Camera      CameraConfig      `yaml:"camera" envconfig:"CAMERA"`
	Recognition RecognitionConfig `yaml:"recognition" envconfig:"RECOGNITION"`
	Log         LogConfig         `yaml:"log" envconfig:"LOG"`
}

type WebConfig struct {
	Host           string        `yaml:"host" envconfig:"HOST"`
	Port           int           `yaml:"port" envconfig:"PORT"`
	AllowedOrigins []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"` // extra CORS origins, localhost is always allowed
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address.
func (c WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StoreConfig struct {
	Dir          string `yaml:"dir" envconfig:"DIR"`
	MaxImageSize int    `yaml:"max_image_size" envconfig:"MAX_IMAGE_SIZE"` // longest side of stored images in pixels
}

type DetectorConfig struct {
	Backend   string        `yaml:"backend" envconfig:"BACKEND"` // http or dlib
	URL       string        `yaml:"url" envconfig:"URL"`
	ModelsDir string        `yaml:"models_dir" envconfig:"MODELS_DIR"` // dlib model files
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

type MatcherConfig struct {
	Threshold float64 `yaml:"threshold" envconfig:"THRESHOLD"`
	Workers   int     `yaml:"workers" envconfig:"WORKERS"` // parallel detector calls while loading the gallery
}

type CameraConfig struct {
	Backend string `yaml:"backend" envconfig:"BACKEND"` // snapshot, directory, device or empty to disable
	URL     string `yaml:"url" envconfig:"URL"`
	Dir     string `yaml:"dir" envconfig:"DIR"`
	Device  int    `yaml:"device" envconfig:"DEVICE"`
	Width   int    `yaml:"width" envconfig:"WIDTH"`
	Height  int    `yaml:"height" envconfig:"HEIGHT"`
}

// Enabled reports whether a camera backend is configured.
func (c CameraConfig) Enabled() bool {
	return c.Backend != ""
}

type RecognitionConfig struct {
	Interval       time.Duration `yaml:"interval" envconfig:"INTERVAL"`
	ReloadInterval time.Duration `yaml:"reload_interval" envconfig:"RELOAD_INTERVAL"` // 0 disables periodic gallery reload
	OverlapIoU     float64       `yaml:"overlap_iou" envconfig:"OVERLAP_IOU"`         // 0 matches every detection
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load builds the configuration from the defaults, the optional YAML file at
// path and FACES_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator supplied config path
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Web.Port)
	}
	if c.Store.Dir == "" {
		return ErrEmptyStoreDir
	}
	if c.Matcher.Threshold <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.Matcher.Threshold)
	}
	if c.Recognition.Interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, c.Recognition.Interval)
	}
	if c.Recognition.OverlapIoU < 0 || c.Recognition.OverlapIoU > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidOverlap, c.Recognition.OverlapIoU)
	}
	switch c.Camera.Backend {
	case "", "device":
	case "snapshot":
		if c.Camera.URL == "" {
			return ErrMissingCameraURL
		}
	case "directory":
		if c.Camera.Dir == "" {
			return ErrMissingCameraDir
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCamera, c.Camera.Backend)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}
