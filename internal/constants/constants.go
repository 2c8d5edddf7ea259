// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultDistanceThreshold is the default maximum Euclidean distance for a face match.
	// Lower values = stricter matching
	DefaultDistanceThreshold = 0.6

	// UnknownLabel is reported for faces that match no identity within the threshold
	UnknownLabel = "unknown"
)

// Storage constants
const (
	// ImageExtension is the fixed extension of every persisted identity image
	ImageExtension = ".jpg"

	// NameDelimiter separates the identity name from an optional suffix in stored file names
	NameDelimiter = "_"

	// MaxNameLength is the maximum identity name length in runes
	MaxNameLength = 64

	// ImageQuality is the JPEG quality used when re-encoding enrolled frames
	ImageQuality = 90
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel detector calls during gallery bootstrap
	WorkerPoolSize = 4

	// MaxImageSize is the maximum dimension (width or height) of a stored identity image
	MaxImageSize = 1280

	// DefaultTickInterval is the default period between recognition ticks
	DefaultTickInterval = 200 * time.Millisecond

	// DefaultDetectorTimeout bounds a single detector request
	DefaultDetectorTimeout = 10 * time.Second
)

// Camera constants
const (
	// CameraWidth and CameraHeight are the requested capture resolution
	CameraWidth  = 720
	CameraHeight = 560
)
