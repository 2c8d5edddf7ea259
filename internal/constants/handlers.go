// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (32MB)
	MaxUploadSize = 32 << 20
)

// URL prefixes
const (
	// UploadsURLPrefix is the URL path under which stored identity images are served
	UploadsURLPrefix = "/uploads/"
)
