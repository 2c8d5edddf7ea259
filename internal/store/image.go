package store

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder

	"github.com/kozaktomas/face-recognizer/internal/constants"
	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// ErrInvalidImage is returned when uploaded bytes cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// NormalizedImage is a JPEG re-encoding of an input frame.
type NormalizedImage struct {
	Data   []byte
	Width  int
	Height int
}

// NormalizeImage decodes an image, downsizes it to fit within maxSize (width or
// height) keeping the aspect ratio, and re-encodes it as JPEG.
func NormalizeImage(data []byte, maxSize int) (*NormalizedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	if maxSize > 0 && (width > maxSize || height > maxSize) {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
		} else {
			newHeight = maxSize
			newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
		}
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
		width, height = newWidth, newHeight
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.ImageQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &NormalizedImage{Data: buf.Bytes(), Width: width, Height: height}, nil
}

// DecodeSize returns the pixel dimensions of an encoded image without decoding pixel data.
func DecodeSize(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return cfg.Width, cfg.Height, nil
}
