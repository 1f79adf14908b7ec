package backend

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Image validation errors.
var (
	ErrImageEmpty      = errors.New("backend: image data is empty")
	ErrImageNotPNG     = errors.New("backend: image data is not a valid PNG")
	ErrImageTooSmall   = errors.New("backend: image data too small to be valid")
	ErrImageDecodeFail = errors.New("backend: failed to decode image")
)

// IsPNG checks whether data starts with the PNG signature.
func IsPNG(data []byte) bool {
	if len(data) < len(pngMagic) {
		return false
	}
	return bytes.Equal(data[:len(pngMagic)], pngMagic)
}

// ValidateImageData checks that data is a structurally valid PNG. Remote
// backends run this before handing bytes to the caller so a truncated
// response surfaces as a generation failure, not a corrupt archive entry.
func ValidateImageData(data []byte) error {
	if len(data) == 0 {
		return ErrImageEmpty
	}
	// signature + IHDR + IEND
	if len(data) < 45 {
		return ErrImageTooSmall
	}
	if !IsPNG(data) {
		return ErrImageNotPNG
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return nil
}

// decodePNGSize returns the pixel dimensions of a PNG without a full decode.
func decodePNGSize(data []byte) (int, int, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return cfg.Width, cfg.Height, nil
}

// EncodePNG renders an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return buf.Bytes(), nil
}
