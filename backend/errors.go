// Package backend defines the image-generation backend port and its
// implementations: a remote OpenAI-compatible Z-Image client and a
// hardware-free mock.
package backend

import "errors"

// Sentinel errors for backend operations. Callers classify failures with
// errors.Is and the IsTransient predicate below.
var (
	// Model lifecycle errors
	ErrModelLoadFailed = errors.New("backend: failed to load model")
	ErrNotLoaded       = errors.New("backend: model not loaded")

	// Generation errors
	ErrGenerationFailed  = errors.New("backend: image generation failed")
	ErrGenerationTimeout = errors.New("backend: image generation timed out")

	// Input validation errors
	ErrInvalidPrompt = errors.New("backend: invalid prompt")
	ErrInvalidParams = errors.New("backend: invalid generation parameters")

	// Resource errors
	ErrUnavailable = errors.New("backend: service unavailable")
	ErrOutOfMemory = errors.New("backend: out of accelerator memory")

	// Exclusive-ownership errors
	ErrBusy = errors.New("backend: generation already in progress")
)

// IsTransient reports whether err is worth retrying. Timeouts, unavailable
// services and memory pressure clear up; bad parameters and a model that
// refuses to load do not.
func IsTransient(err error) bool {
	switch {
	case errors.Is(err, ErrGenerationTimeout),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrOutOfMemory),
		errors.Is(err, ErrGenerationFailed):
		return true
	default:
		return false
	}
}
