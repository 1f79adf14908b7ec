package backend

import (
	"context"
	"fmt"
	"strings"
)

// Params holds the generation knobs handed to a backend alongside the prompt.
type Params struct {
	NegativePrompt string  // Optional: what to avoid in the image
	Width          int     // Image width in pixels
	Height         int     // Image height in pixels
	Steps          int     // Number of inference steps
	GuidanceScale  float64 // Classifier-free guidance scale
	Seed           int64   // Random seed for reproducibility (-1 for random)
}

// Parameter validation bounds.
const (
	MinImageSize      = 128
	MaxImageSize      = 2048
	ImageSizeMultiple = 8 // Dimensions must be divisible by this

	MinSteps = 1
	MaxSteps = 100

	MinGuidanceScale = 0.0
	MaxGuidanceScale = 30.0

	MaxPromptLength = 2000
)

// ModelInfo identifies a backend and its loaded model for logging and
// result metadata.
type ModelInfo struct {
	// Name is the model identifier, e.g. "z-image-turbo".
	Name string

	// Kind names the implementation, e.g. "zimage" or "mock".
	Kind string

	// Endpoint is the serving URL for remote backends, empty for local ones.
	Endpoint string
}

// String renders the info as "kind/name" for event payloads.
func (m ModelInfo) String() string {
	if m.Name == "" {
		return m.Kind
	}
	return m.Kind + "/" + m.Name
}

// ImageBackend is the port to the image synthesis resource. Implementations
// own the model's memory; callers must hold exclusive use for the span of
// Load through Unload or ClearMemory.
type ImageBackend interface {
	// Load prepares the model for generation. Calling Load on a loaded
	// backend is a no-op.
	Load(ctx context.Context) error

	// Generate synthesizes one image for the prompt and returns the encoded
	// bytes. Returns ErrNotLoaded if Load has not succeeded.
	Generate(ctx context.Context, prompt string, p Params) ([]byte, error)

	// ClearMemory drops per-run caches without unloading the model.
	ClearMemory(ctx context.Context) error

	// Unload releases the model and its memory. Safe to call when not loaded.
	Unload(ctx context.Context) error

	// Loaded reports whether the model is ready to generate.
	Loaded() bool

	// Info identifies the backend and its model.
	Info() ModelInfo
}

// ValidatePrompt checks the prompt text before it reaches a backend.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrInvalidPrompt)
	}
	if len(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt length %d exceeds maximum %d",
			ErrInvalidPrompt, len(prompt), MaxPromptLength)
	}
	return nil
}

// ValidateParams validates generation parameters. Pure function.
func ValidateParams(p Params) error {
	if p.Width < MinImageSize || p.Width > MaxImageSize {
		return fmt.Errorf("%w: width %d must be between %d and %d",
			ErrInvalidParams, p.Width, MinImageSize, MaxImageSize)
	}
	if p.Width%ImageSizeMultiple != 0 {
		return fmt.Errorf("%w: width %d must be divisible by %d",
			ErrInvalidParams, p.Width, ImageSizeMultiple)
	}

	if p.Height < MinImageSize || p.Height > MaxImageSize {
		return fmt.Errorf("%w: height %d must be between %d and %d",
			ErrInvalidParams, p.Height, MinImageSize, MaxImageSize)
	}
	if p.Height%ImageSizeMultiple != 0 {
		return fmt.Errorf("%w: height %d must be divisible by %d",
			ErrInvalidParams, p.Height, ImageSizeMultiple)
	}

	if p.Steps < MinSteps || p.Steps > MaxSteps {
		return fmt.Errorf("%w: steps %d must be between %d and %d",
			ErrInvalidParams, p.Steps, MinSteps, MaxSteps)
	}

	if p.GuidanceScale < MinGuidanceScale || p.GuidanceScale > MaxGuidanceScale {
		return fmt.Errorf("%w: guidance scale %.2f must be between %.1f and %.1f",
			ErrInvalidParams, p.GuidanceScale, MinGuidanceScale, MaxGuidanceScale)
	}

	if len(p.NegativePrompt) > MaxPromptLength {
		return fmt.Errorf("%w: negative prompt length %d exceeds maximum %d",
			ErrInvalidParams, len(p.NegativePrompt), MaxPromptLength)
	}

	return nil
}
