package backend

import (
	"fmt"

	"artloop/core"
	"artloop/logging"
)

// New selects and constructs the configured backend. UseMockGenerator wins
// over the named backend so a dry run never reaches the serving endpoint.
func New(cfg *core.Config, logger *logging.Logger) (ImageBackend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend: config cannot be nil")
	}

	name := cfg.ImageBackend
	if cfg.UseMockGenerator {
		name = "mock"
	}

	switch name {
	case "mock":
		return NewMock(), nil
	case "zimage":
		return NewZImage(ZImageConfig{
			BaseURL: cfg.ZImageURL,
			APIKey:  cfg.ImageAPIKey,
			Model:   cfg.ZImageModel,
		}, logger)
	default:
		return nil, fmt.Errorf("backend: unknown backend %q", name)
	}
}

// ParamsFromConfig builds default generation parameters from configuration.
// Seed -1 asks the caller to pick one per run.
func ParamsFromConfig(cfg *core.Config) Params {
	return Params{
		Width:         cfg.ImageWidth,
		Height:        cfg.ImageHeight,
		Steps:         cfg.InferenceSteps,
		GuidanceScale: cfg.GuidanceScale,
		Seed:          -1,
	}
}
