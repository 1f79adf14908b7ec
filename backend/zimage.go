package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"artloop/logging"
)

// ZImageConfig configures the remote Z-Image backend.
type ZImageConfig struct {
	// BaseURL is the OpenAI-compatible serving endpoint,
	// e.g. http://localhost:8000/v1.
	BaseURL string

	// APIKey may be empty for local serving endpoints.
	APIKey string

	// Model is the image model identifier, e.g. "z-image-turbo".
	Model string

	// HTTPClient overrides the default transport (optional).
	HTTPClient *http.Client
}

// ZImage implements ImageBackend against an OpenAI-compatible
// images-generations endpoint serving a Z-Image model. The serving process
// owns the accelerator memory; Load verifies reachability and Unload is a
// local handle release, not a remote model unload.
type ZImage struct {
	client *openai.Client
	cfg    ZImageConfig
	logger *logging.Logger

	mu     sync.Mutex
	loaded bool
}

// NewZImage creates the remote backend. It does not contact the endpoint;
// Load does.
func NewZImage(cfg ZImageConfig, logger *logging.Logger) (*ZImage, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: zimage base URL cannot be empty")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("backend: zimage model cannot be empty")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	return &ZImage{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Load verifies the serving endpoint responds before the first generation.
func (z *ZImage) Load(ctx context.Context) error {
	z.mu.Lock()
	if z.loaded {
		z.mu.Unlock()
		return nil
	}
	z.mu.Unlock()

	if _, err := z.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: endpoint %s: %v", ErrModelLoadFailed, z.cfg.BaseURL, err)
	}

	z.mu.Lock()
	z.loaded = true
	z.mu.Unlock()

	if z.logger != nil {
		z.logger.Info("image backend ready",
			zap.String("endpoint", z.cfg.BaseURL),
			zap.String("model", z.cfg.Model))
	}
	return nil
}

// Generate requests one image and returns the decoded PNG bytes.
func (z *ZImage) Generate(ctx context.Context, prompt string, p Params) ([]byte, error) {
	if !z.Loaded() {
		return nil, ErrNotLoaded
	}
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if err := ValidateParams(p); err != nil {
		return nil, err
	}

	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          z.cfg.Model,
		N:              1,
		Size:           fmt.Sprintf("%dx%d", p.Width, p.Height),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}

	resp, err := z.client.CreateImage(ctx, req)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image response", ErrGenerationFailed)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrGenerationFailed, err)
	}
	if err := ValidateImageData(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if z.logger != nil {
		if w, h, err := decodePNGSize(data); err == nil {
			z.logger.Debug("image generated",
				zap.Int("width", w),
				zap.Int("height", h),
				zap.Int("bytes", len(data)))
		}
	}
	return data, nil
}

// ClearMemory is best-effort for a remote backend: the serving process owns
// its caches.
func (z *ZImage) ClearMemory(_ context.Context) error {
	if z.logger != nil {
		z.logger.Debug("clear memory requested on remote backend, nothing to do locally")
	}
	return nil
}

// Unload releases the local handle. The remote model stays resident.
func (z *ZImage) Unload(_ context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.loaded = false
	return nil
}

func (z *ZImage) Loaded() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.loaded
}

func (z *ZImage) Info() ModelInfo {
	return ModelInfo{Name: z.cfg.Model, Kind: "zimage", Endpoint: z.cfg.BaseURL}
}

// classifyAPIError maps transport and API failures onto the backend error
// taxonomy so the retry policy can distinguish transient from fatal.
func classifyAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusBadRequest,
			apiErr.HTTPStatusCode == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", ErrInvalidParams, err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	// Connection refused and friends: the endpoint may come back.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
