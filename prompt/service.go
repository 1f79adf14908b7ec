// Package prompt builds the final generation prompt from the user's base
// prompt and the plugin pipeline's contributions, synthesizing a prompt via
// an external creative-text service when no base prompt is given.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrPromptService marks failures of the external text service.
var ErrPromptService = errors.New("prompt: text service failed")

// TextService produces prompt text from guidance. The implementation may be
// non-deterministic (a creative LLM); that non-determinism stays behind this
// interface so the composer is testable with a fake.
type TextService interface {
	Enhance(ctx context.Context, guidance string) (string, error)
}

// systemInstruction frames the creative-text call. The model receives the
// plugin guidance as the user message.
const systemInstruction = "You write a single vivid text-to-image prompt. " +
	"Respond with the prompt only: no preamble, no quotes, no explanations. " +
	"Incorporate the themes you are given."

// OpenAIService implements TextService against any OpenAI-compatible chat
// endpoint, which includes a local Ollama server.
type OpenAIService struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIServiceConfig configures the chat-completion client.
type OpenAIServiceConfig struct {
	// APIKey may be empty for local endpoints that skip auth.
	APIKey string

	// BaseURL is the OpenAI-compatible endpoint, e.g. http://localhost:11434/v1.
	BaseURL string

	// Model is the chat model identifier.
	Model string

	// Temperature controls creative variance.
	Temperature float64

	// HTTPClient overrides the default transport (optional).
	HTTPClient *http.Client
}

// NewOpenAIService creates the chat-backed text service.
func NewOpenAIService(cfg OpenAIServiceConfig) (*OpenAIService, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("prompt: text service model cannot be empty")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIService{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}, nil
}

// Enhance asks the chat model for a prompt built around the guidance text.
func (s *OpenAIService) Enhance(ctx context.Context, guidance string) (string, error) {
	userMessage := "Write an image prompt."
	if guidance != "" {
		userMessage = "Write an image prompt around these themes: " + guidance
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPromptService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrPromptService)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank prompt returned", ErrPromptService)
	}
	return text, nil
}
