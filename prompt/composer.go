package prompt

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"artloop/logging"
	"artloop/plugins"
)

// Composer turns the base prompt and plugin contributions into the final
// prompt handed to the image backend. The composition itself is pure; only
// synthesis without a base prompt crosses to the text service.
type Composer struct {
	service TextService
	logger  *logging.Logger
}

// NewComposer wires a composer. The text service may be nil when every run
// supplies a base prompt; composing without one then fails.
func NewComposer(service TextService, logger *logging.Logger) *Composer {
	return &Composer{service: service, logger: logger}
}

// GuidanceText flattens plugin contributions into a single guidance string,
// preserving their pipeline order.
func GuidanceText(contributions []plugins.ContextItem) string {
	values := make([]string, 0, len(contributions))
	for _, item := range contributions {
		value := strings.TrimSpace(item.Value)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return strings.Join(values, ", ")
}

// Compose produces the final prompt. A present base prompt is kept verbatim
// and plugin guidance is appended after it; with no base prompt the guidance
// is handed to the text service to synthesize a prompt. Identical inputs give
// an identical result on the base-prompt path.
func (c *Composer) Compose(ctx context.Context, basePrompt string, contributions []plugins.ContextItem) (string, error) {
	basePrompt = strings.TrimSpace(basePrompt)
	guidance := GuidanceText(contributions)

	if basePrompt != "" {
		if guidance == "" {
			return basePrompt, nil
		}
		return basePrompt + ", " + guidance, nil
	}

	if c.service == nil {
		return "", fmt.Errorf("%w: no base prompt and no text service configured", ErrPromptService)
	}

	if c.logger != nil {
		c.logger.Debug("synthesizing prompt from plugin guidance",
			zap.Int("contributions", len(contributions)))
	}

	final, err := c.service.Enhance(ctx, guidance)
	if err != nil {
		return "", err
	}
	return final, nil
}
