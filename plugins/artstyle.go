package plugins

import (
	"fmt"
	"strings"
	"time"
)

// ArtStyleSelector contributes a style preset. Selection is deterministic
// from the run date (day-of-year rotation), except when a lora contribution
// from an earlier plugin matches a style tag, in which case the matching
// style wins so the prompt and the adapter agree.
type ArtStyleSelector struct {
	styles []ArtStyle
}

// NewArtStyleSelector creates the art_style plugin over the given presets.
func NewArtStyleSelector(styles []ArtStyle) (*ArtStyleSelector, error) {
	if len(styles) == 0 {
		return nil, fmt.Errorf("plugins: art_style requires a non-empty style list")
	}
	return &ArtStyleSelector{styles: styles}, nil
}

// Name implements Plugin.
func (a *ArtStyleSelector) Name() string { return NameArtStyle }

// Evaluate picks the style for this run. Always contributes.
func (a *ArtStyleSelector) Evaluate(now time.Time, prior []ContextItem) (*ContextItem, error) {
	style := a.pick(now, prior)
	return &ContextItem{
		Name:        NameArtStyle,
		Value:       style.Prompt,
		Description: "art style: " + style.Name,
	}, nil
}

func (a *ArtStyleSelector) pick(now time.Time, prior []ContextItem) ArtStyle {
	if lora := FindItem(prior, NameLora); lora != nil {
		loraValue := strings.ToLower(lora.Value)
		for _, style := range a.styles {
			if style.Tag != "" && strings.Contains(loraValue, style.Tag) {
				return style
			}
		}
	}
	return a.styles[now.YearDay()%len(a.styles)]
}
