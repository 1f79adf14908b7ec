package plugins

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/holidays.yaml data/artstyles.yaml
var dataFS embed.FS

// Holiday is one entry of the holiday calendar.
type Holiday struct {
	Name   string `yaml:"name"`
	Month  int    `yaml:"month"`
	Day    int    `yaml:"day"`
	Spirit string `yaml:"spirit"`
	Fact   string `yaml:"fact"`
}

// ArtStyle is one style preset for the art_style plugin.
type ArtStyle struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
	Tag    string `yaml:"tag"`
}

type holidayFile struct {
	Holidays []Holiday `yaml:"holidays"`
}

type styleFile struct {
	Styles []ArtStyle `yaml:"styles"`
}

// DefaultHolidays parses the embedded holiday calendar.
func DefaultHolidays() ([]Holiday, error) {
	raw, err := dataFS.ReadFile("data/holidays.yaml")
	if err != nil {
		return nil, fmt.Errorf("plugins: reading embedded holidays: %w", err)
	}
	return parseHolidays(raw)
}

// DefaultArtStyles parses the embedded style presets.
func DefaultArtStyles() ([]ArtStyle, error) {
	raw, err := dataFS.ReadFile("data/artstyles.yaml")
	if err != nil {
		return nil, fmt.Errorf("plugins: reading embedded art styles: %w", err)
	}
	return parseStyles(raw)
}

// LoadHolidaysFile parses a holiday calendar from disk, overriding the
// embedded defaults.
func LoadHolidaysFile(path string) ([]Holiday, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugins: reading %s: %w", path, err)
	}
	return parseHolidays(raw)
}

// LoadArtStylesFile parses style presets from disk, overriding the embedded
// defaults.
func LoadArtStylesFile(path string) ([]ArtStyle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugins: reading %s: %w", path, err)
	}
	return parseStyles(raw)
}

func parseHolidays(raw []byte) ([]Holiday, error) {
	var file holidayFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("plugins: parsing holiday calendar: %w", err)
	}
	if len(file.Holidays) == 0 {
		return nil, fmt.Errorf("plugins: holiday calendar is empty")
	}
	for _, h := range file.Holidays {
		if h.Month < 1 || h.Month > 12 || h.Day < 1 || h.Day > 31 {
			return nil, fmt.Errorf("plugins: holiday %q has invalid date %d/%d", h.Name, h.Month, h.Day)
		}
	}
	return file.Holidays, nil
}

func parseStyles(raw []byte) ([]ArtStyle, error) {
	var file styleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("plugins: parsing art styles: %w", err)
	}
	if len(file.Styles) == 0 {
		return nil, fmt.Errorf("plugins: art style list is empty")
	}
	return file.Styles, nil
}
