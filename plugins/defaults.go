package plugins

import "fmt"

// defaultOrder is the execution priority of the built-in set when no
// override is configured.
var defaultOrder = map[string]int{
	NameTimeOfDay:      1,
	NameNearestHoliday: 2,
	NameHolidayFact:    3,
	NameArtStyle:       4,
	NameLora:           5,
}

// BuiltinConfig configures registration of the built-in plugin set.
type BuiltinConfig struct {
	// Enabled names the plugins enabled at startup. Nil enables all
	// built-ins; an empty-but-configured set is expressed by listing none
	// of the built-in names.
	Enabled []string

	// Order overrides execution priority per plugin name.
	Order map[string]int

	// HolidayWindowDays configures the nearest_holiday window. Zero uses
	// the default.
	HolidayWindowDays int

	// HolidaysFile and ArtStylesFile override the embedded data sets when
	// non-empty.
	HolidaysFile  string
	ArtStylesFile string

	// Lora configures the lora selector.
	Lora LoraConfig
}

// RegisterBuiltins registers the closed built-in plugin set on the registry
// with the embedded data sets and the configured enable/order state.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) error {
	var (
		holidays []Holiday
		styles   []ArtStyle
		err      error
	)
	if cfg.HolidaysFile != "" {
		holidays, err = LoadHolidaysFile(cfg.HolidaysFile)
	} else {
		holidays, err = DefaultHolidays()
	}
	if err != nil {
		return err
	}
	if cfg.ArtStylesFile != "" {
		styles, err = LoadArtStylesFile(cfg.ArtStylesFile)
	} else {
		styles, err = DefaultArtStyles()
	}
	if err != nil {
		return err
	}

	nearestHoliday, err := NewNearestHoliday(holidays, cfg.HolidayWindowDays)
	if err != nil {
		return err
	}
	holidayFact, err := NewHolidayFact(holidays)
	if err != nil {
		return err
	}
	artStyle, err := NewArtStyleSelector(styles)
	if err != nil {
		return err
	}
	lora, err := NewLoraSelector(cfg.Lora)
	if err != nil {
		return err
	}

	enabled := func(name string) bool {
		if cfg.Enabled == nil {
			return true
		}
		for _, n := range cfg.Enabled {
			if n == name {
				return true
			}
		}
		return false
	}
	order := func(name string) int {
		if o, ok := cfg.Order[name]; ok {
			return o
		}
		return defaultOrder[name]
	}

	builtins := []Plugin{NewTimeOfDay(), nearestHoliday, holidayFact, artStyle, lora}
	for _, p := range builtins {
		if err := r.Register(p, order(p.Name()), enabled(p.Name())); err != nil {
			return fmt.Errorf("plugins: registering built-ins: %w", err)
		}
	}
	return nil
}
