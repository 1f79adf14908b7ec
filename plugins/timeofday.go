package plugins

import "time"

// TimeOfDay contributes a lighting/mood descriptor derived from the hour of
// the run timestamp.
type TimeOfDay struct{}

// NewTimeOfDay creates the time_of_day plugin.
func NewTimeOfDay() *TimeOfDay {
	return &TimeOfDay{}
}

// Name implements Plugin.
func (t *TimeOfDay) Name() string { return NameTimeOfDay }

// Evaluate maps the hour to a descriptor. Always contributes.
func (t *TimeOfDay) Evaluate(now time.Time, _ []ContextItem) (*ContextItem, error) {
	descriptor := timeDescriptor(now.Hour())
	return &ContextItem{
		Name:        NameTimeOfDay,
		Value:       descriptor,
		Description: "time-of-day lighting: " + descriptor,
	}, nil
}

// timeDescriptor buckets a 24h clock into lighting descriptions.
func timeDescriptor(hour int) string {
	switch {
	case hour < 5:
		return "deep night scene under starlight"
	case hour < 8:
		return "early morning with soft golden sunrise light"
	case hour < 11:
		return "bright morning light with long shadows"
	case hour < 14:
		return "clear midday light"
	case hour < 17:
		return "warm afternoon light"
	case hour < 20:
		return "golden hour glow at sunset"
	case hour < 22:
		return "dusk with fading violet light"
	default:
		return "night scene with moonlight"
	}
}
