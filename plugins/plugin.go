package plugins

import (
	"errors"
	"time"
)

// Built-in plugin names. The plugin set is closed: new behavior is a new
// implementation of Plugin registered under a new name, never runtime
// patching of an existing one.
const (
	NameTimeOfDay      = "time_of_day"
	NameNearestHoliday = "nearest_holiday"
	NameHolidayFact    = "holiday_fact"
	NameArtStyle       = "art_style"
	NameLora           = "lora"
)

// ErrPluginFailed marks a pipeline failure caused by a critical plugin.
// Non-critical plugin failures are logged and swallowed by the pipeline.
var ErrPluginFailed = errors.New("plugins: plugin evaluation failed")

// Plugin produces at most one context item per pipeline run.
//
// Evaluate receives the run's timestamp and the items already contributed by
// plugins ordered before it, so a plugin may read a predecessor's output
// (e.g. the art-style plugin biasing toward a selected lora). Returning
// (nil, nil) means "no contribution" and is not an error.
//
// Implementations must be deterministic for a fixed now: any randomness is
// seeded by the caller at construction.
type Plugin interface {
	Name() string
	Evaluate(now time.Time, prior []ContextItem) (*ContextItem, error)
}

// critical marks plugins whose failure must abort the pipeline. Checked by
// type assertion; plugins that do not implement it are non-critical, which
// is the default for every built-in.
type critical interface {
	Critical() bool
}

// isCritical reports whether a plugin's failure aborts the pipeline.
func isCritical(p Plugin) bool {
	c, ok := p.(critical)
	return ok && c.Critical()
}
