package plugins

import (
	"fmt"
	"time"

	"artloop/logging"

	"go.uber.org/zap"
)

// Pipeline runs the registry's enabled plugins in order and collects their
// contributions. Absent contributions are omitted, never padded.
type Pipeline struct {
	registry *Registry
	logger   *logging.Logger
}

// NewPipeline creates a Pipeline over the given registry.
func NewPipeline(registry *Registry, logger *logging.Logger) (*Pipeline, error) {
	if registry == nil {
		return nil, fmt.Errorf("plugins: registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("plugins: logger cannot be nil")
	}
	return &Pipeline{
		registry: registry,
		logger:   logger.Named("pipeline"),
	}, nil
}

// Run evaluates the enabled plugins against now and returns their
// contributions in execution order.
//
// A non-critical plugin failure is logged and its contribution dropped; a
// critical plugin failure aborts the run with an error matching
// ErrPluginFailed. Output is deterministic for a fixed now and a fixed
// enabled-set: the snapshot is taken once at the start of the run, so
// concurrent Enable/Disable calls cannot change this run's plugin set.
func (p *Pipeline) Run(now time.Time) ([]ContextItem, error) {
	snapshot := p.registry.Snapshot()

	items := make([]ContextItem, 0, len(snapshot))
	for _, plug := range snapshot {
		item, err := plug.Evaluate(now, items)
		if err != nil {
			if isCritical(plug) {
				return nil, fmt.Errorf("%w: %s: %v", ErrPluginFailed, plug.Name(), err)
			}
			p.logger.Warn("plugin failed, dropping contribution",
				zap.String("plugin", plug.Name()),
				zap.Error(err))
			continue
		}
		if item == nil {
			p.logger.Debug("plugin made no contribution",
				zap.String("plugin", plug.Name()))
			continue
		}
		items = append(items, *item)
	}

	return items, nil
}
