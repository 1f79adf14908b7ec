package plugins

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// loraExtensions are the adapter file types the selector recognizes.
var loraExtensions = map[string]bool{
	".safetensors": true,
	".ckpt":        true,
	".pt":          true,
}

// LoraSelector contributes a lora adapter reference in standard
// `<lora:name:weight>` prompt syntax. Adapters are discovered by scanning a
// directory; an allow-list restricts candidates when set.
//
// Whether a run gets a lora at all is probabilistic, but reproducible: the
// generator is seeded from the caller-provided seed combined with the run
// timestamp, so a fixed (seed, now) pair always selects the same adapter.
type LoraSelector struct {
	dir         string
	allowed     map[string]bool
	probability float64
	weight      float64
	seed        int64
}

// LoraConfig configures the lora plugin.
type LoraConfig struct {
	// Dir is the directory scanned for adapter files.
	Dir string

	// Enabled restricts selection to these adapter names when non-empty.
	Enabled []string

	// Probability in [0,1] that a run applies a lora at all.
	Probability float64

	// Weight is the application strength written into the prompt fragment.
	// Zero defaults to 0.8.
	Weight float64

	// Seed drives the per-run selection randomness.
	Seed int64
}

// NewLoraSelector creates the lora plugin.
func NewLoraSelector(cfg LoraConfig) (*LoraSelector, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("plugins: lora directory cannot be empty")
	}
	if cfg.Probability < 0 || cfg.Probability > 1 {
		return nil, fmt.Errorf("plugins: lora probability %g outside [0,1]", cfg.Probability)
	}
	if cfg.Weight == 0 {
		cfg.Weight = 0.8
	}

	var allowed map[string]bool
	if len(cfg.Enabled) > 0 {
		allowed = make(map[string]bool, len(cfg.Enabled))
		for _, name := range cfg.Enabled {
			allowed[strings.ToLower(name)] = true
		}
	}

	return &LoraSelector{
		dir:         cfg.Dir,
		allowed:     allowed,
		probability: cfg.Probability,
		weight:      cfg.Weight,
		seed:        cfg.Seed,
	}, nil
}

// Name implements Plugin.
func (l *LoraSelector) Name() string { return NameLora }

// Evaluate rolls the application probability and, on success, picks one
// available adapter. A missing or empty lora directory is not an error,
// just no contribution.
func (l *LoraSelector) Evaluate(now time.Time, _ []ContextItem) (*ContextItem, error) {
	candidates, err := l.scan()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(l.seed ^ now.UnixNano()))
	if rng.Float64() >= l.probability {
		return nil, nil
	}

	chosen := candidates[rng.Intn(len(candidates))]
	return &ContextItem{
		Name:        NameLora,
		Value:       fmt.Sprintf("<lora:%s:%.1f>", chosen, l.weight),
		Description: "lora adapter: " + chosen,
	}, nil
}

// scan lists adapter names available for selection, sorted for stable
// ordering across runs.
func (l *LoraSelector) scan() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugins: scanning lora directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !loraExtensions[ext] {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if l.allowed != nil && !l.allowed[strings.ToLower(name)] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
