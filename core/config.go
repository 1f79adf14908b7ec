package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the generation daemon.
type Config struct {
	// Image backend selection
	ImageBackend     string // "zimage" or "mock"
	UseMockGenerator bool   // Force the mock backend regardless of ImageBackend

	// Z-Image serving endpoint (OpenAI-compatible image API)
	ZImageURL   string // Endpoint of the local serving process
	ZImageModel string // Model identifier sent with generation requests
	ImageAPIKey string // API key, if the serving endpoint requires one

	// Generation defaults
	ImageWidth     int
	ImageHeight    int
	InferenceSteps int
	GuidanceScale  float64

	// Prompt enhancement (OpenAI-compatible chat endpoint, e.g. Ollama)
	TextLLMURL      string
	TextLLMModel    string
	TextLLMKey      string
	TextTemperature float64

	// Prompt inputs
	BasePrompt    string // Optional base prompt used verbatim for every run
	EnablePlugins bool   // Run the context plugin pipeline before composing

	// Plugin configuration
	EnabledPlugins []string       // Plugin names enabled at startup
	PluginOrder    map[string]int // name -> execution priority
	HolidaysFile   string         // Optional holiday calendar override
	ArtStylesFile  string         // Optional art style preset override

	// Lora selection
	LoraDir         string
	EnabledLoras    []string
	LoraProbability float64

	// Scheduler
	LoopInterval time.Duration // Delay between run starts
	BatchSize    int           // 0 means run until cancelled

	// Retry policy
	MaxRetries        int
	RetryDelay        time.Duration
	GenerationTimeout time.Duration

	// Paths
	OutputDir     string
	LogDir        string
	HistoryDBPath string
}

// Default configuration values.
const (
	DefaultImageBackend   = "zimage"
	DefaultZImageURL      = "http://localhost:8000/v1"
	DefaultZImageModel    = "z-image-turbo"
	DefaultImageSize      = 1024
	DefaultInferenceSteps = 8
	DefaultGuidanceScale  = 0.0

	DefaultTextLLMURL   = "http://localhost:11434/v1"
	DefaultTextLLMModel = "llama3.2:3b"
	DefaultTemperature  = 0.7

	DefaultLoraProbability = 0.7

	DefaultLoopIntervalSeconds = 3600
	DefaultMaxRetries          = 3
	DefaultRetryDelaySeconds   = 2
	DefaultTimeoutSeconds      = 300

	DefaultOutputDir = "./output"
	DefaultLogDir    = "./logs"
)

// LoadConfig builds a Config from environment variables, applying defaults
// for anything unset. Malformed numeric values fall back to defaults rather
// than failing the load; validation of the assembled config is separate.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ImageBackend:     strings.ToLower(getEnvOrDefault("IMAGE_BACKEND", DefaultImageBackend)),
		UseMockGenerator: parseBoolEnv("USE_MOCK_GENERATOR", false),

		ZImageURL:   getEnvOrDefault("ZIMAGE_URL", DefaultZImageURL),
		ZImageModel: getEnvOrDefault("ZIMAGE_MODEL", DefaultZImageModel),
		ImageAPIKey: os.Getenv("IMAGE_API_KEY"),

		ImageWidth:     parseIntEnv("IMAGE_WIDTH", DefaultImageSize),
		ImageHeight:    parseIntEnv("IMAGE_HEIGHT", DefaultImageSize),
		InferenceSteps: parseIntEnv("NUM_INFERENCE_STEPS", DefaultInferenceSteps),
		GuidanceScale:  parseFloatEnv("GUIDANCE_SCALE", DefaultGuidanceScale),

		TextLLMURL:      getEnvOrDefault("OLLAMA_HOST", DefaultTextLLMURL),
		TextLLMModel:    getEnvOrDefault("OLLAMA_MODEL", DefaultTextLLMModel),
		TextLLMKey:      os.Getenv("OPENAI_API_KEY"),
		TextTemperature: parseFloatEnv("OLLAMA_TEMPERATURE", DefaultTemperature),

		BasePrompt:    os.Getenv("BASE_PROMPT"),
		EnablePlugins: parseBoolEnv("ENABLE_PLUGINS", true),

		EnabledPlugins: parseListEnv("ENABLED_PLUGINS"),
		PluginOrder:    parseOrderEnv("PLUGIN_ORDER"),
		HolidaysFile:   os.Getenv("HOLIDAYS_FILE"),
		ArtStylesFile:  os.Getenv("ART_STYLES_FILE"),

		LoraDir:         getEnvOrDefault("LORA_DIR", "./loras"),
		EnabledLoras:    parseListEnv("ENABLED_LORAS"),
		LoraProbability: parseFloatEnv("LORA_APPLICATION_PROBABILITY", DefaultLoraProbability),

		LoopInterval: parseDurationSecondsEnv("LOOP_INTERVAL_SECONDS", DefaultLoopIntervalSeconds),
		BatchSize:    parseIntEnv("BATCH_SIZE", 0),

		MaxRetries:        parseIntEnv("MAX_RETRIES", DefaultMaxRetries),
		RetryDelay:        parseDurationSecondsEnv("RETRY_DELAY_SECONDS", DefaultRetryDelaySeconds),
		GenerationTimeout: parseDurationSecondsEnv("GENERATION_TIMEOUT_SECONDS", DefaultTimeoutSeconds),

		OutputDir:     getEnvOrDefault("OUTPUT_DIR", DefaultOutputDir),
		LogDir:        getEnvOrDefault("LOG_DIR", DefaultLogDir),
		HistoryDBPath: os.Getenv("HISTORY_DB_PATH"),
	}

	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = cfg.LogDir + "/artloop.db"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config invariants that cannot be repaired by defaulting.
func (c *Config) Validate() error {
	switch c.ImageBackend {
	case "zimage", "mock":
	default:
		return fmt.Errorf("config: unknown image backend %q (expected \"zimage\" or \"mock\")", c.ImageBackend)
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("config: image dimensions must be positive, got %dx%d", c.ImageWidth, c.ImageHeight)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	if c.LoraProbability < 0 || c.LoraProbability > 1 {
		return fmt.Errorf("config: LORA_APPLICATION_PROBABILITY must be in [0,1], got %g", c.LoraProbability)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: OUTPUT_DIR cannot be empty")
	}
	return nil
}

// Helper function to get environment variable with default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to parse integer environment variable with default value
func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Helper function to parse float environment variable with default value
func parseFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// Helper function to parse boolean environment variable with default value
func parseBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// parseDurationSecondsEnv parses a whole-seconds env var into a Duration.
func parseDurationSecondsEnv(key string, defaultSeconds int) time.Duration {
	seconds := parseIntEnv(key, defaultSeconds)
	if seconds < 0 {
		seconds = defaultSeconds
	}
	return time.Duration(seconds) * time.Second
}

// parseListEnv parses a comma-separated env var into a slice, dropping
// empty entries and trimming whitespace. Returns nil when unset.
func parseListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// parseOrderEnv parses "name:priority,name:priority" pairs into a map.
// Malformed pairs are skipped rather than failing the whole load.
func parseOrderEnv(key string) map[string]int {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	result := make(map[string]int)
	for _, pair := range strings.Split(value, ",") {
		name, prio, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(prio))
		if err != nil {
			continue
		}
		result[strings.TrimSpace(name)] = n
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
