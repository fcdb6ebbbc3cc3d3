// Package config manages Cordon configuration. Settings come from a .env
// file (when present) layered under process environment variables, with
// explicit defaults for everything else. The loaded Config is passed by
// value into the components that need it; there is no ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Narrative configures the optional reason-enrichment provider.
type Narrative struct {
	Provider string // "none" or "openai"
	APIKey   string
	Model    string
	BaseURL  string
}

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string
	DataDir    string

	// Reference datasets
	GraphPath    string
	PolicyPath   string
	IncidentPath string

	// Decision engine
	AutoApproveThreshold float64
	HumanReviewThreshold float64
	WeightInfrastructure float64
	WeightPolicy         float64
	WeightHistorical     float64
	WeightCost           float64
	ScaleDownFactor      float64
	ScaleUpFactor        float64

	// Operational agents
	AgentsEnabled bool
	AgentInterval time.Duration
	MockMode      bool

	// Narrative enrichment
	Narrative Narrative

	// Logging settings
	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment still applies.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	dataDir := getEnv("CORDON_DATA_DIR", "./data")

	cfg := &Config{
		ListenAddr: getEnv("CORDON_LISTEN_ADDR", ":7680"),
		DataDir:    dataDir,

		GraphPath:    getEnv("CORDON_GRAPH_PATH", filepath.Join(dataDir, "resource-graph.yaml")),
		PolicyPath:   getEnv("CORDON_POLICY_PATH", filepath.Join(dataDir, "policies.yaml")),
		IncidentPath: getEnv("CORDON_INCIDENT_PATH", filepath.Join(dataDir, "incidents.yaml")),

		AutoApproveThreshold: getEnvFloat("CORDON_AUTO_APPROVE_THRESHOLD", 25),
		HumanReviewThreshold: getEnvFloat("CORDON_HUMAN_REVIEW_THRESHOLD", 60),
		WeightInfrastructure: getEnvFloat("CORDON_WEIGHT_INFRASTRUCTURE", 0.30),
		WeightPolicy:         getEnvFloat("CORDON_WEIGHT_POLICY", 0.25),
		WeightHistorical:     getEnvFloat("CORDON_WEIGHT_HISTORICAL", 0.25),
		WeightCost:           getEnvFloat("CORDON_WEIGHT_COST", 0.20),
		ScaleDownFactor:      getEnvFloat("CORDON_SCALE_DOWN_FACTOR", 0.30),
		ScaleUpFactor:        getEnvFloat("CORDON_SCALE_UP_FACTOR", 0.50),

		AgentsEnabled: getEnvBool("CORDON_AGENTS_ENABLED", false),
		AgentInterval: getEnvDuration("CORDON_AGENT_INTERVAL", 5*time.Minute),
		MockMode:      getEnvBool("CORDON_MOCK_MODE", false),

		Narrative: Narrative{
			Provider: getEnv("CORDON_NARRATIVE_PROVIDER", "none"),
			APIKey:   os.Getenv("CORDON_NARRATIVE_API_KEY"),
			Model:    os.Getenv("CORDON_NARRATIVE_MODEL"),
			BaseURL:  os.Getenv("CORDON_NARRATIVE_BASE_URL"),
		},

		LogLevel:  getEnv("CORDON_LOG_LEVEL", "info"),
		LogFormat: getEnv("CORDON_LOG_FORMAT", "auto"),
		LogFile:   os.Getenv("CORDON_LOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces cross-field invariants.
func (c *Config) Validate() error {
	sum := c.WeightInfrastructure + c.WeightPolicy + c.WeightHistorical + c.WeightCost
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("dimension weights must sum to 1.0, got %.4f", sum)
	}
	if c.AutoApproveThreshold >= c.HumanReviewThreshold {
		return fmt.Errorf("auto-approve threshold %.2f must be below human-review threshold %.2f",
			c.AutoApproveThreshold, c.HumanReviewThreshold)
	}
	switch c.Narrative.Provider {
	case "", "none", "openai":
	default:
		return fmt.Errorf("unknown narrative provider %q", c.Narrative.Provider)
	}
	if c.Narrative.Provider == "openai" && c.Narrative.APIKey == "" {
		return fmt.Errorf("narrative provider openai requires CORDON_NARRATIVE_API_KEY")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid float in environment; using default")
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid bool in environment; using default")
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration in environment; using default")
		return fallback
	}
	return d
}
