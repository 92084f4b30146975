// Package config handles engine configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SourceConfig holds per-source settings, mirroring spec.md §6's
// exhaustive per-source option set.
type SourceConfig struct {
	Enabled           bool
	BaseURL           string
	Credential        string
	RequestsPerWindow int
	WindowSeconds     int
	MaxInFlight       int
	DemoMode          bool
}

// AIConfig holds outreach AI backend settings.
type AIConfig struct {
	Provider       string
	Model          string
	Credential     string
	TimeoutMs      int
	MaxOutputChars int
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Kind          string // "memory" or "external"
	DefaultTTLSec int
	Capacity      int
}

// ScoringConfig holds rubric tunables.
type ScoringConfig struct {
	RubricWeights     map[string]float64
	EliteSchools      []string
	TopTierCompanies  []string
	SkillVocabulary   []string
}

// OrchestratorConfig holds job-level concurrency/timeout settings.
type OrchestratorConfig struct {
	JobTimeoutSec        int
	GlobalMaxInFlight    int
	OutreachConcurrency  int
}

// ServerConfig holds the HTTP collaborator's own listen settings. This is
// ambient (not named in spec.md §6, which only describes the engine's own
// configuration object) but required to run cmd/sourcing-api at all.
type ServerConfig struct {
	Port                 int
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	CORSOrigins           []string
	IPRateLimitPerMinute  int
	GlobalRateLimitPerMin int
}

// Config is the single, strongly-typed configuration object supplied at
// process start (spec.md §6).
type Config struct {
	Sources      map[string]SourceConfig
	AI           AIConfig
	Cache        CacheConfig
	Scoring      ScoringConfig
	Orchestrator OrchestratorConfig
	Server       ServerConfig
}

// Recognized source identifiers (spec.md §4.3).
const (
	SourcePrimary      = "primary"
	SourceCodeHost     = "codehost"
	SourceMicroblog    = "microblog"
	SourcePersonalSite = "personalsite"
	SourceAI           = "ai"
)

var knownSources = []string{SourcePrimary, SourceCodeHost, SourceMicroblog, SourcePersonalSite}

// Load reads configuration from environment variables, validating ranges
// per §2.3: weights, positive durations, and concurrency ≥ 1.
func Load() (*Config, error) {
	cfg := &Config{
		Sources: make(map[string]SourceConfig, len(knownSources)),
		AI: AIConfig{
			Provider:       getEnv("AI_PROVIDER", "anthropic"),
			Model:          getEnv("AI_MODEL", "claude-3-5-haiku-latest"),
			Credential:     getEnv("ANTHROPIC_API_KEY", ""),
			TimeoutMs:      getEnvInt("AI_TIMEOUT_MS", 15000),
			MaxOutputChars: getEnvInt("AI_MAX_OUTPUT_CHARS", 1200),
		},
		Cache: CacheConfig{
			Kind:          getEnv("CACHE_KIND", "memory"),
			DefaultTTLSec: getEnvInt("CACHE_DEFAULT_TTL_S", 3600),
			Capacity:      getEnvInt("CACHE_CAPACITY", 10000),
		},
		Scoring: ScoringConfig{
			RubricWeights:    defaultRubricWeights(),
			EliteSchools:     getEnvSlice("SCORING_ELITE_SCHOOLS", defaultEliteSchools()),
			TopTierCompanies: getEnvSlice("SCORING_TOP_TIER_COMPANIES", defaultTopTierCompanies()),
			SkillVocabulary:  getEnvSlice("SCORING_SKILL_VOCABULARY", nil),
		},
		Orchestrator: OrchestratorConfig{
			JobTimeoutSec:       getEnvInt("ORCHESTRATOR_JOB_TIMEOUT_S", 120),
			GlobalMaxInFlight:   getEnvInt("ORCHESTRATOR_GLOBAL_MAX_IN_FLIGHT", 20),
			OutreachConcurrency: getEnvInt("ORCHESTRATOR_OUTREACH_CONCURRENCY", 4),
		},
		Server: ServerConfig{
			Port:                  getEnvInt("PORT", 8080),
			ReadTimeout:           getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:          getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:           getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			CORSOrigins:           getEnvSlice("CORS_ORIGINS", []string{"*"}),
			IPRateLimitPerMinute:  getEnvInt("HTTP_IP_RATE_LIMIT_PER_MINUTE", 100),
			GlobalRateLimitPerMin: getEnvInt("HTTP_GLOBAL_RATE_LIMIT_PER_MINUTE", 1000),
		},
	}

	cfg.Sources[SourcePrimary] = SourceConfig{
		Enabled:           getEnvBool("SOURCE_PRIMARY_ENABLED", true),
		BaseURL:           getEnv("SOURCE_PRIMARY_BASE_URL", ""),
		Credential:        getEnv("SOURCE_PRIMARY_CREDENTIAL", ""),
		RequestsPerWindow: getEnvInt("SOURCE_PRIMARY_REQUESTS_PER_WINDOW", 10),
		WindowSeconds:     getEnvInt("SOURCE_PRIMARY_WINDOW_SECONDS", 60),
		MaxInFlight:       getEnvInt("SOURCE_PRIMARY_MAX_IN_FLIGHT", 4),
		DemoMode:          getEnvBool("SOURCE_PRIMARY_DEMO_MODE", true),
	}
	cfg.Sources[SourceCodeHost] = SourceConfig{
		Enabled:           getEnvBool("SOURCE_CODEHOST_ENABLED", true),
		BaseURL:           getEnv("SOURCE_CODEHOST_BASE_URL", "https://api.github.com"),
		Credential:        getEnv("SOURCE_CODEHOST_CREDENTIAL", getEnv("GITHUB_TOKEN", "")),
		RequestsPerWindow: getEnvInt("SOURCE_CODEHOST_REQUESTS_PER_WINDOW", 30),
		WindowSeconds:     getEnvInt("SOURCE_CODEHOST_WINDOW_SECONDS", 60),
		MaxInFlight:       getEnvInt("SOURCE_CODEHOST_MAX_IN_FLIGHT", 4),
		DemoMode:          getEnvBool("SOURCE_CODEHOST_DEMO_MODE", true),
	}
	cfg.Sources[SourceMicroblog] = SourceConfig{
		Enabled:           getEnvBool("SOURCE_MICROBLOG_ENABLED", true),
		BaseURL:           getEnv("SOURCE_MICROBLOG_BASE_URL", ""),
		Credential:        getEnv("SOURCE_MICROBLOG_CREDENTIAL", ""),
		RequestsPerWindow: getEnvInt("SOURCE_MICROBLOG_REQUESTS_PER_WINDOW", 20),
		WindowSeconds:     getEnvInt("SOURCE_MICROBLOG_WINDOW_SECONDS", 60),
		MaxInFlight:       getEnvInt("SOURCE_MICROBLOG_MAX_IN_FLIGHT", 4),
		DemoMode:          getEnvBool("SOURCE_MICROBLOG_DEMO_MODE", true),
	}
	cfg.Sources[SourcePersonalSite] = SourceConfig{
		Enabled:           getEnvBool("SOURCE_PERSONALSITE_ENABLED", true),
		BaseURL:           getEnv("SOURCE_PERSONALSITE_BASE_URL", ""),
		Credential:        getEnv("SOURCE_PERSONALSITE_CREDENTIAL", ""),
		RequestsPerWindow: getEnvInt("SOURCE_PERSONALSITE_REQUESTS_PER_WINDOW", 15),
		WindowSeconds:     getEnvInt("SOURCE_PERSONALSITE_WINDOW_SECONDS", 60),
		MaxInFlight:       getEnvInt("SOURCE_PERSONALSITE_MAX_IN_FLIGHT", 2),
		DemoMode:          getEnvBool("SOURCE_PERSONALSITE_DEMO_MODE", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants at startup rather than at
// first use, so a misconfigured deployment fails fast.
func (c *Config) Validate() error {
	var sum float64
	for dim, w := range c.Scoring.RubricWeights {
		if w < 0 {
			return fmt.Errorf("config: rubric weight %q is negative", dim)
		}
		sum += w
	}
	if len(c.Scoring.RubricWeights) > 0 {
		if diff := sum - 1.0; diff > 1e-6 || diff < -1e-6 {
			return fmt.Errorf("config: rubric weights sum to %f, want 1.0", sum)
		}
	}
	if c.Orchestrator.JobTimeoutSec <= 0 {
		return fmt.Errorf("config: orchestrator job timeout must be positive")
	}
	if c.Orchestrator.GlobalMaxInFlight < 1 {
		return fmt.Errorf("config: global max in-flight must be >= 1")
	}
	if c.Orchestrator.OutreachConcurrency < 1 {
		return fmt.Errorf("config: outreach concurrency must be >= 1")
	}
	for id, sc := range c.Sources {
		if !sc.Enabled {
			continue
		}
		if sc.RequestsPerWindow < 1 || sc.WindowSeconds < 1 {
			return fmt.Errorf("config: source %q must have positive requests_per_window/window_seconds", id)
		}
		if sc.MaxInFlight < 1 {
			return fmt.Errorf("config: source %q max_in_flight must be >= 1", id)
		}
	}
	return nil
}

func defaultRubricWeights() map[string]float64 {
	return map[string]float64{
		"education":          0.20,
		"career_trajectory":  0.20,
		"company_relevance":  0.15,
		"experience_match":   0.25,
		"location_match":     0.10,
		"tenure":             0.10,
	}
}

func defaultEliteSchools() []string {
	return []string{
		"mit", "stanford", "harvard", "carnegie mellon", "berkeley",
		"caltech", "princeton", "oxford", "cambridge", "eth zurich",
	}
}

func defaultTopTierCompanies() []string {
	return []string{
		"google", "meta", "apple", "amazon", "microsoft", "netflix",
		"openai", "anthropic", "nvidia", "stripe",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
