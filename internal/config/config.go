package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server ServerConfig
	Core   CoreConfig
	AI     AIConfig
	Tenant TenantConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	core, err := loadCoreConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Core:   core,
		AI:     ai,
		Tenant: loadTenantConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// CoreConfig holds the conversation orchestration constants. The defaults
// are tuned values, so each one stays overridable through the environment.
type CoreConfig struct {
	// TurnWindow bounds how many turns a session retains.
	TurnWindow int
	// SentimentWindow bounds the per-session sentiment trend.
	SentimentWindow int
	// LowConfidence is the classification threshold below which a turn
	// drops into context collection instead of a specialist.
	LowConfidence float64
	// ToolTimeout bounds every external tool call made during a turn.
	ToolTimeout time.Duration

	EffortHighTurns   int
	EffortMediumTurns int
	EffortRepeatLimit int
	EffortSlopeCutoff float64

	UrgencyEscalation   int
	NegativeStreak      int
	StrongNegative      float64
	VoiceRetryThreshold int

	// ReplayCache bounds how many recent responses a session keeps for
	// transport redelivery dedupe.
	ReplayCache int

	// MonitorInterval drives the background disruption watcher.
	MonitorInterval time.Duration
}

func loadCoreConfig() (CoreConfig, error) {
	cfg := CoreConfig{
		TurnWindow:          20,
		SentimentWindow:     6,
		LowConfidence:       0.45,
		ToolTimeout:         5 * time.Second,
		EffortHighTurns:     8,
		EffortMediumTurns:   4,
		EffortRepeatLimit:   3,
		EffortSlopeCutoff:   -0.15,
		UrgencyEscalation:   9,
		NegativeStreak:      2,
		StrongNegative:      -0.4,
		VoiceRetryThreshold: 3,
		ReplayCache:         20,
		MonitorInterval:     45 * time.Second,
	}

	intTargets := map[string]*int{
		"CORE_TURN_WINDOW":           &cfg.TurnWindow,
		"CORE_SENTIMENT_WINDOW":      &cfg.SentimentWindow,
		"CORE_EFFORT_HIGH_TURNS":     &cfg.EffortHighTurns,
		"CORE_EFFORT_MEDIUM_TURNS":   &cfg.EffortMediumTurns,
		"CORE_EFFORT_REPEAT_LIMIT":   &cfg.EffortRepeatLimit,
		"CORE_URGENCY_ESCALATION":    &cfg.UrgencyEscalation,
		"CORE_NEGATIVE_STREAK":       &cfg.NegativeStreak,
		"CORE_VOICE_RETRY_THRESHOLD": &cfg.VoiceRetryThreshold,
		"CORE_REPLAY_CACHE":          &cfg.ReplayCache,
	}
	for key, dst := range intTargets {
		override, err := parseOptionalIntEnv(key)
		if err != nil {
			return CoreConfig{}, err
		}
		if override != nil {
			*dst = *override
		}
	}

	floatTargets := map[string]*float64{
		"CORE_LOW_CONFIDENCE":      &cfg.LowConfidence,
		"CORE_EFFORT_SLOPE_CUTOFF": &cfg.EffortSlopeCutoff,
		"CORE_STRONG_NEGATIVE":     &cfg.StrongNegative,
	}
	for key, dst := range floatTargets {
		override, err := parseOptionalFloatEnv(key)
		if err != nil {
			return CoreConfig{}, err
		}
		if override != nil {
			*dst = *override
		}
	}

	if secs, err := parseOptionalIntEnv("CORE_TOOL_TIMEOUT_SECONDS"); err != nil {
		return CoreConfig{}, err
	} else if secs != nil {
		cfg.ToolTimeout = time.Duration(*secs) * time.Second
	}
	if secs, err := parseOptionalIntEnv("CORE_MONITOR_INTERVAL_SECONDS"); err != nil {
		return CoreConfig{}, err
	} else if secs != nil {
		cfg.MonitorInterval = time.Duration(*secs) * time.Second
	}

	if cfg.TurnWindow < 1 {
		return CoreConfig{}, fmt.Errorf("CORE_TURN_WINDOW must be at least 1")
	}
	if cfg.SentimentWindow < 2 {
		cfg.SentimentWindow = 2
	}

	return cfg, nil
}

// TenantConfig carries the published contact surface quoted to customers
// on degraded and handoff paths, plus the regulatory profile of the
// carrier.
type TenantConfig struct {
	DefaultTenant      string
	BrandName          string
	CallCenterPhone    string
	AccessibilityPhone string
	ContactPageURL     string
	// CarrierSize is "small" or "large" and picks the APPR
	// compensation table.
	CarrierSize string
}

func loadTenantConfig() TenantConfig {
	return TenantConfig{
		DefaultTenant:      getEnvOrDefault("TENANT_DEFAULT", "skydesk"),
		BrandName:          getEnvOrDefault("TENANT_BRAND_NAME", "SkyDesk"),
		CallCenterPhone:    getEnvOrDefault("TENANT_CALL_CENTER_PHONE", "1-403-709-0808"),
		AccessibilityPhone: getEnvOrDefault("TENANT_ACCESSIBILITY_PHONE", "1-833-382-5421"),
		ContactPageURL:     getEnvOrDefault("TENANT_CONTACT_PAGE_URL", ""),
		CarrierSize:        getEnvOrDefault("TENANT_CARRIER_SIZE", "small"),
	}
}

// AIConfig describes the optional model backing for turn classification and
// reply polishing. The orchestrator runs fully without it.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
