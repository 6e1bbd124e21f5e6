package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	App        AppConfig
	LLM        LLMConfig
	Onboarding OnboardingConfig
	Redis      RedisConfig

	// Warnings collects problems that fell back to defaults. They are logged
	// once the logger exists.
	Warnings []string
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
	APIKey             string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

type LLMConfig struct {
	BaseURL    string
	ResultPath string
	RatePerSec float64
	Burst      int
	ProbeSpec  string
}

type OnboardingConfig struct {
	ExtractTimeout     time.Duration
	CoverageThreshold  float64
	DefaultDueTimeHour float64
	MachineIDPattern   string
	JobIDPattern       string
}

type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	DecisionChannel string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		cfg.warnf("No .env file found, using environment variables")
	}

	cfg.Server = ServerConfig{
		Port:               cfg.getEnv("PORT", "8080"),
		CORSAllowedOrigins: cfg.getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		APIKey:             cfg.getEnv("API_KEY", ""),
	}
	cfg.App = AppConfig{
		Environment: cfg.getEnv("APP_ENV", "development"),
		LogLevel:    cfg.getEnv("LOG_LEVEL", "info"),
		Version:     cfg.getEnv("APP_VERSION", "1.0.0"),
	}
	cfg.LLM = LLMConfig{
		BaseURL:    cfg.getEnv("LLM_BASE_URL", "http://localhost:8081"),
		ResultPath: cfg.getEnv("LLM_RESULT_PATH", "factory"),
		RatePerSec: cfg.getEnvAsFloat("LLM_RATE_PER_SEC", 0),
		Burst:      cfg.getEnvAsInt("LLM_BURST", 1),
		ProbeSpec:  cfg.getEnv("UPSTREAM_PROBE_SPEC", "*/30 * * * * *"),
	}
	cfg.Onboarding = OnboardingConfig{
		ExtractTimeout:     cfg.getEnvAsDuration("EXTRACT_TIMEOUT", 30*time.Second),
		CoverageThreshold:  cfg.getEnvAsFloat("COVERAGE_THRESHOLD", 0.7),
		DefaultDueTimeHour: cfg.getEnvAsFloat("DEFAULT_DUE_TIME_HOUR", 24),
		MachineIDPattern:   cfg.getEnv("MACHINE_ID_PATTERN", "M[0-9][A-Za-z0-9]*"),
		JobIDPattern:       cfg.getEnv("JOB_ID_PATTERN", "J[0-9][A-Za-z0-9]*"),
	}
	cfg.Redis = RedisConfig{
		Addr:            cfg.getEnv("REDIS_ADDR", ""),
		Password:        cfg.getEnv("REDIS_PASSWORD", ""),
		DB:              cfg.getEnvAsInt("REDIS_DB", 0),
		DecisionChannel: cfg.getEnv("REDIS_DECISION_CHANNEL", "onboarding:decisions"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}

	if t := c.Onboarding.CoverageThreshold; t < 0 || t > 1 {
		return fmt.Errorf("COVERAGE_THRESHOLD must be within [0, 1], got %v", t)
	}

	if c.Onboarding.DefaultDueTimeHour <= 0 {
		return fmt.Errorf("DEFAULT_DUE_TIME_HOUR must be positive, got %v", c.Onboarding.DefaultDueTimeHour)
	}

	if c.Onboarding.ExtractTimeout <= 0 {
		return fmt.Errorf("EXTRACT_TIMEOUT must be positive, got %s", c.Onboarding.ExtractTimeout)
	}

	if _, err := regexp.Compile(c.Onboarding.MachineIDPattern); err != nil {
		return fmt.Errorf("MACHINE_ID_PATTERN is not a valid pattern: %w", err)
	}

	if _, err := regexp.Compile(c.Onboarding.JobIDPattern); err != nil {
		return fmt.Errorf("JOB_ID_PATTERN is not a valid pattern: %w", err)
	}

	return nil
}

func (c *Config) warnf(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		c.warnf("Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func (c *Config) getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		c.warnf("Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func (c *Config) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}

	c.warnf("Invalid duration for %s, using default: %s", key, defaultValue)
	return defaultValue
}

func (c *Config) getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
