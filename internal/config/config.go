// Package config handles engine configuration loading from a YAML file with
// environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "quizengine/internal/utils"

	"gopkg.in/yaml.v3"
)

// ProviderConfig defines the structure for a single AI provider
type ProviderConfig struct {
	Name   string    `json:"name" yaml:"name"`
	Code   string    `json:"code" yaml:"code"`
	URL    string    `json:"url,omitempty" yaml:"url,omitempty"`
	Models []AIModel `json:"models" yaml:"models"`
}

// AIModel represents an AI model configuration
type AIModel struct {
	Name      string `json:"name" yaml:"name"`
	Code      string `json:"code" yaml:"code"`
	MaxTokens int    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EngineConfig holds the decision thresholds of the evaluation engine.
// Zero values are filled from the named defaults in constants.go so tests
// can construct partial configs.
type EngineConfig struct {
	// Grading
	HintPenaltyPerHint     float64 `json:"hint_penalty_per_hint" yaml:"hint_penalty_per_hint"`
	FallbackCreditFraction float64 `json:"fallback_credit_fraction" yaml:"fallback_credit_fraction"`
	DefaultAIConfidence    float64 `json:"default_ai_confidence" yaml:"default_ai_confidence"`
	// OpenCorrectThreshold is the earned/max ratio at which a partially scored
	// open-form answer counts toward correct_count. Kept configurable; the 0.5
	// default mirrors observed behavior rather than a documented contract.
	OpenCorrectThreshold float64       `json:"open_correct_threshold" yaml:"open_correct_threshold"`
	GradingTimeout       time.Duration `json:"grading_timeout" yaml:"grading_timeout"`

	// Hints
	MaxHintsPerQuestion int `json:"max_hints_per_question" yaml:"max_hints_per_question"`

	// Adaptive policy
	AdaptiveWindowSize int     `json:"adaptive_window_size" yaml:"adaptive_window_size"`
	StepUpAccuracy     float64 `json:"step_up_accuracy" yaml:"step_up_accuracy"`
	StepDownAccuracy   float64 `json:"step_down_accuracy" yaml:"step_down_accuracy"`

	// AI provider selection
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// RedisConfig configures the shared-store backend for multi-instance
// deployments. When Addr is empty the in-memory stores are used.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// OpenTelemetryConfig holds OpenTelemetry configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "quiz-engine"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From build info
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// Config holds all configuration for the evaluation engine
type Config struct {
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// AI providers available to the engine
	Providers []ProviderConfig `json:"providers" yaml:"providers"`

	Redis RedisConfig `json:"redis" yaml:"redis"`

	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ProviderURL returns the base URL configured for the given provider code,
// or "" when the provider is unknown
func (c *Config) ProviderURL(code string) string {
	for _, p := range c.Providers {
		if p.Code == code {
			return p.URL
		}
	}
	return ""
}

// MaxTokensForModel returns the configured token limit for a provider/model
// pair, or 0 when unconfigured
func (c *Config) MaxTokensForModel(provider, model string) int {
	for _, p := range c.Providers {
		if p.Code != provider {
			continue
		}
		for _, m := range p.Models {
			if m.Code == model {
				return m.MaxTokens
			}
		}
	}
	return 0
}

// ApplyDefaults fills zero-valued engine fields with the named defaults
func (c *Config) ApplyDefaults() {
	e := &c.Engine
	if e.HintPenaltyPerHint == 0 {
		e.HintPenaltyPerHint = DefaultHintPenaltyPerHint
	}
	if e.FallbackCreditFraction == 0 {
		e.FallbackCreditFraction = DefaultFallbackCreditFraction
	}
	if e.DefaultAIConfidence == 0 {
		e.DefaultAIConfidence = DefaultAIConfidence
	}
	if e.OpenCorrectThreshold == 0 {
		e.OpenCorrectThreshold = DefaultOpenCorrectThreshold
	}
	if e.GradingTimeout == 0 {
		e.GradingTimeout = AIGradingTimeout
	}
	if e.MaxHintsPerQuestion == 0 {
		e.MaxHintsPerQuestion = DefaultMaxHintsPerQuestion
	}
	if e.AdaptiveWindowSize == 0 {
		e.AdaptiveWindowSize = DefaultAdaptiveWindowSize
	}
	if e.StepUpAccuracy == 0 {
		e.StepUpAccuracy = DefaultStepUpAccuracy
	}
	if e.StepDownAccuracy == 0 {
		e.StepDownAccuracy = DefaultStepDownAccuracy
	}
}

// NewConfig creates a Config from the YAML config file, environment variable
// overrides, and defaults, in that order of precedence (env wins)
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()
	config.ApplyDefaults()

	return config, nil
}

// NewDefaultConfig creates a Config entirely from defaults and environment
// variables, with no config file. Intended for library embedding and tests.
func NewDefaultConfig() *Config {
	config := &Config{}
	config.overrideFromEnv()
	config.ApplyDefaults()
	return config
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlTag = strings.Split(yamlTag, ",")[0]

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				// time.Duration fields accept duration strings
				if field.Type() == reflect.TypeOf(time.Duration(0)) {
					if d, err := time.ParseDuration(envVal); err == nil {
						field.SetInt(int64(d))
					}
					continue
				}
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (result0 *Config, err error) {
	// Try to load from environment variable first
	if envPath := os.Getenv("QUIZ_ENGINE_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	// If no environment variable is set, try default config.yaml
	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
