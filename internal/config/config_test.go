package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, DefaultHintPenaltyPerHint, cfg.Engine.HintPenaltyPerHint)
	assert.Equal(t, DefaultFallbackCreditFraction, cfg.Engine.FallbackCreditFraction)
	assert.Equal(t, DefaultOpenCorrectThreshold, cfg.Engine.OpenCorrectThreshold)
	assert.Equal(t, DefaultMaxHintsPerQuestion, cfg.Engine.MaxHintsPerQuestion)
	assert.Equal(t, DefaultAdaptiveWindowSize, cfg.Engine.AdaptiveWindowSize)
	assert.Equal(t, DefaultStepUpAccuracy, cfg.Engine.StepUpAccuracy)
	assert.Equal(t, DefaultStepDownAccuracy, cfg.Engine.StepDownAccuracy)
	assert.Equal(t, AIGradingTimeout, cfg.Engine.GradingTimeout)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{Engine: EngineConfig{MaxHintsPerQuestion: 5, StepUpAccuracy: 0.75}}
	cfg.ApplyDefaults()

	assert.Equal(t, 5, cfg.Engine.MaxHintsPerQuestion)
	assert.Equal(t, 0.75, cfg.Engine.StepUpAccuracy)
	assert.Equal(t, DefaultAdaptiveWindowSize, cfg.Engine.AdaptiveWindowSize)
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("ENGINE_MAX_HINTS_PER_QUESTION", "7")
	t.Setenv("ENGINE_STEP_DOWN_ACCURACY", "0.25")
	t.Setenv("ENGINE_GRADING_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := NewDefaultConfig()

	assert.Equal(t, 7, cfg.Engine.MaxHintsPerQuestion)
	assert.Equal(t, 0.25, cfg.Engine.StepDownAccuracy)
	assert.Equal(t, 5*time.Second, cfg.Engine.GradingTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestNewConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
engine:
  max_hints_per_question: 2
  provider: openai
  model: gpt-4o-mini
providers:
  - name: OpenAI
    code: openai
    url: https://api.openai.com/v1
    models:
      - name: GPT-4o Mini
        code: gpt-4o-mini
        max_tokens: 4096
open_telemetry:
  service_name: quiz-engine
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("QUIZ_ENGINE_CONFIG_FILE", path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.MaxHintsPerQuestion)
	assert.Equal(t, "openai", cfg.Engine.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.ProviderURL("openai"))
	assert.Equal(t, 4096, cfg.MaxTokensForModel("openai", "gpt-4o-mini"))
	assert.Equal(t, 0, cfg.MaxTokensForModel("openai", "unknown"))
	assert.Equal(t, "", cfg.ProviderURL("missing"))
	// Defaults still fill unset fields
	assert.Equal(t, DefaultAdaptiveWindowSize, cfg.Engine.AdaptiveWindowSize)
}

func TestNewConfig_MissingFile(t *testing.T) {
	t.Setenv("QUIZ_ENGINE_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := NewConfig()
	assert.Error(t, err)
}
