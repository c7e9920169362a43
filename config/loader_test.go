package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoaderDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("does-not-exist.yaml").Load()
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, 0.9, cfg.Scoring.PriorityConfidence)
	assert.Equal(t, 3, cfg.Tiers.TopK)
}

func TestLoaderYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queryflow.yaml")
	data := []byte(`
default_language: ms
tiers:
  semantic_threshold: 0.5
  top_k: 5
model:
  timeout: 500ms
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "ms", cfg.DefaultLanguage)
	assert.Equal(t, 0.5, cfg.Tiers.SemanticThreshold)
	assert.Equal(t, 5, cfg.Tiers.TopK)
	assert.Equal(t, 500*time.Millisecond, cfg.Model.Timeout)
	// 未覆盖的字段保持默认值
	assert.Equal(t, 0.15, cfg.Tiers.LexicalThreshold)
}

func TestLoaderEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queryflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_language: ms\n"), 0o644))

	t.Setenv("QUERYFLOW_DEFAULT_LANGUAGE", "zh")
	t.Setenv("QUERYFLOW_TIERS_TOP_K", "7")
	t.Setenv("QUERYFLOW_MODEL_TIMEOUT", "3s")
	t.Setenv("QUERYFLOW_REDIS_ENABLED", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "zh", cfg.DefaultLanguage)
	assert.Equal(t, 7, cfg.Tiers.TopK)
	assert.Equal(t, 3*time.Second, cfg.Model.Timeout)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoaderValidatorRejectsBadConfig(t *testing.T) {
	t.Setenv("QUERYFLOW_DEFAULT_LANGUAGE", "fr")

	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported default language")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLanguage = "xx"
	cfg.Scoring.Cap = 1.5
	cfg.Cache.MaxSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported default language")
	assert.Contains(t, err.Error(), "cap must be in (0,1]")
	assert.Contains(t, err.Error(), "cache max_size must be positive")
}
