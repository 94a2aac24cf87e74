package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []float64{0.25, 0.20, 0.20, 0.15, 0.15, 0.05}, cfg.Router.DefaultWeights)
	assert.Equal(t, 0.8, cfg.Router.NonCriminalConfidenceThreshold)
	assert.Equal(t, 60, cfg.Fusion.RRFConstant)
	assert.Equal(t, 0.3, cfg.Fusion.ScoreWeight)
	assert.Equal(t, 10, cfg.Fusion.TopN)
	assert.Equal(t, "anthropic", cfg.LLM.PrimaryProvider)
	assert.Equal(t, "openai", cfg.LLM.FallbackProvider)
	assert.Equal(t, "15s", cfg.Performance.RequestDeadline)
	assert.Equal(t, "5m", cfg.Pagination.TTL)
}

func TestConfig_Validate_RejectsBadWeights(t *testing.T) {
	cfg := NewConfig()
	cfg.Router.DefaultWeights = []float64{0.5, 0.5}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 6 entries")
}

func TestConfig_Validate_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := NewConfig()
	cfg.Router.DefaultWeights = []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestConfig_Validate_RejectsInvalidLLMProvider(t *testing.T) {
	cfg := NewConfig()
	cfg.LLM.PrimaryProvider = "bedrock"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.primary_provider")
}

func TestConfig_Validate_RejectsRefuseBelowWarn(t *testing.T) {
	cfg := NewConfig()
	cfg.LLM.WarnThreshold = 0.9
	cfg.LLM.RefuseThreshold = 0.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refuse_threshold")
}

func TestConfig_Validate_RejectsBadDeadlineDuration(t *testing.T) {
	cfg := NewConfig()
	cfg.Performance.RequestDeadline = "not-a-duration"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_deadline")
}

func TestLoad_AppliesProjectYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
fusion:
  rrf_constant: 100
  top_n: 5
llm:
  primary_provider: openai
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legal-retrieval.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Fusion.RRFConstant)
	assert.Equal(t, 5, cfg.Fusion.TopN)
	assert.Equal(t, "openai", cfg.LLM.PrimaryProvider)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.3, cfg.Fusion.ScoreWeight)
}

func TestLoad_EnvOverridesTakePrecedenceOverYAML(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "fusion:\n  rrf_constant: 100\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legal-retrieval.yaml"), []byte(yamlContent), 0o644))

	orig := os.Getenv("RETRIEVAL_RRF_CONSTANT")
	defer os.Setenv("RETRIEVAL_RRF_CONSTANT", orig)
	os.Setenv("RETRIEVAL_RRF_CONSTANT", "42")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Fusion.RRFConstant)
}

func TestLoad_NoProjectFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Fusion, cfg.Fusion)
}

func TestParseWeightVector(t *testing.T) {
	weights, err := parseWeightVector("0.25,0.2,0.2,0.15,0.15,0.05")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.2, 0.2, 0.15, 0.15, 0.05}, weights)

	_, err = parseWeightVector("0.5,0.5")
	require.Error(t, err)
}

func TestConfig_WriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := NewConfig()
	cfg.Fusion.RRFConstant = 99
	require.NoError(t, cfg.WriteYAML(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, 99, loaded.Fusion.RRFConstant)
}
