package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "SOURCE_LOCATOR", "DATA_PATH", "SCHEMA_PATH", "MODEL_PATH",
		"SILVER_TABLE", "SCORED_TABLE", "READ_TIMEOUT", "SELECT_THRESHOLD",
		"MIN_FIT_RECORDS", "BALANCE_NEIGHBORS", "BALANCE_RATIO", "BALANCE_TOLERANCE",
		"BALANCE_SEED", "TRAIN_EPOCHS", "LEARNING_RATE", "RISK_THRESHOLD",
		"WORKERS", "METRICS_PORT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_EnvDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SOURCE_LOCATOR", "survey.csv")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "survey.csv", s.Source)
	assert.Equal(t, "data", s.DataPath)
	assert.Equal(t, 0.1, s.SelectThreshold)
	assert.Equal(t, 10, s.MinFitRecords)
	assert.Equal(t, 5, s.BalanceK)
	assert.Equal(t, 1.0, s.BalanceRatio)
	assert.Equal(t, int64(1), s.BalanceSeed)
	assert.Equal(t, 500, s.Epochs)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, 8080, s.MetricsPort)
	assert.Equal(t, 30*time.Second, s.ReadTimeout)
	assert.False(t, s.RiskThresholdSet, "decision threshold stays off unless configured")
}

func TestLoad_MissingSource(t *testing.T) {
	clearConfigEnv(t)

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SOURCE_LOCATOR", "https://example.com/survey.csv")
	t.Setenv("SELECT_THRESHOLD", "0.25")
	t.Setenv("BALANCE_NEIGHBORS", "3")
	t.Setenv("RISK_THRESHOLD", "0.6")
	t.Setenv("WORKERS", "16")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.25, s.SelectThreshold)
	assert.Equal(t, 3, s.BalanceK)
	assert.Equal(t, 16, s.Workers)
	assert.True(t, s.RiskThresholdSet)
	assert.Equal(t, 0.6, s.RiskThreshold)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearConfigEnv(t)

	config := `
source:
  locator: gs-mirror/heart_2022.csv
  readTimeout: 2m
selection:
  threshold: 0.2
  minFitRecords: 50
balance:
  neighbors: 7
  targetRatio: 0.8
  seed: 42
model:
  path: artifacts/model.json
  epochs: 1000
  riskThreshold: 0.55
system:
  dataPath: /tmp/tables
  workers: 8
  metricsPort: 9100
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	t.Setenv("CONFIG_FILE", path)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gs-mirror/heart_2022.csv", s.Source)
	assert.Equal(t, 2*time.Minute, s.ReadTimeout)
	assert.Equal(t, 0.2, s.SelectThreshold)
	assert.Equal(t, 50, s.MinFitRecords)
	assert.Equal(t, 7, s.BalanceK)
	assert.Equal(t, 0.8, s.BalanceRatio)
	assert.Equal(t, int64(42), s.BalanceSeed)
	assert.Equal(t, 1000, s.Epochs)
	assert.Equal(t, "artifacts/model.json", s.ModelPath)
	assert.True(t, s.RiskThresholdSet)
	assert.Equal(t, 0.55, s.RiskThreshold)
	assert.Equal(t, "/tmp/tables", s.DataPath)
	assert.Equal(t, 8, s.Workers)
	assert.Equal(t, 9100, s.MetricsPort)
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	clearConfigEnv(t)

	config := `
source:
  locator: from-file.csv
selection:
  threshold: 0.2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SOURCE_LOCATOR", "from-env.csv")
	t.Setenv("SELECT_THRESHOLD", "0.4")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.csv", s.Source)
	assert.Equal(t, 0.4, s.SelectThreshold)
}

func TestValidateSettings(t *testing.T) {
	base := func() Settings {
		return Settings{
			Source:          "x.csv",
			DataPath:        "data",
			SelectThreshold: 0.1,
			MinFitRecords:   10,
			BalanceK:        5,
			BalanceRatio:    1.0,
			Epochs:          500,
			LearningRate:    0.1,
			Workers:         4,
			MetricsPort:     8080,
			ReadTimeout:     30 * time.Second,
		}
	}

	testCases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"threshold out of range", func(s *Settings) { s.SelectThreshold = 1.5 }},
		{"min fit too small", func(s *Settings) { s.MinFitRecords = 1 }},
		{"zero neighbors", func(s *Settings) { s.BalanceK = 0 }},
		{"ratio above one", func(s *Settings) { s.BalanceRatio = 1.5 }},
		{"zero epochs", func(s *Settings) { s.Epochs = 0 }},
		{"negative learning rate", func(s *Settings) { s.LearningRate = -1 }},
		{"risk threshold at bound", func(s *Settings) { s.RiskThresholdSet = true; s.RiskThreshold = 1.0 }},
		{"too many workers", func(s *Settings) { s.Workers = 1000 }},
		{"privileged metrics port", func(s *Settings) { s.MetricsPort = 80 }},
		{"tiny read timeout", func(s *Settings) { s.ReadTimeout = time.Millisecond }},
	}

	require.NoError(t, validateSettings(ptr(base())))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := base()
			tc.mutate(&s)
			assert.Error(t, validateSettings(&s))
		})
	}
}

func ptr(s Settings) *Settings { return &s }
