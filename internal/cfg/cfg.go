// Package cfg resolves pipeline settings from a YAML config file and
// environment variables. Environment values override file values;
// everything is validated before a run starts.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the resolved, validated pipeline configuration.
type Settings struct {
	Source       string
	DataPath     string
	SchemaPath   string
	ModelPath    string
	SilverTable  string
	ScoredTable  string
	ReadTimeout  time.Duration

	SelectThreshold float64
	MinFitRecords   int

	BalanceK         int
	BalanceRatio     float64
	BalanceTolerance int
	BalanceSeed      int64

	Epochs       int
	LearningRate float64

	RiskThreshold    float64
	RiskThresholdSet bool

	Workers     int
	MetricsPort int
}

// ConfigFile is the YAML shape of the settings.
type ConfigFile struct {
	Source struct {
		Locator     string `yaml:"locator"`
		SchemaPath  string `yaml:"schemaPath"`
		ReadTimeout string `yaml:"readTimeout"`
	} `yaml:"source"`

	Selection struct {
		Threshold     float64 `yaml:"threshold"`
		MinFitRecords int     `yaml:"minFitRecords"`
	} `yaml:"selection"`

	Balance struct {
		Neighbors   int     `yaml:"neighbors"`
		TargetRatio float64 `yaml:"targetRatio"`
		Tolerance   int     `yaml:"tolerance"`
		Seed        int64   `yaml:"seed"`
	} `yaml:"balance"`

	Model struct {
		Path          string   `yaml:"path"`
		Epochs        int      `yaml:"epochs"`
		LearningRate  float64  `yaml:"learningRate"`
		RiskThreshold *float64 `yaml:"riskThreshold"`
	} `yaml:"model"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		SilverTable string `yaml:"silverTable"`
		ScoredTable string `yaml:"scoredTable"`
		Workers     int    `yaml:"workers"`
		MetricsPort int    `yaml:"metricsPort"`
	} `yaml:"system"`
}

// Load resolves settings from CONFIG_FILE when set, otherwise from
// environment variables alone.
func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout, err := time.ParseDuration(config.Source.ReadTimeout)
	if err != nil {
		readTimeout = 30 * time.Second
	}

	settings := Settings{
		Source:      getEnvOrDefault("SOURCE_LOCATOR", config.Source.Locator),
		DataPath:    getEnvOrDefault("DATA_PATH", withDefault(config.System.DataPath, "data")),
		SchemaPath:  getEnvOrDefault("SCHEMA_PATH", config.Source.SchemaPath),
		ModelPath:   getEnvOrDefault("MODEL_PATH", withDefault(config.Model.Path, "data/model.json")),
		SilverTable: getEnvOrDefault("SILVER_TABLE", withDefault(config.System.SilverTable, "silver")),
		ScoredTable: getEnvOrDefault("SCORED_TABLE", withDefault(config.System.ScoredTable, "scored")),
		ReadTimeout: readTimeout,

		SelectThreshold: getFloatFromEnvOrConfig("SELECT_THRESHOLD", config.Selection.Threshold, 0.1),
		MinFitRecords:   getIntFromEnvOrConfig("MIN_FIT_RECORDS", config.Selection.MinFitRecords, 10),

		BalanceK:         getIntFromEnvOrConfig("BALANCE_NEIGHBORS", config.Balance.Neighbors, 5),
		BalanceRatio:     getFloatFromEnvOrConfig("BALANCE_RATIO", config.Balance.TargetRatio, 1.0),
		BalanceTolerance: getIntFromEnvOrConfig("BALANCE_TOLERANCE", config.Balance.Tolerance, 0),
		BalanceSeed:      int64(getIntFromEnvOrConfig("BALANCE_SEED", int(config.Balance.Seed), 1)),

		Epochs:       getIntFromEnvOrConfig("TRAIN_EPOCHS", config.Model.Epochs, 500),
		LearningRate: getFloatFromEnvOrConfig("LEARNING_RATE", config.Model.LearningRate, 0.1),

		Workers:     getIntFromEnvOrConfig("WORKERS", config.System.Workers, 4),
		MetricsPort: getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 8080),
	}

	if config.Model.RiskThreshold != nil {
		settings.RiskThreshold = *config.Model.RiskThreshold
		settings.RiskThresholdSet = true
	}
	applyRiskThresholdEnv(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Source:      os.Getenv("SOURCE_LOCATOR"),
		DataPath:    getEnvOrDefault("DATA_PATH", "data"),
		SchemaPath:  os.Getenv("SCHEMA_PATH"), // optional, default schema when empty
		ModelPath:   getEnvOrDefault("MODEL_PATH", "data/model.json"),
		SilverTable: getEnvOrDefault("SILVER_TABLE", "silver"),
		ScoredTable: getEnvOrDefault("SCORED_TABLE", "scored"),
		ReadTimeout: getDurationOrDefault("READ_TIMEOUT", 30*time.Second),

		SelectThreshold: getFloatOrDefault("SELECT_THRESHOLD", 0.1),
		MinFitRecords:   getIntOrDefault("MIN_FIT_RECORDS", 10),

		BalanceK:         getIntOrDefault("BALANCE_NEIGHBORS", 5),
		BalanceRatio:     getFloatOrDefault("BALANCE_RATIO", 1.0),
		BalanceTolerance: getIntOrDefault("BALANCE_TOLERANCE", 0),
		BalanceSeed:      int64(getIntOrDefault("BALANCE_SEED", 1)),

		Epochs:       getIntOrDefault("TRAIN_EPOCHS", 500),
		LearningRate: getFloatOrDefault("LEARNING_RATE", 0.1),

		Workers:     getIntOrDefault("WORKERS", 4),
		MetricsPort: getIntOrDefault("METRICS_PORT", 8080),
	}

	applyRiskThresholdEnv(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// applyRiskThresholdEnv keeps the decision threshold optional: it is
// only active when explicitly configured.
func applyRiskThresholdEnv(settings *Settings) {
	if v := os.Getenv("RISK_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.RiskThreshold = f
			settings.RiskThresholdSet = true
		}
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func withDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs range validation of configuration values.
func validateSettings(settings *Settings) error {
	if settings.Source == "" {
		return fmt.Errorf("a source locator is required")
	}
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}

	if settings.SelectThreshold < 0 || settings.SelectThreshold >= 1 {
		return fmt.Errorf("selection threshold must be in [0, 1), got %f", settings.SelectThreshold)
	}
	if settings.MinFitRecords < 2 {
		return fmt.Errorf("minimum fit records must be at least 2, got %d", settings.MinFitRecords)
	}

	if settings.BalanceK <= 0 || settings.BalanceK > 100 {
		return fmt.Errorf("balance neighbor count must be between 1 and 100, got %d", settings.BalanceK)
	}
	if settings.BalanceRatio <= 0 || settings.BalanceRatio > 1.0 {
		return fmt.Errorf("balance target ratio must be in (0, 1], got %f", settings.BalanceRatio)
	}
	if settings.BalanceTolerance < 0 {
		return fmt.Errorf("balance tolerance cannot be negative, got %d", settings.BalanceTolerance)
	}

	if settings.Epochs <= 0 || settings.Epochs > 100000 {
		return fmt.Errorf("training epochs must be between 1 and 100000, got %d", settings.Epochs)
	}
	if settings.LearningRate <= 0 || settings.LearningRate > 10 {
		return fmt.Errorf("learning rate must be in (0, 10], got %f", settings.LearningRate)
	}
	if settings.RiskThresholdSet && (settings.RiskThreshold <= 0 || settings.RiskThreshold >= 1) {
		return fmt.Errorf("risk threshold must be in (0, 1), got %f", settings.RiskThreshold)
	}

	if settings.Workers <= 0 || settings.Workers > 256 {
		return fmt.Errorf("worker count must be between 1 and 256, got %d", settings.Workers)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 10*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 10m, got %v", settings.ReadTimeout)
	}

	return nil
}
