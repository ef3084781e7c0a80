// Package model fits and applies the final risk classifier: a weighted
// linear combination of the selected features squashed to a [0,1]
// probability. The optimizer sits behind the Classifier interface so
// an external implementation can replace the built-in one without
// touching the scoring path.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"cardiopredict/internal/dataset"
)

// Model is an immutable fitted classifier: one weight per feature plus
// a bias, applied through the logistic link.
type Model struct {
	Fields  []string  `json:"fields"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Classifier trains a Model from feature vectors and binary labels.
// Implementations must be deterministic for identical input.
type Classifier interface {
	Train(fields []string, features [][]float64, labels []float64) (*Model, error)
}

// UnfittedFeatureError reports a record that lacks a feature the model
// was trained on. It is raised before any probability is computed for
// that record.
type UnfittedFeatureError struct {
	Feature  string
	Position int
}

func (e *UnfittedFeatureError) Error() string {
	return fmt.Sprintf("record %d lacks trained feature %s", e.Position, e.Feature)
}

// Probability scores a single record. Pure read: no state changes, the
// same model and values always yield the same probability.
func (m *Model) Probability(r *dataset.Record) (float64, error) {
	z := m.Bias
	for i, name := range m.Fields {
		v, ok := r.Value(name)
		if !ok {
			return 0, &UnfittedFeatureError{Feature: name, Position: r.Position}
		}
		z += m.Weights[i] * v
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Save writes the model artifact as JSON.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load reads a model artifact written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if len(m.Fields) != len(m.Weights) {
		return nil, fmt.Errorf("model %s: %d fields but %d weights", path, len(m.Fields), len(m.Weights))
	}
	return &m, nil
}
