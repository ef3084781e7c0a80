package model

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// Logistic is the built-in Classifier: batch gradient descent on the
// logistic loss. Features are standardized internally and the fitted
// coefficients folded back to raw-feature scale, so the learning rate
// schedule is stable regardless of feature units while the returned
// Model stays a plain linear function of raw values. Zero
// initialization and a fixed schedule keep training reproducible.
type Logistic struct {
	Epochs       int
	LearningRate float64
}

// NewLogistic returns a trainer with the default schedule.
func NewLogistic() *Logistic {
	return &Logistic{Epochs: 500, LearningRate: 0.1}
}

// Train fits weights over the given feature matrix.
func (l *Logistic) Train(fields []string, features [][]float64, labels []float64) (*Model, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("cannot train on empty feature matrix")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("feature/label length mismatch: %d vs %d", len(features), len(labels))
	}
	for i, row := range features {
		if len(row) != len(fields) {
			return nil, fmt.Errorf("feature row %d has %d values, expected %d", i, len(row), len(fields))
		}
	}

	epochs := l.Epochs
	if epochs <= 0 {
		epochs = 500
	}
	lr := l.LearningRate
	if lr <= 0 {
		lr = 0.1
	}

	n := float64(len(features))
	k := len(fields)

	mean := make([]float64, k)
	std := make([]float64, k)
	for j := 0; j < k; j++ {
		var sum, sumSq float64
		for _, row := range features {
			sum += row[j]
			sumSq += row[j] * row[j]
		}
		mean[j] = sum / n
		variance := sumSq/n - mean[j]*mean[j]
		if variance > 0 {
			std[j] = math.Sqrt(variance)
		} else {
			std[j] = 1
		}
	}

	scaled := make([][]float64, len(features))
	for i, row := range features {
		scaled[i] = make([]float64, k)
		for j, v := range row {
			scaled[i][j] = (v - mean[j]) / std[j]
		}
	}

	weights := make([]float64, k)
	grad := make([]float64, k)
	var bias float64

	for epoch := 0; epoch < epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var biasGrad float64

		for i, row := range scaled {
			z := bias
			for j, v := range row {
				z += weights[j] * v
			}
			err := sigmoid(z) - labels[i]
			for j, v := range row {
				grad[j] += err * v
			}
			biasGrad += err
		}

		for j := range weights {
			weights[j] -= lr * grad[j] / n
		}
		bias -= lr * biasGrad / n
	}

	// Fold the standardization into the coefficients: the model scores
	// raw feature values directly.
	raw := make([]float64, k)
	for j := range weights {
		raw[j] = weights[j] / std[j]
		bias -= weights[j] * mean[j] / std[j]
	}

	log.Debug().
		Int("records", len(features)).
		Int("features", k).
		Int("epochs", epochs).
		Msg("logistic model trained")

	return &Model{
		Fields:  append([]string(nil), fields...),
		Weights: raw,
		Bias:    bias,
	}, nil
}
