package selector

import (
	"errors"
	"fmt"
	"math"

	"cardiopredict/internal/dataset"
)

// Scaler standardizes numeric features by their training-set mean and
// standard deviation. It is fitted once and then shared by every stage
// that measures distance in feature space, so fit-time and score-time
// geometry stay identical.
type Scaler struct {
	fields []string
	mean   []float64
	std    []float64
}

// FitScaler computes per-feature mean and standard deviation over a
// materialized training set.
func FitScaler(records []dataset.Record) (*Scaler, error) {
	if len(records) == 0 {
		return nil, errors.New("cannot fit scaler on empty training set")
	}

	fields := records[0].Fields
	n := float64(len(records))
	sum := make([]float64, len(fields))
	sumSq := make([]float64, len(fields))

	for _, r := range records {
		if len(r.Values) != len(fields) {
			return nil, fmt.Errorf("record %d has %d values, scaler fitted on %d", r.Position, len(r.Values), len(fields))
		}
		for i, v := range r.Values {
			sum[i] += v
			sumSq[i] += v * v
		}
	}

	s := &Scaler{
		fields: append([]string(nil), fields...),
		mean:   make([]float64, len(fields)),
		std:    make([]float64, len(fields)),
	}
	for i := range fields {
		s.mean[i] = sum[i] / n
		variance := sumSq[i]/n - s.mean[i]*s.mean[i]
		if variance > 0 {
			s.std[i] = math.Sqrt(variance)
		} else {
			s.std[i] = 1 // constant feature scales to zero either way
		}
	}
	return s, nil
}

// Fields returns the feature order the scaler was fitted on.
func (s *Scaler) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Transform returns the standardized values of a record's features.
func (s *Scaler) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.mean[i]) / s.std[i]
	}
	return out
}

// Distance is the normalized Euclidean distance between two feature
// vectors, measured in the scaler's standardized space.
func (s *Scaler) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := (a[i] - b[i]) / s.std[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
