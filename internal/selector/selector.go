// Package selector fits a weighted linear score for every feature
// against the binary label and projects records down to the features
// whose absolute weight clears a threshold. The weight table is fitted
// once per pipeline run and reused unchanged for every later pass.
package selector

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"cardiopredict/internal/dataset"
)

var (
	// ErrInsufficientData means fewer records than the configured
	// minimum were supplied to Fit.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrDegenerateLabel means the label column carries a single
	// distinct value, so no feature can score against it.
	ErrDegenerateLabel = errors.New("degenerate label column")
)

// DefaultMinRecords is the fit minimum when the config leaves it unset.
const DefaultMinRecords = 10

// WeightTable maps feature name to its fitted linear coefficient.
// Treat it as immutable once returned by Fit.
type WeightTable map[string]float64

// Selector fits and applies feature weights.
type Selector struct {
	minRecords int
}

func New(minRecords int) *Selector {
	if minRecords <= 0 {
		minRecords = DefaultMinRecords
	}
	return &Selector{minRecords: minRecords}
}

// Fit computes one weight per feature: the point-biserial correlation
// of the standardized feature with the binary label. Only labeled
// records participate. No partial table is returned on error.
func (s *Selector) Fit(records []dataset.Record) (WeightTable, error) {
	labeled := make([]dataset.Record, 0, len(records))
	for _, r := range records {
		if r.HasLabel {
			labeled = append(labeled, r)
		}
	}

	if len(labeled) < s.minRecords {
		return nil, fmt.Errorf("%w: got %d labeled records, need %d", ErrInsufficientData, len(labeled), s.minRecords)
	}

	var positives int
	for _, r := range labeled {
		if r.Label > 0 {
			positives++
		}
	}
	if positives == 0 || positives == len(labeled) {
		return nil, fmt.Errorf("%w: all %d records share one label value", ErrDegenerateLabel, len(labeled))
	}

	n := float64(len(labeled))
	p := float64(positives) / n
	q := 1 - p

	fields := labeled[0].Fields
	table := make(WeightTable, len(fields))

	for i, name := range fields {
		var sum, sumSq, sumPos float64
		for _, r := range labeled {
			v := r.Values[i]
			sum += v
			sumSq += v * v
			if r.Label > 0 {
				sumPos += v
			}
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance <= 0 {
			// Constant feature carries no signal against any label.
			table[name] = 0
			continue
		}
		std := math.Sqrt(variance)

		meanPos := sumPos / float64(positives)
		meanNeg := (sum - sumPos) / (n - float64(positives))
		table[name] = (meanPos - meanNeg) / std * math.Sqrt(p*q)
	}

	log.Info().Int("records", len(labeled)).Int("features", len(table)).Msg("feature weights fitted")
	return table, nil
}

// Selected returns the feature names from fields whose absolute weight
// strictly exceeds threshold, preserving field order. A tie at exactly
// the threshold is excluded.
func Selected(table WeightTable, threshold float64, fields []string) []string {
	var out []string
	for _, name := range fields {
		if math.Abs(table[name]) > threshold {
			out = append(out, name)
		}
	}
	return out
}

// Apply lazily projects records down to the selected features. Label,
// position and the synthetic flag pass through untouched. The
// projection is pure: the same table and threshold always produce the
// same output for the same input.
func Apply(table WeightTable, threshold float64, records dataset.RecordIterator) dataset.RecordIterator {
	return &applyIter{table: table, threshold: threshold, src: records}
}

type applyIter struct {
	table     WeightTable
	threshold float64
	src       dataset.RecordIterator
}

func (it *applyIter) Next() (dataset.Record, bool) {
	r, ok := it.src.Next()
	if !ok {
		return dataset.Record{}, false
	}
	return Project(it.table, it.threshold, r), true
}

func (it *applyIter) Err() error   { return it.src.Err() }
func (it *applyIter) Reset() error { return it.src.Reset() }

// Project applies the column mask to a single record.
func Project(table WeightTable, threshold float64, r dataset.Record) dataset.Record {
	out := dataset.Record{
		Position:  r.Position,
		Label:     r.Label,
		HasLabel:  r.HasLabel,
		Synthetic: r.Synthetic,
	}
	for i, name := range r.Fields {
		if math.Abs(table[name]) > threshold {
			out.Fields = append(out.Fields, name)
			out.Values = append(out.Values, r.Values[i])
		}
	}
	return out
}
