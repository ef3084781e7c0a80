package model

import (
	"cardiopredict/internal/dataset"
)

// Scorer produces scored records lazily from a fitted model. When a
// decision threshold is set, each output also carries the binary risk
// classification; otherwise only the probability.
type Scorer struct {
	model       *Model
	threshold   float64
	thresholded bool
}

func NewScorer(m *Model) *Scorer {
	return &Scorer{model: m}
}

// WithThreshold enables binary classification at the given cutoff.
func (s *Scorer) WithThreshold(t float64) *Scorer {
	s.threshold = t
	s.thresholded = true
	return s
}

// ScoreRecord scores a single record.
func (s *Scorer) ScoreRecord(r dataset.Record) (dataset.ScoredRecord, error) {
	p, err := s.model.Probability(&r)
	if err != nil {
		return dataset.ScoredRecord{}, err
	}
	out := dataset.ScoredRecord{Record: r, Probability: p}
	if s.thresholded {
		out.Thresholded = true
		out.AtRisk = p > s.threshold
	}
	return out, nil
}

// Score wraps records in a lazy sequence of scored records. An
// unfitted feature is fatal to the scoring pass: iteration stops and
// Err returns the failure.
func (s *Scorer) Score(records dataset.RecordIterator) *ScoreIterator {
	return &ScoreIterator{scorer: s, src: records}
}

// ScoreIterator is the lazy scored-record sequence.
type ScoreIterator struct {
	scorer *Scorer
	src    dataset.RecordIterator
	err    error
}

func (it *ScoreIterator) Next() (dataset.ScoredRecord, bool) {
	if it.err != nil {
		return dataset.ScoredRecord{}, false
	}
	r, ok := it.src.Next()
	if !ok {
		return dataset.ScoredRecord{}, false
	}
	sr, err := it.scorer.ScoreRecord(r)
	if err != nil {
		it.err = err
		return dataset.ScoredRecord{}, false
	}
	return sr, true
}

func (it *ScoreIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.src.Err()
}
