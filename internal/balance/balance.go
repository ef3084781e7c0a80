// Package balance rebalances a binary-labeled training set by
// synthesizing minority-class records. Each synthetic record lies on
// the line segment between a minority record and one of its k nearest
// same-class neighbors, measured in the standardized feature space
// shared with the rest of the pipeline. Originals are preserved
// verbatim and in order; synthetics are appended and flagged.
package balance

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"cardiopredict/internal/dataset"
	"cardiopredict/internal/selector"
)

// ErrEmptyMinority means the minority label has zero records, so
// there is nothing to interpolate between.
var ErrEmptyMinority = errors.New("minority class has no records")

// Config tunes the oversampler. Zero values fall back to defaults:
// k=5 neighbors, a 1:1 target ratio, seed 1.
type Config struct {
	K           int
	TargetRatio float64 // minority/majority count ratio to reach
	Tolerance   int     // acceptable shortfall from the target count
	Seed        int64
}

func (c Config) withDefaults() Config {
	if c.K <= 0 {
		c.K = 5
	}
	if c.TargetRatio <= 0 {
		c.TargetRatio = 1.0
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	return c
}

// Balance oversamples the minority class of a materialized labeled
// training set until its count reaches TargetRatio times the majority
// count. The distance metric comes from the supplied scaler so the
// neighbor geometry matches fit-time standardization exactly.
func Balance(records []dataset.Record, scaler *selector.Scaler, cfg Config) ([]dataset.Record, error) {
	cfg = cfg.withDefaults()

	var pos, neg []int
	for i, r := range records {
		if !r.HasLabel {
			return nil, fmt.Errorf("record %d has no label, balancing needs a fully labeled set", r.Position)
		}
		if r.Label > 0 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	minority, majority := pos, neg
	if len(pos) > len(neg) {
		minority, majority = neg, pos
	}
	if len(minority) == 0 {
		return nil, ErrEmptyMinority
	}

	target := int(cfg.TargetRatio * float64(len(majority)))
	need := target - len(minority)
	if need <= cfg.Tolerance {
		out := make([]dataset.Record, len(records))
		copy(out, records)
		return out, nil
	}

	neighbors := neighborIndex(records, minority, scaler, cfg.K)

	out := make([]dataset.Record, len(records), len(records)+need)
	copy(out, records)

	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < need; i++ {
		base := minority[i%len(minority)]
		cands := neighbors[base]

		var other int
		if len(cands) == 0 {
			// Singleton minority class: nothing to interpolate toward,
			// duplicate the record instead.
			other = base
		} else {
			other = cands[rng.Intn(len(cands))]
		}

		out = append(out, synthesize(records[base], records[other], rng.Float64(), len(records)+i))
	}

	log.Info().
		Int("originals", len(records)).
		Int("synthetic", need).
		Int("minority", len(minority)).
		Int("majority", len(majority)).
		Msg("training set balanced")

	return out, nil
}

// neighborIndex returns, for each minority record index, its k nearest
// same-class neighbor indices.
func neighborIndex(records []dataset.Record, minority []int, scaler *selector.Scaler, k int) map[int][]int {
	index := make(map[int][]int, len(minority))

	for _, i := range minority {
		type cand struct {
			idx  int
			dist float64
		}
		cands := make([]cand, 0, len(minority)-1)
		for _, j := range minority {
			if i == j {
				continue
			}
			cands = append(cands, cand{idx: j, dist: scaler.Distance(records[i].Values, records[j].Values)})
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })

		n := k
		if n > len(cands) {
			n = len(cands)
		}
		nearest := make([]int, n)
		for x := 0; x < n; x++ {
			nearest[x] = cands[x].idx
		}
		index[i] = nearest
	}
	return index
}

// synthesize interpolates between two same-class records: each feature
// value lies at fraction gap along the segment from base to other.
func synthesize(base, other dataset.Record, gap float64, position int) dataset.Record {
	rec := base.Clone()
	rec.Position = position
	rec.Synthetic = true
	for i := range rec.Values {
		rec.Values[i] = base.Values[i] + gap*(other.Values[i]-base.Values[i])
	}
	return rec
}
