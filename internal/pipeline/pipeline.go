// Package pipeline wires the stages together: raw rows are normalized
// onto the fixed schema, a feature mask is fitted and applied, the
// training branch balances classes and fits the classifier, the
// scoring branch attaches risk probabilities. Normalization and
// scoring fan out over a worker pool; the selector fit and the
// balancer materialization are the only barriers.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"cardiopredict/internal/balance"
	"cardiopredict/internal/dataset"
	"cardiopredict/internal/model"
	"cardiopredict/internal/schema"
	"cardiopredict/internal/selector"
)

// Tracker receives pipeline metrics. A nil Tracker disables tracking.
type Tracker interface {
	RowsReadAdd(int)
	RowsRejectedAdd(int)
	RowsNormalizedInc()
	SchemaMismatchesAdd(int)
	SyntheticRecordsAdd(int)
	FeaturesSelectedSet(int)
	TrainDurationObserve(float64)
	ScoreLatencyObserve(float64)
	RiskScoreObserve(float64)
	RunsInc()
	ErrorsInc()
}

// Config tunes one pipeline instance.
type Config struct {
	Schema          *schema.Schema
	SelectThreshold float64
	MinFitRecords   int
	Balance         balance.Config
	Classifier      model.Classifier
	RiskThreshold   *float64 // nil disables binary classification
	Workers         int
}

// Pipeline runs training and scoring passes over bulk sources.
type Pipeline struct {
	cfg     Config
	metrics Tracker
}

func New(cfg Config, metrics Tracker) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Classifier == nil {
		cfg.Classifier = model.NewLogistic()
	}
	return &Pipeline{cfg: cfg, metrics: metrics}
}

// RunSummary aggregates per-row errors and stage counts for one run.
// A row is never both counted here as failed and present in output.
type RunSummary struct {
	RowsRead         int
	RowsRejected     int
	RejectedSamples  []dataset.RowError
	SchemaMismatches int
	MismatchSamples  []*schema.MismatchError
	Normalized       int
	SelectedFeatures []string
	Originals        int
	Synthetic        int
	Scored           int
	Duration         time.Duration
}

// TrainResult is the artifact set of a completed training run.
type TrainResult struct {
	Model    *model.Model
	Weights  selector.WeightTable
	Scaler   *selector.Scaler
	Balanced []dataset.Record
	Summary  RunSummary
}

// Train runs the training branch: Raw -> Normalized -> FeatureSelected
// -> Balanced -> Trained. Fit failures abort the run as a single
// structured error; no partial artifacts are returned.
func (p *Pipeline) Train(ctx context.Context, src schema.RawIterator, reader *dataset.CSVReader) (*TrainResult, error) {
	start := time.Now()
	p.runsInc()

	records, summary, err := p.normalizeAll(ctx, src)
	if err != nil {
		p.errorsInc()
		return nil, err
	}
	p.fillReaderStats(&summary, reader)

	sel := selector.New(p.cfg.MinFitRecords)
	weights, err := sel.Fit(records)
	if err != nil {
		p.errorsInc()
		return nil, fmt.Errorf("feature selection fit: %w", err)
	}

	fields := records[0].Fields
	selected := selector.Selected(weights, p.cfg.SelectThreshold, fields)
	if p.metrics != nil {
		p.metrics.FeaturesSelectedSet(len(selected))
	}
	summary.SelectedFeatures = selected

	masked := make([]dataset.Record, len(records))
	for i, r := range records {
		masked[i] = selector.Project(weights, p.cfg.SelectThreshold, r)
	}

	scaler, err := selector.FitScaler(masked)
	if err != nil {
		p.errorsInc()
		return nil, fmt.Errorf("scaler fit: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	balanced, err := balance.Balance(masked, scaler, p.cfg.Balance)
	if err != nil {
		p.errorsInc()
		return nil, fmt.Errorf("class balancing: %w", err)
	}
	summary.Originals = len(masked)
	summary.Synthetic = len(balanced) - len(masked)
	if p.metrics != nil {
		p.metrics.SyntheticRecordsAdd(summary.Synthetic)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := make([][]float64, len(balanced))
	labels := make([]float64, len(balanced))
	for i, r := range balanced {
		features[i] = r.Values
		labels[i] = r.Label
	}

	trainStart := time.Now()
	m, err := p.cfg.Classifier.Train(balanced[0].Fields, features, labels)
	if err != nil {
		p.errorsInc()
		return nil, fmt.Errorf("classifier training: %w", err)
	}
	if p.metrics != nil {
		p.metrics.TrainDurationObserve(time.Since(trainStart).Seconds())
	}

	summary.Duration = time.Since(start)
	log.Info().
		Int("rows_read", summary.RowsRead).
		Int("normalized", summary.Normalized).
		Int("selected_features", len(selected)).
		Int("synthetic", summary.Synthetic).
		Dur("duration", summary.Duration).
		Msg("training run complete")

	return &TrainResult{
		Model:    m,
		Weights:  weights,
		Scaler:   scaler,
		Balanced: balanced,
		Summary:  summary,
	}, nil
}

// ScoreResult is the output of a scoring run.
type ScoreResult struct {
	Records []dataset.ScoredRecord
	Summary RunSummary
}

// Score runs the scoring branch: Raw -> Normalized -> Scored. The
// model is a pure read; an unfitted feature aborts the pass before
// any probability is computed for the offending record.
func (p *Pipeline) Score(ctx context.Context, src schema.RawIterator, reader *dataset.CSVReader, m *model.Model) (*ScoreResult, error) {
	start := time.Now()
	p.runsInc()

	records, summary, err := p.normalizeAll(ctx, src)
	if err != nil {
		p.errorsInc()
		return nil, err
	}
	p.fillReaderStats(&summary, reader)

	scorer := model.NewScorer(m)
	if p.cfg.RiskThreshold != nil {
		scorer = scorer.WithThreshold(*p.cfg.RiskThreshold)
	}

	scored, err := p.scoreAll(ctx, scorer, records)
	if err != nil {
		p.errorsInc()
		return nil, err
	}
	summary.Scored = len(scored)
	summary.Duration = time.Since(start)

	log.Info().
		Int("rows_read", summary.RowsRead).
		Int("scored", summary.Scored).
		Dur("duration", summary.Duration).
		Msg("scoring run complete")

	return &ScoreResult{Records: scored, Summary: summary}, nil
}

// normalizeAll fans raw rows out to the worker pool and collects the
// normalized records sorted back into input order. Mismatched rows are
// isolated into the summary, not errors.
func (p *Pipeline) normalizeAll(ctx context.Context, src schema.RawIterator) ([]dataset.Record, RunSummary, error) {
	norm := schema.NewNormalizer(p.cfg.Schema)

	rows := make(chan dataset.RawRow, p.cfg.Workers*2)
	type outcome struct {
		rec      dataset.Record
		mismatch *schema.MismatchError
	}
	results := make(chan outcome, p.cfg.Workers*2)

	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				rec, merr := norm.NormalizeRow(row)
				select {
				case results <- outcome{rec: rec, mismatch: merr}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	feedErr := make(chan error, 1)
	go func() {
		defer close(rows)
		for {
			row, ok := src.Next()
			if !ok {
				feedErr <- src.Err()
				return
			}
			select {
			case rows <- row:
			case <-ctx.Done():
				feedErr <- ctx.Err()
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var records []dataset.Record
	summary := RunSummary{}
	for out := range results {
		if out.mismatch != nil {
			summary.SchemaMismatches++
			if len(summary.MismatchSamples) < 10 {
				summary.MismatchSamples = append(summary.MismatchSamples, out.mismatch)
			}
			if p.metrics != nil {
				p.metrics.SchemaMismatchesAdd(1)
			}
			continue
		}
		records = append(records, out.rec)
		if p.metrics != nil {
			p.metrics.RowsNormalizedInc()
		}
	}

	if err := <-feedErr; err != nil {
		return nil, summary, fmt.Errorf("reading source: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, summary, err
	}

	// Workers emit out of order; input position restores determinism.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})
	summary.Normalized = len(records)
	return records, summary, nil
}

// scoreAll scores records across the worker pool, restoring input
// order afterward. The first unfitted-feature failure wins; no
// probability is reported for any failed record.
func (p *Pipeline) scoreAll(ctx context.Context, scorer *model.Scorer, records []dataset.Record) ([]dataset.ScoredRecord, error) {
	in := make(chan dataset.Record, p.cfg.Workers*2)
	out := make(chan dataset.ScoredRecord, p.cfg.Workers*2)
	errs := make(chan error, p.cfg.Workers)

	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range in {
				start := time.Now()
				sr, err := scorer.ScoreRecord(r)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					// Drain so the feeder is never left blocked.
					for range in {
					}
					return
				}
				if p.metrics != nil {
					p.metrics.ScoreLatencyObserve(time.Since(start).Seconds())
					p.metrics.RiskScoreObserve(sr.Probability)
				}
				select {
				case out <- sr:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(in)
		for _, r := range records {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var scored []dataset.ScoredRecord
	for sr := range out {
		scored = append(scored, sr)
	}

	select {
	case err := <-errs:
		return nil, fmt.Errorf("scoring: %w", err)
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Position < scored[j].Position
	})
	return scored, nil
}

func (p *Pipeline) fillReaderStats(summary *RunSummary, reader *dataset.CSVReader) {
	if reader == nil {
		return
	}
	summary.RowsRead = reader.RowsRead()
	summary.RowsRejected = reader.Failed()
	summary.RejectedSamples = reader.FailureSamples()
	if p.metrics != nil {
		p.metrics.RowsReadAdd(summary.RowsRead)
		p.metrics.RowsRejectedAdd(summary.RowsRejected)
	}
}

func (p *Pipeline) runsInc() {
	if p.metrics != nil {
		p.metrics.RunsInc()
	}
}

func (p *Pipeline) errorsInc() {
	if p.metrics != nil {
		p.metrics.ErrorsInc()
	}
}
