package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cardiopredict/internal/balance"
	"cardiopredict/internal/cfg"
	"cardiopredict/internal/dataset"
	"cardiopredict/internal/metrics"
	"cardiopredict/internal/model"
	"cardiopredict/internal/pipeline"
	"cardiopredict/internal/schema"
	"cardiopredict/internal/selector"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Local overrides for development; absence is not an error.
	_ = godotenv.Load()

	mode := flag.String("mode", "train", "pipeline mode: train or score")
	flag.Parse()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	startMetricsServer(c)

	s, err := loadSchema(c)
	if err != nil {
		log.Fatal().Err(err).Msg("schema load failed")
	}

	reader, err := dataset.NewCSVReader(c.Source, c.ReadTimeout)
	if err != nil {
		log.Fatal().Err(err).Str("source", c.Source).Msg("source open failed")
	}

	store, err := dataset.NewStore(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("data_path", c.DataPath).Msg("table store open failed")
	}
	defer store.Close()

	pipe := pipeline.New(pipelineConfig(c, s), mw)

	switch *mode {
	case "train":
		err = runTrain(ctx, c, pipe, reader, store)
	case "score":
		err = runScore(ctx, c, pipe, reader, store)
	default:
		err = fmt.Errorf("unknown mode %q (want train or score)", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("pipeline run failed")
	}
}

func pipelineConfig(c cfg.Settings, s *schema.Schema) pipeline.Config {
	pc := pipeline.Config{
		Schema:          s,
		SelectThreshold: c.SelectThreshold,
		MinFitRecords:   c.MinFitRecords,
		Balance: balance.Config{
			K:           c.BalanceK,
			TargetRatio: c.BalanceRatio,
			Tolerance:   c.BalanceTolerance,
			Seed:        c.BalanceSeed,
		},
		Classifier: &model.Logistic{Epochs: c.Epochs, LearningRate: c.LearningRate},
		Workers:    c.Workers,
	}
	if c.RiskThresholdSet {
		t := c.RiskThreshold
		pc.RiskThreshold = &t
	}
	return pc
}

func loadSchema(c cfg.Settings) (*schema.Schema, error) {
	if c.SchemaPath != "" {
		return schema.Load(c.SchemaPath)
	}
	return schema.Default(), nil
}

func runTrain(ctx context.Context, c cfg.Settings, pipe *pipeline.Pipeline, reader *dataset.CSVReader, store *dataset.Store) error {
	res, err := pipe.Train(ctx, reader, reader)
	if err != nil {
		return err
	}

	if err := store.WriteRecords(c.SilverTable, res.Balanced); err != nil {
		return fmt.Errorf("write silver table: %w", err)
	}
	if err := res.Model.Save(c.ModelPath); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	weightsPath := filepath.Join(filepath.Dir(c.ModelPath), "weights.json")
	if err := selector.SaveTable(res.Weights, weightsPath); err != nil {
		return fmt.Errorf("save weight table: %w", err)
	}

	logSummary(res.Summary)
	log.Info().
		Str("model_path", c.ModelPath).
		Str("silver_table", c.SilverTable).
		Strs("selected_features", res.Summary.SelectedFeatures).
		Msg("training artifacts written")
	return nil
}

func runScore(ctx context.Context, c cfg.Settings, pipe *pipeline.Pipeline, reader *dataset.CSVReader, store *dataset.Store) error {
	mdl, err := model.Load(c.ModelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	res, err := pipe.Score(ctx, reader, reader, mdl)
	if err != nil {
		return err
	}

	if err := store.WriteScored(c.ScoredTable, res.Records); err != nil {
		return fmt.Errorf("write scored table: %w", err)
	}

	logSummary(res.Summary)
	log.Info().
		Int("scored", res.Summary.Scored).
		Str("scored_table", c.ScoredTable).
		Msg("scored output written")
	return nil
}

func logSummary(s pipeline.RunSummary) {
	ev := log.Info().
		Int("rows_read", s.RowsRead).
		Int("rows_rejected", s.RowsRejected).
		Int("normalized", s.Normalized).
		Int("schema_mismatches", s.SchemaMismatches).
		Dur("duration", s.Duration)
	for _, sample := range s.MismatchSamples {
		ev = ev.Str("mismatch_sample", sample.Error())
	}
	ev.Msg("run summary")
}

// startMetricsServer exposes Prometheus metrics and a health endpoint.
func startMetricsServer(c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", c.MetricsPort),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Int("port", c.MetricsPort).Msg("metrics server stopped")
		}
	}()
}
