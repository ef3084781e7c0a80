package metrics

// Wrapper adapts Metrics to the tracker interface the pipeline
// consumes, so stage code never imports the Prometheus client.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) RowsReadAdd(n int)     { w.m.RowsRead.Add(float64(n)) }
func (w *Wrapper) RowsRejectedAdd(n int) { w.m.RowsRejected.Add(float64(n)) }
func (w *Wrapper) RowsNormalizedInc()    { w.m.RowsNormalized.Inc() }

func (w *Wrapper) SchemaMismatchesAdd(n int) { w.m.SchemaMismatches.Add(float64(n)) }
func (w *Wrapper) SyntheticRecordsAdd(n int) { w.m.SyntheticRecords.Add(float64(n)) }
func (w *Wrapper) FeaturesSelectedSet(n int) { w.m.FeaturesSelected.Set(float64(n)) }

func (w *Wrapper) TrainDurationObserve(seconds float64) { w.m.TrainDuration.Observe(seconds) }
func (w *Wrapper) ScoreLatencyObserve(seconds float64)  { w.m.ScoreLatency.Observe(seconds) }
func (w *Wrapper) RiskScoreObserve(p float64)           { w.m.RiskScores.Observe(p) }

func (w *Wrapper) RunsInc()   { w.m.RunsTotal.Inc() }
func (w *Wrapper) ErrorsInc() { w.m.ErrorsTotal.Inc() }
