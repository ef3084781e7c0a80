package selector

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardiopredict/internal/dataset"
)

func labeled(pos int, label float64, fields []string, values []float64) dataset.Record {
	return dataset.Record{
		Position: pos,
		Fields:   fields,
		Values:   values,
		Label:    label,
		HasLabel: true,
	}
}

func TestSelected_ThresholdScenario(t *testing.T) {
	table := WeightTable{"smoker": 0.42, "bmi": 0.05, "age_bucket": 0.35}
	fields := []string{"smoker", "bmi", "age_bucket"}

	got := Selected(table, 0.3, fields)
	assert.Equal(t, []string{"smoker", "age_bucket"}, got)
}

func TestSelected_TieIsExcluded(t *testing.T) {
	table := WeightTable{"a": 0.3, "b": -0.3, "c": 0.300001}
	got := Selected(table, 0.3, []string{"a", "b", "c"})
	assert.Equal(t, []string{"c"}, got, "a tie at exactly the threshold is excluded")
}

func TestApply_ProjectsAndIsIdempotent(t *testing.T) {
	table := WeightTable{"smoker": 0.42, "bmi": 0.05, "age_bucket": -0.35}
	fields := []string{"smoker", "bmi", "age_bucket"}
	records := []dataset.Record{
		labeled(0, 1, fields, []float64{1, 31.2, 9}),
		labeled(1, 0, fields, []float64{0, 22.0, 3}),
	}

	run := func() []dataset.Record {
		it := Apply(table, 0.3, dataset.NewSliceIterator(records))
		out, err := dataset.Collect(it)
		require.NoError(t, err)
		return out
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "apply must be idempotent")

	require.Len(t, first, 2)
	assert.Equal(t, []string{"smoker", "age_bucket"}, first[0].Fields)
	assert.Equal(t, []float64{1, 9}, first[0].Values)
	assert.Equal(t, 1.0, first[0].Label)
	assert.True(t, first[0].HasLabel)
	assert.Equal(t, 0, first[0].Position)
}

func TestFit_InsufficientData(t *testing.T) {
	s := New(10)
	fields := []string{"x"}
	records := []dataset.Record{
		labeled(0, 1, fields, []float64{1}),
		labeled(1, 0, fields, []float64{0}),
	}

	_, err := s.Fit(records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestFit_DegenerateLabel(t *testing.T) {
	s := New(2)
	fields := []string{"x"}
	var records []dataset.Record
	for i := 0; i < 20; i++ {
		records = append(records, labeled(i, 1, fields, []float64{float64(i)}))
	}

	table, err := s.Fit(records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateLabel))
	assert.Nil(t, table, "no partial weight table on error")
}

func TestFit_WeightsTrackLabelCorrelation(t *testing.T) {
	fields := []string{"informative", "noise", "constant"}
	var records []dataset.Record
	for i := 0; i < 100; i++ {
		label := float64(i % 2)
		informative := label*2 - 1 // perfectly aligned with the label
		noise := float64((i * 7 % 13)) // uncorrelated with i%2 parity
		records = append(records, labeled(i, label, fields, []float64{informative, noise, 5}))
	}

	table, err := New(10).Fit(records)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, table["informative"], 1e-9, "perfectly aligned feature gets |weight| 1")
	assert.Less(t, math.Abs(table["noise"]), 0.5)
	assert.Equal(t, 0.0, table["constant"], "constant feature carries no signal")
}

func TestFit_Deterministic(t *testing.T) {
	fields := []string{"a", "b"}
	var records []dataset.Record
	for i := 0; i < 50; i++ {
		records = append(records, labeled(i, float64(i%2), fields, []float64{float64(i), float64(i * i % 17)}))
	}

	first, err := New(10).Fit(records)
	require.NoError(t, err)
	second, err := New(10).Fit(records)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
