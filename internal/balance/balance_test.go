package balance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardiopredict/internal/dataset"
	"cardiopredict/internal/selector"
)

var testFields = []string{"f1", "f2"}

// imbalancedSet builds negatives followed by positives with distinct
// clusters per class so neighbor search stays within the class.
func imbalancedSet(negatives, positives int) []dataset.Record {
	var out []dataset.Record
	for i := 0; i < negatives; i++ {
		out = append(out, dataset.Record{
			Position: i,
			Fields:   testFields,
			Values:   []float64{float64(i % 10), 0},
			Label:    0,
			HasLabel: true,
		})
	}
	for i := 0; i < positives; i++ {
		out = append(out, dataset.Record{
			Position: negatives + i,
			Fields:   testFields,
			Values:   []float64{float64(i % 10), 100},
			Label:    1,
			HasLabel: true,
		})
	}
	return out
}

func counts(records []dataset.Record) (pos, neg int) {
	for _, r := range records {
		if r.Label > 0 {
			pos++
		} else {
			neg++
		}
	}
	return
}

func fitScaler(t *testing.T, records []dataset.Record) *selector.Scaler {
	t.Helper()
	s, err := selector.FitScaler(records)
	require.NoError(t, err)
	return s
}

func TestBalance_800To200Scenario(t *testing.T) {
	records := imbalancedSet(800, 200)
	out, err := Balance(records, fitScaler(t, records), Config{})
	require.NoError(t, err)

	pos, neg := counts(out)
	assert.Equal(t, 800, neg)
	assert.Equal(t, 800, pos, "default 1:1 target ratio")
	assert.Len(t, out, 1600)
}

func TestBalance_OriginalsPreservedVerbatimInOrder(t *testing.T) {
	records := imbalancedSet(30, 10)
	out, err := Balance(records, fitScaler(t, records), Config{})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(out), len(records))
	for i, r := range records {
		assert.Equal(t, r, out[i], "original %d must be unchanged and in place", i)
	}
	for _, r := range out[len(records):] {
		assert.True(t, r.Synthetic, "appended records must be flagged synthetic")
		assert.Equal(t, 1.0, r.Label, "synthetics belong to the minority class")
	}
}

func TestBalance_SyntheticsLieOnSegments(t *testing.T) {
	records := imbalancedSet(20, 5)
	scaler := fitScaler(t, records)
	out, err := Balance(records, scaler, Config{K: 2})
	require.NoError(t, err)

	// All minority values sit in the f2=100 cluster with f1 in [0,4];
	// interpolation cannot leave the cluster's bounding box.
	for _, r := range out[len(records):] {
		f1, _ := r.Value("f1")
		f2, _ := r.Value("f2")
		assert.GreaterOrEqual(t, f1, 0.0)
		assert.LessOrEqual(t, f1, 4.0)
		assert.Equal(t, 100.0, f2)
	}
}

func TestBalance_EmptyMinority(t *testing.T) {
	records := imbalancedSet(50, 0)
	_, err := Balance(records, fitScaler(t, records), Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyMinority))
}

func TestBalance_AlreadyBalanced(t *testing.T) {
	records := imbalancedSet(25, 25)
	out, err := Balance(records, fitScaler(t, records), Config{})
	require.NoError(t, err)
	assert.Equal(t, records, out, "nothing to synthesize at the target ratio")
}

func TestBalance_Reproducible(t *testing.T) {
	records := imbalancedSet(60, 15)
	scaler := fitScaler(t, records)

	first, err := Balance(records, scaler, Config{Seed: 7})
	require.NoError(t, err)
	second, err := Balance(records, scaler, Config{Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, first, second, "same seed, same synthetics")
}

func TestBalance_SingletonMinority(t *testing.T) {
	records := imbalancedSet(10, 1)
	out, err := Balance(records, fitScaler(t, records), Config{})
	require.NoError(t, err)

	pos, neg := counts(out)
	assert.Equal(t, 10, neg)
	assert.Equal(t, 10, pos, "singleton minority is duplicated up to target")
}

func TestBalance_TargetRatio(t *testing.T) {
	records := imbalancedSet(100, 20)
	out, err := Balance(records, fitScaler(t, records), Config{TargetRatio: 0.5})
	require.NoError(t, err)

	pos, _ := counts(out)
	assert.Equal(t, 50, pos)
}

func TestBalance_UnlabeledRecordRejected(t *testing.T) {
	records := imbalancedSet(10, 5)
	records[3].HasLabel = false
	_, err := Balance(records, fitScaler(t, records), Config{})
	require.Error(t, err)
}

func BenchmarkBalance(b *testing.B) {
	records := imbalancedSet(800, 200)
	scaler, err := selector.FitScaler(records)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Balance(records, scaler, Config{}); err != nil {
			b.Fatal(err)
		}
	}
}

func ExampleBalance() {
	records := imbalancedSet(4, 2)
	scaler, _ := selector.FitScaler(records)
	out, _ := Balance(records, scaler, Config{})
	pos, neg := 0, 0
	for _, r := range out {
		if r.Label > 0 {
			pos++
		} else {
			neg++
		}
	}
	fmt.Println(pos, neg)
	// Output: 4 4
}
