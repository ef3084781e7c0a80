package dataset

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `age_bucket,smoker,bmi
65-69,Yes,31.2
70-74,No,24.0
bad-row-with-missing-fields
50-54,No,27.5
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))
	return path
}

func drain(r *CSVReader) []RawRow {
	var rows []RawRow
	for {
		row, ok := r.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows
}

func TestCSVReader_ReadsAndIsolatesFailures(t *testing.T) {
	r, err := NewCSVReader(writeSample(t), time.Second)
	require.NoError(t, err)

	assert.Equal(t, []string{"age_bucket", "smoker", "bmi"}, r.Header())

	rows := drain(r)
	require.NoError(t, r.Err())
	require.Len(t, rows, 3)

	assert.Equal(t, 3, r.RowsRead())
	assert.Equal(t, 1, r.Failed())
	samples := r.FailureSamples()
	require.Len(t, samples, 1)
	assert.Equal(t, 2, samples[0].Position)

	// Yielded rows keep their original positions around the bad row.
	assert.Equal(t, 0, rows[0].Position)
	assert.Equal(t, 3, rows[2].Position)

	v, ok := rows[0].Get("smoker")
	require.True(t, ok)
	assert.Equal(t, "Yes", v)
}

func TestCSVReader_Restartable(t *testing.T) {
	r, err := NewCSVReader(writeSample(t), time.Second)
	require.NoError(t, err)

	first := drain(r)
	require.NoError(t, r.Reset())
	second := drain(r)

	assert.Equal(t, first, second, "the sequence must restart identically")
	assert.Equal(t, 3, r.RowsRead(), "counters reset with the scan")
}

func TestCSVReader_FileURI(t *testing.T) {
	path := writeSample(t)
	r, err := NewCSVReader("file://"+path, time.Second)
	require.NoError(t, err)
	assert.Len(t, drain(r), 3)
}

func TestCSVReader_HTTPLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	r, err := NewCSVReader(srv.URL, time.Second)
	require.NoError(t, err)

	rows := drain(r)
	assert.Len(t, rows, 3)
	assert.Equal(t, 1, r.Failed())

	// Remote sources are buffered, so Reset does not refetch.
	require.NoError(t, r.Reset())
	assert.Len(t, drain(r), 3)
}

func TestCSVReader_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewCSVReader(srv.URL, time.Second)
	require.Error(t, err)
}

func TestCSVReader_MissingFile(t *testing.T) {
	_, err := NewCSVReader(filepath.Join(t.TempDir(), "absent.csv"), time.Second)
	require.Error(t, err)
}
