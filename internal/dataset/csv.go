package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// RowError captures a single rejected input row.
type RowError struct {
	Position int
	Reason   string
}

// CSVReader is the bulk record reader over a CSV source. The locator
// may be a plain path, a file:// URI, or an http(s):// URL; remote
// sources are fetched once and iterated from memory so the sequence
// stays restartable. Malformed rows are counted and sampled, never
// aborting the scan.
type CSVReader struct {
	locator   string
	data      []byte
	header    []string
	reader    *csv.Reader
	pos       int
	rowsRead  int
	failed    int
	samples   []RowError
	maxSample int
	err       error
	client    *resty.Client
}

const defaultErrorSamples = 10

// NewCSVReader opens the locator and reads the header row. The whole
// source is buffered: survey extracts are file-sized, and buffering is
// what makes Reset cheap for remote locators.
func NewCSVReader(locator string, timeout time.Duration) (*CSVReader, error) {
	r := &CSVReader{
		locator:   locator,
		maxSample: defaultErrorSamples,
	}

	data, err := r.fetch(locator, timeout)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", locator, err)
	}
	r.data = data

	if err := r.Reset(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CSVReader) fetch(locator string, timeout time.Duration) ([]byte, error) {
	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		if r.client == nil {
			r.client = resty.New().SetTimeout(timeout)
		}
		resp, err := r.client.R().Get(locator)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("download: status %d", resp.StatusCode())
		}
		return resp.Body(), nil
	case strings.HasPrefix(locator, "file://"):
		return os.ReadFile(strings.TrimPrefix(locator, "file://"))
	default:
		return os.ReadFile(locator)
	}
}

// Reset restarts the sequence from the first data row. Error counters
// reset with it so a re-scan reports its own totals.
func (r *CSVReader) Reset() error {
	cr := csv.NewReader(bytes.NewReader(r.data))
	cr.FieldsPerRecord = -1 // row length checked per row for isolation

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", r.locator, err)
	}

	r.reader = cr
	r.header = header
	r.pos = 0
	r.rowsRead = 0
	r.failed = 0
	r.samples = nil
	r.err = nil
	return nil
}

// Header returns the source's column names.
func (r *CSVReader) Header() []string {
	return append([]string(nil), r.header...)
}

// Next yields the next parseable row. Rows with the wrong field count
// are recorded as failures and skipped.
func (r *CSVReader) Next() (RawRow, bool) {
	for {
		rec, err := r.reader.Read()
		if err == io.EOF {
			return RawRow{}, false
		}
		if err != nil {
			r.recordFailure(r.pos, err.Error())
			r.pos++
			continue
		}

		pos := r.pos
		r.pos++
		if len(rec) != len(r.header) {
			r.recordFailure(pos, fmt.Sprintf("expected %d fields, got %d", len(r.header), len(rec)))
			continue
		}

		r.rowsRead++
		return RawRow{
			Position: pos,
			Fields:   r.header,
			Values:   rec,
		}, true
	}
}

func (r *CSVReader) recordFailure(pos int, reason string) {
	r.failed++
	if len(r.samples) < r.maxSample {
		r.samples = append(r.samples, RowError{Position: pos, Reason: reason})
	}
	log.Debug().Int("row", pos).Str("reason", reason).Msg("skipping malformed row")
}

// Err reports a terminal read error. Per-row failures are not
// terminal; see Failed and FailureSamples.
func (r *CSVReader) Err() error { return r.err }

// RowsRead returns the number of successfully yielded rows so far.
func (r *CSVReader) RowsRead() int { return r.rowsRead }

// Failed returns the number of rows rejected so far.
func (r *CSVReader) Failed() int { return r.failed }

// FailureSamples returns up to the first N rejected rows.
func (r *CSVReader) FailureSamples() []RowError {
	return append([]RowError(nil), r.samples...)
}
