// Package dataset defines the record types flowing through the risk
// pipeline and the bulk reader/writer boundaries to external storage.
// It provides CSV ingestion with row-level error isolation and a
// BoltDB-backed table store whose read-back reproduces written rows.
package dataset

import "fmt"

// Record is one person-survey response after ingestion. Fields and
// Values are parallel slices in a fixed order; Position is the row's
// index in the original input so parallel stages can restore order.
type Record struct {
	Position  int
	Fields    []string
	Values    []float64
	Label     float64
	HasLabel  bool
	Synthetic bool
}

// ScoredRecord is a Record plus its risk probability. AtRisk is only
// meaningful when a decision threshold was configured for the run.
type ScoredRecord struct {
	Record
	Probability float64
	AtRisk      bool
	Thresholded bool
}

// Value returns the value of the named field.
func (r *Record) Value(name string) (float64, bool) {
	for i, f := range r.Fields {
		if f == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Clone returns a deep copy sharing no slices with the receiver.
func (r *Record) Clone() Record {
	out := *r
	out.Fields = append([]string(nil), r.Fields...)
	out.Values = append([]float64(nil), r.Values...)
	return out
}

// RawRow is an unparsed input row: ordered field names and their raw
// string values as read from the source.
type RawRow struct {
	Position int
	Fields   []string
	Values   []string
}

// Get returns the raw value of the named field.
func (r *RawRow) Get(name string) (string, bool) {
	for i, f := range r.Fields {
		if f == name {
			return r.Values[i], true
		}
	}
	return "", false
}

// RecordIterator is a finite sequence of records. Next returns false
// when the sequence is exhausted or a terminal error occurred; Err
// distinguishes the two. Reset restarts the sequence from the
// beginning.
type RecordIterator interface {
	Next() (Record, bool)
	Err() error
	Reset() error
}

// SliceIterator adapts a materialized slice to RecordIterator.
type SliceIterator struct {
	records []Record
	idx     int
}

func NewSliceIterator(records []Record) *SliceIterator {
	return &SliceIterator{records: records}
}

func (s *SliceIterator) Next() (Record, bool) {
	if s.idx >= len(s.records) {
		return Record{}, false
	}
	r := s.records[s.idx]
	s.idx++
	return r, true
}

func (s *SliceIterator) Err() error { return nil }

func (s *SliceIterator) Reset() error {
	s.idx = 0
	return nil
}

// Collect drains an iterator into a slice.
func Collect(it RecordIterator) ([]Record, error) {
	var out []Record
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, r)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("collect records: %w", err)
	}
	return out, nil
}
