// Package schema maps raw heterogeneous survey rows onto the fixed
// numeric schema the rest of the pipeline consumes. Categorical answers
// go through per-field lookup tables; numeric fields are parsed as-is.
// Rows that do not fit the schema are isolated, counted and skipped,
// never aborting the scan.
package schema

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog/log"

	"cardiopredict/internal/dataset"
)

// Kind distinguishes how a field's raw value is converted.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

// Field is one column of the fixed schema.
type Field struct {
	Name   string
	Kind   Kind
	Lookup map[string]float64 // categorical code table
}

// BMIDerivation computes a BMI column from raw weight/height fields
// when the source carries those instead of a precomputed BMI.
type BMIDerivation struct {
	WeightField string
	HeightField string
	Target      string
}

// Schema is the fixed field set every normalized record carries.
// Label names the binary target column; Drop lists raw columns removed
// after derivation (identifiers, redundant measurements).
type Schema struct {
	Fields []Field
	Label  string
	Derive *BMIDerivation
	Drop   []string
}

// FieldNames returns the schema's column names in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) dropped(name string) bool {
	for _, d := range s.Drop {
		if d == name {
			return true
		}
	}
	return false
}

// MismatchError reports a row that cannot be mapped onto the schema:
// a missing or unexpected field, or a categorical value absent from
// its lookup table.
type MismatchError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *MismatchError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("schema mismatch at row %d: field %s value %q: %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("schema mismatch at row %d: field %s: %s", e.Row, e.Field, e.Reason)
}

// RowErrorSummary aggregates isolated per-row failures for one scan.
type RowErrorSummary struct {
	Skipped int
	Samples []*MismatchError
}

const maxErrorSamples = 10

func (s *RowErrorSummary) record(err *MismatchError) {
	s.Skipped++
	if len(s.Samples) < maxErrorSamples {
		s.Samples = append(s.Samples, err)
	}
	log.Debug().Int("row", err.Row).Str("field", err.Field).Str("reason", err.Reason).Msg("row skipped")
}

// RawIterator is the upstream source of unparsed rows.
type RawIterator interface {
	Next() (dataset.RawRow, bool)
	Err() error
	Reset() error
}

// Normalizer converts raw rows into fixed-schema records, streaming.
type Normalizer struct {
	schema *Schema
}

func NewNormalizer(s *Schema) *Normalizer {
	return &Normalizer{schema: s}
}

// Normalize wraps src in a lazy iterator of normalized records.
// The returned summary fills in as the iterator is drained.
func (n *Normalizer) Normalize(src RawIterator) (dataset.RecordIterator, *RowErrorSummary) {
	summary := &RowErrorSummary{}
	return &normalizeIter{schema: n.schema, src: src, summary: summary}, summary
}

// NormalizeRow converts a single raw row. The derivation step runs
// first so a derived BMI is visible to the schema's field set.
func (n *Normalizer) NormalizeRow(row dataset.RawRow) (dataset.Record, *MismatchError) {
	return normalizeRow(n.schema, row)
}

type normalizeIter struct {
	schema  *Schema
	src     RawIterator
	summary *RowErrorSummary
}

func (it *normalizeIter) Next() (dataset.Record, bool) {
	for {
		raw, ok := it.src.Next()
		if !ok {
			return dataset.Record{}, false
		}
		rec, merr := normalizeRow(it.schema, raw)
		if merr != nil {
			it.summary.record(merr)
			continue
		}
		return rec, true
	}
}

func (it *normalizeIter) Err() error { return it.src.Err() }

func (it *normalizeIter) Reset() error {
	it.summary.Skipped = 0
	it.summary.Samples = nil
	return it.src.Reset()
}

func normalizeRow(s *Schema, row dataset.RawRow) (dataset.Record, *MismatchError) {
	// Raw fields the schema knows nothing about are a mismatch, with
	// the exception of declared drop columns and derivation inputs.
	for _, name := range row.Fields {
		if s.dropped(name) || name == s.Label {
			continue
		}
		if s.Derive != nil && (name == s.Derive.WeightField || name == s.Derive.HeightField) {
			continue
		}
		if !s.hasField(name) {
			return dataset.Record{}, &MismatchError{Row: row.Position, Field: name, Reason: "not in schema"}
		}
	}

	derived := map[string]float64{}
	if s.Derive != nil {
		bmi, merr := deriveBMI(s.Derive, row)
		if merr != nil {
			return dataset.Record{}, merr
		}
		derived[s.Derive.Target] = bmi
	}

	rec := dataset.Record{
		Position: row.Position,
		Fields:   s.FieldNames(),
		Values:   make([]float64, len(s.Fields)),
	}

	for i, f := range s.Fields {
		if v, ok := derived[f.Name]; ok {
			rec.Values[i] = v
			continue
		}
		raw, ok := row.Get(f.Name)
		if !ok {
			return dataset.Record{}, &MismatchError{Row: row.Position, Field: f.Name, Reason: "field missing"}
		}
		v, merr := convert(&f, raw, row.Position)
		if merr != nil {
			return dataset.Record{}, merr
		}
		rec.Values[i] = v
	}

	if s.Label != "" {
		raw, ok := row.Get(s.Label)
		if ok {
			v, merr := convertLabel(raw, s.Label, row.Position)
			if merr != nil {
				return dataset.Record{}, merr
			}
			rec.Label = v
			rec.HasLabel = true
		}
	}

	return rec, nil
}

func (s *Schema) hasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func convert(f *Field, raw string, row int) (float64, *MismatchError) {
	switch f.Kind {
	case Categorical:
		code, ok := f.Lookup[raw]
		if !ok {
			return 0, &MismatchError{Row: row, Field: f.Name, Value: raw, Reason: "value not in lookup table"}
		}
		return code, nil
	default:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, &MismatchError{Row: row, Field: f.Name, Value: raw, Reason: "not numeric"}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &MismatchError{Row: row, Field: f.Name, Value: raw, Reason: "not finite"}
		}
		return v, nil
	}
}

// convertLabel encodes the binary target; survey extracts carry it as
// Yes/No, already-encoded sources as 1/0.
func convertLabel(raw, field string, row int) (float64, *MismatchError) {
	switch raw {
	case "Yes", "1":
		return 1, nil
	case "No", "0":
		return 0, nil
	}
	return 0, &MismatchError{Row: row, Field: field, Value: raw, Reason: "label must be Yes/No or 1/0"}
}

func deriveBMI(d *BMIDerivation, row dataset.RawRow) (float64, *MismatchError) {
	wRaw, ok := row.Get(d.WeightField)
	if !ok {
		return 0, &MismatchError{Row: row.Position, Field: d.WeightField, Reason: "field missing"}
	}
	hRaw, ok := row.Get(d.HeightField)
	if !ok {
		return 0, &MismatchError{Row: row.Position, Field: d.HeightField, Reason: "field missing"}
	}

	w, err := strconv.ParseFloat(wRaw, 64)
	if err != nil {
		return 0, &MismatchError{Row: row.Position, Field: d.WeightField, Value: wRaw, Reason: "not numeric"}
	}
	h, err := strconv.ParseFloat(hRaw, 64)
	if err != nil {
		return 0, &MismatchError{Row: row.Position, Field: d.HeightField, Value: hRaw, Reason: "not numeric"}
	}

	bmi := w / (h * h)
	if math.IsNaN(bmi) || math.IsInf(bmi, 0) {
		return 0, &MismatchError{Row: row.Position, Field: d.Target, Reason: "derived BMI not finite"}
	}
	return bmi, nil
}
