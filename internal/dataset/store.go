package dataset

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Store is the bulk record writer/reader against the queryable table
// layer. Each table is a BoltDB bucket; keys are zero-padded row
// positions so cursor scans return rows in write order.
type Store struct {
	db *bbolt.DB
}

// storedRow is the persisted shape of a Record or ScoredRecord.
type storedRow struct {
	Fields      []string  `json:"fields"`
	Values      []float64 `json:"values"`
	Label       float64   `json:"label,omitempty"`
	HasLabel    bool      `json:"has_label,omitempty"`
	Synthetic   bool      `json:"synthetic,omitempty"`
	Probability *float64  `json:"probability,omitempty"`
	AtRisk      *bool     `json:"at_risk,omitempty"`
}

// NewStore opens (or creates) the table store under dataPath.
func NewStore(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "cardiopredict.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open table store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func rowKey(i int) []byte {
	return []byte(fmt.Sprintf("%012d", i))
}

// WriteRecords persists records to the named table, replacing any
// previous contents so reruns stay idempotent.
func (s *Store) WriteRecords(table string, records []Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(table)) != nil {
			if err := tx.DeleteBucket([]byte(table)); err != nil {
				return fmt.Errorf("truncate table %s: %w", table, err)
			}
		}
		b, err := tx.CreateBucket([]byte(table))
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}

		for i, r := range records {
			row := storedRow{
				Fields:    r.Fields,
				Values:    r.Values,
				Label:     r.Label,
				HasLabel:  r.HasLabel,
				Synthetic: r.Synthetic,
			}
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("marshal row %d: %w", i, err)
			}
			if err := b.Put(rowKey(i), data); err != nil {
				return fmt.Errorf("put row %d: %w", i, err)
			}
		}
		return nil
	})
}

// WriteScored persists scored records to the named table.
func (s *Store) WriteScored(table string, records []ScoredRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(table)) != nil {
			if err := tx.DeleteBucket([]byte(table)); err != nil {
				return fmt.Errorf("truncate table %s: %w", table, err)
			}
		}
		b, err := tx.CreateBucket([]byte(table))
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}

		for i, r := range records {
			prob := r.Probability
			row := storedRow{
				Fields:      r.Fields,
				Values:      r.Values,
				Label:       r.Label,
				HasLabel:    r.HasLabel,
				Synthetic:   r.Synthetic,
				Probability: &prob,
			}
			if r.Thresholded {
				atRisk := r.AtRisk
				row.AtRisk = &atRisk
			}
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("marshal row %d: %w", i, err)
			}
			if err := b.Put(rowKey(i), data); err != nil {
				return fmt.Errorf("put row %d: %w", i, err)
			}
		}
		return nil
	})
}

// ReadRecords returns every row of the named table in write order.
func (s *Store) ReadRecords(table string) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return fmt.Errorf("table %s does not exist", table)
		}

		i := 0
		return b.ForEach(func(k, v []byte) error {
			var row storedRow
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("unmarshal row %s: %w", k, err)
			}
			out = append(out, Record{
				Position:  i,
				Fields:    row.Fields,
				Values:    row.Values,
				Label:     row.Label,
				HasLabel:  row.HasLabel,
				Synthetic: row.Synthetic,
			})
			i++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadScored returns every scored row of the named table in write order.
func (s *Store) ReadScored(table string) ([]ScoredRecord, error) {
	var out []ScoredRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return fmt.Errorf("table %s does not exist", table)
		}

		i := 0
		return b.ForEach(func(k, v []byte) error {
			var row storedRow
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("unmarshal row %s: %w", k, err)
			}
			sr := ScoredRecord{
				Record: Record{
					Position:  i,
					Fields:    row.Fields,
					Values:    row.Values,
					Label:     row.Label,
					HasLabel:  row.HasLabel,
					Synthetic: row.Synthetic,
				},
			}
			if row.Probability != nil {
				sr.Probability = *row.Probability
			}
			if row.AtRisk != nil {
				sr.AtRisk = *row.AtRisk
				sr.Thresholded = true
			}
			out = append(out, sr)
			i++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
