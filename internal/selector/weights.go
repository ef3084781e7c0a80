package selector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveTable writes a fitted weight table as JSON, next to the model
// artifact, so a later pass can audit which features were retained.
func SaveTable(table WeightTable, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create weights dir: %w", err)
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal weight table: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadTable reads a weight table written by SaveTable.
func LoadTable(path string) (WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight table %s: %w", path, err)
	}
	var table WeightTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse weight table %s: %w", path, err)
	}
	return table, nil
}
