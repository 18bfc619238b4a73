// Package refdb loads the reference nutrition table from a JSON or YAML file.
package refdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/foodlog/backend/internal/domain"
)

// Database is an immutable in-memory reference table keyed by food name.
// It is safe for concurrent reads.
type Database struct {
	foods map[string]domain.FoodReference
	names []string
}

// Load reads the reference table at path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference database: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON builds a Database from a JSON array of records
func ParseJSON(data []byte) (*Database, error) {
	var records []domain.FoodReference
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse reference database: %w", err)
	}
	return New(records), nil
}

// ParseYAML builds a Database from a YAML list of records. Values are routed
// through JSON so numeric coercion matches ParseJSON.
func ParseYAML(data []byte) (*Database, error) {
	var raw []map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse reference database: %w", err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse reference database: %w", err)
	}
	return ParseJSON(encoded)
}

// New builds a Database from records. Blank names are skipped and the first
// record wins for duplicate names.
func New(records []domain.FoodReference) *Database {
	db := &Database{foods: make(map[string]domain.FoodReference, len(records))}
	for _, r := range records {
		if strings.TrimSpace(r.FoodName) == "" {
			continue
		}
		if _, exists := db.foods[r.FoodName]; exists {
			continue
		}
		db.foods[r.FoodName] = r
		db.names = append(db.names, r.FoodName)
	}
	sort.Strings(db.names)
	return db
}

// Lookup returns the record whose name equals foodName exactly.
func (d *Database) Lookup(foodName string) (domain.FoodReference, bool) {
	r, ok := d.foods[foodName]
	return r, ok
}

// Names returns a sorted copy of every food name.
func (d *Database) Names() []string {
	return append([]string(nil), d.names...)
}

// Len returns the number of records.
func (d *Database) Len() int {
	return len(d.names)
}
