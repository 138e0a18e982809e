package meta

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Schema is an explicit table description that needs no reflection.
//
// Example YAML document accepted by Registry.LoadYAML:
//
//	tables:
//	  - table: orders
//	    primaryKey: ID
//	    columns:
//	      - field: ID
//	        column: order_id
//	      - field: Amount
type Schema struct {
	Table      string       `yaml:"table"`
	PrimaryKey string       `yaml:"primaryKey,omitempty"`
	Columns    []ColumnSpec `yaml:"columns"`
}

// ColumnSpec maps one field to a column. An empty Column is derived
// through the registry's NameMapper.
type ColumnSpec struct {
	Field   string `yaml:"field"`
	Column  string `yaml:"column,omitempty"`
	Exclude bool   `yaml:"exclude,omitempty"`
}

// schemaDocument is the top-level YAML layout.
type schemaDocument struct {
	Tables []Schema `yaml:"tables"`
}

// LoadYAML decodes every YAML document in r and registers its tables.
// Registration stops at the first error.
func (r *Registry) LoadYAML(src io.Reader) error {
	dec := yaml.NewDecoder(src)
	for {
		var doc schemaDocument
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("meta: decode schema: %w", err)
		}
		for _, s := range doc.Tables {
			if _, err := r.Register(s); err != nil {
				return err
			}
		}
	}
}
