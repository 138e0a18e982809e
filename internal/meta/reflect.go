package meta

import (
	"reflect"
	"strings"
)

// TableNamer is implemented by entity types that declare their table.
type TableNamer interface {
	TableName() string
}

// ParseTag parses a db struct tag.
//
// Supported formats:
//   - "column"     -> column="column", pk=false
//   - "column,pk"  -> column="column", pk=true
//   - ",pk"        -> column="" (derived), pk=true
//   - "-"          -> skip field
func ParseTag(tag string) (column string, pk bool) {
	parts := strings.Split(tag, ",")
	column = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "pk" {
			pk = true
			break
		}
	}
	return column, pk
}

// schemaOf derives a Schema from a struct type. Own fields are visited
// before embedded structs so that outer declarations win on name clashes.
func schemaOf(typ reflect.Type, table string) (Schema, error) {
	s := Schema{Table: table}
	seen := make(map[string]bool)
	if err := collectColumns(typ, &s, seen); err != nil {
		return Schema{}, err
	}
	return s, nil
}

func collectColumns(typ reflect.Type, s *Schema, seen map[string]bool) error {
	var embedded []reflect.Type

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() && !(field.Anonymous && field.Type.Kind() == reflect.Struct) {
			continue
		}

		tag, hasTag := field.Tag.Lookup("db")
		if tag == "-" {
			continue
		}

		if field.Anonymous {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && !hasTag {
				embedded = append(embedded, ft)
				continue
			}
		}

		if seen[field.Name] {
			continue
		}
		seen[field.Name] = true

		column, pk := ParseTag(tag)
		if hasTag && column == "" && !pk {
			return &ConfigError{Entity: typ.String(), Table: s.Table, Reason: "field " + field.Name + " has an empty db tag"}
		}
		if pk && s.PrimaryKey == "" {
			s.PrimaryKey = field.Name
		}
		s.Columns = append(s.Columns, ColumnSpec{Field: field.Name, Column: column})
	}

	for _, et := range embedded {
		if err := collectColumns(et, s, seen); err != nil {
			return err
		}
	}
	return nil
}
