package core

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/coregx/querykit/internal/meta"
)

// scanner maps result columns onto struct fields. A column matches a field
// by field name or by its db tag column, case-insensitively, so both
// "t.user_name" and "t.user_name as Name" land in the same field.
type scanner struct {
	mu    sync.RWMutex
	cache map[reflect.Type]map[string][]int
}

func newScanner() *scanner {
	return &scanner{cache: make(map[reflect.Type]map[string][]int)}
}

var globalScanner = newScanner()

// fieldsOf returns the label -> field index path map of typ.
func (s *scanner) fieldsOf(typ reflect.Type) map[string][]int {
	s.mu.RLock()
	fields, ok := s.cache[typ]
	s.mu.RUnlock()
	if ok {
		return fields
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fields, ok := s.cache[typ]; ok {
		return fields
	}
	fields = make(map[string][]int)
	collectFields(typ, nil, fields)
	s.cache[typ] = fields
	return fields
}

// collectFields visits own fields before embedded structs; the first
// mapping of a label wins.
func collectFields(typ reflect.Type, index []int, out map[string][]int) {
	var embedded []int
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		embeds := field.Anonymous && field.Type.Kind() == reflect.Struct
		if !field.IsExported() && !embeds {
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if embeds {
			embedded = append(embedded, i)
			continue
		}

		path := append(append([]int{}, index...), i)
		labels := []string{strings.ToLower(field.Name)}
		if col, _ := meta.ParseTag(tag); col != "" {
			labels = append(labels, strings.ToLower(col))
		}
		for _, l := range labels {
			if _, taken := out[l]; !taken {
				out[l] = path
			}
		}
	}
	for _, i := range embedded {
		collectFields(typ.Field(i).Type, append(append([]int{}, index...), i), out)
	}
}

// targets returns one scan destination per column. Unmatched columns are
// discarded.
func targets(elem reflect.Value, columns []string, fields map[string][]int) []any {
	dests := make([]any, len(columns))
	for i, col := range columns {
		path, ok := fields[strings.ToLower(col)]
		if !ok {
			dests[i] = new(any)
			continue
		}
		dests[i] = elem.FieldByIndex(path).Addr().Interface()
	}
	return dests
}

// scanRows appends every row to dest, a pointer to a slice of structs or
// struct pointers.
func (s *scanner) scanRows(rows *sql.Rows, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w: want pointer to slice, got %T", ErrInvalidDestination, dest)
	}
	slice := dv.Elem()
	elemType := slice.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("%w: slice element must be struct or *struct, got %s", ErrInvalidDestination, elemType)
	}

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("scanner: columns: %w", err)
	}
	fields := s.fieldsOf(elemType)

	for rows.Next() {
		elem := reflect.New(elemType).Elem()
		if err := rows.Scan(targets(elem, columns, fields)...); err != nil {
			return fmt.Errorf("scanner: scan: %w", err)
		}
		if isPtr {
			slice.Set(reflect.Append(slice, elem.Addr()))
		} else {
			slice.Set(reflect.Append(slice, elem))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scanner: rows: %w", err)
	}
	return nil
}

// scanRow scans the current row into dest, a pointer to a struct.
func (s *scanner) scanRow(rows *sql.Rows, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: want pointer to struct, got %T", ErrInvalidDestination, dest)
	}
	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("scanner: columns: %w", err)
	}
	elem := dv.Elem()
	if err := rows.Scan(targets(elem, columns, s.fieldsOf(elem.Type()))...); err != nil {
		return fmt.Errorf("scanner: scan: %w", err)
	}
	return nil
}

// scanMapRow scans the current row as strings keyed by column label.
func scanMapRow(rows *sql.Rows, columns []string) (NullStringMap, error) {
	values := make([]sql.NullString, len(columns))
	dests := make([]any, len(columns))
	for i := range values {
		dests[i] = &values[i]
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, fmt.Errorf("scanner: scan: %w", err)
	}
	m := make(NullStringMap, len(columns))
	for i, col := range columns {
		m[col] = values[i]
	}
	return m, nil
}

// scanMapRows appends every row to dest.
func scanMapRows(rows *sql.Rows, dest *[]NullStringMap) error {
	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("scanner: columns: %w", err)
	}
	for rows.Next() {
		m, err := scanMapRow(rows, columns)
		if err != nil {
			return err
		}
		*dest = append(*dest, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scanner: rows: %w", err)
	}
	return nil
}
