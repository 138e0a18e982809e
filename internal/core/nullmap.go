package core

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
)

// NullStringMap is one result row scanned as nullable strings, keyed by
// column label. DB.All and DB.One accept it when no struct fits the
// projection, e.g. for aggregates:
//
//	var rows []core.NullStringMap
//	err := db.All(ctx, st, &rows)
//	total := rows[0].String("total")
type NullStringMap map[string]sql.NullString

// String returns the value of key, or "" when it is NULL or missing.
func (m NullStringMap) String(key string) string {
	if v, ok := m[key]; ok && v.Valid {
		return v.String
	}
	return ""
}

// Int64 parses the value of key. NULL and missing values are errors.
func (m NullStringMap) Int64(key string) (int64, error) {
	v, ok := m[key]
	if !ok || !v.Valid {
		return 0, fmt.Errorf("column %q is null or missing", key)
	}
	return strconv.ParseInt(v.String, 10, 64)
}

// IsNull reports whether key is NULL or missing.
func (m NullStringMap) IsNull(key string) bool {
	v, ok := m[key]
	return !ok || !v.Valid
}

// Has reports whether key is present, NULL or not.
func (m NullStringMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys returns the column labels in sorted order.
func (m NullStringMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
