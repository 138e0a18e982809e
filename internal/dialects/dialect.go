// Package dialects provides database-specific SQL fragments for MySQL,
// PostgreSQL, SQLite and Oracle: identifier quoting, positional placeholders,
// LIKE wildcard wrapping, page limiting and batch statement wrapping.
package dialects

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedDialect is returned when no dialect is registered for a driver name.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// Dialect defines database-specific behaviors.
type Dialect interface {
	// QuoteIdentifier quotes a single identifier.
	QuoteIdentifier(string) string
	// Placeholder returns the positional placeholder for the 1-based index.
	Placeholder(int) string

	// WrapLike wraps expr with leading and trailing wildcards.
	WrapLike(expr string) string
	// WrapLeftLike wraps expr with a leading wildcard only.
	WrapLeftLike(expr string) string
	// WrapRightLike wraps expr with a trailing wildcard only.
	WrapRightLike(expr string) string

	// AppendPageLimit restricts sql to limit rows starting at offset.
	AppendPageLimit(sql string, offset, limit int) string
	// WrapBatch combines several statements into one executable unit.
	WrapBatch(statements []string) string
	// BoundBatches reports whether a WrapBatch result can run as a single
	// call with bound arguments. Otherwise a batch is executed statement by
	// statement in one transaction.
	BoundBatches() bool
}

var dialects = make(map[string]Dialect)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	dialects[name] = d
}

// GetDialect retrieves a registered dialect by driver name.
func GetDialect(name string) (Dialect, error) {
	if d, ok := dialects[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
}

// concatLike builds ANSI string concatenation wildcards.
func concatLike(left, expr, right string) string {
	var b strings.Builder
	if left != "" {
		b.WriteString("'" + left + "' || ")
	}
	b.WriteString(expr)
	if right != "" {
		b.WriteString(" || '" + right + "'")
	}
	return b.String()
}

// limitOffset is the LIMIT/OFFSET form shared by PostgreSQL and SQLite.
func limitOffset(sql string, offset, limit int) string {
	if offset <= 0 {
		return fmt.Sprintf("%s limit %d", sql, limit)
	}
	return fmt.Sprintf("%s limit %d offset %d", sql, limit, offset)
}

// joinStatements separates statements with semicolons.
func joinStatements(statements []string) string {
	return strings.Join(statements, ";\n")
}
