package dialects

import (
	"strconv"
	"strings"
)

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// QuoteIdentifier quotes a SQLite identifier using double quotes.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns the numbered form ?N. Numbered parameters bind by
// position across every statement of a batch script.
func (d *SQLiteDialect) Placeholder(n int) string {
	return "?" + strconv.Itoa(n)
}

func (d *SQLiteDialect) WrapLike(expr string) string {
	return concatLike("%", expr, "%")
}

func (d *SQLiteDialect) WrapLeftLike(expr string) string {
	return concatLike("%", expr, "")
}

func (d *SQLiteDialect) WrapRightLike(expr string) string {
	return concatLike("", expr, "%")
}

// AppendPageLimit appends LIMIT/OFFSET.
func (d *SQLiteDialect) AppendPageLimit(sql string, offset, limit int) string {
	return limitOffset(sql, offset, limit)
}

// WrapBatch joins statements with semicolons.
func (d *SQLiteDialect) WrapBatch(statements []string) string {
	return joinStatements(statements)
}

// BoundBatches is true: numbered ?N parameters bind across the statements.
func (d *SQLiteDialect) BoundBatches() bool { return true }
