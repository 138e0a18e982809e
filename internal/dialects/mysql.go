package dialects

import (
	"fmt"
	"strings"
)

// MySQLDialect implements MySQL-specific SQL dialect.
type MySQLDialect struct{}

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Placeholder returns MySQL placeholder format (always "?").
func (d *MySQLDialect) Placeholder(_ int) string {
	return "?"
}

// WrapLike uses CONCAT since || is logical OR in MySQL.
func (d *MySQLDialect) WrapLike(expr string) string {
	return "concat('%', " + expr + ", '%')"
}

// WrapLeftLike wraps expr as concat('%', expr).
func (d *MySQLDialect) WrapLeftLike(expr string) string {
	return "concat('%', " + expr + ")"
}

// WrapRightLike wraps expr as concat(expr, '%').
func (d *MySQLDialect) WrapRightLike(expr string) string {
	return "concat(" + expr + ", '%')"
}

// AppendPageLimit uses the LIMIT offset, count form.
func (d *MySQLDialect) AppendPageLimit(sql string, offset, limit int) string {
	return fmt.Sprintf("%s limit %d, %d", sql, offset, limit)
}

// WrapBatch joins statements with semicolons. The result runs only without
// arguments on a connection opened with multiStatements=true.
func (d *MySQLDialect) WrapBatch(statements []string) string {
	return joinStatements(statements)
}

// BoundBatches is false: a server-side prepared statement holds one
// statement.
func (d *MySQLDialect) BoundBatches() bool { return false }

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
}
