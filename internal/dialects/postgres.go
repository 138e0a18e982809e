package dialects

import (
	"fmt"

	"github.com/lib/pq"
)

// PostgresDialect implements PostgreSQL-specific SQL dialect.
type PostgresDialect struct{}

func init() {
	RegisterDialect("postgres", &PostgresDialect{})
	RegisterDialect("postgresql", &PostgresDialect{})
	RegisterDialect("pgx", &PostgresDialect{})
}

// QuoteIdentifier quotes a PostgreSQL identifier using double quotes.
func (d *PostgresDialect) QuoteIdentifier(s string) string {
	return pq.QuoteIdentifier(s)
}

// Placeholder returns PostgreSQL placeholder format ($1, $2, etc.).
func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// WrapLike wraps expr as '%' || expr || '%'.
func (d *PostgresDialect) WrapLike(expr string) string {
	return concatLike("%", expr, "%")
}

// WrapLeftLike wraps expr as '%' || expr.
func (d *PostgresDialect) WrapLeftLike(expr string) string {
	return concatLike("%", expr, "")
}

// WrapRightLike wraps expr as expr || '%'.
func (d *PostgresDialect) WrapRightLike(expr string) string {
	return concatLike("", expr, "%")
}

// AppendPageLimit appends LIMIT/OFFSET.
func (d *PostgresDialect) AppendPageLimit(sql string, offset, limit int) string {
	return limitOffset(sql, offset, limit)
}

// WrapBatch joins statements with semicolons. The result only runs as a
// simple query, which takes no arguments.
func (d *PostgresDialect) WrapBatch(statements []string) string {
	return joinStatements(statements)
}

// BoundBatches is false: the extended protocol used for bound arguments
// accepts one statement per call.
func (d *PostgresDialect) BoundBatches() bool { return false }
