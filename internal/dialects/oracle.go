package dialects

import (
	"fmt"
	"strings"
)

// OracleDialect implements Oracle-specific SQL dialect.
// Pagination uses ROWNUM so that it works on releases without OFFSET/FETCH.
type OracleDialect struct{}

func init() {
	RegisterDialect("oracle", &OracleDialect{})
	RegisterDialect("godror", &OracleDialect{})
}

// QuoteIdentifier quotes an Oracle identifier using double quotes.
func (d *OracleDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns Oracle bind format (:1, :2, etc.).
func (d *OracleDialect) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index)
}

func (d *OracleDialect) WrapLike(expr string) string {
	return concatLike("%", expr, "%")
}

func (d *OracleDialect) WrapLeftLike(expr string) string {
	return concatLike("%", expr, "")
}

func (d *OracleDialect) WrapRightLike(expr string) string {
	return concatLike("", expr, "%")
}

// AppendPageLimit wraps sql in two ROWNUM filters.
func (d *OracleDialect) AppendPageLimit(sql string, offset, limit int) string {
	return fmt.Sprintf(
		"select * from (select row_.*, rownum rownum_ from (%s) row_ where rownum <= %d) where rownum_ > %d",
		sql, offset+limit, offset,
	)
}

// WrapBatch wraps statements in an anonymous PL/SQL block.
func (d *OracleDialect) WrapBatch(statements []string) string {
	if len(statements) == 0 {
		return ""
	}
	return "begin " + strings.Join(statements, "; ") + "; end;"
}

// BoundBatches is true: the PL/SQL block is a single statement.
func (d *OracleDialect) BoundBatches() bool { return true }
