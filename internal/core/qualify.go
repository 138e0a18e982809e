package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/coregx/querykit/internal/meta"
)

// expressionSeparators split an expression into identifier tokens.
const expressionSeparators = "+-*/(),"

// qualify maps every bare identifier of expr to its column and prefixes it
// with alias, leaving operators and parentheses in place:
//
//	qualify("Price*Qty", "t", tb) == "t.price*t.qty"
//
// Whitespace is dropped. Numeric literals, already qualified tokens and
// function names are kept as they are, so qualify is idempotent. An empty
// alias only maps fields to columns.
func qualify(expr, alias string, tb *meta.Table) string {
	expr = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, expr)

	var b strings.Builder
	b.Grow(len(expr) + 8)

	start := 0
	for i := 0; i < len(expr); i++ {
		if !strings.ContainsRune(expressionSeparators, rune(expr[i])) {
			continue
		}
		writeToken(&b, expr[start:i], alias, tb, expr[i] == '(')
		b.WriteByte(expr[i])
		start = i + 1
	}
	writeToken(&b, expr[start:], alias, tb, false)

	return b.String()
}

func writeToken(b *strings.Builder, tok, alias string, tb *meta.Table, call bool) {
	switch {
	case tok == "":
		return
	case call, isNumeric(tok), strings.Contains(tok, "."), strings.HasPrefix(tok, "'"):
		b.WriteString(tok)
		return
	}
	col := tok
	if tb != nil {
		col = tb.ColumnOrName(tok)
	}
	if alias != "" {
		b.WriteString(alias)
		b.WriteByte('.')
	}
	b.WriteString(col)
}

// isNumeric accepts decimal literals only; ParseFloat alone would also take
// identifiers such as "inf" or "nan".
func isNumeric(tok string) bool {
	if tok[0] < '0' || tok[0] > '9' {
		return false
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}
