// Package core builds parameterized SQL from descriptors and executes it
// over database/sql.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Params maps placeholder keys to bound values. Keys appear in SQL as
// {:key}.
//
// Example:
//
//	st := core.Statement{
//	    SQL:    "select t.name from users t where t.id = {:id}",
//	    Params: core.Params{"id": 1},
//	}
type Params map[string]any

var (
	// namedPlaceholderRegex matches named parameter placeholders {:name}.
	namedPlaceholderRegex = regexp.MustCompile(`\{:(\w+)\}`)

	// quoteRegex matches {{table}} and [[column]] quoting, including
	// schema.table forms.
	quoteRegex = regexp.MustCompile(`(\{\{[\w\-. ]+\}\}|\[\[[\w\-. ]+\]\])`)
)

// processSQL replaces {:name} placeholders with the dialect's positional
// form and quotes {{table}} / [[column]] identifiers. It returns the
// converted SQL and the parameter names in order of appearance; a name used
// twice appears twice.
//
//	sql := "select [[name]] from {{users}} where [[id]] = {:id}"
//	// PostgreSQL: select "name" from "users" where "id" = $1, [id]
//	// MySQL:      select `name` from `users` where `id` = ?, [id]
func (db *DB) processSQL(sql string) (string, []string) {
	var paramNames []string
	count := 0

	result := namedPlaceholderRegex.ReplaceAllStringFunc(sql, func(match string) string {
		count++
		paramNames = append(paramNames, match[2:len(match)-1])
		return db.dialect.Placeholder(count)
	})

	result = quoteRegex.ReplaceAllStringFunc(result, func(match string) string {
		return db.quoteIdentifier(match[2 : len(match)-2])
	})

	return result, paramNames
}

// quoteIdentifier quotes each dot-separated part of identifier.
func (db *DB) quoteIdentifier(identifier string) string {
	if strings.Contains(identifier, ".") {
		parts := strings.Split(identifier, ".")
		quoted := make([]string, len(parts))
		for i, part := range parts {
			quoted[i] = db.dialect.QuoteIdentifier(strings.TrimSpace(part))
		}
		return strings.Join(quoted, ".")
	}
	return db.dialect.QuoteIdentifier(strings.TrimSpace(identifier))
}

// bindParams orders params by paramNames. A missing name is an error.
//
//	bindParams(Params{"id": 1, "status": "active"}, []string{"id", "status", "id"})
//	// []any{1, "active", 1}, nil
func bindParams(params Params, paramNames []string) ([]any, error) {
	values := make([]any, len(paramNames))
	for i, name := range paramNames {
		value, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("missing parameter: %s", name)
		}
		values[i] = value
	}
	return values, nil
}

// Rewrite converts a raw SQL string with positional ? markers into a
// Statement with named placeholders {:p0}, {:p1}, ... bound to args in
// order. Markers inside single-quoted literals are left alone. The number of
// markers must equal len(args).
func Rewrite(sql string, args ...any) (Statement, error) {
	var b strings.Builder
	b.Grow(len(sql) + 4*len(args))
	params := make(Params, len(args))

	n := 0
	quoted := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			quoted = !quoted
		case ch == '?' && !quoted:
			key := "p" + strconv.Itoa(n)
			if n < len(args) {
				params[key] = args[n]
			}
			n++
			b.WriteString(placeholder(key))
			continue
		}
		b.WriteByte(ch)
	}

	if n != len(args) {
		return Statement{}, invalid("Rewrite", "",
			fmt.Sprintf("%d placeholders but %d arguments", n, len(args)))
	}
	return Statement{SQL: b.String(), Params: params}, nil
}
