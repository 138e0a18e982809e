package meta

import "github.com/go-openapi/inflect"

// NameMapper derives a column name from a field name when no explicit
// override is given.
type NameMapper func(field string) string

// Identity keeps the field name as the column name.
func Identity(field string) string {
	return field
}

// initialisms are kept whole by SnakeCase. Longer ones come first so that
// "UUID" is not split around "ID".
var initialisms = []string{"UUID", "HTTP", "HTML", "JSON", "URL", "API", "SQL", "ID"}

var snakeRules = func() *inflect.Ruleset {
	rs := inflect.NewDefaultRuleset()
	for _, w := range initialisms {
		rs.AddAcronym(w)
	}
	return rs
}()

// SnakeCase maps CamelCase field names to snake_case columns
// ("CreatedAt" -> "created_at", "AccountID" -> "account_id").
func SnakeCase(field string) string {
	return snakeRules.Underscore(field)
}
