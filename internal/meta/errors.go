package meta

import "strings"

// ConfigError reports invalid or conflicting table metadata.
// It is returned at resolution time and is never retried.
type ConfigError struct {
	// Entity is the Go type (or schema source) that was being resolved.
	Entity string
	// Table is the logical table name, when known.
	Table string
	// Reason describes what is wrong.
	Reason string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("meta: ")
	b.WriteString(e.Reason)
	if e.Entity != "" || e.Table != "" {
		b.WriteString(" (")
		if e.Entity != "" {
			b.WriteString("entity ")
			b.WriteString(e.Entity)
		}
		if e.Table != "" {
			if e.Entity != "" {
				b.WriteString(", ")
			}
			b.WriteString("table ")
			b.WriteString(e.Table)
		}
		b.WriteString(")")
	}
	return b.String()
}
