// Package security screens raw SQL and its arguments before they reach the
// database. Statements compiled from descriptors never need it; it guards
// the positional-marker entry point.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeSQL is wrapped by every validation failure.
var ErrUnsafeSQL = errors.New("unsafe sql")

// ViolationError names the rule a query or an argument broke.
type ViolationError struct {
	Rule string
	// Arg is the index of the offending argument, or -1 for the query.
	Arg int
}

func (e *ViolationError) Error() string {
	if e.Arg >= 0 {
		return fmt.Sprintf("unsafe sql: argument %d matches %s", e.Arg, e.Rule)
	}
	return "unsafe sql: query matches " + e.Rule
}

func (e *ViolationError) Unwrap() error { return ErrUnsafeSQL }

type rule struct {
	name string
	re   *regexp.Regexp
}

func rules(defs [][2]string) []rule {
	out := make([]rule, len(defs))
	for i, d := range defs {
		out[i] = rule{name: d[0], re: regexp.MustCompile(`(?i)` + d[1])}
	}
	return out
}

var queryRules = rules([][2]string{
	{"line comment", `--\s`},
	{"block comment", `/\*.*\*/`},
	{"mysql comment", `#\s`},
	{"stacked drop", `;\s*drop\s+`},
	{"stacked delete", `;\s*delete\s+`},
	{"stacked truncate", `;\s*truncate\s+`},
	{"stacked alter", `;\s*alter\s+`},
	{"stacked create", `;\s*create\s+`},
	{"union select", `union\s+(all\s+)?select`},
	{"command execution", `xp_cmdshell|sp_executesql|\bexec(ute)?\s*\(|\bexec\s+(xp|sp)_`},
	{"schema probing", `information_schema`},
	{"timing attack", `pg_sleep\s*\(|benchmark\s*\(|waitfor\s+delay`},
	{"tautology", `\sor\s+1\s*=\s*1\b|\sor\s+'1'\s*=\s*'1'|\sand\s+1\s*=\s*0\b`},
})

// strictRules reject any boolean connective or union in raw SQL.
var strictRules = rules([][2]string{
	{"or", `\bor\b`},
	{"and", `\band\b`},
	{"union", `\bunion\b`},
	{"exec", `\bexec(ute)?\b`},
})

// argIndicators are fragments that only make sense in a string argument
// that tries to break out of its literal.
var argIndicators = []string{"'--", "';", "' or ", "' and ", "/*", "*/", "' union ", "' drop ", "xp_"}

// Validator checks raw SQL against injection patterns.
type Validator struct {
	rules []rule
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	strict bool
}

// WithStrict also rejects every and/or/union/exec keyword.
func WithStrict(strict bool) ValidatorOption {
	return func(c *validatorConfig) { c.strict = strict }
}

// NewValidator creates a validator with the default rules.
func NewValidator(opts ...ValidatorOption) *Validator {
	var cfg validatorConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	v := &Validator{rules: append([]rule(nil), queryRules...)}
	if cfg.strict {
		v.rules = append(v.rules, strictRules...)
	}
	return v
}

// ValidateQuery returns a *ViolationError when query matches a rule.
func (v *Validator) ValidateQuery(query string) error {
	for _, r := range v.rules {
		if r.re.MatchString(query) {
			return &ViolationError{Rule: r.name, Arg: -1}
		}
	}
	return nil
}

// ValidateArgs returns a *ViolationError for the first string argument that
// tries to escape its literal.
func (v *Validator) ValidateArgs(args []any) error {
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		for _, ind := range argIndicators {
			if strings.Contains(lower, ind) {
				return &ViolationError{Rule: strings.TrimSpace(ind), Arg: i}
			}
		}
	}
	return nil
}
