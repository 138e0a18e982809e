package logger

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultMask replaces sensitive values.
const DefaultMask = "***REDACTED***"

var (
	placeholderRegex = regexp.MustCompile(`\{:(\w+)\}`)
	identRegex       = regexp.MustCompile(`[A-Za-z_][\w.]*`)
)

// keywords are skipped when looking for the column a placeholder is
// compared with or assigned to.
var keywords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {}, "is": {}, "null": {},
	"like": {}, "concat": {}, "where": {}, "set": {}, "values": {},
	"between": {}, "escape": {},
}

// Sanitizer masks bound values of sensitive columns before they are logged.
// A value is sensitive when the column its placeholder belongs to matches
// one of the configured field names.
type Sanitizer struct {
	sensitiveFields []string
	maskValue       string
	patterns        []*regexp.Regexp
}

// NewSanitizer creates a sanitizer for the given field names. With no
// names a default set (password, token, secret, ...) is used.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = []string{
			"password", "passwd", "pwd",
			"token", "api_key", "apikey", "api_token",
			"secret", "auth", "authorization",
			"credit_card", "card_number", "cvv", "cvc",
			"ssn", "social_security",
			"private_key", "priv_key",
		}
	}

	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(field)+`\b`))
	}

	return &Sanitizer{
		sensitiveFields: sensitiveFields,
		maskValue:       DefaultMask,
		patterns:        patterns,
	}
}

// MaskParams returns params with the values of sensitive placeholders
// masked. params is returned unchanged when sql mentions no sensitive field;
// otherwise a copy is returned and params is not modified.
func (s *Sanitizer) MaskParams(sql string, params map[string]any) map[string]any {
	if len(params) == 0 || !s.containsSensitivePattern(sql) {
		return params
	}

	masked := make(map[string]any, len(params))
	for k, v := range params {
		masked[k] = v
	}
	for _, loc := range placeholderRegex.FindAllStringSubmatchIndex(sql, -1) {
		key := sql[loc[2]:loc[3]]
		if _, ok := masked[key]; !ok {
			continue
		}
		if s.containsSensitivePattern(columnBefore(sql[:loc[0]])) {
			masked[key] = s.maskValue
		}
	}
	return masked
}

// columnBefore returns the last identifier of prefix that is not a keyword
// or another placeholder.
func columnBefore(prefix string) string {
	prefix = placeholderRegex.ReplaceAllString(prefix, "")
	idents := identRegex.FindAllString(prefix, -1)
	for i := len(idents) - 1; i >= 0; i-- {
		if _, kw := keywords[strings.ToLower(idents[i])]; !kw {
			return idents[i]
		}
	}
	return ""
}

func (s *Sanitizer) containsSensitivePattern(sql string) bool {
	for _, pattern := range s.patterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// FormatParams renders params as "[k1=v1, k2=v2]" sorted by key.
// Mask them with MaskParams first.
func (s *Sanitizer) FormatParams(params map[string]any) string {
	if len(params) == 0 {
		return "[]"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s.formatValue(params[k])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue truncates long values.
func (s *Sanitizer) formatValue(v any) string {
	if v == nil {
		return "NULL"
	}

	str := fmt.Sprintf("%v", v)

	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
