package logger

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_MaskParams_DefaultFields(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		params map[string]any
		want   map[string]any
	}{
		{
			name:   "password in set list",
			sql:    "update users set password = {:field_v0_0}, name = {:field_v0_1} where id = {:filter_v0_0}",
			params: map[string]any{"field_v0_0": "secret123", "field_v0_1": "Alice", "filter_v0_0": 1},
			want:   map[string]any{"field_v0_0": DefaultMask, "field_v0_1": "Alice", "filter_v0_0": 1},
		},
		{
			name:   "qualified api key filter",
			sql:    "select t.id from integrations t where t.api_key = {:filter_v0_0}",
			params: map[string]any{"filter_v0_0": "sk_test_123456"},
			want:   map[string]any{"filter_v0_0": DefaultMask},
		},
		{
			name:   "like wrapped by concat",
			sql:    "select t.id from users t where t.token like concat('%', {:filter_v0_0}, '%') and t.age > {:filter_v0_1}",
			params: map[string]any{"filter_v0_0": "abc", "filter_v0_1": 18},
			want:   map[string]any{"filter_v0_0": DefaultMask, "filter_v0_1": 18},
		},
		{
			name:   "in list items",
			sql:    "select t.id from users t where t.token in ({:filter_v0_0_in_0}, {:filter_v0_0_in_1})",
			params: map[string]any{"filter_v0_0_in_0": "a", "filter_v0_0_in_1": "b"},
			want:   map[string]any{"filter_v0_0_in_0": DefaultMask, "filter_v0_0_in_1": DefaultMask},
		},
		{
			name:   "case insensitive",
			sql:    "update users set PASSWORD = {:field_v0_0} where id = {:filter_v0_0}",
			params: map[string]any{"field_v0_0": "secret", "filter_v0_0": 1},
			want:   map[string]any{"field_v0_0": DefaultMask, "filter_v0_0": 1},
		},
		{
			name:   "rewritten insert masks from the column list",
			sql:    "insert into sessions (user_id, token) values ({:p0}, {:p1})",
			params: map[string]any{"p0": 123, "p1": "abc-xyz-token"},
			want:   map[string]any{"p0": DefaultMask, "p1": DefaultMask},
		},
		{
			name:   "no sensitive fields",
			sql:    "select t.id from users t where t.id = {:filter_v0_0} and t.name = {:filter_v0_1}",
			params: map[string]any{"filter_v0_0": 1, "filter_v0_1": "Alice"},
			want:   map[string]any{"filter_v0_0": 1, "filter_v0_1": "Alice"},
		},
		{
			name:   "word boundaries",
			sql:    "select t.id from passwordless_auth t where t.user_id = {:filter_v0_0}",
			params: map[string]any{"filter_v0_0": 123},
			want:   map[string]any{"filter_v0_0": 123},
		},
		{
			name:   "empty params",
			sql:    "select count(1) from users t",
			params: map[string]any{},
			want:   map[string]any{},
		},
	}

	sanitizer := NewSanitizer(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.MaskParams(tt.sql, tt.params)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizer_MaskParams_DoesNotModifyInput(t *testing.T) {
	sanitizer := NewSanitizer(nil)
	params := map[string]any{"field_v0_0": "secret", "filter_v0_0": 1}

	masked := sanitizer.MaskParams("update users set password = {:field_v0_0} where id = {:filter_v0_0}", params)

	assert.Equal(t, DefaultMask, masked["field_v0_0"])
	assert.Equal(t, "secret", params["field_v0_0"])
}

func TestSanitizer_MaskParams_CustomFields(t *testing.T) {
	sanitizer := NewSanitizer([]string{"secret_key", "private_data"})

	tests := []struct {
		name   string
		sql    string
		params map[string]any
		want   map[string]any
	}{
		{
			name:   "custom field secret_key",
			sql:    "update config set secret_key = {:field_v0_0} where id = {:filter_v0_0}",
			params: map[string]any{"field_v0_0": "mySecret", "filter_v0_0": 1},
			want:   map[string]any{"field_v0_0": DefaultMask, "filter_v0_0": 1},
		},
		{
			name:   "default names are not used",
			sql:    "update users set password = {:field_v0_0} where id = {:filter_v0_0}",
			params: map[string]any{"field_v0_0": "pw", "filter_v0_0": 1},
			want:   map[string]any{"field_v0_0": "pw", "filter_v0_0": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizer.MaskParams(tt.sql, tt.params))
		})
	}
}

func TestSanitizer_FormatParams(t *testing.T) {
	sanitizer := NewSanitizer(nil)

	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{name: "empty", params: map[string]any{}, want: "[]"},
		{name: "single", params: map[string]any{"id": 123}, want: "[id=123]"},
		{
			name:   "sorted by key",
			params: map[string]any{"b": "Alice", "a": 1, "c": true},
			want:   "[a=1, b=Alice, c=true]",
		},
		{name: "null", params: map[string]any{"x": nil}, want: "[x=NULL]"},
		{
			name:   "long string truncation",
			params: map[string]any{"x": strings.Repeat("a", 150)},
			want:   "[x=" + strings.Repeat("a", 100) + "...]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizer.FormatParams(tt.params))
		})
	}
}

func TestSanitizer_FormatParams_AfterMasking(t *testing.T) {
	sanitizer := NewSanitizer(nil)

	sql := "update users set password = {:field_v0_0} where id = {:filter_v0_0}"
	masked := sanitizer.MaskParams(sql, map[string]any{"field_v0_0": "secretPassword123", "filter_v0_0": 1})
	formatted := sanitizer.FormatParams(masked)

	assert.Equal(t, "[field_v0_0=***REDACTED***, filter_v0_0=1]", formatted)
	assert.NotContains(t, formatted, "secretPassword123")
}

func TestSanitizer_ThreadSafety(t *testing.T) {
	sanitizer := NewSanitizer(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			params := map[string]any{"field_v0_0": "secret", "filter_v0_0": 1}
			got := sanitizer.MaskParams("update users set password = {:field_v0_0} where id = {:filter_v0_0}", params)
			assert.Equal(t, DefaultMask, got["field_v0_0"])
		}()
	}
	wg.Wait()
}

func BenchmarkSanitizer_MaskParams_Sensitive(b *testing.B) {
	sanitizer := NewSanitizer(nil)
	sql := "update users set password = {:field_v0_0}, token = {:field_v0_1} where id = {:filter_v0_0}"
	params := map[string]any{"field_v0_0": "secretPassword", "field_v0_1": "token123", "filter_v0_0": 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sanitizer.MaskParams(sql, params)
	}
}

func BenchmarkSanitizer_FormatParams(b *testing.B) {
	sanitizer := NewSanitizer(nil)
	params := map[string]any{"a": 123, "b": "Alice", "c": true, "d": nil, "e": 3.14}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sanitizer.FormatParams(params)
	}
}
