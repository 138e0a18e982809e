// Package tracer records executed statements as tracing spans. The
// OpenTelemetry adapter follows the database semantic conventions.
package tracer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName names the tracer taken from the global provider.
const instrumentationName = "github.com/coregx/querykit"

// Tracer starts one span per executed statement.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span receives the outcome of its statement exactly once.
type Span interface {
	Finish(q *Query)
}

// Query describes one executed statement. Bound values are never
// recorded; only their number is.
type Query struct {
	// System is the driver name (postgres, mysql, sqlite, ...).
	System string
	// SQL is the statement after placeholder conversion.
	SQL string
	// Operation is SELECT, INSERT, UPDATE, DELETE, BATCH or UNKNOWN.
	Operation string
	Table     string
	Params    int
	// RowsAffected is set for UPDATE and DELETE.
	RowsAffected int64
	Duration     time.Duration
	// Cached reports a prepared statement served from the statement cache.
	Cached bool
	Err    error
}

// Attributes returns q as span attributes.
// See https://opentelemetry.io/docs/specs/semconv/database/
func (q *Query) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", q.System),
		attribute.String("db.statement", q.SQL),
		attribute.String("db.operation", q.Operation),
		attribute.Int("db.params", q.Params),
		attribute.Float64("db.duration_ms", float64(q.Duration.Microseconds())/1000.0),
		attribute.Bool("querykit.stmt_cached", q.Cached),
	}
	if q.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", q.Table))
	}
	if q.RowsAffected > 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", q.RowsAffected))
	}
	return attrs
}

// NoopTracer is the default tracer. It returns ctx unchanged.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) Finish(*Query) {}

// OtelTracer starts client spans on an OpenTelemetry tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer wraps t. A nil t uses the global tracer provider.
func NewOtelTracer(t trace.Tracer) *OtelTracer {
	if t == nil {
		t = otel.Tracer(instrumentationName)
	}
	return &OtelTracer{tracer: t}
}

func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

// Finish sets the query attributes and status, records a failure as an
// exception event and ends the span.
func (s *otelSpan) Finish(q *Query) {
	s.span.SetAttributes(q.Attributes()...)
	if q.Err != nil {
		s.span.RecordError(q.Err)
		s.span.SetStatus(codes.Error, q.Err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// DetectOperation classifies sql by its leading keyword: SELECT, INSERT,
// UPDATE, DELETE, BATCH (an anonymous begin ... end block) or UNKNOWN.
func DetectOperation(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	switch {
	case strings.HasPrefix(sql, "SELECT"), strings.HasPrefix(sql, "WITH"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	case strings.HasPrefix(sql, "BEGIN"):
		return "BATCH"
	}
	return "UNKNOWN"
}

var tableRegex = regexp.MustCompile(`(?i)^\s*(?:begin\s+)?(?:select\b.*?\bfrom|update|delete\s+from)\s+([\w.]+)`)

// TableOf returns the first table named by a SELECT, UPDATE or DELETE,
// or "" when none is found. Derived tables are skipped.
func TableOf(sql string) string {
	m := tableRegex.FindStringSubmatch(sql)
	if m == nil {
		return ""
	}
	return m[1]
}
