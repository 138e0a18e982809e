// Package querykit compiles declarative query descriptors into parameterized
// SQL for PostgreSQL, MySQL, SQLite and Oracle, and executes the result over
// database/sql with statement caching, masked logging and OpenTelemetry
// tracing.
//
// Entities are structs that name their table through a TableName method and
// their columns through db tags:
//
//	type User struct {
//	    ID        int64  `db:"id,pk"`
//	    Name      string `db:"name"`
//	    Age       int    `db:"age"`
//	    CreatedAt string `db:"created_at"`
//	}
//
//	func (User) TableName() string { return "users" }
//
//	b := querykit.NewBuilder(querykit.PostgresDialect(), nil)
//	st, err := b.Select(User{}, querykit.NewDescriptor().
//	    Field("ID", "Name").
//	    GreaterThan("Age", 18).
//	    Desc("CreatedAt"))
//	// st.SQL:    select t.id as ID, t.name as Name from users t
//	//            where t.age > {:filter_v0_0} order by t.created_at desc
//	// st.Params: {"filter_v0_0": 18}
package querykit

import (
	"github.com/coregx/querykit/internal/core"
	"github.com/coregx/querykit/internal/dialects"
	"github.com/coregx/querykit/internal/logger"
	"github.com/coregx/querykit/internal/meta"
	"github.com/coregx/querykit/internal/security"
	"github.com/coregx/querykit/internal/tracer"
)

type (
	// Descriptor describes one statement or one joined table.
	Descriptor = core.Descriptor
	// Builder compiles descriptors for one dialect.
	Builder = core.Builder
	// BuilderOption configures a Builder.
	BuilderOption = core.BuilderOption
	// Statement is SQL with {:key} placeholders and their values.
	Statement = core.Statement
	// PageStatement is a paged SELECT with its COUNT.
	PageStatement = core.PageStatement
	// Params maps placeholder keys to values.
	Params = core.Params

	FieldSpec  = core.FieldSpec
	FilterSpec = core.FilterSpec
	JoinEdge   = core.JoinEdge
	OrderSpec  = core.OrderSpec
	Operator   = core.Operator
	Operation  = core.Operation
	JoinType   = core.JoinType
	Direction  = core.Direction

	// DB executes statements over database/sql.
	DB = core.DB
	// Option configures a DB.
	Option = core.Option
	// QueryEvent is passed to a QueryHook after every execution.
	QueryEvent = core.QueryEvent
	QueryHook  = core.QueryHook
	Health     = core.Health
	// NullStringMap is a row scanned as nullable strings.
	NullStringMap = core.NullStringMap

	ValidationError      = core.ValidationError
	UnresolvedFieldError = core.UnresolvedFieldError

	// Registry resolves entities into table metadata.
	Registry    = meta.Registry
	Table       = meta.Table
	Schema      = meta.Schema
	ColumnSpec  = meta.ColumnSpec
	TableNamer  = meta.TableNamer
	NameMapper  = meta.NameMapper
	ConfigError = meta.ConfigError

	Auditor    = security.Auditor
	AuditLevel = security.AuditLevel

	Dialect = dialects.Dialect
	Logger  = logger.Logger
	Tracer  = tracer.Tracer
)

// Sort directions and filter joins.
const (
	Asc  = core.Asc
	Desc = core.Desc
	And  = core.And
	Or   = core.Or
)

// Filter operators.
const (
	OpEqual                = core.OpEqual
	OpNotEqual             = core.OpNotEqual
	OpLike                 = core.OpLike
	OpLeftLike             = core.OpLeftLike
	OpRightLike            = core.OpRightLike
	OpGreaterThan          = core.OpGreaterThan
	OpGreaterEqual         = core.OpGreaterEqual
	OpLessThan             = core.OpLessThan
	OpLessEqual            = core.OpLessEqual
	OpIn                   = core.OpIn
	OpNotIn                = core.OpNotIn
	OpIsNull               = core.OpIsNull
	OpIsNotNull            = core.OpIsNotNull
	OpUpGreaterThanZero    = core.OpUpGreaterThanZero
	OpUpGreaterEqualZero   = core.OpUpGreaterEqualZero
	OpDownGreaterThanZero  = core.OpDownGreaterThanZero
	OpDownGreaterEqualZero = core.OpDownGreaterEqualZero
)

// Field operations.
const (
	FieldDefault   = core.FieldDefault
	FieldIncrement = core.FieldIncrement
	FieldDecrement = core.FieldDecrement
	FieldCount     = core.FieldCount
	FieldSum       = core.FieldSum
	FieldMin       = core.FieldMin
	FieldMax       = core.FieldMax
	FieldAvg       = core.FieldAvg
	FieldExp       = core.FieldExp
)

// Audit levels.
const (
	AuditNone   = security.AuditNone
	AuditWrites = security.AuditWrites
	AuditAll    = security.AuditAll
)

// Default pagination.
const (
	DefaultPageNumber = core.DefaultPageNumber
	DefaultPageSize   = core.DefaultPageSize
)

var (
	ErrNoRows             = core.ErrNoRows
	ErrInvalidDestination = core.ErrInvalidDestination
	ErrNilDescriptor      = core.ErrNilDescriptor
	ErrUnsupportedDialect = dialects.ErrUnsupportedDialect
	ErrUnsafeSQL          = security.ErrUnsafeSQL
)

// Descriptors and builders.
var (
	NewDescriptor     = core.NewDescriptor
	NewJoin           = core.NewJoin
	NewBuilder        = core.NewBuilder
	WithBuilderLogger = core.WithBuilderLogger
	Rewrite           = core.Rewrite
)

// Execution.
var (
	Open                  = core.Open
	WrapDB                = core.WrapDB
	WithLogger            = core.WithLogger
	WithRegistry          = core.WithRegistry
	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithTracer            = core.WithTracer
	WithQueryHook         = core.WithQueryHook
	WithSensitiveFields   = core.WithSensitiveFields
	WithValidator         = core.WithValidator
	WithHealthCheck       = core.WithHealthCheck
	WithAuditor           = core.WithAuditor
	NewAuditor            = security.NewAuditor
	WithUser              = security.WithUser
	WithRequestID         = security.WithRequestID
	NewValidator          = security.NewValidator
	WithStrictValidation  = security.WithStrict
	NewSlogLogger         = logger.NewSlogAdapter
	NewOtelTracer         = tracer.NewOtelTracer
)

// Metadata.
var (
	NewRegistry    = meta.NewRegistry
	WithNameMapper = meta.WithNameMapper
	SnakeCase      = meta.SnakeCase
	Identity       = meta.Identity
)

// GetDialect returns the dialect registered for a driver name.
func GetDialect(driverName string) (Dialect, error) {
	return dialects.GetDialect(driverName)
}

// PostgresDialect returns the PostgreSQL dialect.
func PostgresDialect() Dialect { return &dialects.PostgresDialect{} }

// MySQLDialect returns the MySQL dialect.
func MySQLDialect() Dialect { return &dialects.MySQLDialect{} }

// SQLiteDialect returns the SQLite dialect.
func SQLiteDialect() Dialect { return &dialects.SQLiteDialect{} }

// OracleDialect returns the Oracle dialect.
func OracleDialect() Dialect { return &dialects.OracleDialect{} }
