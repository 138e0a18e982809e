package core

import (
	"database/sql"

	"github.com/coregx/querykit/internal/cache"
	"github.com/coregx/querykit/internal/dialects"
	"github.com/coregx/querykit/internal/logger"
	"github.com/coregx/querykit/internal/meta"
	"github.com/coregx/querykit/internal/security"
	"github.com/coregx/querykit/internal/tracer"
)

// converted is a statement's SQL after placeholder conversion, with the
// parameter names in positional order.
type converted struct {
	sql   string
	names []string
}

// DB executes statements over database/sql. It converts {:key}
// placeholders to the dialect's positional form, caches prepared
// statements, and logs and traces every execution.
type DB struct {
	sqlDB      *sql.DB
	driverName string
	dialect    dialects.Dialect
	registry   *meta.Registry
	builder    *Builder

	stmtCapacity int
	stmtCache    *cache.LRU[string, *cachedStmt]
	sqlCache     *cache.LRU[string, converted]

	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    tracer.Tracer
	queryHook QueryHook
	validator *security.Validator
	auditor   *security.Auditor
	monitor   *monitor
}

// Option configures a DB.
type Option func(*DB)

// WithLogger logs every execution with masked parameters.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithRegistry shares a metadata registry with other builders.
func WithRegistry(r *meta.Registry) Option {
	return func(db *DB) {
		if r != nil {
			db.registry = r
		}
	}
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithStmtCacheCapacity bounds both the prepared statement cache and the
// converted SQL cache.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCapacity = capacity
	}
}

// WithTracer records a span per execution.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		if t != nil {
			db.tracer = t
		}
	}
}

// WithQueryHook calls hook after every execution.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithSensitiveFields replaces the default list of columns whose bound
// values are masked in logs.
func WithSensitiveFields(fields []string) Option {
	return func(db *DB) {
		db.sanitizer = logger.NewSanitizer(fields)
	}
}

// WithValidator screens SQL passed to Raw. Compiled statements are not
// validated.
func WithValidator(v *security.Validator) Option {
	return func(db *DB) {
		db.validator = v
	}
}

// WithAuditor writes an audit trail of executed statements and of raw SQL
// rejected by the validator.
func WithAuditor(a *security.Auditor) Option {
	return func(db *DB) {
		db.auditor = a
	}
}

// Open opens a database with a registered driver. driverName selects the
// dialect, so an unknown name fails before any connection is attempted.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	dialect, err := dialects.GetDialect(driverName)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return newDB(sqlDB, driverName, dialect, opts), nil
}

// WrapDB wraps an existing connection pool. Close closes sqlDB.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	dialect, err := dialects.GetDialect(driverName)
	if err != nil {
		return nil, err
	}
	return newDB(sqlDB, driverName, dialect, opts), nil
}

func newDB(sqlDB *sql.DB, driverName string, dialect dialects.Dialect, opts []Option) *DB {
	db := &DB{
		sqlDB:        sqlDB,
		driverName:   driverName,
		dialect:      dialect,
		stmtCapacity: cache.DefaultCapacity,
		logger:       &logger.NoopLogger{},
		sanitizer:    logger.NewSanitizer(nil),
		tracer:       &tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.registry == nil {
		db.registry = meta.NewRegistry()
	}
	db.logger = logger.With(db.logger, "database", driverName)
	db.builder = NewBuilder(dialect, db.registry, WithBuilderLogger(db.logger))
	db.stmtCache = cache.New(db.stmtCapacity, func(_ string, cs *cachedStmt) { cs.retire() })
	db.sqlCache = cache.New[string, converted](db.stmtCapacity, nil)
	if db.monitor != nil {
		db.monitor.start()
	}
	return db
}

// Close stops the health monitor, closes cached statements and closes the
// connection pool.
func (db *DB) Close() error {
	if db.monitor != nil {
		db.monitor.shutdown()
	}
	db.stmtCache.Clear()
	db.sqlCache.Clear()
	return db.sqlDB.Close()
}

// Dialect returns the dialect selected by the driver name.
func (db *DB) Dialect() dialects.Dialect { return db.dialect }

// Registry returns the metadata registry.
func (db *DB) Registry() *meta.Registry { return db.registry }

// Builder returns the statement builder bound to this DB's dialect and
// registry.
func (db *DB) Builder() *Builder { return db.builder }

// SQLDB returns the underlying connection pool.
func (db *DB) SQLDB() *sql.DB { return db.sqlDB }

// CacheStats returns the prepared statement cache metrics.
func (db *DB) CacheStats() cache.Stats { return db.stmtCache.Stats() }
