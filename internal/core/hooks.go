package core

import (
	"context"
	"time"
)

// QueryEvent describes one execution. It is passed to the QueryHook.
type QueryEvent struct {
	// SQL is the statement after placeholder conversion.
	SQL string
	// Params are the bound values, masked like the logs.
	Params Params
	// Duration covers conversion, preparation, execution and scanning.
	Duration time.Duration
	// RowsAffected is set by Execute.
	RowsAffected int64
	Error        error
	// Operation is SELECT, UPDATE, DELETE, BATCH or UNKNOWN.
	Operation string
}

// QueryHook is called after every execution, for metrics or custom logging.
//
//	db, _ := core.Open("postgres", dsn,
//	    core.WithQueryHook(func(ctx context.Context, e core.QueryEvent) {
//	        slog.Info("query", "sql", e.SQL, "duration", e.Duration, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
