package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coregx/querykit/internal/logger"
	"github.com/coregx/querykit/internal/security"
	"github.com/coregx/querykit/internal/tracer"
)

// convert returns the positional form of query, cached by query text.
func (db *DB) convert(query string) converted {
	if c, ok := db.sqlCache.Get(query); ok {
		return c
	}
	s, names := db.processSQL(query)
	c := converted{sql: s, names: names}
	if logger.DebugEnabled(db.logger) {
		db.logger.Debug("placeholders converted", "sql", s, "params", len(names))
	}
	db.sqlCache.Set(query, c)
	return c
}

// prepare returns a prepared statement for query, whether it came from the
// cache, and a release func the caller runs once it is done with the
// statement. Multi-statement batches are not prepared and yield a nil
// statement.
func (db *DB) prepare(ctx context.Context, query string) (*sql.Stmt, bool, func(), error) {
	if strings.Contains(query, ";") {
		return nil, false, func() {}, nil
	}
	if cs, ok := db.stmtCache.Get(query); ok && cs.acquire() {
		return cs.stmt, true, cs.release, nil
	}
	stmt, err := db.sqlDB.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, nil, err
	}
	fresh := newCachedStmt(stmt)
	actual, loaded := db.stmtCache.SetIfAbsent(query, fresh)
	if !loaded {
		// One reference for the caller; the cache holds none.
		return stmt, false, fresh.release, nil
	}
	if actual.acquire() {
		_ = stmt.Close()
		return actual.stmt, true, actual.release, nil
	}
	// The winner was evicted in between: run ours uncached.
	fresh.retire()
	return stmt, false, fresh.release, nil
}

// runner executes the converted statement. stmt is nil for batches.
type runner func(ctx context.Context, stmt *sql.Stmt, query string, args []any) (int64, error)

// run converts, binds and prepares st, calls fn, and reports the outcome
// to the logger, the tracer and the hook.
func (db *DB) run(ctx context.Context, name string, st Statement, fn runner) (int64, error) {
	return db.runWith(ctx, name, st, true, fn)
}

// runWith is run with optional preparation. Statements executed on a
// transaction are not prepared on the pool, which may have no spare
// connection.
func (db *DB) runWith(ctx context.Context, name string, st Statement, prepared bool, fn runner) (int64, error) {
	ctx, span := db.tracer.StartSpan(ctx, "querykit."+name)

	start := time.Now()
	conv := db.convert(st.SQL)

	var n int64
	var cached bool
	args, err := bindParams(st.Params, conv.names)
	if err == nil {
		var stmt *sql.Stmt
		release := func() {}
		if prepared {
			stmt, cached, release, err = db.prepare(ctx, conv.sql)
		}
		if err == nil {
			n, err = fn(ctx, stmt, conv.sql, args)
			release()
		}
	}
	elapsed := time.Since(start)

	op := tracer.DetectOperation(conv.sql)
	table := tracer.TableOf(conv.sql)
	masked := db.sanitizer.MaskParams(st.SQL, st.Params)
	db.log(name, conv.sql, masked, n, elapsed, err)
	span.Finish(&tracer.Query{
		System:       db.driverName,
		SQL:          conv.sql,
		Operation:    op,
		Table:        table,
		Params:       len(args),
		RowsAffected: n,
		Duration:     elapsed,
		Cached:       cached,
		Err:          err,
	})
	if db.auditor != nil {
		db.auditor.Record(ctx, security.AuditEvent{
			Operation:    op,
			Table:        table,
			SQL:          conv.sql,
			ParamsHash:   security.HashArgs(args),
			RowsAffected: n,
			Duration:     elapsed,
			Err:          err,
		})
	}
	db.invokeHook(ctx, QueryEvent{
		SQL:          conv.sql,
		Params:       masked,
		Duration:     elapsed,
		RowsAffected: n,
		Error:        err,
		Operation:    op,
	})
	return n, err
}

func (db *DB) log(name, query string, params Params, n int64, elapsed time.Duration, err error) {
	args := []any{
		"op", name,
		"sql", query,
		"params", db.sanitizer.FormatParams(params),
		"duration_ms", elapsed.Milliseconds(),
	}
	switch {
	case errors.Is(err, ErrNoRows):
		db.logger.Warn("query returned no rows", args...)
	case err != nil:
		db.logger.Error("query failed", append(args, "error", err)...)
	default:
		db.logger.Info("query executed", append(args, "rows", n)...)
	}
}

func (db *DB) query(ctx context.Context, stmt *sql.Stmt, query string, args []any) (*sql.Rows, error) {
	if stmt != nil {
		return stmt.QueryContext(ctx, args...)
	}
	return db.sqlDB.QueryContext(ctx, query, args...)
}

// Execute runs an UPDATE, DELETE or batch and returns the rows affected.
// Wrapped batches run here only for dialects with BoundBatches.
func (db *DB) Execute(ctx context.Context, st Statement) (int64, error) {
	return db.run(ctx, "execute", st, func(ctx context.Context, stmt *sql.Stmt, query string, args []any) (int64, error) {
		var res sql.Result
		var err error
		if stmt != nil {
			res, err = stmt.ExecContext(ctx, args...)
		} else {
			res, err = db.sqlDB.ExecContext(ctx, query, args...)
		}
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// ExecuteTx runs the statements in order in one transaction and returns the
// total rows affected. The first failure rolls the transaction back.
func (db *DB) ExecuteTx(ctx context.Context, sts []Statement) (total int64, err error) {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, st := range sts {
		var n int64
		n, err = db.runWith(ctx, "execute", st, false, func(ctx context.Context, _ *sql.Stmt, query string, args []any) (int64, error) {
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return 0, err
			}
			return res.RowsAffected()
		})
		if err != nil {
			return 0, err
		}
		total += n
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

// All scans every row of a SELECT into dest, a pointer to a slice of
// structs, of struct pointers, or of NullStringMap.
func (db *DB) All(ctx context.Context, st Statement, dest any) error {
	_, err := db.run(ctx, "all", st, func(ctx context.Context, stmt *sql.Stmt, query string, args []any) (int64, error) {
		rows, err := db.query(ctx, stmt, query, args)
		if err != nil {
			return 0, err
		}
		defer func() { _ = rows.Close() }()

		if ms, ok := dest.(*[]NullStringMap); ok {
			err = scanMapRows(rows, ms)
		} else {
			err = globalScanner.scanRows(rows, dest)
		}
		return 0, err
	})
	return err
}

// One scans the first row of a SELECT into dest, a pointer to a struct or
// to a NullStringMap. It returns ErrNoRows when there is no row.
func (db *DB) One(ctx context.Context, st Statement, dest any) error {
	_, err := db.run(ctx, "one", st, func(ctx context.Context, stmt *sql.Stmt, query string, args []any) (int64, error) {
		rows, err := db.query(ctx, stmt, query, args)
		if err != nil {
			return 0, err
		}
		defer func() { _ = rows.Close() }()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, ErrNoRows
		}
		if m, ok := dest.(*NullStringMap); ok {
			columns, err := rows.Columns()
			if err != nil {
				return 0, err
			}
			*m, err = scanMapRow(rows, columns)
			return 1, err
		}
		return 1, globalScanner.scanRow(rows, dest)
	})
	return err
}

// Count runs a COUNT statement and returns its single value.
func (db *DB) Count(ctx context.Context, st Statement) (int64, error) {
	var total int64
	_, err := db.run(ctx, "count", st, func(ctx context.Context, stmt *sql.Stmt, query string, args []any) (int64, error) {
		rows, err := db.query(ctx, stmt, query, args)
		if err != nil {
			return 0, err
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, ErrNoRows
		}
		return 0, rows.Scan(&total)
	})
	return total, err
}

// Raw validates a SQL string with positional ? markers, when a validator is
// configured, and rewrites it into a Statement.
func (db *DB) Raw(query string, args ...any) (Statement, error) {
	return db.RawContext(context.Background(), query, args...)
}

// RawContext is Raw with a context carrying audit metadata.
func (db *DB) RawContext(ctx context.Context, query string, args ...any) (Statement, error) {
	if db.validator != nil {
		err := db.validator.ValidateQuery(query)
		if err == nil {
			err = db.validator.ValidateArgs(args)
		}
		if err != nil {
			if db.auditor != nil {
				db.auditor.Blocked(ctx, query, err)
			}
			return Statement{}, err
		}
	}
	return Rewrite(query, args...)
}

// Select compiles d against entity and scans every row into dest.
func (db *DB) Select(ctx context.Context, entity any, d *Descriptor, dest any) error {
	st, err := db.builder.Select(entity, d)
	if err != nil {
		return err
	}
	return db.All(ctx, st, dest)
}

// Get loads the row whose primary key is id into dest, an entity pointer.
func (db *DB) Get(ctx context.Context, dest any, id any) error {
	st, err := db.builder.SelectByID(dest, id)
	if err != nil {
		return err
	}
	return db.One(ctx, st, dest)
}

// Page scans one page of rows into dest and returns the total row count.
func (db *DB) Page(ctx context.Context, entity any, d *Descriptor, dest any) (int64, error) {
	ps, err := db.builder.Page(entity, d)
	if err != nil {
		return 0, err
	}
	total, err := db.Count(ctx, ps.Count)
	if err != nil {
		return 0, WrapError(err, "page count")
	}
	if total == 0 {
		return 0, nil
	}
	if err := db.All(ctx, ps.Query, dest); err != nil {
		return 0, err
	}
	return total, nil
}

// Update compiles and runs an UPDATE.
func (db *DB) Update(ctx context.Context, entity any, d *Descriptor) (int64, error) {
	st, err := db.builder.Update(entity, d)
	if err != nil {
		return 0, err
	}
	return db.Execute(ctx, st)
}

// UpdateBatch compiles and runs several UPDATEs. Dialects that bind
// arguments across a wrapped batch run it in one call; the others run the
// statements one by one in a transaction.
func (db *DB) UpdateBatch(ctx context.Context, entity any, ds []*Descriptor) (int64, error) {
	if db.dialect.BoundBatches() {
		st, err := db.builder.UpdateBatch(entity, ds)
		if err != nil {
			return 0, err
		}
		return db.Execute(ctx, st)
	}
	sts, err := db.builder.UpdateEach(entity, ds)
	if err != nil {
		return 0, err
	}
	return db.ExecuteTx(ctx, sts)
}

// Delete compiles and runs a DELETE.
func (db *DB) Delete(ctx context.Context, entity any, d *Descriptor) (int64, error) {
	st, err := db.builder.Delete(entity, d)
	if err != nil {
		return 0, err
	}
	return db.Execute(ctx, st)
}

// DeleteByID deletes the row of entity's table whose primary key is id.
func (db *DB) DeleteByID(ctx context.Context, entity any, id any) (int64, error) {
	st, err := db.builder.DeleteByID(entity, id)
	if err != nil {
		return 0, err
	}
	n, err := db.Execute(ctx, st)
	if err != nil {
		return 0, fmt.Errorf("delete %v: %w", id, err)
	}
	return n, nil
}
