package core

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/coregx/querykit/internal/dialects"
	"github.com/coregx/querykit/internal/logger"
	"github.com/coregx/querykit/internal/security"
	"github.com/coregx/querykit/internal/tracer"
)

const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	age INTEGER NOT NULL DEFAULT 0,
	balance INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	total INTEGER NOT NULL,
	status TEXT NOT NULL
);
INSERT INTO users (id, name, email, age, balance, status, created_at) VALUES
	(1, 'alice', 'alice@x.io', 30, 100, 'active', '2024-01-01'),
	(2, 'bob', 'bob@x.io', 17, 50, 'pending', '2024-02-01'),
	(3, 'carol', 'carol@y.io', 65, 0, 'inactive', '2019-05-05');
INSERT INTO orders (id, user_id, total, status) VALUES
	(1, 1, 120, 'paid'),
	(2, 1, 30, 'open'),
	(3, 2, 75, 'paid');
`

// openTestDB opens an in-memory SQLite database seeded with three users and
// three orders. A single connection keeps every query on the same database.
func openTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db, err := Open("sqlite", ":memory:", append([]Option{WithMaxOpenConns(1)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.SQLDB().Exec(testSchema)
	require.NoError(t, err)
	return db
}

func TestDB_Select(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t.Run("struct slice", func(t *testing.T) {
		var users []User
		err := db.Select(ctx, User{}, NewDescriptor().Field("ID", "Name").GreaterEqual("Age", 18).Asc("Name"), &users)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, int64(1), users[0].ID)
		assert.Equal(t, "alice", users[0].Name)
		assert.Equal(t, "carol", users[1].Name)
		assert.Empty(t, users[0].Email, "unselected fields stay zero")
	})

	t.Run("every column", func(t *testing.T) {
		var users []*User
		err := db.Select(ctx, User{}, NewDescriptor().Equal("Status", "pending"), &users)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, User{
			ID: 2, Name: "bob", Email: "bob@x.io", Age: 17, Balance: 50, Status: "pending",
			Audit: Audit{CreatedAt: "2024-02-01"},
		}, *users[0])
	})

	t.Run("join", func(t *testing.T) {
		type userTotal struct {
			Name  string
			Total int
		}
		paid := NewJoin(Order{}).Field("Total").Equal("Status", "paid")
		var rows []userTotal
		err := db.Select(ctx, User{}, NewDescriptor().Field("Name").LeftJoin("ID", "UserID", paid).Asc("Name"), &rows)
		require.NoError(t, err)
		assert.Equal(t, []userTotal{{"alice", 120}, {"bob", 75}}, rows)
	})

	t.Run("in and or group", func(t *testing.T) {
		var users []User
		d := NewDescriptor().Field("Name").
			In("Status", []string{"active", "inactive"}).
			OrGroup(NewDescriptor().LessThan("Age", 18).OrGreaterThan("Age", 60)).
			Asc("Name")
		require.NoError(t, db.Select(ctx, User{}, d, &users))
		require.Len(t, users, 1)
		assert.Equal(t, "carol", users[0].Name)
	})

	t.Run("like", func(t *testing.T) {
		var users []User
		require.NoError(t, db.Select(ctx, User{}, NewDescriptor().Field("Name").LeftLike("Email", "@y.io"), &users))
		require.Len(t, users, 1)
		assert.Equal(t, "carol", users[0].Name)
	})

	t.Run("aggregates into maps", func(t *testing.T) {
		var rows []NullStringMap
		d := NewDescriptor().Field("Status").CountAs("n").SumAs("Balance", "total").GroupBy("Status").Asc("Status")
		require.NoError(t, db.Select(ctx, User{}, d, &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "active", rows[0].String("Status"))
		n, err := rows[0].Int64("n")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, "100", rows[0].String("total"))
	})

	t.Run("bad destination", func(t *testing.T) {
		var users []User
		err := db.Select(ctx, User{}, NewDescriptor().Field("Name"), users)
		assert.ErrorIs(t, err, ErrInvalidDestination)
	})

	t.Run("descriptor error is returned before execution", func(t *testing.T) {
		var users []User
		err := db.Select(ctx, User{}, NewDescriptor().Page(0, 0), &users)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	})
}

func TestDB_GetAndOne(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var u User
	require.NoError(t, db.Get(ctx, &u, 2))
	assert.Equal(t, "bob", u.Name)
	assert.Equal(t, "2024-02-01", u.CreatedAt)

	err := db.Get(ctx, &u, 99)
	assert.ErrorIs(t, err, ErrNoRows)

	st, err := db.Raw("select name, email from users where id = ?", 3)
	require.NoError(t, err)
	var m NullStringMap
	require.NoError(t, db.One(ctx, st, &m))
	assert.Equal(t, []string{"email", "name"}, m.Keys())
	assert.Equal(t, "carol@y.io", m.String("email"))
}

func TestDB_Page(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var users []User
	total, err := db.Page(ctx, User{}, NewDescriptor().Field("Name").Asc("Name").Page(2, 2), &users)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Name)

	users = nil
	total, err = db.Page(ctx, User{}, NewDescriptor().Field("Name").Equal("Status", "gone"), &users)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Nil(t, users)

	st, err := db.Builder().Count(User{}, NewDescriptor().GreaterThan("Balance", 0))
	require.NoError(t, err)
	n, err := db.Count(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDB_UpdateAndDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	balance := func(t *testing.T, id int) int {
		t.Helper()
		var u User
		require.NoError(t, db.Get(ctx, &u, id))
		return u.Balance
	}

	t.Run("guarded decrement", func(t *testing.T) {
		n, err := db.Update(ctx, User{}, NewDescriptor().
			Decrement("Balance", 60).
			Equal("ID", 2).
			DownGreaterEqualZero("Balance", 60))
		require.NoError(t, err)
		assert.Zero(t, n, "the guard keeps the balance non-negative")
		assert.Equal(t, 50, balance(t, 2))

		n, err = db.Update(ctx, User{}, NewDescriptor().
			Decrement("Balance", 30).
			Equal("ID", 2).
			DownGreaterEqualZero("Balance", 30))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 20, balance(t, 2))
	})

	t.Run("batch", func(t *testing.T) {
		_, err := db.UpdateBatch(ctx, User{}, []*Descriptor{
			NewDescriptor().Set("Status", "vip").Increment("Balance", 5).Equal("ID", 1),
			NewDescriptor().Set("Status", "closed").Equal("ID", 3),
		})
		require.NoError(t, err)

		var rows []NullStringMap
		st, err := db.Raw("select id, status, balance from users order by id")
		require.NoError(t, err)
		require.NoError(t, db.All(ctx, st, &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "vip", rows[0].String("status"))
		assert.Equal(t, "105", rows[0].String("balance"))
		assert.Equal(t, "pending", rows[1].String("status"))
		assert.Equal(t, "closed", rows[2].String("status"))
	})

	t.Run("delete", func(t *testing.T) {
		n, err := db.Delete(ctx, Order{}, NewDescriptor().Equal("Status", "open"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = db.DeleteByID(ctx, User{}, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = db.Delete(ctx, Order{}, NewDescriptor())
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	})
}

// stepwise is SQLite with batches run statement by statement, the way
// PostgreSQL and MySQL run them.
type stepwise struct{ dialects.SQLiteDialect }

func (stepwise) BoundBatches() bool { return false }

func TestDB_UpdateBatchInTransaction(t *testing.T) {
	open := func(t *testing.T, opts ...Option) *DB {
		t.Helper()
		sqlDB, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(1)
		db := newDB(sqlDB, "sqlite", &stepwise{}, opts)
		t.Cleanup(func() { _ = db.Close() })
		_, err = sqlDB.Exec(testSchema)
		require.NoError(t, err)
		return db
	}
	statuses := func(t *testing.T, db *DB) []string {
		t.Helper()
		var users []User
		require.NoError(t, db.Select(context.Background(), User{}, NewDescriptor().Field("Status").Asc("ID"), &users))
		out := make([]string, len(users))
		for i, u := range users {
			out[i] = u.Status
		}
		return out
	}
	ctx := context.Background()

	tests := []struct {
		name    string
		ds      []*Descriptor
		wantN   int64
		wantErr bool
		want    []string
	}{
		{
			name: "commits every statement",
			ds: []*Descriptor{
				NewDescriptor().Set("Status", "vip").Increment("Balance", 5).Equal("ID", 1),
				NewDescriptor().Set("Status", "closed").In("ID", []int{2, 3}),
			},
			wantN: 3,
			want:  []string{"vip", "closed", "closed"},
		},
		{
			name: "rolls back on failure",
			ds: []*Descriptor{
				NewDescriptor().Set("Status", "vip").Equal("ID", 1),
				NewDescriptor().Set("Name", nil).Equal("ID", 2),
			},
			wantErr: true,
			want:    []string{"active", "pending", "inactive"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []QueryEvent
			db := open(t, WithQueryHook(func(_ context.Context, e QueryEvent) { events = append(events, e) }))

			n, err := db.UpdateBatch(ctx, User{}, tt.ds)
			if tt.wantErr {
				require.Error(t, err)
				assert.Zero(t, n)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantN, n)
				require.Len(t, events, 2)
				assert.NotContains(t, events[0].SQL, ";")
			}
			assert.Zero(t, db.CacheStats().Size, "transaction statements are not cached on the pool")
			assert.Equal(t, tt.want, statuses(t, db))
		})
	}
}

func TestDB_StatementCache(t *testing.T) {
	db := openTestDB(t, WithStmtCacheCapacity(4))
	ctx := context.Background()

	d := func() *Descriptor { return NewDescriptor().Field("Name").Equal("ID", 1) }
	for i := 0; i < 3; i++ {
		var users []User
		require.NoError(t, db.Select(ctx, User{}, d(), &users))
	}

	stats := db.CacheStats()
	assert.Equal(t, 4, stats.Capacity)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestDB_StatementCacheConcurrentEviction(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "cache.db"), WithStmtCacheCapacity(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.SQLDB().Exec(testSchema)
	require.NoError(t, err)

	shapes := []func() *Descriptor{
		func() *Descriptor { return NewDescriptor().Field("Name").Equal("ID", 1) },
		func() *Descriptor { return NewDescriptor().Field("Name").GreaterEqual("Age", 18) },
		func() *Descriptor { return NewDescriptor().Field("ID").Like("Email", "x.io") },
		func() *Descriptor {
			return NewDescriptor().Field("ID", "Name").In("Status", []string{"active", "pending"})
		},
	}

	ctx := context.Background()
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				var users []User
				if err := db.Select(ctx, User{}, shapes[(w+i)%len(shapes)](), &users); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	stats := db.CacheStats()
	assert.LessOrEqual(t, stats.Size, 2)
	assert.Positive(t, stats.Evictions)
}

func TestCachedStmt_ClosesAfterLastRelease(t *testing.T) {
	db := openTestDB(t)
	stmt, err := db.SQLDB().Prepare("select 1")
	require.NoError(t, err)

	cs := newCachedStmt(stmt)
	require.True(t, cs.acquire())
	cs.retire()
	assert.False(t, cs.acquire(), "retired statements hand out no references")

	var v int
	cs.release()
	require.NoError(t, stmt.QueryRow().Scan(&v), "still referenced")
	cs.release()
	assert.Error(t, stmt.QueryRow().Scan(&v))
}

func TestDB_Observability(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var logs bytes.Buffer
	var events []QueryEvent
	db := openTestDB(t,
		WithLogger(logger.NewSlogAdapter(slog.New(slog.NewJSONHandler(&logs, nil)))),
		WithTracer(tracer.NewOtelTracer(tp.Tracer("querykit-test"))),
		WithSensitiveFields([]string{"email"}),
		WithQueryHook(func(_ context.Context, e QueryEvent) { events = append(events, e) }),
	)
	ctx := context.Background()

	var users []User
	d := NewDescriptor().Field("Name").Equal("Email", "bob@x.io").Equal("Status", "pending")
	require.NoError(t, db.Select(ctx, User{}, d, &users))
	require.Len(t, users, 1)

	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, "SELECT", e.Operation)
	assert.Equal(t, "select t.name as Name from users t where t.email = ?1 and t.status = ?2", e.SQL)
	assert.Equal(t, logger.DefaultMask, e.Params["filter_v0_0"])
	assert.Equal(t, "pending", e.Params["filter_v0_1"])
	assert.NoError(t, e.Error)

	assert.Contains(t, logs.String(), "query executed")
	assert.NotContains(t, logs.String(), "bob@x.io")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "querykit.all", spans[0].Name)
	attrs := make(map[string]any)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "sqlite", attrs["db.system"])
	assert.Equal(t, "SELECT", attrs["db.operation"])
	assert.Equal(t, int64(2), attrs["db.params"])

	t.Run("failures reach the hook", func(t *testing.T) {
		events = nil
		err := db.Get(ctx, &User{}, 42)
		require.ErrorIs(t, err, ErrNoRows)
		require.Len(t, events, 1)
		assert.ErrorIs(t, events[0].Error, ErrNoRows)
		assert.Contains(t, logs.String(), "query returned no rows")
	})
}

func TestDB_RawValidation(t *testing.T) {
	db := openTestDB(t, WithValidator(security.NewValidator()))

	_, err := db.Raw("select * from users where name = ? or 1=1", "x")
	assert.ErrorIs(t, err, security.ErrUnsafeSQL)

	_, err = db.Raw("select * from users where name = ?", "x' or 'a'='a")
	assert.ErrorIs(t, err, security.ErrUnsafeSQL)

	st, err := db.Raw("select name from users where age > ?", 20)
	require.NoError(t, err)
	var rows []NullStringMap
	require.NoError(t, db.All(context.Background(), st, &rows))
	assert.Len(t, rows, 2)
}

func TestDB_Audit(t *testing.T) {
	var buf bytes.Buffer
	auditor := security.NewAuditor(slog.New(slog.NewJSONHandler(&buf, nil)), security.AuditWrites)
	db := openTestDB(t, WithAuditor(auditor), WithValidator(security.NewValidator()))
	ctx := security.WithUser(context.Background(), "ops")

	n, err := db.Update(ctx, User{}, NewDescriptor().Set("Status", "vip").Equal("ID", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var users []User
	require.NoError(t, db.Select(ctx, User{}, NewDescriptor().Field("ID"), &users))

	_, err = db.RawContext(ctx, "select 1; drop table users")
	require.ErrorIs(t, err, security.ErrUnsafeSQL)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2, "reads are not audited at AuditWrites")

	var update, blocked map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &update))
	require.NoError(t, json.Unmarshal(lines[1], &blocked))

	assert.Equal(t, "UPDATE", update["operation"])
	assert.Equal(t, "users", update["table"])
	assert.Equal(t, "ops", update["user"])
	assert.Equal(t, float64(1), update["rows"])
	assert.Equal(t, security.HashArgs([]any{"vip", 1}), update["params_hash"])

	assert.Equal(t, "query_blocked", blocked["event_type"])
	assert.Equal(t, "ops", blocked["user"])
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("cassandra", "")
	assert.Error(t, err)

	_, err = WrapDB(&sql.DB{}, "cassandra")
	assert.Error(t, err)
}
