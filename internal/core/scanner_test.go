package core

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

func TestScanner_FieldLabels(t *testing.T) {
	type Base struct {
		ID      int64  `db:"id"`
		Comment string `db:"note"`
	}
	type Row struct {
		Base
		Title   string `db:"title"`
		Comment string
		Skipped string `db:"-"`
		hidden  string
	}

	fields := newScanner().fieldsOf(reflect.TypeOf(Row{}))

	assert.Equal(t, []int{1}, fields["title"])
	assert.Equal(t, []int{2}, fields["comment"], "own fields win over embedded ones")
	assert.Equal(t, []int{0, 0}, fields["id"])
	assert.Equal(t, []int{0, 1}, fields["note"])
	assert.NotContains(t, fields, "skipped")
	assert.NotContains(t, fields, "hidden")
}

func TestScanner_CachesTypes(t *testing.T) {
	s := newScanner()
	typ := reflect.TypeOf(User{})

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			s.fieldsOf(typ)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Len(t, s.cache, 1)
	assert.Equal(t, []int{6, 0}, s.cache[typ]["createdat"])
	assert.Equal(t, []int{6, 0}, s.cache[typ]["created_at"])
}

func TestScanner_Rows(t *testing.T) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(1)

	_, err = sqlDB.Exec(`CREATE TABLE items (id INTEGER, sku TEXT, qty INTEGER, extra TEXT);
		INSERT INTO items VALUES (1, 'a', 2, 'x'), (2, 'b', NULL, NULL)`)
	require.NoError(t, err)

	query := func(t *testing.T) *sql.Rows {
		t.Helper()
		rows, err := sqlDB.QueryContext(context.Background(), "select id as ID, sku, extra from items order by id")
		require.NoError(t, err)
		t.Cleanup(func() { _ = rows.Close() })
		return rows
	}

	t.Run("unknown columns are discarded", func(t *testing.T) {
		var items []Item
		require.NoError(t, globalScanner.scanRows(query(t), &items))
		assert.Equal(t, []Item{{ID: 1, Sku: "a"}, {ID: 2, Sku: "b"}}, items)
	})

	t.Run("single row", func(t *testing.T) {
		rows := query(t)
		require.True(t, rows.Next())
		var item Item
		require.NoError(t, globalScanner.scanRow(rows, &item))
		assert.Equal(t, Item{ID: 1, Sku: "a"}, item)
	})

	t.Run("unexported embedded struct", func(t *testing.T) {
		type keyed struct {
			ID int64 `db:"id"`
		}
		type row struct {
			keyed
			Sku string `db:"sku"`
		}
		var got []row
		require.NoError(t, globalScanner.scanRows(query(t), &got))
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[1].ID)
		assert.Equal(t, "b", got[1].Sku)
	})

	t.Run("maps keep nulls", func(t *testing.T) {
		var out []NullStringMap
		require.NoError(t, scanMapRows(query(t), &out))
		require.Len(t, out, 2)
		assert.Equal(t, "x", out[0].String("extra"))
		assert.True(t, out[1].IsNull("extra"))
		assert.True(t, out[1].Has("extra"))
		assert.Equal(t, []string{"ID", "extra", "sku"}, out[1].Keys())
	})

	t.Run("invalid destinations", func(t *testing.T) {
		var items []Item
		var ints []int
		var n int
		for _, dest := range []any{items, &ints} {
			rows := query(t)
			assert.ErrorIs(t, globalScanner.scanRows(rows, dest), ErrInvalidDestination)
			require.NoError(t, rows.Close())
		}

		rows := query(t)
		require.True(t, rows.Next())
		assert.ErrorIs(t, globalScanner.scanRow(rows, &n), ErrInvalidDestination)
	})
}

func TestNullStringMap(t *testing.T) {
	m := NullStringMap{
		"total": {String: "42", Valid: true},
		"name":  {String: "bob", Valid: true},
		"empty": {},
	}

	n, err := m.Int64("total")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = m.Int64("empty")
	assert.Error(t, err)
	_, err = m.Int64("missing")
	assert.Error(t, err)
	_, err = m.Int64("name")
	assert.Error(t, err)

	assert.Equal(t, "bob", m.String("name"))
	assert.Equal(t, "", m.String("empty"))
	assert.True(t, m.IsNull("empty"))
	assert.True(t, m.IsNull("missing"))
	assert.False(t, m.Has("missing"))
	assert.Equal(t, []string{"empty", "name", "total"}, m.Keys())
}
