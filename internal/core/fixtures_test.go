package core

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/coregx/querykit/internal/dialects"
	"github.com/coregx/querykit/internal/meta"
)

type Audit struct {
	CreatedAt string `db:"created_at"`
}

type User struct {
	ID      int64  `db:"id,pk"`
	Name    string `db:"name"`
	Email   string `db:"email"`
	Age     int    `db:"age"`
	Balance int    `db:"balance"`
	Status  string `db:"status"`
	Audit
}

func (User) TableName() string { return "users" }

type Order struct {
	ID     int64  `db:"id,pk"`
	UserID int64  `db:"user_id"`
	Total  int    `db:"total"`
	Status string `db:"status"`
}

func (Order) TableName() string { return "orders" }

type Item struct {
	ID      int64  `db:"id,pk"`
	OrderID int64  `db:"order_id"`
	Sku     string `db:"sku"`
	Qty     int    `db:"qty"`
	Price   int    `db:"price"`
}

func (Item) TableName() string { return "order_items" }

func newTestBuilder(t *testing.T, d dialects.Dialect) *Builder {
	t.Helper()
	return NewBuilder(d, meta.NewRegistry())
}

// render prints a statement followed by its parameters in key order.
func render(st Statement) string {
	var b strings.Builder
	b.WriteString(st.SQL)
	b.WriteByte('\n')
	keys := make([]string, 0, len(st.Params))
	for k := range st.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %#v\n", k, st.Params[k])
	}
	return b.String()
}

// placeholders returns the keys referenced by sql in order of appearance.
func placeholders(sql string) []string {
	var keys []string
	for _, m := range namedPlaceholderRegex.FindAllStringSubmatch(sql, -1) {
		keys = append(keys, m[1])
	}
	return keys
}
