package core

import (
	"maps"
	"strings"
)

// selectQuery holds the compiled fragments of a SELECT.
type selectQuery struct {
	columns []string
	from    string
	where   string
	groups  []string
	orders  []string
	params  Params
}

func (q *selectQuery) tail(b *strings.Builder, withOrder bool) {
	if q.where != "" {
		b.WriteString(" where ")
		b.WriteString(q.where)
	}
	if len(q.groups) > 0 {
		b.WriteString(" group by ")
		b.WriteString(strings.Join(q.groups, ", "))
	}
	if withOrder && len(q.orders) > 0 {
		b.WriteString(" order by ")
		b.WriteString(strings.Join(q.orders, ", "))
	}
}

func (q *selectQuery) sql() string {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(strings.Join(q.columns, ", "))
	b.WriteString(" from ")
	b.WriteString(q.from)
	q.tail(&b, true)
	return b.String()
}

// countSQL counts the rows of the query. A grouped query is counted by
// group: select count(1) from (<grouped count>) s.
func (q *selectQuery) countSQL() string {
	var b strings.Builder
	b.WriteString("select count(1) from ")
	b.WriteString(q.from)
	q.tail(&b, false)
	if len(q.groups) > 0 {
		return "select count(1) from (" + b.String() + ") s"
	}
	return b.String()
}

func (b *Builder) compileSelect(op string, entity any, d *Descriptor, withColumns bool) (*selectQuery, error) {
	tb, err := b.resolve(op, entity, d)
	if err != nil {
		return nil, err
	}
	c := b.newCompiler(nil, false)
	root, err := c.bind(d, rootAlias, tb)
	if err != nil {
		return nil, err
	}

	q := &selectQuery{params: c.params}
	if withColumns {
		if q.columns, err = c.columns(root, nil); err != nil {
			return nil, err
		}
		if len(q.columns) == 0 {
			return nil, invalid(op, "", "no columns to select")
		}
	}

	var from strings.Builder
	from.WriteString(tb.Name())
	from.WriteByte(' ')
	from.WriteString(rootAlias)
	joinClause(root, &from)
	q.from = from.String()

	c.collect(root)
	if q.where, _, err = c.where(root, "0", false); err != nil {
		return nil, err
	}
	q.groups = c.groups
	q.orders = c.orders
	return q, nil
}

// Select compiles d into a SELECT over the table of entity.
//
// Columns come from d's fields, or from every non-excluded column when d has
// none, followed by the columns of each joined descriptor. Joins render as
// LEFT JOINs with aliases t, t_0, t_0_0 and so on.
func (b *Builder) Select(entity any, d *Descriptor) (Statement, error) {
	q, err := b.compileSelect("Select", entity, d, true)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: q.sql(), Params: q.params}, nil
}

// Page compiles d into a paged SELECT and its COUNT. The page comes from
// d.Page, defaulting to page 1 of 10 rows.
func (b *Builder) Page(entity any, d *Descriptor) (PageStatement, error) {
	q, err := b.compileSelect("Page", entity, d, true)
	if err != nil {
		return PageStatement{}, err
	}
	number, size := d.pageNumber, d.pageSize
	if number < 1 {
		number = DefaultPageNumber
	}
	if size < 1 {
		size = DefaultPageSize
	}
	offset := (number - 1) * size

	return PageStatement{
		Query:  Statement{SQL: b.dialect.AppendPageLimit(q.sql(), offset, size), Params: q.params},
		Count:  Statement{SQL: q.countSQL(), Params: maps.Clone(q.params)},
		Number: number,
		Size:   size,
	}, nil
}

// Count compiles d into a COUNT over the same FROM and WHERE as Select.
// Fields and ordering are ignored.
func (b *Builder) Count(entity any, d *Descriptor) (Statement, error) {
	q, err := b.compileSelect("Count", entity, d, false)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: q.countSQL(), Params: q.params}, nil
}

// SelectByID selects every column of the row whose primary key is id.
func (b *Builder) SelectByID(entity any, id any) (Statement, error) {
	if id == nil {
		return Statement{}, invalid("SelectByID", "", "id is nil")
	}
	tb, err := b.registry.Resolve(entity)
	if err != nil {
		return Statement{}, err
	}
	cols := allColumns(&scope{d: NewDescriptor(), alias: rootAlias, table: tb}, nil)
	if len(cols) == 0 {
		return Statement{}, invalid("SelectByID", "", "no columns to select")
	}

	var sb strings.Builder
	sb.WriteString("select ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" from ")
	sb.WriteString(tb.Name())
	sb.WriteString(" " + rootAlias + " where " + rootAlias + ".")
	sb.WriteString(tb.PrimaryKey())
	sb.WriteString(" = " + placeholder(idKey))
	return Statement{SQL: sb.String(), Params: Params{idKey: id}}, nil
}
