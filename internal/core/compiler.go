package core

import (
	"strconv"
	"strings"

	"github.com/coregx/querykit/internal/dialects"
	"github.com/coregx/querykit/internal/logger"
	"github.com/coregx/querykit/internal/meta"
)

// rootAlias is the alias of the statement's main table. A table joined by
// edge e of a table aliased a is aliased a_e (t_0, t_0_1, ...).
const rootAlias = "t"

// Parameter keys are <kind>_v<path>_<index>. The path starts with the
// statement index and grows by _<g> per OR group and _l_<e> per join edge;
// IN items append _in_<k>. Keys are unique by construction.
const (
	filterKind = "filter"
	fieldKind  = "field"

	// idKey binds the primary key value of the by-id statements.
	idKey = "id"
)

func filterKey(path string, i int) string {
	return filterKind + "_v" + path + "_" + strconv.Itoa(i)
}

func fieldKey(stmt, i int) string {
	return fieldKind + "_v" + strconv.Itoa(stmt) + "_" + strconv.Itoa(i)
}

func inKey(key string, k int) string {
	return key + "_in_" + strconv.Itoa(k)
}

func placeholder(key string) string {
	return "{:" + key + "}"
}

// scope is a descriptor bound to its table and alias.
type scope struct {
	d     *Descriptor
	alias string
	table *meta.Table
	joins []*scope // parallel to d.joins
}

// compiler renders one statement. Parameters and GROUP BY / ORDER BY
// entries accumulate across the whole descriptor tree.
type compiler struct {
	dialect  dialects.Dialect
	registry *meta.Registry
	log      logger.Logger

	params Params
	groups []string
	orders []string

	// mutation statements have no alias scope and cannot join.
	mutation bool

	// active holds the descriptors on the current recursion path.
	active map[*Descriptor]bool
}

// enter marks d as being compiled. A descriptor that is already on the
// path is reached through a cycle of groups or joins and is rejected.
func (c *compiler) enter(op string, d *Descriptor) error {
	if c.active == nil {
		c.active = make(map[*Descriptor]bool)
	}
	if c.active[d] {
		return invalid(op, "", "descriptor cycle")
	}
	c.active[d] = true
	return nil
}

func (c *compiler) leave(d *Descriptor) { delete(c.active, d) }

// bind resolves the join tables of d recursively.
func (c *compiler) bind(d *Descriptor, alias string, tb *meta.Table) (*scope, error) {
	if d.err != nil {
		return nil, d.err
	}
	s := &scope{d: d, alias: alias, table: tb}
	if c.mutation {
		return s, nil
	}
	if err := c.enter("LeftJoin", d); err != nil {
		return nil, err
	}
	defer c.leave(d)
	for e, edge := range d.joins {
		childTb, err := c.registry.Resolve(edge.Child.joinTarget)
		if err != nil {
			return nil, err
		}
		child, err := c.bind(edge.Child, alias+"_"+strconv.Itoa(e), childTb)
		if err != nil {
			return nil, err
		}
		s.joins = append(s.joins, child)
	}
	return s, nil
}

// collect appends the GROUP BY and ORDER BY entries of s.
func (c *compiler) collect(s *scope) {
	for _, g := range s.d.groups {
		c.groups = append(c.groups, qualify(g, s.alias, s.table))
	}
	for _, o := range s.d.orders {
		c.orders = append(c.orders, qualify(o.Name, s.alias, s.table)+" "+string(o.Direction))
	}
}

// clause is one contribution to a WHERE fragment.
type clause struct {
	sql   string
	or    bool // has a top-level " or "
	group bool // rendered from an OR group
}

// where renders the filters of s, then its OR groups, then its joins.
// The returned flag reports a top-level " or " in the fragment.
func (c *compiler) where(s *scope, path string, inGroup bool) (string, bool, error) {
	d := s.d
	if d.err != nil {
		return "", false, d.err
	}
	if err := c.enter("OrGroup", d); err != nil {
		return "", false, err
	}
	defer c.leave(d)
	if len(d.joins) > 0 {
		if inGroup {
			return "", false, invalid("OrGroup", "", "joins are not allowed inside an OR group")
		}
		if c.mutation {
			return "", false, invalid("Where", "", "joins are not allowed in update or delete statements")
		}
	}

	var parts []clause

	if len(d.filters) > 0 {
		var b strings.Builder
		hasOr := false
		for i, f := range d.filters {
			sql, err := c.filter(f, s, filterKey(path, i))
			if err != nil {
				return "", false, err
			}
			if i > 0 {
				b.WriteString(f.Join.sep())
				hasOr = hasOr || f.Join == Or
			}
			b.WriteString(sql)
		}
		parts = append(parts, clause{sql: b.String(), or: hasOr})
	}

	for g, og := range d.orGroups {
		sub := &scope{d: og, alias: s.alias, table: s.table}
		sql, hasOr, err := c.where(sub, path+"_"+strconv.Itoa(g), true)
		if err != nil {
			return "", false, err
		}
		if sql != "" {
			parts = append(parts, clause{sql: sql, or: hasOr, group: true})
		}
	}

	for e, child := range s.joins {
		c.collect(child)
		sql, hasOr, err := c.where(child, path+"_l_"+strconv.Itoa(e), false)
		if err != nil {
			return "", false, err
		}
		if sql != "" {
			parts = append(parts, clause{sql: sql, or: hasOr})
		}
	}

	sql, hasOr := combine(parts)
	return sql, hasOr, nil
}

// combine joins clauses with " and ". A sole clause is returned bare;
// otherwise OR groups and clauses with a top-level " or " are parenthesized.
func combine(parts []clause) (string, bool) {
	switch len(parts) {
	case 0:
		return "", false
	case 1:
		return parts[0].sql, parts[0].or
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		if p.group || p.or {
			out[i] = "(" + p.sql + ")"
		} else {
			out[i] = p.sql
		}
	}
	return strings.Join(out, " and "), false
}

// filter renders one predicate and binds its values.
func (c *compiler) filter(f FilterSpec, s *scope, key string) (string, error) {
	col := qualify(f.Name, s.alias, s.table)
	ph := placeholder(key)

	switch f.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual:
		c.params[key] = f.Value
		return col + " " + f.Operator.String() + " " + ph, nil
	case OpLike:
		c.params[key] = f.Value
		return col + " like " + c.dialect.WrapLike(ph), nil
	case OpLeftLike:
		c.params[key] = f.Value
		return col + " like " + c.dialect.WrapLeftLike(ph), nil
	case OpRightLike:
		c.params[key] = f.Value
		return col + " like " + c.dialect.WrapRightLike(ph), nil
	case OpIn, OpNotIn:
		values, err := inValues(f.Name, f.Value)
		if err != nil {
			return "", err
		}
		items := make([]string, len(values))
		for k, v := range values {
			ik := inKey(key, k)
			c.params[ik] = v
			items[k] = placeholder(ik)
		}
		return col + " " + f.Operator.String() + " (" + strings.Join(items, ", ") + ")", nil
	case OpIsNull, OpIsNotNull:
		return col + " " + f.Operator.String(), nil
	case OpUpGreaterThanZero:
		c.params[key] = f.Value
		return col + " + " + ph + " > 0", nil
	case OpUpGreaterEqualZero:
		c.params[key] = f.Value
		return col + " + " + ph + " >= 0", nil
	case OpDownGreaterThanZero:
		c.params[key] = f.Value
		return col + " - " + ph + " > 0", nil
	case OpDownGreaterEqualZero:
		c.params[key] = f.Value
		return col + " - " + ph + " >= 0", nil
	default:
		return "", invalid("Filter", f.Name, "unknown operator")
	}
}

// joinClause renders the LEFT JOINs of s depth first.
func joinClause(s *scope, b *strings.Builder) {
	for e, child := range s.joins {
		edge := s.d.joins[e]
		b.WriteString(" left join ")
		b.WriteString(child.table.Name())
		b.WriteByte(' ')
		b.WriteString(child.alias)
		b.WriteString(" on ")
		for k := range edge.LeftKeys {
			if k > 0 {
				b.WriteString(" and ")
			}
			b.WriteString(s.alias + "." + s.table.ColumnOrName(edge.LeftKeys[k]))
			b.WriteString(" = ")
			b.WriteString(child.alias + "." + child.table.ColumnOrName(edge.RightKeys[k]))
		}
		joinClause(child, b)
	}
}

// columns renders the projection of s and of its joins.
func (c *compiler) columns(s *scope, out []string) ([]string, error) {
	if len(s.d.fields) == 0 {
		c.log.Warn("selecting every column; list the needed fields instead",
			"table", s.table.Name(), "alias", s.alias)
		out = allColumns(s, out)
	} else {
		for _, f := range s.d.fields {
			col, skip, err := projection(f, s)
			if err != nil {
				return nil, err
			}
			if !skip {
				out = append(out, col)
			}
		}
	}

	for _, child := range s.joins {
		var err error
		if out, err = c.columns(child, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// allColumns renders every non-excluded column of s in declaration order.
// Renamed columns are aliased back to their field names.
func allColumns(s *scope, out []string) []string {
	fields := s.table.Fields()
	for i, col := range s.table.Columns() {
		if s.d.isExcluded(fields[i], col) {
			continue
		}
		expr := s.alias + "." + col
		if col != fields[i] {
			expr += " as " + fields[i]
		}
		out = append(out, expr)
	}
	return out
}

// projection renders one FieldSpec of a SELECT.
func projection(f FieldSpec, s *scope) (string, bool, error) {
	alias := f.alias()
	col := ""
	if f.Name != "" {
		col = s.table.ColumnOrName(f.Name)
		if alias == "" {
			alias, _ = s.table.Field(col)
		}
	}
	if s.d.isExcluded(alias, f.Name, col) {
		return "", true, nil
	}

	var expr string
	switch f.Operation {
	case FieldDefault:
		resolved, ok := s.table.Resolve(f.Name)
		if !ok {
			return "", false, &UnresolvedFieldError{Field: f.Name, Table: s.table.Name()}
		}
		expr = s.alias + "." + resolved
	case FieldCount:
		if f.Name == "" {
			expr = "count(1)"
		} else {
			expr = "count(distinct " + qualify(f.Name, s.alias, s.table) + ")"
		}
	case FieldSum:
		expr = "sum(" + qualify(f.Name, s.alias, s.table) + ")"
	case FieldMin:
		expr = "min(" + qualify(f.Name, s.alias, s.table) + ")"
	case FieldMax:
		expr = "max(" + qualify(f.Name, s.alias, s.table) + ")"
	case FieldAvg:
		expr = "avg(" + qualify(f.Name, s.alias, s.table) + ")"
	case FieldExp:
		expr = qualify(f.Name, s.alias, s.table)
	default:
		return "", false, invalid("Select", f.Name, "increment and decrement only apply to updates")
	}

	if alias != "" {
		expr += " as " + alias
	}
	return expr, false, nil
}
