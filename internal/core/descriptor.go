package core

import (
	"strings"

	"github.com/coregx/querykit/internal/meta"
)

// Default pagination applied when Page is never called.
const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
)

// Direction is an ORDER BY direction.
type Direction string

// Order directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderSpec is one ORDER BY entry.
type OrderSpec struct {
	Name      string
	Direction Direction
}

// JoinEdge is one LEFT JOIN from the owning descriptor to Child.
// LeftKeys name columns of the owner, RightKeys columns of the child.
type JoinEdge struct {
	LeftKeys  []string
	RightKeys []string
	Child     *Descriptor
}

// Descriptor accumulates the projections, filters, OR groups, joins,
// grouping, ordering and pagination of one statement (or of one joined
// table). Builder compiles it into SQL and bound parameters.
//
// Mutators validate their input immediately. The first invalid call is
// recorded and returned by Err and by every assembler; a failed call leaves
// the descriptor unchanged and later calls are ignored.
//
// A Descriptor is not safe for concurrent mutation.
type Descriptor struct {
	fields   []FieldSpec
	filters  []FilterSpec
	groups   []string
	orders   []OrderSpec
	orGroups []*Descriptor
	joins    []JoinEdge
	excluded map[string]struct{}

	joinTarget any

	pageNumber int
	pageSize   int

	err error
}

// NewDescriptor creates an empty descriptor.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		pageNumber: DefaultPageNumber,
		pageSize:   DefaultPageSize,
	}
}

// NewJoin creates a descriptor for a joined table. See SetJoinTable.
func NewJoin(target any) *Descriptor {
	return NewDescriptor().SetJoinTable(target)
}

// Err returns the first validation error recorded on the descriptor.
func (d *Descriptor) Err() error {
	return d.err
}

// fail records err unless an earlier error exists.
func (d *Descriptor) fail(err error) *Descriptor {
	if d.err == nil {
		d.err = err
	}
	return d
}

// SetJoinTable declares which table this descriptor describes when it is the
// target of a join. target is a registered table name, an entity value whose
// type implements meta.TableNamer, or a *meta.Table.
func (d *Descriptor) SetJoinTable(target any) *Descriptor {
	if d.err != nil {
		return d
	}
	switch t := target.(type) {
	case nil:
		return d.fail(invalid("SetJoinTable", "", "join table is nil"))
	case string:
		if strings.TrimSpace(t) == "" {
			return d.fail(invalid("SetJoinTable", "", "join table name is empty"))
		}
	case *meta.Table:
		if t == nil {
			return d.fail(invalid("SetJoinTable", "", "join table is nil"))
		}
	}
	d.joinTarget = target
	return d
}

// JoinTarget returns the value given to SetJoinTable, or nil.
func (d *Descriptor) JoinTarget() any {
	return d.joinTarget
}

// OrGroup attaches g as a parenthesized group. The group's own filters keep
// their and/or joins; the group as a whole is combined with " and ".
func (d *Descriptor) OrGroup(g *Descriptor) *Descriptor {
	if d.err != nil {
		return d
	}
	if g == nil {
		return d.fail(invalid("OrGroup", "", "group descriptor is nil"))
	}
	if g == d {
		return d.fail(invalid("OrGroup", "", "descriptor cannot be its own group"))
	}
	if g.err != nil {
		return d.fail(g.err)
	}
	d.orGroups = append(d.orGroups, g)
	return d
}

// LeftJoin joins child on left = right.
func (d *Descriptor) LeftJoin(left, right string, child *Descriptor) *Descriptor {
	return d.LeftJoinOn([]string{left}, []string{right}, child)
}

// LeftJoinOn joins child on a composite key: left[i] = right[i] for every i.
func (d *Descriptor) LeftJoinOn(left, right []string, child *Descriptor) *Descriptor {
	if d.err != nil {
		return d
	}
	const op = "LeftJoin"
	if len(left) == 0 || len(right) == 0 {
		return d.fail(invalid(op, "", "join keys are empty"))
	}
	if len(left) != len(right) {
		return d.fail(invalid(op, "", "left and right join keys differ in length"))
	}
	for i := range left {
		if strings.TrimSpace(left[i]) == "" || strings.TrimSpace(right[i]) == "" {
			return d.fail(invalid(op, "", "join key name is empty"))
		}
	}
	if child == nil {
		return d.fail(invalid(op, "", "join descriptor is nil"))
	}
	if child == d {
		return d.fail(invalid(op, "", "descriptor cannot join itself"))
	}
	if child.err != nil {
		return d.fail(child.err)
	}
	if child.joinTarget == nil {
		return d.fail(invalid(op, "", "join descriptor has no join table"))
	}
	d.joins = append(d.joins, JoinEdge{
		LeftKeys:  append([]string(nil), left...),
		RightKeys: append([]string(nil), right...),
		Child:     child,
	})
	return d
}

// GroupBy appends GROUP BY names.
func (d *Descriptor) GroupBy(names ...string) *Descriptor {
	if d.err != nil {
		return d
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return d.fail(invalid("GroupBy", "", "group name is empty"))
		}
	}
	d.groups = append(d.groups, names...)
	return d
}

// OrderBy appends an ORDER BY entry.
func (d *Descriptor) OrderBy(name string, dir Direction) *Descriptor {
	if d.err != nil {
		return d
	}
	if strings.TrimSpace(name) == "" {
		return d.fail(invalid("OrderBy", "", "order name is empty"))
	}
	if dir != Asc && dir != Desc {
		return d.fail(invalid("OrderBy", name, "direction must be asc or desc"))
	}
	d.orders = append(d.orders, OrderSpec{Name: name, Direction: dir})
	return d
}

// Asc orders by name ascending.
func (d *Descriptor) Asc(name string) *Descriptor { return d.OrderBy(name, Asc) }

// Desc orders by name descending.
func (d *Descriptor) Desc(name string) *Descriptor { return d.OrderBy(name, Desc) }

// Exclude drops fields (or columns) from "select all" and from explicit projections.
func (d *Descriptor) Exclude(names ...string) *Descriptor {
	if d.err != nil {
		return d
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return d.fail(invalid("Exclude", "", "excluded name is empty"))
		}
	}
	if d.excluded == nil {
		d.excluded = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		d.excluded[n] = struct{}{}
	}
	return d
}

// Page sets the 1-based page number and the page size used by Builder.Page.
func (d *Descriptor) Page(number, size int) *Descriptor {
	if d.err != nil {
		return d
	}
	if number < 1 {
		return d.fail(invalid("Page", "", "page number must be at least 1"))
	}
	if size < 1 {
		return d.fail(invalid("Page", "", "page size must be at least 1"))
	}
	d.pageNumber = number
	d.pageSize = size
	return d
}

// PageNumber returns the 1-based page number.
func (d *Descriptor) PageNumber() int { return d.pageNumber }

// PageSize returns the page size.
func (d *Descriptor) PageSize() int { return d.pageSize }

// RemoveFilters drops all filters and OR groups, keeping everything else.
func (d *Descriptor) RemoveFilters() *Descriptor {
	d.filters = nil
	d.orGroups = nil
	return d
}

// Fields returns a copy of the field specs.
func (d *Descriptor) Fields() []FieldSpec { return append([]FieldSpec(nil), d.fields...) }

// Filters returns a copy of the filter specs.
func (d *Descriptor) Filters() []FilterSpec { return append([]FilterSpec(nil), d.filters...) }

// Joins returns a copy of the join edges.
func (d *Descriptor) Joins() []JoinEdge { return append([]JoinEdge(nil), d.joins...) }

// isExcluded reports whether any of names is excluded.
func (d *Descriptor) isExcluded(names ...string) bool {
	if len(d.excluded) == 0 {
		return false
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := d.excluded[n]; ok {
			return true
		}
	}
	return false
}
