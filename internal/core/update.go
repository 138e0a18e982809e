package core

import (
	"maps"
	"strconv"
	"strings"

	"github.com/coregx/querykit/internal/meta"
)

// Update compiles d into an UPDATE of the table of entity. d's fields give
// the SET list (Set, Increment, Decrement) and d's filters the WHERE
// clause. An UPDATE without a WHERE clause is rejected.
func (b *Builder) Update(entity any, d *Descriptor) (Statement, error) {
	tb, err := b.resolve("Update", entity, d)
	if err != nil {
		return Statement{}, err
	}
	params := Params{}
	sql, err := b.update(tb, d, 0, params)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Params: params}, nil
}

// UpdateBatch compiles one UPDATE per descriptor into a single statement
// wrapped by the dialect. Keys of the i-th statement carry index i, so all
// statements share one Params map.
func (b *Builder) UpdateBatch(entity any, ds []*Descriptor) (Statement, error) {
	sts, err := b.updates("UpdateBatch", entity, ds)
	if err != nil {
		return Statement{}, err
	}
	params := Params{}
	stmts := make([]string, len(sts))
	for i, st := range sts {
		maps.Copy(params, st.Params)
		stmts[i] = st.SQL
	}
	return Statement{SQL: b.dialect.WrapBatch(stmts), Params: params}, nil
}

// UpdateEach compiles one UPDATE per descriptor, each with its own Params.
// Keys are numbered as in UpdateBatch.
func (b *Builder) UpdateEach(entity any, ds []*Descriptor) ([]Statement, error) {
	return b.updates("UpdateEach", entity, ds)
}

func (b *Builder) updates(op string, entity any, ds []*Descriptor) ([]Statement, error) {
	if len(ds) == 0 {
		return nil, invalid(op, "", "no descriptors")
	}
	tb, err := b.registry.Resolve(entity)
	if err != nil {
		return nil, err
	}

	sts := make([]Statement, 0, len(ds))
	for i, d := range ds {
		if d == nil {
			return nil, WrapError(ErrNilDescriptor, op+": descriptor "+strconv.Itoa(i))
		}
		if d.err != nil {
			return nil, d.err
		}
		params := Params{}
		sql, err := b.update(tb, d, i, params)
		if err != nil {
			return nil, err
		}
		sts = append(sts, Statement{SQL: sql, Params: params})
	}
	return sts, nil
}

func (b *Builder) update(tb *meta.Table, d *Descriptor, stmt int, params Params) (string, error) {
	if len(d.fields) == 0 {
		return "", invalid("Update", "", "no fields to set")
	}

	sets := make([]string, len(d.fields))
	for i, f := range d.fields {
		col, ok := tb.Resolve(f.Name)
		if !ok {
			return "", &UnresolvedFieldError{Field: f.Name, Table: tb.Name()}
		}
		key := fieldKey(stmt, i)
		params[key] = f.Value
		switch f.Operation {
		case FieldDefault:
			sets[i] = col + " = " + placeholder(key)
		case FieldIncrement:
			sets[i] = col + " = " + col + " + " + placeholder(key)
		case FieldDecrement:
			sets[i] = col + " = " + col + " - " + placeholder(key)
		default:
			return "", invalid("Update", f.Name, "aggregates cannot be assigned")
		}
	}

	where, err := b.mutationWhere("Update", tb, d, stmt, params)
	if err != nil {
		return "", err
	}
	return "update " + tb.Name() + " set " + strings.Join(sets, ", ") + " where " + where, nil
}

// mutationWhere compiles the unaliased WHERE clause of an UPDATE or DELETE
// and rejects an empty one.
func (b *Builder) mutationWhere(op string, tb *meta.Table, d *Descriptor, stmt int, params Params) (string, error) {
	c := b.newCompiler(params, true)
	root, err := c.bind(d, "", tb)
	if err != nil {
		return "", err
	}
	where, _, err := c.where(root, strconv.Itoa(stmt), false)
	if err != nil {
		return "", err
	}
	if where == "" {
		return "", invalid(op, "", "refusing to run without a where clause")
	}
	return where, nil
}
