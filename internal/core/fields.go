package core

import "strings"

// Operation tags a FieldSpec.
type Operation int

// Field operations. Default, Increment and Decrement apply to UPDATE;
// Default and the aggregates apply to SELECT.
const (
	FieldDefault Operation = iota
	FieldIncrement
	FieldDecrement
	FieldCount
	FieldSum
	FieldMin
	FieldMax
	FieldAvg
	FieldExp
)

// FieldSpec is one projected or updated field. For projections Value holds
// the optional alias; for updates it holds the new value or the delta.
type FieldSpec struct {
	Name      string
	Operation Operation
	Value     any
}

func (d *Descriptor) addField(op, name string, kind Operation, value any) *Descriptor {
	if d.err != nil {
		return d
	}
	if strings.TrimSpace(name) == "" {
		return d.fail(invalid(op, "", "field name is empty"))
	}
	d.fields = append(d.fields, FieldSpec{Name: name, Operation: kind, Value: value})
	return d
}

// Field projects names unchanged.
func (d *Descriptor) Field(names ...string) *Descriptor {
	for _, n := range names {
		d.addField("Field", n, FieldDefault, nil)
	}
	return d
}

// FieldAs projects name under alias.
func (d *Descriptor) FieldAs(name, alias string) *Descriptor {
	return d.addField("FieldAs", name, FieldDefault, alias)
}

// Set assigns value to name in an UPDATE.
func (d *Descriptor) Set(name string, value any) *Descriptor {
	return d.addField("Set", name, FieldDefault, value)
}

// Increment renders "name = name + value" in an UPDATE.
func (d *Descriptor) Increment(name string, value any) *Descriptor {
	return d.addField("Increment", name, FieldIncrement, value)
}

// Decrement renders "name = name - value" in an UPDATE.
func (d *Descriptor) Decrement(name string, value any) *Descriptor {
	return d.addField("Decrement", name, FieldDecrement, value)
}

// Count projects count(1).
func (d *Descriptor) Count() *Descriptor {
	return d.CountAs("")
}

// CountAs projects count(1) under alias.
func (d *Descriptor) CountAs(alias string) *Descriptor {
	if d.err != nil {
		return d
	}
	d.fields = append(d.fields, FieldSpec{Operation: FieldCount, Value: alias})
	return d
}

// CountDistinct projects count(distinct name).
func (d *Descriptor) CountDistinct(name string) *Descriptor {
	return d.addField("CountDistinct", name, FieldCount, nil)
}

func (d *Descriptor) CountDistinctAs(name, alias string) *Descriptor {
	return d.addField("CountDistinct", name, FieldCount, alias)
}

// Sum projects sum(expr); expr may be an arithmetic expression such as "Price*Qty".
func (d *Descriptor) Sum(expr string) *Descriptor {
	return d.addField("Sum", expr, FieldSum, nil)
}

func (d *Descriptor) SumAs(expr, alias string) *Descriptor {
	return d.addField("Sum", expr, FieldSum, alias)
}

func (d *Descriptor) Min(expr string) *Descriptor {
	return d.addField("Min", expr, FieldMin, nil)
}

func (d *Descriptor) MinAs(expr, alias string) *Descriptor {
	return d.addField("Min", expr, FieldMin, alias)
}

func (d *Descriptor) Max(expr string) *Descriptor {
	return d.addField("Max", expr, FieldMax, nil)
}

func (d *Descriptor) MaxAs(expr, alias string) *Descriptor {
	return d.addField("Max", expr, FieldMax, alias)
}

func (d *Descriptor) Avg(expr string) *Descriptor {
	return d.addField("Avg", expr, FieldAvg, nil)
}

func (d *Descriptor) AvgAs(expr, alias string) *Descriptor {
	return d.addField("Avg", expr, FieldAvg, alias)
}

// Exp projects a free-form arithmetic expression over columns.
func (d *Descriptor) Exp(expr string) *Descriptor {
	return d.addField("Exp", expr, FieldExp, nil)
}

func (d *Descriptor) ExpAs(expr, alias string) *Descriptor {
	return d.addField("Exp", expr, FieldExp, alias)
}

// alias returns the projection alias stored in Value.
func (f FieldSpec) alias() string {
	s, _ := f.Value.(string)
	return s
}
