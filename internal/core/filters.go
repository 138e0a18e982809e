package core

import (
	"reflect"
	"strings"
)

// Operator selects the SQL template of a filter.
type Operator int

// Filter operators.
const (
	OpEqual Operator = iota
	OpNotEqual
	OpLike
	OpLeftLike
	OpRightLike
	OpGreaterThan
	OpGreaterEqual
	OpLessThan
	OpLessEqual
	OpIn
	OpNotIn
	OpIsNull
	OpIsNotNull

	// Arithmetic guards: "col + v > 0" and friends. They check that an
	// increment or decrement keeps a counter non-negative.
	OpUpGreaterThanZero
	OpUpGreaterEqualZero
	OpDownGreaterThanZero
	OpDownGreaterEqualZero
)

var operatorNames = [...]string{
	OpEqual:                "=",
	OpNotEqual:             "<>",
	OpLike:                 "like",
	OpLeftLike:             "like",
	OpRightLike:            "like",
	OpGreaterThan:          ">",
	OpGreaterEqual:         ">=",
	OpLessThan:             "<",
	OpLessEqual:            "<=",
	OpIn:                   "in",
	OpNotIn:                "not in",
	OpIsNull:               "is null",
	OpIsNotNull:            "is not null",
	OpUpGreaterThanZero:    "+ > 0",
	OpUpGreaterEqualZero:   "+ >= 0",
	OpDownGreaterThanZero:  "- > 0",
	OpDownGreaterEqualZero: "- >= 0",
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return "unknown"
	}
	return operatorNames[o]
}

// takesValue reports whether the operator binds a value.
func (o Operator) takesValue() bool {
	return o != OpIsNull && o != OpIsNotNull
}

// JoinType combines a filter with the filter before it.
type JoinType int

// Join types.
const (
	And JoinType = iota
	Or
)

func (j JoinType) sep() string {
	if j == Or {
		return " or "
	}
	return " and "
}

// FilterSpec is one predicate. Join is ignored for the first filter of a list.
type FilterSpec struct {
	Name     string
	Operator Operator
	Value    any
	Join     JoinType
}

// Filter appends a predicate combined with " and ".
func (d *Descriptor) Filter(name string, op Operator, value any) *Descriptor {
	return d.addFilter(name, op, value, And)
}

// OrFilter appends a predicate combined with " or ".
func (d *Descriptor) OrFilter(name string, op Operator, value any) *Descriptor {
	return d.addFilter(name, op, value, Or)
}

func (d *Descriptor) addFilter(name string, op Operator, value any, join JoinType) *Descriptor {
	if d.err != nil {
		return d
	}
	if strings.TrimSpace(name) == "" {
		return d.fail(invalid("Filter", "", "filter name is empty"))
	}
	if op < OpEqual || op > OpDownGreaterEqualZero {
		return d.fail(invalid("Filter", name, "unknown operator"))
	}
	if op == OpIn || op == OpNotIn {
		if _, err := inValues(name, value); err != nil {
			return d.fail(err)
		}
	}
	if !op.takesValue() {
		value = nil
	}
	d.filters = append(d.filters, FilterSpec{Name: name, Operator: op, Value: value, Join: join})
	return d
}

// inValues normalizes an IN operand: a slice or array, a comma separated
// string, or a single scalar.
func inValues(name string, value any) ([]any, error) {
	if value == nil {
		return nil, invalid("In", name, "in value is nil")
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, invalid("In", name, "in value is empty")
		}
		parts := strings.Split(v, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, nil
	case []byte:
		return []any{v}, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return nil, invalid("In", name, "in value is empty")
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	default:
		return []any{value}, nil
	}
}

func (d *Descriptor) Equal(name string, value any) *Descriptor {
	return d.addFilter(name, OpEqual, value, And)
}

func (d *Descriptor) OrEqual(name string, value any) *Descriptor {
	return d.addFilter(name, OpEqual, value, Or)
}

func (d *Descriptor) NotEqual(name string, value any) *Descriptor {
	return d.addFilter(name, OpNotEqual, value, And)
}

func (d *Descriptor) OrNotEqual(name string, value any) *Descriptor {
	return d.addFilter(name, OpNotEqual, value, Or)
}

// Like matches value anywhere in the column.
func (d *Descriptor) Like(name string, value any) *Descriptor {
	return d.addFilter(name, OpLike, value, And)
}

func (d *Descriptor) OrLike(name string, value any) *Descriptor {
	return d.addFilter(name, OpLike, value, Or)
}

// LeftLike matches columns ending with value.
func (d *Descriptor) LeftLike(name string, value any) *Descriptor {
	return d.addFilter(name, OpLeftLike, value, And)
}

func (d *Descriptor) OrLeftLike(name string, value any) *Descriptor {
	return d.addFilter(name, OpLeftLike, value, Or)
}

// RightLike matches columns starting with value.
func (d *Descriptor) RightLike(name string, value any) *Descriptor {
	return d.addFilter(name, OpRightLike, value, And)
}

func (d *Descriptor) OrRightLike(name string, value any) *Descriptor {
	return d.addFilter(name, OpRightLike, value, Or)
}

func (d *Descriptor) GreaterThan(name string, value any) *Descriptor {
	return d.addFilter(name, OpGreaterThan, value, And)
}

func (d *Descriptor) OrGreaterThan(name string, value any) *Descriptor {
	return d.addFilter(name, OpGreaterThan, value, Or)
}

func (d *Descriptor) GreaterEqual(name string, value any) *Descriptor {
	return d.addFilter(name, OpGreaterEqual, value, And)
}

func (d *Descriptor) OrGreaterEqual(name string, value any) *Descriptor {
	return d.addFilter(name, OpGreaterEqual, value, Or)
}

// GreaterEqualZero is GreaterEqual(name, 0).
func (d *Descriptor) GreaterEqualZero(name string) *Descriptor {
	return d.addFilter(name, OpGreaterEqual, 0, And)
}

func (d *Descriptor) OrGreaterEqualZero(name string) *Descriptor {
	return d.addFilter(name, OpGreaterEqual, 0, Or)
}

func (d *Descriptor) LessThan(name string, value any) *Descriptor {
	return d.addFilter(name, OpLessThan, value, And)
}

func (d *Descriptor) OrLessThan(name string, value any) *Descriptor {
	return d.addFilter(name, OpLessThan, value, Or)
}

func (d *Descriptor) LessEqual(name string, value any) *Descriptor {
	return d.addFilter(name, OpLessEqual, value, And)
}

func (d *Descriptor) OrLessEqual(name string, value any) *Descriptor {
	return d.addFilter(name, OpLessEqual, value, Or)
}

// In accepts a slice, an array, a comma separated string or a scalar.
func (d *Descriptor) In(name string, value any) *Descriptor {
	return d.addFilter(name, OpIn, value, And)
}

func (d *Descriptor) OrIn(name string, value any) *Descriptor {
	return d.addFilter(name, OpIn, value, Or)
}

func (d *Descriptor) NotIn(name string, value any) *Descriptor {
	return d.addFilter(name, OpNotIn, value, And)
}

func (d *Descriptor) OrNotIn(name string, value any) *Descriptor {
	return d.addFilter(name, OpNotIn, value, Or)
}

func (d *Descriptor) IsNull(name string) *Descriptor {
	return d.addFilter(name, OpIsNull, nil, And)
}

func (d *Descriptor) OrIsNull(name string) *Descriptor {
	return d.addFilter(name, OpIsNull, nil, Or)
}

func (d *Descriptor) IsNotNull(name string) *Descriptor {
	return d.addFilter(name, OpIsNotNull, nil, And)
}

func (d *Descriptor) OrIsNotNull(name string) *Descriptor {
	return d.addFilter(name, OpIsNotNull, nil, Or)
}

// UpGreaterThanZero requires name + value > 0.
func (d *Descriptor) UpGreaterThanZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpUpGreaterThanZero, value, And)
}

func (d *Descriptor) OrUpGreaterThanZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpUpGreaterThanZero, value, Or)
}

// UpGreaterEqualZero requires name + value >= 0.
func (d *Descriptor) UpGreaterEqualZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpUpGreaterEqualZero, value, And)
}

func (d *Descriptor) OrUpGreaterEqualZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpUpGreaterEqualZero, value, Or)
}

// DownGreaterThanZero requires name - value > 0.
func (d *Descriptor) DownGreaterThanZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpDownGreaterThanZero, value, And)
}

func (d *Descriptor) OrDownGreaterThanZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpDownGreaterThanZero, value, Or)
}

// DownGreaterEqualZero requires name - value >= 0, i.e. a decrement by value
// does not drive the column negative.
func (d *Descriptor) DownGreaterEqualZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpDownGreaterEqualZero, value, And)
}

func (d *Descriptor) OrDownGreaterEqualZero(name string, value any) *Descriptor {
	return d.addFilter(name, OpDownGreaterEqualZero, value, Or)
}
