package meta

// DefaultPrimaryKey is the key column used when a schema declares none.
const DefaultPrimaryKey = "id"

// Table is the resolved, immutable column mapping of one logical table.
type Table struct {
	name       string
	primaryKey string

	fields  []string // declaration order
	columns []string // declaration order, parallel to fields

	fieldToColumn map[string]string
	// columnToField only holds renamed columns.
	columnToField map[string]string
	columnSet     map[string]struct{}
}

// newTable validates a schema and builds its lookup maps.
func newTable(entity string, s Schema, mapper NameMapper) (*Table, error) {
	if s.Table == "" {
		return nil, &ConfigError{Entity: entity, Reason: "table name is empty"}
	}
	if mapper == nil {
		mapper = Identity
	}

	t := &Table{
		name:          s.Table,
		fields:        make([]string, 0, len(s.Columns)),
		columns:       make([]string, 0, len(s.Columns)),
		fieldToColumn: make(map[string]string, len(s.Columns)),
		columnToField: make(map[string]string),
		columnSet:     make(map[string]struct{}, len(s.Columns)),
	}

	for _, c := range s.Columns {
		if c.Exclude {
			continue
		}
		if c.Field == "" {
			return nil, &ConfigError{Entity: entity, Table: s.Table, Reason: "column declared without a field name"}
		}
		if _, dup := t.fieldToColumn[c.Field]; dup {
			return nil, &ConfigError{Entity: entity, Table: s.Table, Reason: "field " + c.Field + " declared twice"}
		}

		column := c.Column
		if column == "" {
			column = mapper(c.Field)
		}
		if column == "" {
			return nil, &ConfigError{Entity: entity, Table: s.Table, Reason: "field " + c.Field + " maps to an empty column"}
		}
		if _, dup := t.columnSet[column]; dup {
			return nil, &ConfigError{Entity: entity, Table: s.Table, Reason: "column " + column + " mapped by more than one field"}
		}

		t.fields = append(t.fields, c.Field)
		t.columns = append(t.columns, column)
		t.fieldToColumn[c.Field] = column
		t.columnSet[column] = struct{}{}
		if column != c.Field {
			t.columnToField[column] = c.Field
		}
	}

	t.primaryKey = t.pickPrimaryKey(s.PrimaryKey)
	return t, nil
}

// pickPrimaryKey resolves the declared key (field or column name), then
// falls back to ID/Id fields and finally DefaultPrimaryKey.
func (t *Table) pickPrimaryKey(declared string) string {
	if declared != "" {
		if col, ok := t.Resolve(declared); ok {
			return col
		}
		return declared
	}
	for _, f := range []string{"ID", "Id"} {
		if col, ok := t.fieldToColumn[f]; ok {
			return col
		}
	}
	return DefaultPrimaryKey
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// PrimaryKey returns the primary key column.
func (t *Table) PrimaryKey() string { return t.primaryKey }

// Column returns the column mapped to a field.
func (t *Table) Column(field string) (string, bool) {
	col, ok := t.fieldToColumn[field]
	return col, ok
}

// Field returns the field for a renamed column.
// Columns whose name equals their field name are not reported.
func (t *Table) Field(column string) (string, bool) {
	f, ok := t.columnToField[column]
	return f, ok
}

// HasColumn reports whether column belongs to the table.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.columnSet[column]
	return ok
}

// Resolve maps a name that may be either a field or a column to its column.
func (t *Table) Resolve(name string) (string, bool) {
	if col, ok := t.fieldToColumn[name]; ok {
		return col, true
	}
	if t.HasColumn(name) {
		return name, true
	}
	return "", false
}

// ColumnOrName maps a field to its column, falling back to name unchanged.
func (t *Table) ColumnOrName(name string) string {
	if col, ok := t.fieldToColumn[name]; ok {
		return col
	}
	return name
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Fields returns the fields in declaration order.
func (t *Table) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}
