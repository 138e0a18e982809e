package core

// Delete compiles d's filters into a DELETE of the table of entity.
// A DELETE without a WHERE clause is rejected.
func (b *Builder) Delete(entity any, d *Descriptor) (Statement, error) {
	tb, err := b.resolve("Delete", entity, d)
	if err != nil {
		return Statement{}, err
	}
	params := Params{}
	where, err := b.mutationWhere("Delete", tb, d, 0, params)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "delete from " + tb.Name() + " where " + where, Params: params}, nil
}

// DeleteByID deletes the row whose primary key is id.
func (b *Builder) DeleteByID(entity any, id any) (Statement, error) {
	if id == nil {
		return Statement{}, invalid("DeleteByID", "", "id is nil")
	}
	tb, err := b.registry.Resolve(entity)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:    "delete from " + tb.Name() + " where " + tb.PrimaryKey() + " = " + placeholder(idKey),
		Params: Params{idKey: id},
	}, nil
}
