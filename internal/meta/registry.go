// Package meta resolves entity types and explicit schemas into table metadata:
// the field-to-column and column-to-field mappings that statement building
// depends on. A Registry builds each table once and caches it for its lifetime.
package meta

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry caches resolved tables by Go type and by table name.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Table
	byName map[string]*Table
	owners map[string]string // table name -> entity that registered it
	mapper NameMapper
}

// Option configures a Registry.
type Option func(*Registry)

// WithNameMapper sets how column names are derived from untagged fields.
// The default keeps field names unchanged.
func WithNameMapper(m NameMapper) Option {
	return func(r *Registry) {
		if m != nil {
			r.mapper = m
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byType: make(map[reflect.Type]*Table),
		byName: make(map[string]*Table),
		owners: make(map[string]string),
		mapper: Identity,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the table for an entity. The entity may be a struct value
// or pointer whose type implements TableNamer, an already resolved *Table,
// or a registered table name.
func (r *Registry) Resolve(entity any) (*Table, error) {
	switch e := entity.(type) {
	case nil:
		return nil, &ConfigError{Reason: "nil entity"}
	case *Table:
		return e, nil
	case string:
		return r.Lookup(e)
	}

	typ := reflect.TypeOf(entity)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	// Fast path: check cache with read lock
	r.mu.RLock()
	t, ok := r.byType[typ]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	// Slow path: build with write lock
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if t, ok := r.byType[typ]; ok {
		return t, nil
	}

	t, err := r.build(typ)
	if err != nil {
		return nil, err
	}
	if err := r.store(typ.String(), t); err != nil {
		return nil, err
	}
	r.byType[typ] = t
	return t, nil
}

// build reflects over typ. Must be called with the write lock held.
func (r *Registry) build(typ reflect.Type) (*Table, error) {
	if typ.Kind() != reflect.Struct {
		return nil, &ConfigError{Entity: typ.String(), Reason: fmt.Sprintf("expected struct, got %s", typ.Kind())}
	}

	namer, ok := reflect.New(typ).Interface().(TableNamer)
	if !ok {
		return nil, &ConfigError{Entity: typ.String(), Reason: "type does not declare a table name"}
	}
	name := namer.TableName()
	if name == "" {
		return nil, &ConfigError{Entity: typ.String(), Reason: "table name is empty"}
	}

	s, err := schemaOf(typ, name)
	if err != nil {
		return nil, err
	}
	return newTable(typ.String(), s, r.mapper)
}

// Register adds an explicit schema. Registering a table name twice fails.
func (r *Registry) Register(s Schema) (*Table, error) {
	t, err := newTable("schema "+s.Table, s, r.mapper)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store("schema "+s.Table, t); err != nil {
		return nil, err
	}
	return t, nil
}

// store indexes t by name. Must be called with the write lock held.
func (r *Registry) store(entity string, t *Table) error {
	if owner, dup := r.owners[t.name]; dup {
		return &ConfigError{
			Entity: entity,
			Table:  t.name,
			Reason: "table name already registered by " + owner,
		}
	}
	r.owners[t.name] = entity
	r.byName[t.name] = t
	return nil
}

// Lookup returns a previously resolved or registered table by name.
func (r *Registry) Lookup(name string) (*Table, error) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigError{Table: name, Reason: "unknown table"}
	}
	return t, nil
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
