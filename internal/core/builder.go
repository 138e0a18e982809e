package core

import (
	"github.com/coregx/querykit/internal/dialects"
	"github.com/coregx/querykit/internal/logger"
	"github.com/coregx/querykit/internal/meta"
)

// Builder compiles descriptors into statements for one dialect.
// It holds no per-statement state and is safe for concurrent use.
type Builder struct {
	dialect  dialects.Dialect
	registry *meta.Registry
	logger   logger.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the logger used for builder warnings.
func WithBuilderLogger(l logger.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder. A nil registry is replaced by an empty one.
func NewBuilder(dialect dialects.Dialect, registry *meta.Registry, opts ...BuilderOption) *Builder {
	if registry == nil {
		registry = meta.NewRegistry()
	}
	b := &Builder{
		dialect:  dialect,
		registry: registry,
		logger:   &logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() dialects.Dialect {
	return b.dialect
}

// Registry returns the metadata registry.
func (b *Builder) Registry() *meta.Registry {
	return b.registry
}

// resolve checks d and returns the table of entity.
func (b *Builder) resolve(op string, entity any, d *Descriptor) (*meta.Table, error) {
	if d == nil {
		return nil, WrapError(ErrNilDescriptor, op)
	}
	if d.err != nil {
		return nil, d.err
	}
	return b.registry.Resolve(entity)
}

func (b *Builder) newCompiler(params Params, mutation bool) *compiler {
	if params == nil {
		params = Params{}
	}
	return &compiler{
		dialect:  b.dialect,
		registry: b.registry,
		log:      b.logger,
		params:   params,
		mutation: mutation,
	}
}
