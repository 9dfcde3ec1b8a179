package metrigo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/metrigo/index"
)

// IndexDecl declares a vector index over a table field.
type IndexDecl struct {
	// Table is the name of the table the indexed field belongs to.
	Table string

	// Field is the name of the indexed vector field.
	Field string

	// Dimension is the fixed vector dimensionality.
	Dimension int

	// DistanceKind is the distance function the index serves.
	DistanceKind index.DistanceKind
}

// Name returns the registry key for the declaration, "table.field".
func (d IndexDecl) Name() string {
	return d.Table + "." + d.Field
}

func (d IndexDecl) validate() error {
	if d.Table == "" || d.Field == "" {
		return fmt.Errorf("index declaration needs a table and a field, got %q", d.Name())
	}
	return nil
}

// Registry manages named vector indexes declared per table field.
// It is safe for concurrent use.
type Registry[T any] struct {
	mu      sync.RWMutex
	logger  *Logger
	indexes map[string]*registryEntry[T]
}

type registryEntry[T any] struct {
	decl IndexDecl
	db   *Metrigo[T]
}

// RegistryOptions contains configuration options for the registry.
type RegistryOptions struct {
	// Logger is the structured logger for index lifecycle events.
	Logger *Logger
}

// NewRegistry creates a new empty registry.
func NewRegistry[T any](optFns ...func(o *RegistryOptions)) *Registry[T] {
	opts := RegistryOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}

	return &Registry[T]{
		logger:  opts.Logger,
		indexes: make(map[string]*registryEntry[T]),
	}
}

// CreateIndex creates the index described by decl, or returns the existing
// one when an identical declaration is already registered (IF NOT EXISTS
// semantics). A declaration that diverges from the registered one fails with
// ErrSchemaConflict and leaves the existing index untouched.
//
// buildFns customize the builder beyond the declaration, e.g. node capacity
// or a metrics collector. They are only applied when the index is actually
// created. The boolean result reports whether a new index was built.
func (r *Registry[T]) CreateIndex(ctx context.Context, decl IndexDecl, buildFns ...func(b MTreeBuilder[T]) MTreeBuilder[T]) (*Metrigo[T], bool, error) {
	if err := decl.validate(); err != nil {
		return nil, false, err
	}

	name := decl.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.indexes[name]; ok {
		if existing.decl != decl {
			err := &ErrSchemaConflict{Name: name, Existing: existing.decl, Requested: decl}
			r.logger.LogCreateIndex(ctx, name, decl.Dimension, false, err)
			return nil, false, err
		}
		r.logger.LogCreateIndex(ctx, name, decl.Dimension, false, nil)
		return existing.db, false, nil
	}

	b := MTree[T](decl.Dimension)
	b.distanceKind = decl.DistanceKind

	for _, fn := range buildFns {
		b = fn(b)
	}

	db, err := b.Build()
	if err != nil {
		r.logger.LogCreateIndex(ctx, name, decl.Dimension, false, err)
		return nil, false, err
	}

	r.indexes[name] = &registryEntry[T]{decl: decl, db: db}
	r.logger.LogCreateIndex(ctx, name, decl.Dimension, true, nil)

	return db, true, nil
}

// Get returns the index registered under the given name.
func (r *Registry[T]) Get(name string) (*Metrigo[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.indexes[name]
	if !ok {
		return nil, false
	}
	return entry.db, true
}

// Decl returns the declaration registered under the given name.
func (r *Registry[T]) Decl(name string) (IndexDecl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.indexes[name]
	if !ok {
		return IndexDecl{}, false
	}
	return entry.decl, true
}

// Has reports whether an index is registered under the given name.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.indexes[name]
	return ok
}

// DropIndex removes the index registered under the given name and reports
// whether it existed.
func (r *Registry[T]) DropIndex(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.indexes[name]
	delete(r.indexes, name)
	return ok
}

// Names returns the registered index names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

// Len returns the number of registered indexes.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.indexes)
}
