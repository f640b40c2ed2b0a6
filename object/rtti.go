package object

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// RTTI: run-time type records
// ---------------------------------------------------------------------------

// RTTI is a static type record carrying a type name and a
// single-inheritance parent pointer. Records form a tree; derivation
// checks walk the base chain.
type RTTI struct {
	name *Symbol
	base *RTTI
}

// NewRTTI creates a type record. Type records are created at program
// init and live for the process; their name symbols are never released.
func NewRTTI(name string, base *RTTI) *RTTI {
	return &RTTI{name: GetSymbol(name), base: base}
}

// Name returns the type's interned name symbol.
func (r *RTTI) Name() *Symbol { return r.name }

// TypeName returns the type name bytes.
func (r *RTTI) TypeName() string { return r.name.Name() }

// Base returns the parent type record, or nil at the root.
func (r *RTTI) Base() *RTTI { return r.base }

// IsDerivedFrom reports whether r is other or inherits from it.
func (r *RTTI) IsDerivedFrom(other *RTTI) bool {
	for t := r; t != nil; t = t.base {
		if t == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Factory registry
// ---------------------------------------------------------------------------

// Factory constructs an empty instance of a serializable type. The
// loader calls it once per saved object, then hands the instance its
// saved bytes through Load.
type Factory func() Serializable

// Registry maps type names to factories. Classes register at program
// init; lookups happen during load.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a factory to a type record's name. A second
// registration for the same name replaces the first.
func (reg *Registry) Register(rt *RTTI, f Factory) {
	reg.mu.Lock()
	reg.factories[rt.TypeName()] = f
	reg.mu.Unlock()
}

// New constructs an empty instance for the given type name.
func (reg *Registry) New(typeName string) (Serializable, error) {
	reg.mu.RLock()
	f, ok := reg.factories[typeName]
	reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return f(), nil
}

// DefaultRegistry is the process-wide registry used by loaders unless
// another is supplied.
var DefaultRegistry = NewRegistry()

// Register binds a factory in the default registry.
func Register(rt *RTTI, f Factory) {
	DefaultRegistry.Register(rt, f)
}
