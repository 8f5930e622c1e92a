// ABOUTME: Registry of trackable entity types and their prototype instances
// ABOUTME: Maps type tokens to prototypes and Go runtime types to EntityType names

package recent

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Registry maps entity type names to prototype instances. A type token passed
// to the tracker resolves only through here, and reconciliation skips types
// that are not registered. Queryable instances seen by the tracker are adopted
// on first use.
type Registry struct {
	mu     sync.RWMutex
	byName map[EntityType]Queryable
	byType map[reflect.Type]EntityType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[EntityType]Queryable),
		byType: make(map[reflect.Type]EntityType),
	}
}

// Register adds a type under name with prototype as its default instance.
func (r *Registry) Register(name EntityType, prototype Queryable) error {
	if name == "" {
		return fmt.Errorf("registering entity type: empty name")
	}
	if strings.Contains(string(name), ".") {
		return fmt.Errorf("registering entity type %q: name must not contain '.'", name)
	}
	if prototype == nil {
		return fmt.Errorf("registering entity type %q: nil prototype", name)
	}
	if typed, ok := prototype.(Typed); ok && typed.EntityType() != name {
		return fmt.Errorf("registering entity type %q: prototype reports %q", name, typed.EntityType())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("registering entity type %q: already registered", name)
	}
	r.byName[name] = prototype
	r.byType[reflect.TypeOf(prototype)] = name
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name EntityType, prototype Queryable) {
	if err := r.Register(name, prototype); err != nil {
		panic(err)
	}
}

// Lookup returns the prototype registered under name.
func (r *Registry) Lookup(name EntityType) (Queryable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// TypeOf derives the EntityType of an instance: its own EntityType method,
// then the registered name for its Go type, then the package-qualified Go
// type name with dots replaced by underscores.
func (r *Registry) TypeOf(v any) EntityType {
	if typed, ok := v.(Typed); ok {
		return typed.EntityType()
	}

	rt := reflect.TypeOf(v)
	r.mu.RLock()
	name, ok := r.byType[rt]
	r.mu.RUnlock()
	if ok {
		return name
	}

	return EntityType(typeName(rt))
}

// Resolve derives the EntityType of v and reports whether that type is
// registered. An unregistered Queryable is registered under the derived name
// with v as its prototype.
func (r *Registry) Resolve(v any) (EntityType, bool) {
	name := r.TypeOf(v)

	r.mu.RLock()
	_, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return name, true
	}

	proto, ok := v.(Queryable)
	if !ok {
		return name, false
	}
	err := r.Register(name, proto)
	if err == nil {
		return name, true
	}
	// Lost a race with another adopter.
	if _, ok := r.Lookup(name); ok {
		return name, true
	}
	return name, false
}

// Types lists the registered names in sorted order.
func (r *Registry) Types() []EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EntityType, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func typeName(rt reflect.Type) string {
	if rt == nil {
		return "<nil>"
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	name := rt.String()
	if rt.PkgPath() != "" {
		name = rt.PkgPath() + "." + rt.Name()
	}
	// Dots nest session keys.
	return strings.ReplaceAll(name, ".", "_")
}
