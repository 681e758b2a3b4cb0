// Package registry keeps mutable collections of simulated entities keyed by
// sequential ids.
package registry

import (
	"fmt"
	"strconv"
)

// Entry pairs an entity with its id.
type Entry[T any] struct {
	ID    string
	Value T
}

// Registry is an insertion-ordered collection with ids of the form
// PREFIX-n. The counter only moves forward, so ids are never reused.
// Not safe for concurrent use; owners serialise access.
type Registry[T any] struct {
	prefix string
	width  int
	next   int
	order  []string
	items  map[string]*T
	hooks  []func(id string)
}

// Option configures a registry.
type Option func(*options)

type options struct {
	width int
}

// Padded zero-pads the numeric part of ids to width digits (BIN-001).
func Padded(width int) Option {
	return func(o *options) { o.width = width }
}

// New creates an empty registry whose first id is PREFIX-seed.
func New[T any](prefix string, seed int, opts ...Option) *Registry[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[T]{
		prefix: prefix,
		width:  o.width,
		next:   seed,
		items:  make(map[string]*T),
	}
}

// Add stores v and returns its newly assigned id.
func (r *Registry[T]) Add(v T) string {
	id := r.NextID()
	r.next++
	r.items[id] = &v
	r.order = append(r.order, id)
	return id
}

// NextID previews the id the next Add will assign.
func (r *Registry[T]) NextID() string {
	if r.width > 0 {
		return fmt.Sprintf("%s-%0*d", r.prefix, r.width, r.next)
	}
	return r.prefix + "-" + strconv.Itoa(r.next)
}

// Get returns a copy of an entity.
func (r *Registry[T]) Get(id string) (T, error) {
	v, ok := r.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *v, nil
}

// Has reports whether id is present.
func (r *Registry[T]) Has(id string) bool {
	_, ok := r.items[id]
	return ok
}

// Update applies fn to the stored entity in place.
func (r *Registry[T]) Update(id string, fn func(*T)) error {
	v, ok := r.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(v)
	return nil
}

// Remove deletes an entity and runs the OnRemove hooks for it.
// Unknown ids leave the collection untouched.
func (r *Registry[T]) Remove(id string) error {
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.items, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	for _, h := range r.hooks {
		h(id)
	}
	return nil
}

// OnRemove registers a cascade hook, e.g. dropping alert state for the id.
func (r *Registry[T]) OnRemove(hook func(id string)) {
	r.hooks = append(r.hooks, hook)
}

// Each visits entities in insertion order and allows in-place mutation.
// fn must not add or remove entities.
func (r *Registry[T]) Each(fn func(id string, v *T)) {
	for _, id := range r.order {
		fn(id, r.items[id])
	}
}

// List copies the collection in insertion order.
func (r *Registry[T]) List() []Entry[T] {
	out := make([]Entry[T], 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Entry[T]{ID: id, Value: *r.items[id]})
	}
	return out
}

// Len returns the number of entities.
func (r *Registry[T]) Len() int { return len(r.order) }
