package memory

import (
	"slices"
	"strings"
	"sync"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Entity is what a Repository can hold. Clone must return a copy that shares no mutable
// memory with the receiver.
type Entity[T any] interface {
	EntityID() string
	Clone() T
}

type sortable interface {
	SortKey() string
}

// Options injects the entity specific rules into a Repository.
type Options[T any] struct {
	// Validate runs before every write.
	Validate func(T) error
	// UniqueKey, when set, must be distinct across stored entities (compared case-insensitively).
	UniqueKey func(T) string
	// UniqueField names the unique key in conflict messages.
	UniqueField string
}

// Repository is an in-process store for one entity kind. Reads return clones, so callers can
// never mutate stored state without going through a write method.
type Repository[T Entity[T]] struct {
	mu     sync.RWMutex
	entity string
	opts   Options[T]
	items  map[string]T
	order  []string
}

// NewRepository creates an empty repository for the named entity kind.
func NewRepository[T Entity[T]](entity string, opts Options[T]) *Repository[T] {
	return &Repository[T]{
		entity: entity,
		opts:   opts,
		items:  make(map[string]T),
	}
}

// Create stores a new entity.
func (r *Repository[T]) Create(v T) (T, error) {
	var zero T
	id := v.EntityID()
	if strings.TrimSpace(id) == "" {
		return zero, models.Validationf(r.entity, "", "id is required")
	}
	if err := r.validate(v); err != nil {
		return zero, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; exists {
		return zero, models.Conflictf(r.entity, id, "already exists")
	}
	if err := r.checkUnique(v); err != nil {
		return zero, err
	}
	r.items[id] = v.Clone()
	r.order = append(r.order, id)
	return v.Clone(), nil
}

// Get returns a copy of the entity with the given id.
func (r *Repository[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.items[id]
	if !ok {
		var zero T
		return zero, models.NotFound(r.entity, id)
	}
	return v.Clone(), nil
}

// GetMany returns copies of every requested entity from one consistent read.
func (r *Repository[T]) GetMany(ids []string) (map[string]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]T, len(ids))
	for _, id := range ids {
		v, ok := r.items[id]
		if !ok {
			return nil, models.NotFound(r.entity, id)
		}
		out[id] = v.Clone()
	}
	return out, nil
}

// List returns every entity, ordered by SortKey when T provides one and by insertion otherwise.
func (r *Repository[T]) List() []T {
	return r.Find(nil)
}

// Find returns the entities matching pred, in List order. A nil pred matches everything.
func (r *Repository[T]) Find(pred func(T) bool) []T {
	r.mu.RLock()
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		v := r.items[id]
		if pred == nil || pred(v) {
			out = append(out, v.Clone())
		}
	}
	r.mu.RUnlock()

	sortByKey(out)
	return out
}

// Any reports whether at least one entity matches pred.
func (r *Repository[T]) Any(pred func(T) bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.items {
		if pred(v) {
			return true
		}
	}
	return false
}

// Len returns the number of stored entities.
func (r *Repository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Mutate applies fn to a copy of the stored entity and writes the result back if fn succeeds
// and the result validates. fn runs under the write lock and must not call back into r.
func (r *Repository[T]) Mutate(id string, fn func(T) (T, error)) (T, error) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return zero, models.NotFound(r.entity, id)
	}
	next, err := fn(current.Clone())
	if err != nil {
		return zero, err
	}
	if next.EntityID() != id {
		return zero, models.Validationf(r.entity, id, "id cannot change")
	}
	if err := r.validate(next); err != nil {
		return zero, err
	}
	if err := r.checkUnique(next); err != nil {
		return zero, err
	}
	r.items[id] = next.Clone()
	return next.Clone(), nil
}

// Delete removes the entity with the given id.
func (r *Repository[T]) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return models.NotFound(r.entity, id)
	}
	delete(r.items, id)
	r.order = slices.DeleteFunc(r.order, func(existing string) bool { return existing == id })
	return nil
}

func (r *Repository[T]) validate(v T) error {
	if r.opts.Validate == nil {
		return nil
	}
	return r.opts.Validate(v)
}

// checkUnique must be called with the write lock held.
func (r *Repository[T]) checkUnique(v T) error {
	if r.opts.UniqueKey == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(r.opts.UniqueKey(v)))
	for id, existing := range r.items {
		if id == v.EntityID() {
			continue
		}
		if strings.ToLower(strings.TrimSpace(r.opts.UniqueKey(existing))) == key {
			field := r.opts.UniqueField
			if field == "" {
				field = "key"
			}
			return models.Conflictf(r.entity, v.EntityID(), "%s %q is already used by %s", field, r.opts.UniqueKey(v), id)
		}
	}
	return nil
}

func sortByKey[T any](items []T) {
	if len(items) < 2 {
		return
	}
	if _, ok := any(items[0]).(sortable); !ok {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		return strings.Compare(any(a).(sortable).SortKey(), any(b).(sortable).SortKey())
	})
}
