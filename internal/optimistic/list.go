// Package optimistic holds the list type page controllers keep between
// fetches. Mutations are applied locally once the backend confirms them and
// are never reconciled with the server afterwards.
package optimistic

// List is an ordered, copy-on-write collection keyed by an id function.
// The zero value is not usable; call New.
type List[T any] struct {
	id    func(T) string
	items []T
}

// New returns an empty list keyed by id.
func New[T any](id func(T) string) List[T] {
	return List[T]{id: id}
}

// Replace swaps in a fresh fetch from the server.
func (l List[T]) Replace(items []T) List[T] {
	out := make([]T, len(items))
	copy(out, items)
	return List[T]{id: l.id, items: out}
}

// Created appends the item the backend returned for a create call.
func (l List[T]) Created(item T) List[T] {
	out := make([]T, 0, len(l.items)+1)
	out = append(out, l.items...)
	out = append(out, item)
	return List[T]{id: l.id, items: out}
}

// Deleted drops every item whose id matches.
func (l List[T]) Deleted(id string) List[T] {
	out := make([]T, 0, len(l.items))
	for _, it := range l.items {
		if l.id(it) != id {
			out = append(out, it)
		}
	}
	return List[T]{id: l.id, items: out}
}

// Items returns a copy of the current contents.
func (l List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len is the number of items.
func (l List[T]) Len() int {
	return len(l.items)
}

// At returns the item at i.
func (l List[T]) At(i int) T {
	return l.items[i]
}

// Index returns the position of id, or -1.
func (l List[T]) Index(id string) int {
	for i, it := range l.items {
		if l.id(it) == id {
			return i
		}
	}
	return -1
}
