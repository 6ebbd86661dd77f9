package pages

// List is an ordered collection of server entities identified by id. It is
// not safe for concurrent use; pages guard it with their own mutex.
type List[T any] struct {
	id    func(T) string
	items []T
}

// NewList creates an empty list using id to identify items.
func NewList[T any](id func(T) string) *List[T] {
	return &List[T]{id: id}
}

// Replace swaps the whole collection, keeping the given order.
func (l *List[T]) Replace(items []T) {
	l.items = append([]T(nil), items...)
}

// Prepend inserts item at the front.
func (l *List[T]) Prepend(item T) {
	l.items = append([]T{item}, l.items...)
}

// Upsert replaces the item with the same id in place, or prepends it when
// no such item exists.
func (l *List[T]) Upsert(item T) {
	key := l.id(item)
	for i := range l.items {
		if l.id(l.items[i]) == key {
			l.items[i] = item
			return
		}
	}
	l.Prepend(item)
}

// Update runs fn on the item with id and reports whether it was found.
func (l *List[T]) Update(id string, fn func(*T)) bool {
	for i := range l.items {
		if l.id(l.items[i]) == id {
			fn(&l.items[i])
			return true
		}
	}
	return false
}

// Remove deletes the item with id and reports whether it was present.
func (l *List[T]) Remove(id string) bool {
	for i := range l.items {
		if l.id(l.items[i]) == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the item with id.
func (l *List[T]) Find(id string) (T, bool) {
	for _, item := range l.items {
		if l.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Items returns a copy of the collection.
func (l *List[T]) Items() []T {
	return append([]T{}, l.items...)
}

// Len returns the number of items.
func (l *List[T]) Len() int { return len(l.items) }
