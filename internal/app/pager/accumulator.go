package pager

// Accumulator merges fetched pages into a deduplicated, order-preserving
// local list keyed by entity id. It is not safe for concurrent use on its
// own; the Cursor serializes access.
type Accumulator[T any] struct {
	idOf  func(T) string
	seen  map[string]struct{}
	items []T
}

// NewAccumulator builds an empty accumulator using idOf to key entries.
func NewAccumulator[T any](idOf func(T) string) *Accumulator[T] {
	if idOf == nil {
		panic("pager: id function required")
	}
	return &Accumulator[T]{
		idOf: idOf,
		seen: make(map[string]struct{}),
	}
}

// Replace discards the current list and takes the given page as the new
// content, still deduplicating within the page itself.
func (a *Accumulator[T]) Replace(page []T) {
	a.seen = make(map[string]struct{}, len(page))
	a.items = a.items[:0]
	a.Append(page)
}

// Append adds items whose id is not already present, preserving arrival
// order. It returns the number of items actually added.
func (a *Accumulator[T]) Append(page []T) int {
	added := 0
	for _, item := range page {
		id := a.idOf(item)
		if _, ok := a.seen[id]; ok {
			continue
		}
		a.seen[id] = struct{}{}
		a.items = append(a.items, item)
		added++
	}
	return added
}

// Contains reports whether an entity id is already accumulated.
func (a *Accumulator[T]) Contains(id string) bool {
	_, ok := a.seen[id]
	return ok
}

// Items returns a copy of the accumulated list.
func (a *Accumulator[T]) Items() []T {
	out := make([]T, len(a.items))
	copy(out, a.items)
	return out
}

// Len returns the number of accumulated entries.
func (a *Accumulator[T]) Len() int {
	return len(a.items)
}

// Clear empties the accumulator.
func (a *Accumulator[T]) Clear() {
	a.seen = make(map[string]struct{})
	a.items = a.items[:0]
}
