package pager

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrFetchInFlight is returned when a page fetch is requested while a
	// previous one has not resolved yet.
	ErrFetchInFlight = errors.New("pager: fetch already in flight")
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("pager: page number must be >= 1")
)

// FetchFunc loads one page of a remote list.
type FetchFunc[T any] func(ctx context.Context, page, limit int) ([]T, error)

// Cursor drives infinite-scroll pagination over one remote list: it tracks
// the current page, a fixed page size, a has-more flag inferred from page
// fullness, and an in-flight flag that serializes fetches.
type Cursor[T any] struct {
	mu       sync.Mutex
	fetch    FetchFunc[T]
	limit    int
	page     int
	hasMore  bool
	inFlight bool
	list     *Accumulator[T]
}

// NewCursor builds a cursor for the given fetch function and page size.
func NewCursor[T any](fetch FetchFunc[T], limit int, idOf func(T) string) *Cursor[T] {
	if fetch == nil {
		panic("pager: fetch function required")
	}
	if limit < 1 {
		limit = 1
	}
	return &Cursor[T]{
		fetch:   fetch,
		limit:   limit,
		hasMore: true,
		list:    NewAccumulator[T](idOf),
	}
}

// FetchPage loads the given page and merges it into the local list. With
// replace set, the local list becomes exactly the fetched page; otherwise
// unseen items are appended in arrival order. A short page (fewer than limit
// items) marks the end of the list. On failure paging stops (has-more forced
// false) but already-loaded items are kept.
func (c *Cursor[T]) FetchPage(ctx context.Context, page int, replace bool) error {
	if page < 1 {
		return ErrInvalidPage
	}
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrFetchInFlight
	}
	c.inFlight = true
	fetch := c.fetch
	limit := c.limit
	c.mu.Unlock()

	items, err := fetch(ctx, page, limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		c.hasMore = false
		return err
	}
	if replace {
		c.list.Replace(items)
	} else {
		c.list.Append(items)
	}
	c.page = page
	c.hasMore = len(items) == limit
	return nil
}

// Advance fetches the next page in append mode. It is the sentinel-visibility
// trigger of the scrolling UI; the in-flight flag is the only debounce.
func (c *Cursor[T]) Advance(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	next := c.page + 1
	c.mu.Unlock()
	err := c.FetchPage(ctx, next, false)
	if errors.Is(err, ErrFetchInFlight) {
		return nil
	}
	return err
}

// Reset clears the local list and performs a replacing fetch of page 1,
// used when the filter set changes.
func (c *Cursor[T]) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrFetchInFlight
	}
	c.list.Clear()
	c.page = 0
	c.hasMore = true
	c.mu.Unlock()
	return c.FetchPage(ctx, 1, true)
}

// Merge appends out-of-band items (e.g. push-delivered) into the local list
// under the same dedup rules as a fetched page, without touching the page
// counter or the has-more flag. It returns the number of items added.
func (c *Cursor[T]) Merge(items []T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Append(items)
}

// Items returns a copy of the accumulated list.
func (c *Cursor[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Items()
}

// Len returns the number of accumulated entries.
func (c *Cursor[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// HasMore reports whether another page may exist.
func (c *Cursor[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// InFlight reports whether a fetch is currently outstanding.
func (c *Cursor[T]) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Page returns the last successfully fetched page number, 0 before the
// first fetch.
func (c *Cursor[T]) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}
