package dao

import "iter"

// TotalUnknown is the Total of a window whose count was not requested.
const TotalUnknown int64 = -1

// Window is a page of results: the items plus the offset and limit that
// produced them and, when an offset was given, the total row count.
type Window[T any] struct {
	items  []T
	offset *int
	limit  *int
	total  int64
}

func NewWindow[T any](items []T, offset, limit *int, total int64) *Window[T] {
	return &Window[T]{items: items, offset: copyBound(offset), limit: copyBound(limit), total: total}
}

func copyBound(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Bound is a convenience for passing literal offsets and limits.
func Bound(n int) *int {
	return &n
}

func (w *Window[T]) Offset() (int, bool) {
	if w.offset == nil {
		return 0, false
	}
	return *w.offset, true
}

func (w *Window[T]) Limit() (int, bool) {
	if w.limit == nil {
		return 0, false
	}
	return *w.limit, true
}

// Total is the row count of the unpaginated query, or TotalUnknown.
func (w *Window[T]) Total() int64 {
	return w.total
}

func (w *Window[T]) Items() []T {
	return w.items
}

func (w *Window[T]) Len() int {
	return len(w.items)
}

func (w *Window[T]) At(i int) T {
	return w.items[i]
}

func (w *Window[T]) Set(i int, v T) {
	w.items[i] = v
}

func (w *Window[T]) Append(v ...T) {
	w.items = append(w.items, v...)
}

func (w *Window[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range w.items {
			if !yield(i, v) {
				return
			}
		}
	}
}
