// Package registry maps application handles to tracked object state.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ugparu/vkvideo"
)

// Table is a concurrency-safe handle to object map.
type Table[T any] struct {
	mu    sync.RWMutex
	items map[vkvideo.Handle]*T
	next  atomic.Uint64
}

// New creates an empty table. Generated handles start at base+1.
func New[T any](base uint64) *Table[T] {
	t := &Table[T]{items: make(map[vkvideo.Handle]*T)}
	t.next.Store(base)
	return t
}

// NextHandle returns a fresh handle value that has never been returned before.
func (t *Table[T]) NextHandle() vkvideo.Handle {
	return vkvideo.Handle(t.next.Add(1))
}

// Put stores obj under h, replacing whatever was there.
func (t *Table[T]) Put(h vkvideo.Handle, obj *T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[h] = obj
}

// Get returns the object stored under h.
func (t *Table[T]) Get(h vkvideo.Handle) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	obj, ok := t.items[h]
	return obj, ok
}

// Delete removes h and returns the object that was stored under it.
func (t *Table[T]) Delete(h vkvideo.Handle) (*T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.items[h]
	delete(t.items, h)
	return obj, ok
}

// Len returns the number of stored objects.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Handles returns all stored handles in ascending order.
func (t *Table[T]) Handles() []vkvideo.Handle {
	t.mu.RLock()
	out := make([]vkvideo.Handle, 0, len(t.items))
	for h := range t.items {
		out = append(out, h)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
