// Package handles maps Go values to integer handles that can be passed
// through C as opaque pointers and resolved again inside callbacks.
//
// Go pointers must not be stored in C memory, so AVIO callbacks receive a
// handle and look the reader up here.
package handles

import "sync"

// Table is a concurrency-safe handle table. The zero value is ready to use.
// Handle 0 is never issued.
type Table[T any] struct {
	mu     sync.RWMutex
	values map[uintptr]T
	next   uintptr
}

// Register stores v and returns its handle.
func (t *Table[T]) Register(v T) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.values == nil {
		t.values = make(map[uintptr]T)
	}
	t.next++
	t.values[t.next] = v
	return t.next
}

// Lookup returns the value for h and whether it is registered.
func (t *Table[T]) Lookup(h uintptr) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[h]
	return v, ok
}

// Unregister releases h. Unknown handles are ignored.
func (t *Table[T]) Unregister(h uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, h)
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}
