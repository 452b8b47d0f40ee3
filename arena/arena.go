// Package arena stores values in slots addressed by generational handles.
//
// A handle stays valid until its slot is removed; after that, the slot may be
// reused but the old handle no longer resolves because the slot's generation
// moved on.
package arena

// Handle addresses a slot of an Arena.
// The zero Handle never resolves.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.Generation == 0
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Arena is a slot map. The zero value is ready to use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	len   int
}

// Insert stores value and returns its handle.
func (a *Arena[T]) Insert(value T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}

	s := &a.slots[idx]
	s.generation++
	s.value = value
	s.occupied = true
	a.len++

	return Handle{Index: idx, Generation: s.generation}
}

// Get returns the value for h, or false if h is stale or unknown.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if !a.Contains(h) {
		return zero, false
	}
	return a.slots[h.Index].value, true
}

// Contains reports whether h resolves.
func (a *Arena[T]) Contains(h Handle) bool {
	if h.Generation == 0 || int(h.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.Index]
	return s.occupied && s.generation == h.Generation
}

// Remove deletes the value for h and returns it.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !a.Contains(h) {
		return zero, false
	}
	s := &a.slots[h.Index]
	value := s.value
	s.value = zero
	s.occupied = false
	a.free = append(a.free, h.Index)
	a.len--

	return value, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.len
}

// Each calls fn for every live value in slot order. Iteration stops when fn
// returns false. fn must not insert or remove.
func (a *Arena[T]) Each(fn func(h Handle, value T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: s.generation}, s.value) {
			return
		}
	}
}

// Handles returns the live handles in slot order.
func (a *Arena[T]) Handles() []Handle {
	handles := make([]Handle, 0, a.len)
	a.Each(func(h Handle, _ T) bool {
		handles = append(handles, h)
		return true
	})
	return handles
}
