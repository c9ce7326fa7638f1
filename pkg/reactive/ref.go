package reactive

import "reflect"

// Ref is a read-only view of one field of a Store.
type Ref[T any] struct {
	get       func() T
	subscribe func(func(T)) func()
	equal     func(a, b T) bool
}

// Field returns a Ref that reads sel from the store's record. Watchers of the
// Ref fire only when the selected value changes, compared with
// reflect.DeepEqual.
func Field[S, T any](s *Store[S], sel func(S) T) *Ref[T] {
	return &Ref[T]{
		get: func() T { return sel(s.Get()) },
		subscribe: func(fn func(T)) func() {
			return s.Subscribe(func(state S) { fn(sel(state)) })
		},
		equal: func(a, b T) bool { return reflect.DeepEqual(a, b) },
	}
}

// Get returns the current value.
func (r *Ref[T]) Get() T {
	return r.get()
}

// Watch calls fn with the new value each time it changes. The returned
// function stops watching.
func (r *Ref[T]) Watch(fn func(T)) (stop func()) {
	if fn == nil {
		return func() {}
	}

	// last is only touched on the dispatcher goroutine after this point
	last := r.get()
	return r.subscribe(func(v T) {
		if r.equal(last, v) {
			return
		}
		last = v
		fn(v)
	})
}
