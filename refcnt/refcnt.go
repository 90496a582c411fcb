package refcnt

import "reflect"

// Countable is an object that is reference counted. Types become countable by
// embedding a *Object.
type Countable interface {
	// AddRef takes a strong reference.
	AddRef()

	// Release drops a strong reference. When the last strong
	// reference is dropped the object is destroyed.
	Release()

	// Refs returns the current number of strong references.
	Refs() int32

	// WeakRefs returns the current number of weak references.
	WeakRefs() int32

	managed() *Object
}

// Shared is a strong handle to a countable value. A handle is owned by a
// single goroutine; use Clone to hand a reference to another one.
type Shared[T Countable] struct {
	v     T
	valid bool
}

// NewShared takes a strong reference to v and returns a handle owning it. A
// nil v yields an empty handle.
func NewShared[T Countable](v T) *Shared[T] {
	if isNil(v) {
		return &Shared[T]{}
	}
	v.AddRef()
	return &Shared[T]{v: v, valid: true}
}

// Get returns the referenced value. It must not be used after Release.
func (s *Shared[T]) Get() T { return s.v }

// Valid returns true if the handle still owns a reference.
func (s *Shared[T]) Valid() bool { return s.valid }

// Clone returns a new handle owning its own strong reference.
func (s *Shared[T]) Clone() *Shared[T] {
	if !s.valid {
		return &Shared[T]{}
	}
	return NewShared(s.v)
}

// Release drops the reference owned by the handle. Releasing a handle more
// than once is a no-op.
func (s *Shared[T]) Release() {
	if !s.valid {
		return
	}
	s.valid = false
	v := s.v
	var zero T
	s.v = zero
	v.Release()
}

// Weak observes a countable value without keeping it alive. It references the
// value's control block, and hands out the value only through a successful
// promotion in TryLock. A handle is owned by a single goroutine; use Clone to
// hand one to another.
type Weak[T Countable] struct {
	cb     *ControlBlock
	target T
}

// MakeWeak returns a weak handle to v. The caller must hold a strong
// reference to v. A nil or already destroyed v yields an empty handle.
func MakeWeak[T Countable](v T) *Weak[T] {
	if isNil(v) {
		return &Weak[T]{}
	}
	cb := v.managed().cb.Load()
	if cb == nil || !cb.incrementWeakIfLive() {
		return &Weak[T]{}
	}
	return &Weak[T]{cb: cb, target: v}
}

// TryLock promotes the handle to a strong one if the value is still alive.
// A false result means the value is gone and is not an error.
func (w *Weak[T]) TryLock() (*Shared[T], bool) {
	if w.cb == nil {
		return nil, false
	}
	if !w.cb.tryIncrementStrong() {
		w.cb.owner.metrics.promotionMisses.Inc(1)
		return nil, false
	}
	w.cb.owner.metrics.promotions.Inc(1)
	return &Shared[T]{v: w.target, valid: true}, true
}

// Expired returns true if the value has been destroyed or the handle is
// empty.
func (w *Weak[T]) Expired() bool {
	return w.cb == nil || w.cb.IsExpired()
}

// Valid returns true if the handle references a control block.
func (w *Weak[T]) Valid() bool { return w.cb != nil }

// Clone returns a new handle observing the same value.
func (w *Weak[T]) Clone() *Weak[T] {
	if w.cb == nil {
		return &Weak[T]{}
	}
	w.cb.IncrementWeak()
	return &Weak[T]{cb: w.cb, target: w.target}
}

// Assign makes the handle observe the same value as src, dropping whatever
// it observed before.
func (w *Weak[T]) Assign(src *Weak[T]) {
	if w == src {
		return
	}
	if src.cb != nil {
		src.cb.IncrementWeak()
	}
	cb, target := src.cb, src.target
	w.Release()
	w.cb, w.target = cb, target
}

// Release drops the handle's weak reference and frees the control block if it
// was the last reference of any kind. Releasing an empty handle is a no-op.
func (w *Weak[T]) Release() {
	cb := w.cb
	if cb == nil {
		return
	}
	w.cb = nil
	var zero T
	w.target = zero
	if cb.DecrementWeak() {
		cb.Free()
	}
}

// SameObject returns true if a and b share the same managed object.
func SameObject(a, b Countable) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	return a.managed() == b.managed()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
