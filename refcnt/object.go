package refcnt

import (
	"go.uber.org/atomic"
)

// State is the lifecycle state of a managed object.
type State int32

// A list of supported object states.
const (
	Live State = iota
	Destroying
	Destroyed
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Destroying:
		return "destroying"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// OnDestroyFn is a callback that gets called when the last strong reference
// to an object is released.
type OnDestroyFn func()

// Object is the reference counting capability of a managed type. Managed
// types embed a *Object created by NewObject. A freshly created object has no
// strong references; the first strong handle takes one.
//
// Copying a managed value by value copies the embedded pointer, so the copy
// shares the original's counts and control block; go vet does not catch this.
// A copy that lives on its own needs a new Object:
//
//	c := &buffer{data: b.data}
//	c.Object, err = refcnt.NewObject(c.close, opts)
type Object struct {
	cb        atomic.Pointer[ControlBlock]
	state     atomic.Int32
	owner     *ControlBlockPool
	onDestroy OnDestroyFn
}

// NewObject creates a new object with its own control block. The callback,
// if not nil, tears down the embedding type once the object is destroyed.
func NewObject(fn OnDestroyFn, opts *Options) (*Object, error) {
	if opts == nil {
		opts = defaultOptions
	}
	p := opts.ControlBlockPool()
	cb, err := p.get()
	if err != nil {
		return nil, err
	}
	o := &Object{
		owner:     p,
		onDestroy: fn,
	}
	o.cb.Store(cb)
	p.metrics.objectsCreated.Inc(1)
	return o, nil
}

func (o *Object) managed() *Object { return o }

// AddRef takes a strong reference to the object.
func (o *Object) AddRef() {
	o.controlBlock().IncrementStrong()
}

// Release drops a strong reference to the object and destroys it if this was
// the last one.
func (o *Object) Release() {
	cb := o.controlBlock()
	if !cb.DecrementStrong() {
		return
	}
	o.destroy(cb)
}

// Refs returns the number of strong references, or -1 once the object has
// been destroyed. The value is stale as soon as it is returned.
func (o *Object) Refs() int32 {
	cb := o.cb.Load()
	if cb == nil {
		return expiredRefCount
	}
	n := cb.StrongCount()
	if o.cb.Load() != cb {
		return expiredRefCount
	}
	return n
}

// WeakRefs returns the number of weak handles observing the object. The
// object's reference to its own control block is not counted.
func (o *Object) WeakRefs() int32 {
	cb := o.cb.Load()
	if cb == nil {
		return 0
	}
	n := cb.WeakCount()
	if o.cb.Load() != cb {
		return 0
	}
	return n
}

// Expired returns true if the object has been destroyed.
func (o *Object) Expired() bool {
	cb := o.cb.Load()
	if cb == nil {
		return true
	}
	expired := cb.IsExpired()
	return expired || o.cb.Load() != cb
}

// State returns the lifecycle state of the object.
func (o *Object) State() State { return State(o.state.Load()) }

func (o *Object) controlBlock() *ControlBlock {
	cb := o.cb.Load()
	if cb == nil {
		o.owner.violation(errObjectDestroyed, expiredRefCount, 0)
	}
	return cb
}

// destroy runs once the strong count has dropped to zero. The control block
// is already marked expired, so weak handles can no longer promote while the
// teardown callback runs.
func (o *Object) destroy(cb *ControlBlock) {
	if !o.state.CompareAndSwap(int32(Live), int32(Destroying)) {
		o.owner.violation(errDoubleDestroy, cb.StrongCount(), cb.WeakCount())
	}
	if o.onDestroy != nil {
		o.onDestroy()
	}
	o.owner.metrics.objectsDestroyed.Inc(1)

	// Detach before releasing the self weak reference. Once released, the last
	// weak handle may free the block and the pool may hand it to a new object.
	o.cb.Store(nil)
	if cb.releaseSelf() {
		cb.Free()
	}
	o.state.Store(int32(Destroyed))
}
