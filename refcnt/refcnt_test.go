package refcnt

import (
	"testing"

	"github.com/xichen2020/sharedref/x/instrument"
	"github.com/xichen2020/sharedref/x/pool"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testObject struct {
	*Object

	destroyed *atomic.Int32
}

func newTestObject(t *testing.T, opts *Options) *testObject {
	obj := &testObject{destroyed: atomic.NewInt32(0)}
	o, err := NewObject(func() { obj.destroyed.Inc() }, opts)
	require.NoError(t, err)
	obj.Object = o
	return obj
}

func newTestOptions(size int) (*Options, tally.TestScope) {
	scope := tally.NewTestScope("", nil)
	iOpts := instrument.NewOptions().SetMetricsScope(scope)
	poolOpts := pool.NewObjectPoolOptions().
		SetSize(size).
		SetInstrumentOptions(iOpts)
	opts := NewOptions().
		SetInstrumentOptions(iOpts).
		SetControlBlockPool(NewControlBlockPool(poolOpts))
	return opts, scope
}

func counterValue(scope tally.TestScope, name string) int64 {
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == name {
			return c.Value()
		}
	}
	return 0
}

func TestSharedHandleLifecycle(t *testing.T) {
	opts, scope := newTestOptions(4)
	obj := newTestObject(t, opts)
	require.Equal(t, int32(0), obj.Refs())

	s := NewShared(obj)
	require.True(t, s.Valid())
	require.Equal(t, obj, s.Get())
	require.Equal(t, int32(1), obj.Refs())

	s2 := s.Clone()
	require.Equal(t, int32(2), obj.Refs())

	s.Release()
	require.False(t, s.Valid())
	require.Equal(t, int32(1), obj.Refs())

	// Releasing a released handle does not touch the object.
	s.Release()
	require.Equal(t, int32(1), obj.Refs())
	require.Equal(t, int32(0), obj.destroyed.Load())

	s2.Release()
	require.Equal(t, int32(1), obj.destroyed.Load())
	require.Equal(t, Destroyed, obj.State())
	require.Equal(t, int64(1), counterValue(scope, "objects-created"))
	require.Equal(t, int64(1), counterValue(scope, "objects-destroyed"))
}

func TestSharedHandleNil(t *testing.T) {
	var obj *testObject
	s := NewShared(obj)
	require.False(t, s.Valid())
	require.False(t, s.Clone().Valid())
	require.NotPanics(t, func() { s.Release() })
}

func TestWeakHandleTryLock(t *testing.T) {
	opts, scope := newTestOptions(4)
	obj := newTestObject(t, opts)
	s := NewShared(obj)

	w := MakeWeak(obj)
	require.True(t, w.Valid())
	require.False(t, w.Expired())
	require.Equal(t, int32(1), obj.WeakRefs())

	locked, ok := w.TryLock()
	require.True(t, ok)
	require.Equal(t, obj, locked.Get())
	require.Equal(t, int32(2), obj.Refs())
	locked.Release()
	s.Release()

	locked, ok = w.TryLock()
	require.False(t, ok)
	require.Nil(t, locked)
	require.True(t, w.Expired())
	require.Equal(t, int64(1), counterValue(scope, "promotions"))
	require.Equal(t, int64(1), counterValue(scope, "promotion-misses"))
	w.Release()
}

func TestWeakHandleSurvivesStrongDeath(t *testing.T) {
	opts, _ := newTestOptions(4)
	obj := newTestObject(t, opts)
	s := NewShared(obj)
	w := MakeWeak(obj)
	cb := w.cb

	s.Release()
	require.Equal(t, int32(1), obj.destroyed.Load())

	_, ok := w.TryLock()
	require.False(t, ok)
	require.True(t, cb.IsExpired())
	require.Equal(t, int32(1), cb.WeakCount())
	require.Equal(t, int32(-1), cb.StrongCount())
	require.Equal(t, int32(1), obj.destroyed.Load())
	w.Release()
}

func TestWeakHandleKeepsControlBlockAllocated(t *testing.T) {
	opts, scope := newTestOptions(1)
	blocks := opts.ControlBlockPool()

	obj := newTestObject(t, opts)
	s := NewShared(obj)
	w := MakeWeak(obj)
	cb := w.cb
	s.Release()

	// The block of the destroyed object is still held by w, so a new object
	// must get a different one.
	require.Equal(t, 1, blocks.Outstanding())
	require.Equal(t, int64(0), counterValue(scope, "control-blocks-freed"))
	other := newTestObject(t, opts)
	require.NotSame(t, cb, other.cb.Load())
	require.True(t, cb.IsExpired())
	require.False(t, other.Expired())

	w.Release()
	require.Equal(t, int64(1), counterValue(scope, "control-blocks-freed"))
	require.Equal(t, 1, blocks.Outstanding())

	// Once freed, the block is reused.
	third := newTestObject(t, opts)
	require.Same(t, cb, third.cb.Load())
	require.False(t, third.Expired())
}

func TestControlBlockFreedByObjectWithoutWeakHandles(t *testing.T) {
	opts, scope := newTestOptions(1)
	obj := newTestObject(t, opts)
	cb := obj.cb.Load()
	NewShared(obj).Release()

	require.Equal(t, int64(1), counterValue(scope, "control-blocks-freed"))
	require.Equal(t, 0, opts.ControlBlockPool().Outstanding())
	next := newTestObject(t, opts)
	require.Same(t, cb, next.cb.Load())
}

func TestMakeWeakOfDestroyedObject(t *testing.T) {
	opts, _ := newTestOptions(4)
	obj := newTestObject(t, opts)
	NewShared(obj).Release()

	w := MakeWeak(obj)
	require.False(t, w.Valid())
	require.True(t, w.Expired())
	_, ok := w.TryLock()
	require.False(t, ok)
	require.NotPanics(t, func() { w.Release() })

	var nilObj *testObject
	require.False(t, MakeWeak(nilObj).Valid())
}

func TestWeakHandleCloneAndAssign(t *testing.T) {
	opts, _ := newTestOptions(4)
	a := newTestObject(t, opts)
	b := newTestObject(t, opts)
	sa := NewShared(a)
	sb := NewShared(b)

	wa := MakeWeak(a)
	wa2 := wa.Clone()
	require.Equal(t, int32(2), a.WeakRefs())

	wb := MakeWeak(b)
	require.Equal(t, int32(1), b.WeakRefs())

	// Assigning moves wb from b to a.
	wb.Assign(wa)
	require.Equal(t, int32(3), a.WeakRefs())
	require.Equal(t, int32(0), b.WeakRefs())
	locked, ok := wb.TryLock()
	require.True(t, ok)
	require.Equal(t, a, locked.Get())
	locked.Release()

	// Self assignment is a no-op.
	wb.Assign(wb)
	require.Equal(t, int32(3), a.WeakRefs())

	// Assigning an empty handle empties the target.
	wb.Assign(&Weak[*testObject]{})
	require.False(t, wb.Valid())
	require.Equal(t, int32(2), a.WeakRefs())

	empty := (&Weak[*testObject]{}).Clone()
	require.False(t, empty.Valid())

	wa.Release()
	wa2.Release()
	require.Equal(t, int32(0), a.WeakRefs())
	sa.Release()
	sb.Release()
}
