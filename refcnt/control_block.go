package refcnt

import (
	"sync"

	"github.com/xichen2020/sharedref/x/pool"

	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
)

const (
	// expiredRefCount marks the strong count of a block whose object has been
	// destroyed. It is distinct from a zero count, which never persists.
	expiredRefCount int32 = -1

	defaultControlBlockPoolSize = 256
)

var (
	errIncrementExpired   = errors.New("increment strong count of expired object")
	errDecrementNonLive   = errors.New("decrement strong count of non-live object")
	errWeakCountUnderflow = errors.New("weak count underflow")
	errIncrementWeakFreed = errors.New("increment weak count of freed control block")
	errFreeReferenced     = errors.New("free of control block with outstanding weak references")
	errDoubleFree         = errors.New("control block freed more than once")
	errObjectDestroyed    = errors.New("use of destroyed object")
	errDoubleDestroy      = errors.New("object destroyed more than once")
	errSelfReleaseLive    = errors.New("self weak reference released before expiry")
)

// ControlBlock holds the strong and weak reference counts of a managed object.
// It knows nothing about the object it tracks, and may outlive it for as long
// as weak handles to the object exist. Every counter access happens under the
// block's own lock.
type ControlBlock struct {
	mu     sync.Mutex
	strong int32
	weak   int32
	self   bool
	free   bool
	owner  *ControlBlockPool
}

func (cb *ControlBlock) reset() {
	cb.mu.Lock()
	cb.strong = 0
	// The tracked object holds one weak reference to its own block.
	cb.weak = 1
	cb.self = true
	cb.free = false
	cb.mu.Unlock()
}

// IncrementStrong increments the strong count. Incrementing the count of an
// expired object is fatal.
func (cb *ControlBlock) IncrementStrong() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.strong < 0 {
		cb.owner.violation(errIncrementExpired, cb.strong, cb.weak)
	}
	cb.strong++
}

// DecrementStrong decrements the strong count and returns true if it dropped
// to zero, in which case the caller must destroy the tracked object. The block
// is marked expired before the lock is released so no observer ever sees a
// zero strong count.
func (cb *ControlBlock) DecrementStrong() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.strong <= 0 {
		cb.owner.violation(errDecrementNonLive, cb.strong, cb.weak)
	}
	cb.strong--
	if cb.strong > 0 {
		return false
	}
	cb.strong = expiredRefCount
	return true
}

// tryIncrementStrong increments the strong count only if the object is still
// alive, and reports whether it did.
func (cb *ControlBlock) tryIncrementStrong() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.strong <= 0 {
		return false
	}
	cb.strong++
	return true
}

// IncrementWeak increments the weak count.
func (cb *ControlBlock) IncrementWeak() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.free || cb.weak <= 0 {
		cb.owner.violation(errIncrementWeakFreed, cb.strong, cb.weak)
	}
	cb.weak++
}

// incrementWeakIfLive increments the weak count only if the tracked object
// has not expired.
func (cb *ControlBlock) incrementWeakIfLive() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.free || cb.strong < 0 {
		return false
	}
	cb.weak++
	return true
}

// DecrementWeak decrements the weak count and returns true if it dropped to
// zero, in which case the caller must Free the block. It never releases the
// reference the tracked object holds on its own block.
func (cb *ControlBlock) DecrementWeak() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.free || cb.weak-cb.selfRef() <= 0 {
		cb.owner.violation(errWeakCountUnderflow, cb.strong, cb.weak)
	}
	cb.weak--
	return cb.weak == 0
}

// releaseSelf drops the tracked object's own weak reference once the object
// is destroyed, and returns true if no weak handles remain.
func (cb *ControlBlock) releaseSelf() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.self {
		cb.owner.violation(errDoubleDestroy, cb.strong, cb.weak)
	}
	if cb.strong != expiredRefCount {
		cb.owner.violation(errSelfReleaseLive, cb.strong, cb.weak)
	}
	cb.self = false
	cb.weak--
	return cb.weak == 0
}

func (cb *ControlBlock) selfRef() int32 {
	if cb.self {
		return 1
	}
	return 0
}

// Free returns the block to its pool. The weak count must have dropped to zero
// and the block may be freed only once.
func (cb *ControlBlock) Free() {
	cb.mu.Lock()
	if cb.free {
		strong, weak := cb.strong, cb.weak
		cb.mu.Unlock()
		cb.owner.violation(errDoubleFree, strong, weak)
	}
	if cb.weak != 0 {
		strong, weak := cb.strong, cb.weak
		cb.mu.Unlock()
		cb.owner.violation(errFreeReferenced, strong, weak)
	}
	cb.free = true
	cb.mu.Unlock()

	cb.owner.put(cb)
}

// StrongCount returns a snapshot of the strong count, or -1 if the tracked
// object has been destroyed.
func (cb *ControlBlock) StrongCount() int32 {
	cb.mu.Lock()
	n := cb.strong
	cb.mu.Unlock()
	return n
}

// WeakCount returns a snapshot of the weak count, excluding the reference the
// tracked object holds on its own block.
func (cb *ControlBlock) WeakCount() int32 {
	cb.mu.Lock()
	n := cb.weak - cb.selfRef()
	cb.mu.Unlock()
	return n
}

// IsExpired returns true if the tracked object has been destroyed.
func (cb *ControlBlock) IsExpired() bool {
	cb.mu.Lock()
	expired := cb.strong == expiredRefCount
	cb.mu.Unlock()
	return expired
}

type controlBlockMetrics struct {
	objectsCreated      tally.Counter
	objectsDestroyed    tally.Counter
	promotions          tally.Counter
	promotionMisses     tally.Counter
	blocksFreed         tally.Counter
	invariantViolations tally.Counter
}

func newControlBlockMetrics(scope tally.Scope) controlBlockMetrics {
	return controlBlockMetrics{
		objectsCreated:      scope.Counter("objects-created"),
		objectsDestroyed:    scope.Counter("objects-destroyed"),
		promotions:          scope.Counter("promotions"),
		promotionMisses:     scope.Counter("promotion-misses"),
		blocksFreed:         scope.Counter("control-blocks-freed"),
		invariantViolations: scope.Counter("invariant-violations"),
	}
}

// ControlBlockPool hands out control blocks and takes them back once freed.
// Freed blocks are reused by later objects.
type ControlBlockPool struct {
	pool    *pool.ObjectPool[*ControlBlock]
	logger  *zap.Logger
	metrics controlBlockMetrics
}

// NewControlBlockPool creates a new control block pool.
func NewControlBlockPool(opts *pool.ObjectPoolOptions) *ControlBlockPool {
	if opts == nil {
		opts = pool.NewObjectPoolOptions().SetSize(defaultControlBlockPoolSize)
	}
	iOpts := opts.InstrumentOptions()
	p := &ControlBlockPool{
		logger:  iOpts.Logger(),
		metrics: newControlBlockMetrics(iOpts.MetricsScope()),
	}
	p.pool = pool.NewObjectPool[*ControlBlock](opts)
	p.pool.Init(func() *ControlBlock {
		return &ControlBlock{owner: p, free: true}
	})
	return p
}

// Outstanding returns the number of control blocks currently in use.
func (p *ControlBlockPool) Outstanding() int { return p.pool.Outstanding() }

func (p *ControlBlockPool) get() (*ControlBlock, error) {
	cb, err := p.pool.Get()
	if err != nil {
		return nil, errors.Wrap(err, "allocating control block")
	}
	cb.reset()
	return cb, nil
}

func (p *ControlBlockPool) put(cb *ControlBlock) {
	p.metrics.blocksFreed.Inc(1)
	p.pool.Put(cb)
}

// violation reports a broken reference counting contract. These are
// programming errors upstream and are never recovered from.
func (p *ControlBlockPool) violation(err error, strong, weak int32) {
	p.metrics.invariantViolations.Inc(1)
	p.logger.Error("reference count invariant violated",
		zap.Error(err),
		zap.Int32("strong", strong),
		zap.Int32("weak", weak),
	)
	panic(errors.WithStack(err))
}
