package pool

import (
	"errors"
	"math"

	"github.com/xichen2020/sharedref/x/instrument"

	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
)

var (
	// ErrPoolExhausted is returned when the pool has handed out as many values
	// as it is allowed to have outstanding.
	ErrPoolExhausted = errors.New("pool exhausted")
)

// ObjectPoolOptions provide a set of options for the object pool.
type ObjectPoolOptions struct {
	instrumentOpts      *instrument.Options
	size                int
	maxOutstanding      int
	refillLowWatermark  float64
	refillHighWatermark float64
}

// NewObjectPoolOptions create a new set of object pool options.
func NewObjectPoolOptions() *ObjectPoolOptions {
	return &ObjectPoolOptions{
		instrumentOpts: instrument.NewOptions(),
		size:           4096,
	}
}

// SetInstrumentOptions sets the instrument options.
func (o *ObjectPoolOptions) SetInstrumentOptions(v *instrument.Options) *ObjectPoolOptions {
	opts := *o
	opts.instrumentOpts = v
	return &opts
}

// InstrumentOptions returns the instrument options.
func (o *ObjectPoolOptions) InstrumentOptions() *instrument.Options {
	return o.instrumentOpts
}

// SetSize sets the pool size.
func (o *ObjectPoolOptions) SetSize(v int) *ObjectPoolOptions {
	opts := *o
	opts.size = v
	return &opts
}

// Size returns pool size.
func (o *ObjectPoolOptions) Size() int { return o.size }

// SetMaxOutstanding sets the maximum number of values that may be handed out
// and not yet returned. Zero means unbounded.
func (o *ObjectPoolOptions) SetMaxOutstanding(v int) *ObjectPoolOptions {
	opts := *o
	opts.maxOutstanding = v
	return &opts
}

// MaxOutstanding returns the maximum number of outstanding values.
func (o *ObjectPoolOptions) MaxOutstanding() int { return o.maxOutstanding }

// SetRefillLowWatermark sets the low watermark for refilling the pool.
func (o *ObjectPoolOptions) SetRefillLowWatermark(v float64) *ObjectPoolOptions {
	opts := *o
	opts.refillLowWatermark = v
	return &opts
}

// RefillLowWatermark returns the low watermark for refilling the pool.
func (o *ObjectPoolOptions) RefillLowWatermark() float64 { return o.refillLowWatermark }

// SetRefillHighWatermark sets the high watermark for refilling the pool.
func (o *ObjectPoolOptions) SetRefillHighWatermark(v float64) *ObjectPoolOptions {
	opts := *o
	opts.refillHighWatermark = v
	return &opts
}

// RefillHighWatermark returns the high watermark for stop refilling the pool.
func (o *ObjectPoolOptions) RefillHighWatermark() float64 { return o.refillHighWatermark }

type objectPoolMetrics struct {
	free         tally.Gauge
	total        tally.Gauge
	outstanding  tally.Gauge
	getOnEmpty   tally.Counter
	putOnFull    tally.Counter
	getExhausted tally.Counter
}

func newObjectPoolMetrics(m tally.Scope) objectPoolMetrics {
	return objectPoolMetrics{
		free:         m.Gauge("free"),
		total:        m.Gauge("total"),
		outstanding:  m.Gauge("outstanding"),
		getOnEmpty:   m.Counter("get-on-empty"),
		putOnFull:    m.Counter("put-on-full"),
		getExhausted: m.Counter("get-exhausted"),
	}
}

// ObjectPool is a pool of reusable values of type T.
type ObjectPool[T any] struct {
	values              chan T
	alloc               func() T
	size                int
	maxOutstanding      int64
	refillLowWatermark  int
	refillHighWatermark int
	outstanding         atomic.Int64
	filling             atomic.Bool
	initialized         atomic.Bool
	dice                atomic.Int32
	metrics             objectPoolMetrics
}

// NewObjectPool creates a new pool.
func NewObjectPool[T any](opts *ObjectPoolOptions) *ObjectPool[T] {
	if opts == nil {
		opts = NewObjectPoolOptions()
	}

	p := &ObjectPool[T]{
		values:         make(chan T, opts.Size()),
		size:           opts.Size(),
		maxOutstanding: int64(opts.MaxOutstanding()),
		refillLowWatermark: int(math.Ceil(
			opts.RefillLowWatermark() * float64(opts.Size()))),
		refillHighWatermark: int(math.Ceil(
			opts.RefillHighWatermark() * float64(opts.Size()))),
		metrics: newObjectPoolMetrics(opts.InstrumentOptions().MetricsScope()),
	}

	p.setGauges()

	return p
}

// Init initializes the pool.
func (p *ObjectPool[T]) Init(alloc func() T) {
	if !p.initialized.CompareAndSwap(false, true) {
		panic(errors.New("pool is already initialized"))
	}

	p.alloc = alloc

	for i := 0; i < cap(p.values); i++ {
		p.values <- p.alloc()
	}

	p.setGauges()
}

// Get gets a value from the pool. It fails with ErrPoolExhausted if the pool
// already has the maximum number of values outstanding.
func (p *ObjectPool[T]) Get() (T, error) {
	if !p.initialized.Load() {
		panic(errors.New("get before pool is initialized"))
	}

	if n := p.outstanding.Inc(); p.maxOutstanding > 0 && n > p.maxOutstanding {
		p.outstanding.Dec()
		p.metrics.getExhausted.Inc(1)
		var zero T
		return zero, ErrPoolExhausted
	}

	var v T
	select {
	case v = <-p.values:
	default:
		v = p.alloc()
		p.metrics.getOnEmpty.Inc(1)
	}

	p.trySetGauges()

	if p.refillLowWatermark > 0 && len(p.values) <= p.refillLowWatermark {
		p.tryFill()
	}

	return v, nil
}

// Put returns a value to pool.
func (p *ObjectPool[T]) Put(v T) {
	if !p.initialized.Load() {
		panic(errors.New("put before pool is initialized"))
	}

	p.outstanding.Dec()

	select {
	case p.values <- v:
	default:
		p.metrics.putOnFull.Inc(1)
	}

	p.trySetGauges()
}

// Outstanding returns the number of values handed out and not yet returned.
func (p *ObjectPool[T]) Outstanding() int { return int(p.outstanding.Load()) }

// Free returns the number of values currently sitting in the pool.
func (p *ObjectPool[T]) Free() int { return len(p.values) }

func (p *ObjectPool[T]) trySetGauges() {
	if p.dice.Inc()%100 == 0 {
		p.setGauges()
	}
}

func (p *ObjectPool[T]) setGauges() {
	p.metrics.free.Update(float64(len(p.values)))
	p.metrics.total.Update(float64(p.size))
	p.metrics.outstanding.Update(float64(p.outstanding.Load()))
}

func (p *ObjectPool[T]) tryFill() {
	if !p.filling.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer p.filling.Store(false)

		for len(p.values) < p.refillHighWatermark {
			select {
			case p.values <- p.alloc():
			default:
				return
			}
		}
	}()
}
