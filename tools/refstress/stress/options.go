package stress

import (
	"github.com/xichen2020/sharedref/refcnt"
	"github.com/xichen2020/sharedref/x/instrument"
)

const (
	defaultNumWorkers = 8
	defaultNumIters   = 10000
	defaultNumRounds  = 1000
)

// Options provide a set of stress options.
type Options struct {
	instrumentOpts *instrument.Options
	refcntOpts     *refcnt.Options
	numWorkers     int
	numIters       int
	numRounds      int
}

// NewOptions creates a new set of stress options.
func NewOptions() *Options {
	return &Options{
		instrumentOpts: instrument.NewOptions(),
		refcntOpts:     refcnt.NewOptions(),
		numWorkers:     defaultNumWorkers,
		numIters:       defaultNumIters,
		numRounds:      defaultNumRounds,
	}
}

// SetInstrumentOptions sets the instrument options.
func (o *Options) SetInstrumentOptions(v *instrument.Options) *Options {
	opts := *o
	opts.instrumentOpts = v
	return &opts
}

// InstrumentOptions returns the instrument options.
func (o *Options) InstrumentOptions() *instrument.Options { return o.instrumentOpts }

// SetRefcntOptions sets the options used to create managed objects.
func (o *Options) SetRefcntOptions(v *refcnt.Options) *Options {
	opts := *o
	opts.refcntOpts = v
	return &opts
}

// RefcntOptions returns the options used to create managed objects.
func (o *Options) RefcntOptions() *refcnt.Options { return o.refcntOpts }

// SetNumWorkers sets the number of goroutines sharing an object.
func (o *Options) SetNumWorkers(v int) *Options {
	opts := *o
	opts.numWorkers = v
	return &opts
}

// NumWorkers returns the number of goroutines sharing an object.
func (o *Options) NumWorkers() int { return o.numWorkers }

// SetNumIters sets the number of paired AddRef/Release calls per worker.
func (o *Options) SetNumIters(v int) *Options {
	opts := *o
	opts.numIters = v
	return &opts
}

// NumIters returns the number of paired AddRef/Release calls per worker.
func (o *Options) NumIters() int { return o.numIters }

// SetNumRounds sets the number of objects raced to destruction.
func (o *Options) SetNumRounds(v int) *Options {
	opts := *o
	opts.numRounds = v
	return &opts
}

// NumRounds returns the number of objects raced to destruction.
func (o *Options) NumRounds() int { return o.numRounds }
