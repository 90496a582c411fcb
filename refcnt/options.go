package refcnt

import (
	"github.com/xichen2020/sharedref/x/instrument"
)

var (
	defaultControlBlockPool = NewControlBlockPool(nil)
	defaultOptions          = NewOptions()
)

// Options provide a set of options for managed objects.
type Options struct {
	instrumentOpts *instrument.Options
	blockPool      *ControlBlockPool
}

// NewOptions creates a new set of options.
func NewOptions() *Options {
	return &Options{
		instrumentOpts: instrument.NewOptions(),
		blockPool:      defaultControlBlockPool,
	}
}

// SetInstrumentOptions sets the instrument options.
func (o *Options) SetInstrumentOptions(v *instrument.Options) *Options {
	opts := *o
	opts.instrumentOpts = v
	return &opts
}

// InstrumentOptions returns the instrument options.
func (o *Options) InstrumentOptions() *instrument.Options {
	return o.instrumentOpts
}

// SetControlBlockPool sets the pool control blocks are allocated from.
func (o *Options) SetControlBlockPool(v *ControlBlockPool) *Options {
	opts := *o
	opts.blockPool = v
	return &opts
}

// ControlBlockPool returns the pool control blocks are allocated from.
func (o *Options) ControlBlockPool() *ControlBlockPool {
	return o.blockPool
}
