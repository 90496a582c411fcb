package registry

import "github.com/xichen2020/sharedref/x/instrument"

// Options provide a set of registry options.
type Options struct {
	instrumentOpts *instrument.Options
	listener       Listener
}

// NewOptions creates a new set of registry options.
func NewOptions() *Options {
	return &Options{
		instrumentOpts: instrument.NewOptions(),
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

// SetListener sets the listener notified of added and removed objects.
func (o *Options) SetListener(v Listener) *Options {
	opts := *o
	opts.listener = v
	return &opts
}

// Listener returns the listener notified of added and removed objects.
func (o *Options) Listener() Listener {
	return o.listener
}
