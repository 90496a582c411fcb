package refcnt

import (
	"github.com/xichen2020/sharedref/x/instrument"
	"github.com/xichen2020/sharedref/x/pool"
)

// Configuration configures managed objects.
type Configuration struct {
	ControlBlockPool *pool.ObjectPoolConfiguration `yaml:"controlBlockPool"`
}

// NewOptions creates a new set of options from the configuration.
func (c *Configuration) NewOptions(instrumentOpts *instrument.Options) *Options {
	iOpts := instrumentOpts.SubScope("refcnt")
	poolOpts := pool.NewObjectPoolOptions().SetSize(defaultControlBlockPoolSize)
	if c.ControlBlockPool != nil {
		poolOpts = c.ControlBlockPool.NewPoolOptions(iOpts)
	} else {
		poolOpts = poolOpts.SetInstrumentOptions(iOpts)
	}
	return NewOptions().
		SetInstrumentOptions(iOpts).
		SetControlBlockPool(NewControlBlockPool(poolOpts))
}
